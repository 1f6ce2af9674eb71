package app

import (
	"fmt"

	"github.com/splitlab/splitlab-backend/internal/clients/gcp"
	"github.com/splitlab/splitlab-backend/internal/clients/redis"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type Clients struct {
	Bucket gcp.BucketService
	Cache  redis.ByteCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket service: %w", err)
	}

	cache, err := redis.NewByteCache(log)
	if err != nil {
		log.Warn("Redis unavailable, using in-process archive cache", "error", err)
		cache = redis.NewLocalByteCache()
	}

	return Clients{Bucket: bucket, Cache: cache}, nil
}
