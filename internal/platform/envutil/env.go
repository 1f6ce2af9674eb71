package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

func GetEnv(key, fallback string, log *logger.Logger) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		if log != nil {
			log.Debug("env var unset, using fallback", "key", key)
		}
		return fallback
	}
	return v
}

func GetEnvAsInt(key string, fallback int, log *logger.Logger) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Warn("env var is not an integer, using fallback", "key", key, "value", v)
		}
		return fallback
	}
	return n
}

func GetEnvAsBool(key string, fallback bool, log *logger.Logger) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		if log != nil {
			log.Warn("env var is not a boolean, using fallback", "key", key, "value", v)
		}
		return fallback
	}
}
