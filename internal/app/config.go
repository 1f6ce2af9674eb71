package app

import (
	"github.com/splitlab/splitlab-backend/internal/platform/envutil"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type Config struct {
	AppEnv          string
	Port            string
	SignedURLSecret string
	SignedURLBypass bool
	CORSOrigins     string
}

func (c Config) Production() bool { return c.AppEnv == "production" }

func LoadConfig(log *logger.Logger) Config {
	return Config{
		AppEnv:          envutil.GetEnv("APP_ENV", "development", log),
		Port:            envutil.GetEnv("PORT", "8080", log),
		SignedURLSecret: envutil.GetEnv("SIGNED_URL_SECRET", "", log),
		SignedURLBypass: envutil.GetEnvAsBool("SIGNED_URL_DEV_BYPASS", false, log),
		CORSOrigins:     envutil.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173", log),
	}
}
