package config

import (
	"os"

	"smart2onyma/common/config"
)

// Config process configuration taken from the environment
type Config struct {
	Redis config.RedisConfig

	Export struct {
		// ErrorsLog is where reportable per-account errors are written
		ErrorsLog string
		// MapsFile overrides the embedded mapping tables when set
		MapsFile string
		// UsrconnidKey is the Redis hash holding sitename -> usrconnid
		UsrconnidKey string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Redis is optional, an empty address disables the usrconnid store
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Export.ErrorsLog = getEnv("ERRORS_LOG", "errors.log")
	cfg.Export.MapsFile = getEnv("MAPS_FILE", "")
	cfg.Export.UsrconnidKey = getEnv("USRCONNID_REDIS_KEY", "smart2onyma:usrconnid")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "console")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
