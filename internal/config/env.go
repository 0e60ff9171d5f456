package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// envPrefix namespaces the environment overrides.
const envPrefix = "CHAINCHAT"

// applyEnv overrides config fields from environment variables. Unset
// variables leave the file/default value in place.
func applyEnv(cfg *Config) error {
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FILE"); ok {
		cfg.Logging.File = v
	}
	if v, ok := lookup("API_LISTEN_ADDR"); ok {
		cfg.API.ListenAddr = v
	}
	if v, ok := lookup("API_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s_API_ENABLED: %w", envPrefix, err)
		}
		cfg.API.Enabled = enabled
	}
	if v, ok := lookup("API_RATE_LIMIT"); ok {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s_API_RATE_LIMIT: %w", envPrefix, err)
		}
		cfg.API.RateLimit = limit
	}
	if v, ok := lookup("STORE_PATH"); ok {
		cfg.Store.Path = v
	}
	if v, ok := lookup("CHECKPOINT_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s_CHECKPOINT_INTERVAL: %w", envPrefix, err)
		}
		cfg.Store.CheckpointInterval = d
	}
	return nil
}

func lookup(key string) (string, bool) {
	return os.LookupEnv(envPrefix + "_" + key)
}
