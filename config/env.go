package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays TOPICMESH_* environment variables onto cfg. Unparseable
// values are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("TOPICMESH_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TOPICMESH_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.InMemory = b
		}
	}
	if v := os.Getenv("TOPICMESH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TOPICMESH_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TOPICMESH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Connection.PollInterval = d
			cfg.Monitor.PollInterval = d
		}
	}
	if v := os.Getenv("TOPICMESH_CORRELATOR_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Correlator.MaxAttempts = n
		}
	}
	if v := os.Getenv("TOPICMESH_CORRELATOR_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Correlator.Delay = d
		}
	}
	if v := os.Getenv("TOPICMESH_LARGE_CONTENT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LargeContentThreshold = n
		}
	}
	if v := os.Getenv("TOPICMESH_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
}
