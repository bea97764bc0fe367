package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	LogCapacity           int
	StalenessBoundSeconds int
	SkewToleranceSeconds  int
	QueryMaxLimit         int

	GuardianKeysHex string
	GuardianQuorum  int

	PolicyBundlePath string
	PolicyBundleID   string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		LogCapacity:            envIntDefault("LOG_CAPACITY", 100),
		StalenessBoundSeconds:  envIntDefault("STALENESS_BOUND_SECONDS", 86400),
		SkewToleranceSeconds:   envIntDefault("SKEW_TOLERANCE_SECONDS", 300),
		QueryMaxLimit:          envIntDefault("QUERY_MAX_LIMIT", 100),
		GuardianKeysHex:        os.Getenv("GUARDIAN_KEYS_HEX"),
		GuardianQuorum:         envIntDefault("GUARDIAN_QUORUM", 0),
		PolicyBundlePath:       os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyBundleID:         os.Getenv("POLICY_BUNDLE_ID"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (c Config) StalenessBound() time.Duration {
	return time.Duration(c.StalenessBoundSeconds) * time.Second
}

func (c Config) SkewTolerance() time.Duration {
	return time.Duration(c.SkewToleranceSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
