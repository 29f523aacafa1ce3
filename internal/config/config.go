package config

import (
	"os"
	"strconv"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr string

	// Session backend: "memory", "bolt" or "redis"
	KVBackend string
	BoltPath  string
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Tokens
	TokenIssuer string
	TokenTTL    time.Duration

	// Super admin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string
	SuperAdminName     string

	// Demo data
	SeedDemoData bool
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		KVBackend: getEnv("KV_BACKEND", "memory"),
		BoltPath:  getEnv("BOLT_PATH", "sessions.db"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		TokenIssuer: getEnv("TOKEN_ISSUER", "notes-app"),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 24*time.Hour),

		SuperAdminEmail:    getEnv("SUPER_ADMIN_EMAIL", ""),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", ""),
		SuperAdminName:     getEnv("SUPER_ADMIN_NAME", ""),

		SeedDemoData: getEnvBool("SEED_DEMO_DATA", true),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
