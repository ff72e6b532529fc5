package config

import (
	"encoding/base64"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port              string
	MongoURI          string
	DBName            string
	JWTSecret         string
	RedisAddr         string
	RedisPassword     string
	QueueDriver       string // "redis" or "memory"
	WorkerConcurrency int
	MaxJobAttempts    int
	Env               string // "development" or "production"
	SMTPEncryptionKey []byte // 32 bytes for AES-256; optional, base64 in env
}

func Load() (*Config, error) {
	concurrency := 1
	if v := getEnv("WORKER_CONCURRENCY", "1"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = n
		}
	}
	attempts := 3
	if v := getEnv("MAX_JOB_ATTEMPTS", "3"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			attempts = n
		}
	}
	var smtpEncKey []byte
	if k := getEnv("SMTP_ENCRYPTION_KEY", ""); k != "" {
		smtpEncKey, _ = base64.StdEncoding.DecodeString(k)
		if len(smtpEncKey) != 32 {
			smtpEncKey = nil
		}
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:            getEnv("MONGODB_DB", "sendhub"),
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		QueueDriver:       getEnv("QUEUE_DRIVER", "redis"),
		WorkerConcurrency: concurrency,
		MaxJobAttempts:    attempts,
		Env:               getEnv("APP_ENV", "development"),
		SMTPEncryptionKey: smtpEncKey,
	}, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RequiredEnvVars are checked at startup; app exits if any are unset.
var RequiredEnvVars = []string{
	"MONGODB_URI",
	"MONGODB_DB",
	"JWT_SECRET",
}

// OptionalEnvVars are logged at startup so you can confirm they are loaded when set.
var OptionalEnvVars = []string{
	"PORT",
	"REDIS_ADDR",
	"QUEUE_DRIVER",
	"WORKER_CONCURRENCY",
	"MAX_JOB_ATTEMPTS",
	"APP_ENV",
}

// secretEnvVars are never echoed back in startup logs.
var secretEnvVars = map[string]bool{
	"JWT_SECRET":          true,
	"REDIS_PASSWORD":      true,
	"SMTP_ENCRYPTION_KEY": true,
	"MONGODB_URI":         true,
}

// ValidateEnv checks that all required env vars are set and logs status of required + optional.
// Calls log.Fatal if any required var is missing.
func ValidateEnv() {
	var missing []string
	for _, key := range RequiredEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		} else {
			log.Printf("env %s loaded", key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("missing required env: %s (set these in .env or environment)", strings.Join(missing, ", "))
	}
	for _, key := range OptionalEnvVars {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			log.Printf("env %s not set (optional)", key)
			continue
		}
		if secretEnvVars[key] {
			log.Printf("env %s loaded", key)
		} else {
			log.Printf("env %s = %s", key, v)
		}
	}
	if j := os.Getenv("JWT_SECRET"); j == "change-me-in-production" {
		log.Fatal("JWT_SECRET must be set to a strong secret (not the default change-me-in-production)")
	}
	if k := os.Getenv("SMTP_ENCRYPTION_KEY"); k != "" {
		dec, _ := base64.StdEncoding.DecodeString(k)
		if len(dec) != 32 {
			log.Fatalf("SMTP_ENCRYPTION_KEY must be 32 bytes base64 (got %d bytes); generate with: openssl rand -base64 32", len(dec))
		}
	}
}
