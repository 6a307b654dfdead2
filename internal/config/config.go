package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	LogLevel string
	DebugLog bool

	// CORS
	FrontendOrigins []string

	// S3 / MinIO
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// Signed URL lifetime
	SignedURLTTL time.Duration

	// OCR
	OCRLang string

	// Downstream assistant; empty URL enables stub mode
	AssistantURL     string
	AssistantToken   string
	AssistantTimeout time.Duration

	// Document registry
	DatabaseFile string

	// Upload limits
	MaxFileSize int64
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DebugLog:          getEnv("DEBUG_LOG", "0") == "1",
		FrontendOrigins:   getEnvList("FRONTEND_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", ""),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		SignedURLTTL:      time.Duration(getEnvInt("SIGNED_URL_TTL_MIN", 15)) * time.Minute,
		OCRLang:           getEnv("OCR_LANG", "eng"),
		AssistantURL:      getEnv("ASSISTANT_URL", ""),
		AssistantToken:    getEnv("ASSISTANT_BEARER_TOKEN", ""),
		AssistantTimeout:  time.Duration(getEnvInt("ASSISTANT_TIMEOUT_SEC", 180)) * time.Second,
		DatabaseFile:      getEnv("DATABASE_FILE", "data/mercer.db"),
		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 25<<20),
	}

	if cfg.S3BucketName == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME is required")
	}

	if cfg.DebugLog {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
