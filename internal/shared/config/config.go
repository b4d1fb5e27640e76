package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultExtractTimeout = 2 * time.Minute

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	ObjectStoreType string
	FilesDir        string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	ExtractorBin    string
	ExtractTimeout  time.Duration
	Fallback        bool
	ExtraMimeTypes  []string
	QueueURL        string
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		DatabaseURL:     dbURL,
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		FilesDir:        getEnv("FILES_DIR", "./files"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		ExtractorBin:    getEnv("PDFSEARCH_EXTRACTOR_BIN", "pdftotext"),
		ExtractTimeout:  getDuration("PDFSEARCH_EXTRACT_TIMEOUT", defaultExtractTimeout),
		Fallback:        getBool("PDFSEARCH_FALLBACK", true),
		ExtraMimeTypes:  splitAndTrim(getEnv("PDFSEARCH_EXTRA_MIME_TYPES", "")),
		QueueURL:        strings.TrimSpace(getEnv("PDFSEARCH_SQS_QUEUE_URL", "")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config env %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
