// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DotenvFiles are loaded, when present, before the environment is read.
// Variables already set in the process environment win, and earlier files
// win over later ones.
var DotenvFiles = []string{".env.local", ".env"}

type Config struct {
	DatabaseURL  string        // CATALOG_DATABASE_URL (optional, empty = in-memory store)
	HTTPAddr     string        // CATALOG_HTTP_ADDR (default ":8080")
	GRPCAddr     string        // CATALOG_GRPC_ADDR (default ":9090")
	Secret       string        // CATALOG_SECRET (webhook and preview secret; empty = both reject)
	AuthToken    string        // CATALOG_AUTH_TOKEN (optional, empty = admin auth disabled)
	NATSURL      string        // CATALOG_NATS_URL (optional, empty = no events)
	RedisAddr    string        // CATALOG_REDIS_ADDR (optional, empty = local cache only)
	RedisDB      int           // CATALOG_REDIS_DB (default 0)
	CacheTTL     time.Duration // CATALOG_CACHE_TTL (default 60s)
	StoreTimeout time.Duration // CATALOG_STORE_TIMEOUT (default 10s)
	SchemaFile   string        // CATALOG_SCHEMA_FILE (optional TOML, empty = built-in schema)

	// Upload blob storage
	S3Bucket    string // CATALOG_S3_BUCKET (enables S3 when set, otherwise uploads stay in memory)
	S3Region    string // CATALOG_S3_REGION (default "us-east-1")
	S3Endpoint  string // CATALOG_S3_ENDPOINT (custom endpoint for MinIO)
	S3PublicURL string // CATALOG_S3_PUBLIC_URL (base of returned file URLs)

	// Export settings
	ExportInterval time.Duration // CATALOG_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Key    string        // CATALOG_EXPORT_S3_KEY (default "catalog/export.jsonl")
	ExportFile     string        // CATALOG_EXPORT_FILE (optional local destination)
}

// Load reads the configuration from dotenv files and the environment.
func Load() (*Config, error) {
	if err := loadDotenv(DotenvFiles); err != nil {
		return nil, err
	}

	c := &Config{
		DatabaseURL: os.Getenv("CATALOG_DATABASE_URL"),
		HTTPAddr:    envOrDefault("CATALOG_HTTP_ADDR", ":8080"),
		GRPCAddr:    envOrDefault("CATALOG_GRPC_ADDR", ":9090"),
		Secret:      os.Getenv("CATALOG_SECRET"),
		AuthToken:   os.Getenv("CATALOG_AUTH_TOKEN"),
		NATSURL:     os.Getenv("CATALOG_NATS_URL"),
		RedisAddr:   os.Getenv("CATALOG_REDIS_ADDR"),
		SchemaFile:  os.Getenv("CATALOG_SCHEMA_FILE"),
		S3Bucket:    os.Getenv("CATALOG_S3_BUCKET"),
		S3Region:    envOrDefault("CATALOG_S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("CATALOG_S3_ENDPOINT"),
		S3PublicURL: os.Getenv("CATALOG_S3_PUBLIC_URL"),
		ExportS3Key: envOrDefault("CATALOG_EXPORT_S3_KEY", "catalog/export.jsonl"),
		ExportFile:  os.Getenv("CATALOG_EXPORT_FILE"),
	}

	var err error
	if c.CacheTTL, err = durationEnv("CATALOG_CACHE_TTL", "60s"); err != nil {
		return nil, err
	}
	if c.StoreTimeout, err = durationEnv("CATALOG_STORE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if c.ExportInterval, err = durationEnv("CATALOG_EXPORT_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if c.CacheTTL <= 0 {
		return nil, errors.New("CATALOG_CACHE_TTL must be positive")
	}
	if c.StoreTimeout <= 0 {
		return nil, errors.New("CATALOG_STORE_TIMEOUT must be positive")
	}
	if c.ExportInterval < 0 {
		return nil, errors.New("CATALOG_EXPORT_INTERVAL must not be negative")
	}

	if s := os.Getenv("CATALOG_REDIS_DB"); s != "" {
		if _, err := fmt.Sscanf(s, "%d", &c.RedisDB); err != nil {
			return nil, fmt.Errorf("CATALOG_REDIS_DB: %w", err)
		}
	}

	return c, nil
}

// ExportEnabled reports whether periodic export should run.
func (c *Config) ExportEnabled() bool {
	return c.ExportInterval > 0 && (c.S3Bucket != "" || c.ExportFile != "")
}

// String renders the configuration with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("Config:\n")
	fmt.Fprintf(&sb, "  DatabaseURL: %s\n", mask(c.DatabaseURL != "", "(memory)"))
	fmt.Fprintf(&sb, "  HTTPAddr: %s\n", c.HTTPAddr)
	fmt.Fprintf(&sb, "  GRPCAddr: %s\n", c.GRPCAddr)
	fmt.Fprintf(&sb, "  Secret: %s\n", mask(c.Secret != "", "(empty)"))
	fmt.Fprintf(&sb, "  AuthToken: %s\n", mask(c.AuthToken != "", "(empty)"))
	fmt.Fprintf(&sb, "  NATSURL: %s\n", c.NATSURL)
	fmt.Fprintf(&sb, "  RedisAddr: %s\n", c.RedisAddr)
	fmt.Fprintf(&sb, "  CacheTTL: %s\n", c.CacheTTL)
	fmt.Fprintf(&sb, "  StoreTimeout: %s\n", c.StoreTimeout)
	fmt.Fprintf(&sb, "  SchemaFile: %s\n", c.SchemaFile)
	fmt.Fprintf(&sb, "  S3Bucket: %s\n", c.S3Bucket)
	fmt.Fprintf(&sb, "  ExportInterval: %s\n", c.ExportInterval)
	return sb.String()
}

func mask(set bool, unset string) string {
	if set {
		return "********"
	}
	return unset
}

func loadDotenv(files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
