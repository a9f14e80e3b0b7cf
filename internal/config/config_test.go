package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var allEnvVars = []string{
	"CATALOG_DATABASE_URL", "CATALOG_HTTP_ADDR", "CATALOG_GRPC_ADDR", "CATALOG_SECRET",
	"CATALOG_AUTH_TOKEN", "CATALOG_NATS_URL", "CATALOG_REDIS_ADDR", "CATALOG_REDIS_DB",
	"CATALOG_CACHE_TTL", "CATALOG_STORE_TIMEOUT", "CATALOG_SCHEMA_FILE",
	"CATALOG_S3_BUCKET", "CATALOG_S3_REGION", "CATALOG_S3_ENDPOINT", "CATALOG_S3_PUBLIC_URL",
	"CATALOG_EXPORT_INTERVAL", "CATALOG_EXPORT_S3_KEY", "CATALOG_EXPORT_FILE",
}

// clearAllEnv blanks every variable and runs the test in an empty directory
// so stray dotenv files are not picked up.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantGRPCAddr string
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:         "Defaults",
			env:          map[string]string{},
			wantGRPCAddr: ":9090",
			wantHTTPAddr: ":8080",
		},
		{
			name: "CustomAddresses",
			env: map[string]string{
				"CATALOG_DATABASE_URL": "postgres://db:5432/catalog",
				"CATALOG_GRPC_ADDR":    ":5050",
				"CATALOG_HTTP_ADDR":    ":3000",
				"CATALOG_NATS_URL":     "nats://localhost:4222",
			},
			wantGRPCAddr: ":5050",
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
		{
			name:    "BadCacheTTL",
			env:     map[string]string{"CATALOG_CACHE_TTL": "soon"},
			wantErr: true,
		},
		{
			name:    "ZeroStoreTimeout",
			env:     map[string]string{"CATALOG_STORE_TIMEOUT": "0s"},
			wantErr: true,
		},
		{
			name:    "NegativeExportInterval",
			env:     map[string]string{"CATALOG_EXPORT_INTERVAL": "-1m"},
			wantErr: true,
		},
		{
			name:    "BadRedisDB",
			env:     map[string]string{"CATALOG_REDIS_DB": "two"},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tc.env["CATALOG_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["CATALOG_DATABASE_URL"])
			}
			if cfg.GRPCAddr != tc.wantGRPCAddr {
				t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, tc.wantGRPCAddr)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoad_DurationsAndDefaults(t *testing.T) {
	clearAllEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheTTL != 60*time.Second || cfg.StoreTimeout != 10*time.Second || cfg.ExportInterval != 0 {
		t.Errorf("durations = %s %s %s", cfg.CacheTTL, cfg.StoreTimeout, cfg.ExportInterval)
	}
	if cfg.S3Region != "us-east-1" || cfg.ExportS3Key != "catalog/export.jsonl" {
		t.Errorf("defaults = %q %q", cfg.S3Region, cfg.ExportS3Key)
	}
	if cfg.ExportEnabled() {
		t.Error("export should be disabled by default")
	}

	t.Setenv("CATALOG_CACHE_TTL", "5m")
	t.Setenv("CATALOG_EXPORT_INTERVAL", "1h")
	t.Setenv("CATALOG_EXPORT_FILE", "/tmp/export.jsonl")
	t.Setenv("CATALOG_REDIS_DB", "3")
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.RedisDB != 3 || !cfg.ExportEnabled() {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Dotenv(t *testing.T) {
	clearAllEnv(t)
	// godotenv does not override variables that are already set, even when
	// empty, so drop the blanks for the keys the files provide.
	for _, key := range []string{"CATALOG_SECRET", "CATALOG_HTTP_ADDR", "CATALOG_GRPC_ADDR"} {
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for _, key := range []string{"CATALOG_SECRET", "CATALOG_HTTP_ADDR", "CATALOG_GRPC_ADDR"} {
			os.Unsetenv(key)
		}
	})
	t.Setenv("CATALOG_GRPC_ADDR", ":7000")

	if err := os.WriteFile(".env", []byte("CATALOG_SECRET=from-env\nCATALOG_HTTP_ADDR=:1111\nCATALOG_GRPC_ADDR=:2222\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(".env.local", []byte("CATALOG_HTTP_ADDR=:3333\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Secret != "from-env" {
		t.Errorf("Secret = %q", cfg.Secret)
	}
	if cfg.HTTPAddr != ":3333" {
		t.Errorf("HTTPAddr = %q, .env.local should win over .env", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":7000" {
		t.Errorf("GRPCAddr = %q, process env should win", cfg.GRPCAddr)
	}
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	c := &Config{DatabaseURL: "postgres://u:pw@db/catalog", Secret: "s3cret", AuthToken: "tok"}
	s := c.String()
	for _, leaked := range []string{"pw@db", "s3cret", "tok\n"} {
		if strings.Contains(s, leaked) {
			t.Errorf("String() leaks %q:\n%s", leaked, s)
		}
	}
}
