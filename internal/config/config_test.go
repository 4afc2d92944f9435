package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://file"
jwtSecret: "from-file"
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env" {
		t.Fatalf("databaseURL = %q, want env override", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("jwtSecret = %q, want env override", cfg.JWTSecret)
	}
	if UsingDefaultSecret(cfg) {
		t.Fatal("overridden secret must not count as default")
	}
}

func TestLoadFallsBackToDefaultSecret(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://file"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !UsingDefaultSecret(cfg) {
		t.Fatalf("expected default secret, got %q", cfg.JWTSecret)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing port",
			content: `databaseURL: "postgres://x"`,
		},
		{
			name: "missing database",
			content: `
port: "8080"
`,
		},
		{
			name: "rate limit without redis",
			content: `
port: "8080"
databaseURL: "postgres://x"
tokenRateLimitPerMinute: 10
`,
		},
		{
			name: "minio endpoint without bucket",
			content: `
port: "8080"
databaseURL: "postgres://x"
minioEndpoint: "localhost:9000"
`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseTokenTTL(t *testing.T) {
	if d, err := ParseTokenTTL(""); err != nil || d != 0 {
		t.Fatalf("empty ttl = %v, %v", d, err)
	}
	if d, err := ParseTokenTTL("48h"); err != nil || d != 48*time.Hour {
		t.Fatalf("48h ttl = %v, %v", d, err)
	}
	if _, err := ParseTokenTTL("not-a-duration"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseTokenTTL("-1h"); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}
