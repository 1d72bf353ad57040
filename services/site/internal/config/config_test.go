package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var envKeys = []string{
	"SITE_CONFIG", "SITE_PORT", "LOG_LEVEL", "CORS_ORIGINS", "TRUSTED_PROXY_CIDRS",
	"ADMIN_EMAIL", "ADMIN_PASSWORD", "ADMIN_PASSWORD_HASH", "JWT_SECRET", "JWT_ISSUER",
	"JWT_LEEWAY", "ADMIN_TOKEN_TTL", "LOGIN_RATE_LIMIT_PER_MINUTE", "STORE_DRIVER",
	"DATABASE_URL", "FILES_DRIVER", "UPLOAD_DIR", "MAX_UPLOAD_BYTES", "MINIO_ENDPOINT",
	"MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL", "REDIS_ADDR",
	"REDIS_PASSWORD", "NOTIFY_DRIVER", "NOTIFY_TIMEOUT", "NOTIFY_STREAM", "NOTIFICATION_EMAIL",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM", "SMTP_FROM_NAME",
	"SMTP_ENCRYPTION", "AMQP_URL", "AMQP_EXCHANGE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
adminEmail: admin@example.com
adminPassword: pw
jwtSecret: `+testSecret+`
storeDriver: memory
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8001" || cfg.TokenTTL != "24h" || cfg.NotifyDriver != NotifyDriverLog {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 50<<20 || cfg.FilesDriver != FilesDriverLocal || cfg.UploadDir != "uploads" {
		t.Fatalf("unexpected file defaults: %+v", cfg)
	}
	if cfg.PublicBlogLimit != 100 || cfg.AdminListLimit != 1000 {
		t.Fatalf("unexpected list limits: %d %d", cfg.PublicBlogLimit, cfg.AdminListLimit)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9000"
adminEmail: file@example.com
adminPassword: pw
jwtSecret: `+testSecret+`
storeDriver: memory
`)
	t.Setenv("SITE_PORT", "9100")
	t.Setenv("ADMIN_EMAIL", "env@example.com")
	t.Setenv("ADMIN_TOKEN_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NOTIFY_DRIVER", "smtp")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("NOTIFICATION_EMAIL", "ops@example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9100" || cfg.AdminEmail != "env@example.com" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	ttl, err := ParseDuration("tokenTTL", cfg.TokenTTL)
	if err != nil || ttl != 2*time.Hour {
		t.Fatalf("unexpected ttl %v err=%v", ttl, err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if len(cfg.NotificationTo) != 1 || cfg.NotificationTo[0] != "ops@example.com" {
		t.Fatalf("unexpected recipients: %v", cfg.NotificationTo)
	}
}

func TestLoadValidation(t *testing.T) {
	base := "adminEmail: admin@example.com\nadminPassword: pw\njwtSecret: " + testSecret + "\n"
	cases := map[string]struct {
		body string
		want string
	}{
		"missing admin":     {body: "jwtSecret: " + testSecret + "\nstoreDriver: memory\n", want: "adminEmail"},
		"short secret":      {body: "adminEmail: a@b.c\nadminPassword: pw\njwtSecret: short\nstoreDriver: memory\n", want: "jwtSecret"},
		"postgres needs db": {body: base, want: "databaseURL"},
		"bad ttl":           {body: base + "storeDriver: memory\ntokenTTL: soon\n", want: "tokenTTL"},
		"unknown notify":    {body: base + "storeDriver: memory\nnotifyDriver: pigeon\n", want: "notifyDriver"},
		"redis notify":      {body: base + "storeDriver: memory\nnotifyDriver: redis\n", want: "redisAddr"},
		"minio needs keys":  {body: base + "storeDriver: memory\nfilesDriver: minio\n", want: "minio"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadUsesSiteConfigEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "adminEmail: a@b.c\nadminPassword: pw\njwtSecret: "+testSecret+"\nstoreDriver: memory\nport: \"7777\"\n")
	t.Setenv("SITE_CONFIG", path)
	cfg, err := Load("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7777" {
		t.Fatalf("expected SITE_CONFIG file to be used, got port %q", cfg.Port)
	}
}
