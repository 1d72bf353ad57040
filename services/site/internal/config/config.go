package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location, relative to the repo root.
// SITE_CONFIG overrides it.
const ConfigPath = "services/site/config.yaml"

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	FilesDriverLocal = "local"
	FilesDriverMinio = "minio"

	NotifyDriverLog   = "log"
	NotifyDriverSMTP  = "smtp"
	NotifyDriverRedis = "redis"
	NotifyDriverAMQP  = "amqp"
)

const (
	defaultPort            = "8001"
	defaultTokenTTL        = "24h"
	defaultNotifyTimeout   = "30s"
	defaultUploadDir       = "uploads"
	defaultMaxUploadBytes  = 50 << 20
	defaultLoginRateLimit  = 10
	defaultNotifyStream    = "leaddesk:notifications"
	defaultAMQPExchange    = "leaddesk.notifications"
	defaultMinioBucket     = "leaddesk-uploads"
	defaultSMTPPort        = 587
	minJWTSecretLen        = 32
	defaultShutdownTimeout = "15s"
	defaultPublicBlogLimit = 100
	defaultAdminListLimit  = 1000
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port              string   `yaml:"port"`
	LogLevel          string   `yaml:"logLevel"`
	CORSOrigins       []string `yaml:"corsOrigins"`
	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`
	ShutdownTimeout   string   `yaml:"shutdownTimeout"`

	AdminEmail              string `yaml:"adminEmail"`
	AdminPassword           string `yaml:"adminPassword"`
	AdminPasswordHash       string `yaml:"adminPasswordHash"`
	JWTSecret               string `yaml:"jwtSecret"`
	JWTIssuer               string `yaml:"jwtIssuer"`
	JWTLeeway               string `yaml:"jwtLeeway"`
	TokenTTL                string `yaml:"tokenTTL"`
	LoginRateLimitPerMinute int    `yaml:"loginRateLimitPerMinute"`

	StoreDriver string `yaml:"storeDriver"`
	DatabaseURL string `yaml:"databaseURL"`

	FilesDriver    string `yaml:"filesDriver"`
	UploadDir      string `yaml:"uploadDir"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	PublicBlogLimit int `yaml:"publicBlogLimit"`
	AdminListLimit  int `yaml:"adminListLimit"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	NotifyDriver   string   `yaml:"notifyDriver"`
	NotifyTimeout  string   `yaml:"notifyTimeout"`
	NotifyStream   string   `yaml:"notifyStream"`
	NotificationTo []string `yaml:"notificationTo"`
	SMTPHost       string   `yaml:"smtpHost"`
	SMTPPort       int      `yaml:"smtpPort"`
	SMTPUsername   string   `yaml:"smtpUsername"`
	SMTPPassword   string   `yaml:"smtpPassword"`
	SMTPFrom       string   `yaml:"smtpFrom"`
	SMTPFromName   string   `yaml:"smtpFromName"`
	SMTPEncryption string   `yaml:"smtpEncryption"`
	AMQPURL        string   `yaml:"amqpURL"`
	AMQPExchange   string   `yaml:"amqpExchange"`
}

// Load reads .env (when present), the YAML file at path and environment
// overrides, then fills defaults and validates.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if v := os.Getenv("SITE_CONFIG"); v != "" {
		path = v
	}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	envString("SITE_PORT", &cfg.Port)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envCSV("CORS_ORIGINS", &cfg.CORSOrigins)
	envCSV("TRUSTED_PROXY_CIDRS", &cfg.TrustedProxyCIDRs)

	envString("ADMIN_EMAIL", &cfg.AdminEmail)
	envString("ADMIN_PASSWORD", &cfg.AdminPassword)
	envString("ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)
	envString("JWT_SECRET", &cfg.JWTSecret)
	envString("JWT_ISSUER", &cfg.JWTIssuer)
	envString("JWT_LEEWAY", &cfg.JWTLeeway)
	envString("ADMIN_TOKEN_TTL", &cfg.TokenTTL)
	envInt("LOGIN_RATE_LIMIT_PER_MINUTE", &cfg.LoginRateLimitPerMinute)

	envString("STORE_DRIVER", &cfg.StoreDriver)
	envString("DATABASE_URL", &cfg.DatabaseURL)

	envString("FILES_DRIVER", &cfg.FilesDriver)
	envString("UPLOAD_DIR", &cfg.UploadDir)
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	envString("MINIO_ENDPOINT", &cfg.MinioEndpoint)
	envString("MINIO_ACCESS_KEY", &cfg.MinioAccessKey)
	envString("MINIO_SECRET_KEY", &cfg.MinioSecretKey)
	envString("MINIO_BUCKET", &cfg.MinioBucket)
	envBool("MINIO_USE_SSL", &cfg.MinioUseSSL)

	envString("REDIS_ADDR", &cfg.RedisAddr)
	envString("REDIS_PASSWORD", &cfg.RedisPassword)

	envString("NOTIFY_DRIVER", &cfg.NotifyDriver)
	envString("NOTIFY_TIMEOUT", &cfg.NotifyTimeout)
	envString("NOTIFY_STREAM", &cfg.NotifyStream)
	envCSV("NOTIFICATION_EMAIL", &cfg.NotificationTo)
	envString("SMTP_HOST", &cfg.SMTPHost)
	envInt("SMTP_PORT", &cfg.SMTPPort)
	envString("SMTP_USERNAME", &cfg.SMTPUsername)
	envString("SMTP_PASSWORD", &cfg.SMTPPassword)
	envString("SMTP_FROM", &cfg.SMTPFrom)
	envString("SMTP_FROM_NAME", &cfg.SMTPFromName)
	envString("SMTP_ENCRYPTION", &cfg.SMTPEncryption)
	envString("AMQP_URL", &cfg.AMQPURL)
	envString("AMQP_EXCHANGE", &cfg.AMQPExchange)
}

func applyDefaults(cfg *FileConfig) {
	setDefault(&cfg.Port, defaultPort)
	setDefault(&cfg.LogLevel, "info")
	setDefault(&cfg.ShutdownTimeout, defaultShutdownTimeout)
	setDefault(&cfg.TokenTTL, defaultTokenTTL)
	setDefault(&cfg.StoreDriver, StoreDriverPostgres)
	setDefault(&cfg.FilesDriver, FilesDriverLocal)
	setDefault(&cfg.UploadDir, defaultUploadDir)
	setDefault(&cfg.MinioBucket, defaultMinioBucket)
	setDefault(&cfg.NotifyDriver, NotifyDriverLog)
	setDefault(&cfg.NotifyTimeout, defaultNotifyTimeout)
	setDefault(&cfg.NotifyStream, defaultNotifyStream)
	setDefault(&cfg.AMQPExchange, defaultAMQPExchange)
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.LoginRateLimitPerMinute == 0 {
		cfg.LoginRateLimitPerMinute = defaultLoginRateLimit
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = defaultSMTPPort
	}
	if cfg.PublicBlogLimit == 0 {
		cfg.PublicBlogLimit = defaultPublicBlogLimit
	}
	if cfg.AdminListLimit == 0 {
		cfg.AdminListLimit = defaultAdminListLimit
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required")
	}
	if strings.TrimSpace(cfg.AdminEmail) == "" {
		return errors.New("config: adminEmail is required (set in config.yaml or ADMIN_EMAIL)")
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return errors.New("config: adminPassword or adminPasswordHash is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("config: jwtSecret must be at least %d characters (set JWT_SECRET)", minJWTSecretLen)
	}
	for name, value := range map[string]string{
		"tokenTTL":        cfg.TokenTTL,
		"notifyTimeout":   cfg.NotifyTimeout,
		"shutdownTimeout": cfg.ShutdownTimeout,
	} {
		if _, err := ParseDuration(name, value); err != nil {
			return err
		}
	}
	if d, _ := ParseDuration("tokenTTL", cfg.TokenTTL); d <= 0 {
		return errors.New("config: tokenTTL must be positive")
	}
	if _, err := ParseJWTLeeway(cfg.JWTLeeway); err != nil {
		return err
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: loginRateLimitPerMinute must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	if cfg.PublicBlogLimit < 0 || cfg.AdminListLimit < 0 {
		return errors.New("config: list limits must be >= 0")
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres store (set DATABASE_URL)")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}

	switch cfg.FilesDriver {
	case FilesDriverLocal:
		if strings.TrimSpace(cfg.UploadDir) == "" {
			return errors.New("config: uploadDir is required for local files")
		}
	case FilesDriverMinio:
		if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return errors.New("config: minioEndpoint, minioAccessKey and minioSecretKey are required for minio files")
		}
	default:
		return fmt.Errorf("config: unknown filesDriver %q", cfg.FilesDriver)
	}

	switch cfg.NotifyDriver {
	case NotifyDriverLog:
	case NotifyDriverSMTP:
		if cfg.SMTPHost == "" {
			return errors.New("config: smtpHost is required for smtp notifications")
		}
		if len(cfg.NotificationTo) == 0 {
			return errors.New("config: notificationTo is required for smtp notifications (set NOTIFICATION_EMAIL)")
		}
	case NotifyDriverRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for redis notifications")
		}
	case NotifyDriverAMQP:
		if strings.TrimSpace(cfg.AMQPURL) == "" {
			return errors.New("config: amqpURL is required for amqp notifications")
		}
	default:
		return fmt.Errorf("config: unknown notifyDriver %q", cfg.NotifyDriver)
	}
	return nil
}

// ParseDuration parses a duration field, naming it in the error.
func ParseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s duration: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", field)
	}
	return d, nil
}

// ParseJWTLeeway parses optional JWT leeway duration string.
func ParseJWTLeeway(leewayStr string) (time.Duration, error) {
	if leewayStr == "" {
		return 0, nil
	}
	return ParseDuration("jwtLeeway", leewayStr)
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func envCSV(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		*dst = splitCSV(v)
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
