package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notification modes. sync: kirim SMS dulu, order tidak disimpan bila gagal.
// queued: simpan order lalu kirim lewat outbox (opt-in).
const (
	NotificationModeSync   = "sync"
	NotificationModeQueued = "queued"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver    string
	DatabaseURL string

	UploadDir string
	ClientURL string

	SMSAPIKey    string
	SMSAPISecret string
	SMSSender    string
	SMSBaseURL   string

	NotificationMode         string
	NotificationMaxAttempts  int
	NotificationPollInterval time.Duration
	RedisURL                 string

	AdminPassphrase string
	JWTSecret       string
	AdminSessionTTL time.Duration

	OrderRateLimit int
	LogLevel       string
}

// Load membaca .env (jika ada) lalu environment variables.
func Load() (*Config, error) {
	// .env opsional, environment tetap dipakai
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		GinMode:          os.Getenv("GIN_MODE"),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseURL:      getEnv("DATABASE_URL", "delivery.db"),
		UploadDir:        getEnv("UPLOAD_DIR", "public/uploads"),
		ClientURL:        getEnv("CLIENT_URL", "*"),
		SMSAPIKey:        os.Getenv("SMS_API_KEY"),
		SMSAPISecret:     os.Getenv("SMS_API_SECRET"),
		SMSSender:        os.Getenv("SMS_SENDER"),
		SMSBaseURL:       getEnv("SMS_BASE_URL", "https://api.coolsms.co.kr"),
		NotificationMode: strings.ToLower(getEnv("NOTIFICATION_MODE", NotificationModeSync)),
		RedisURL:         os.Getenv("REDIS_URL"),
		AdminPassphrase:  os.Getenv("ADMIN_PASSPHRASE"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.NotificationMaxAttempts, err = getInt("NOTIFICATION_MAX_ATTEMPTS", 8); err != nil {
		return nil, err
	}
	if cfg.OrderRateLimit, err = getInt("ORDER_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	if cfg.NotificationPollInterval, err = getDuration("NOTIFICATION_POLL_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.AdminSessionTTL, err = getDuration("ADMIN_SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.NotificationMode {
	case NotificationModeQueued, NotificationModeSync:
	default:
		return fmt.Errorf("unsupported NOTIFICATION_MODE %q", c.NotificationMode)
	}
	if c.NotificationMaxAttempts < 1 {
		return fmt.Errorf("NOTIFICATION_MAX_ATTEMPTS must be positive")
	}
	if c.AdminPassphrase != "" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ADMIN_PASSPHRASE is set")
	}
	return nil
}

// AdminAuthEnabled -> guard admin hanya aktif bila passphrase diset
func (c *Config) AdminAuthEnabled() bool {
	return c.AdminPassphrase != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
