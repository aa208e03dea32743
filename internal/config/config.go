package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	// AppKey seeds field encryption, the email blind index and, unless
	// HashidSalt is set, the identifier codec.
	AppKey          string
	HashidSalt      string
	HashidMinLength int

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	SuperAdminUserID int64

	BaseURL string

	Cache   CacheConfig
	Log     LogConfig
	Metrics MetricsConfig
	SMTP    SMTPConfig
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
	Size     int
}

type LogConfig struct {
	Level      string
	Output     string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type MetricsConfig struct {
	Addr string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	accessExpiry, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"))
	if err != nil {
		refreshExpiry = 168 * time.Hour
	}

	cacheTTL, err := time.ParseDuration(getEnv("PERMISSION_CACHE_TTL", "24h"))
	if err != nil {
		cacheTTL = 24 * time.Hour
	}

	appKey := getEnvOrPanic("APP_KEY")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AppKey:          appKey,
		HashidSalt:      getEnv("HASHID_SALT", appKey),
		HashidMinLength: getEnvInt("HASHID_MIN_LENGTH", 8),

		JWTSecret:        getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry:  accessExpiry,
		JWTRefreshExpiry: refreshExpiry,

		SuperAdminUserID: int64(getEnvInt("SUPER_ADMIN_USER_ID", 1)),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      cacheTTL,
			Size:     getEnvInt("PERMISSION_CACHE_SIZE", 4096),
		},

		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			Path:       getEnv("LOG_PATH", "./logs/teamscope.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),
		},

		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ":9090"),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
