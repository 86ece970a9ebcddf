package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultRoundTTL       = 10 * time.Minute
	DefaultMaxRounds      = 3
	DefaultNotifyInterval = time.Second
	DefaultFlushRetries   = 3
	DefaultStoreTimeout   = 5 * time.Second
)

type Config struct {
	Env           string
	Port          string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	JWTSecret     string
	JWTExpiresIn  string // minutes
	AdminEmail    string
	AdminPassword string
	AdminFullName string
	// Attendance rounds
	RoundTTL       string // duration, e.g. "10m"
	MaxRounds      string
	NotifyInterval string // duration
	FlushRetries   string
	StoreTimeout   string // duration
}

func Load() *Config {
	return &Config{
		Env:            getenv("APP_ENV", "production"),
		Port:           getenv("PORT", "8080"),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBPort:         getenv("DB_PORT", "5432"),
		DBUser:         getenv("DB_USER", "postgres"),
		DBPassword:     getenv("DB_PASSWORD", "postgres"),
		DBName:         getenv("DB_NAME", "attendance_db"),
		DBSSLMode:      getenv("DB_SSLMODE", "disable"),
		JWTSecret:      getenv("JWT_SECRET", "supersecret_change_me"),
		JWTExpiresIn:   getenv("JWT_EXPIRES_IN", "60"),
		AdminEmail:     getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:  getenv("ADMIN_PASSWORD", "admin123"),
		AdminFullName:  getenv("ADMIN_FULL_NAME", "Administrator"),
		RoundTTL:       getenv("ROUND_TTL", "10m"),
		MaxRounds:      getenv("MAX_ROUNDS", "3"),
		NotifyInterval: getenv("NOTIFY_INTERVAL", "1s"),
		FlushRetries:   getenv("FLUSH_RETRIES", "3"),
		StoreTimeout:   getenv("STORE_TIMEOUT", "5s"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) TokenTTL() time.Duration {
	mins, err := strconv.Atoi(c.JWTExpiresIn)
	if err != nil || mins <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(mins) * time.Minute
}

func (c *Config) RoundTTLDuration() time.Duration {
	return parseDuration(c.RoundTTL, DefaultRoundTTL)
}

func (c *Config) NotifyIntervalDuration() time.Duration {
	return parseDuration(c.NotifyInterval, DefaultNotifyInterval)
}

func (c *Config) StoreTimeoutDuration() time.Duration {
	return parseDuration(c.StoreTimeout, DefaultStoreTimeout)
}

func (c *Config) MaxRoundsInt() int {
	return parsePositiveInt(c.MaxRounds, DefaultMaxRounds)
}

func (c *Config) FlushRetriesInt() int {
	return parsePositiveInt(c.FlushRetries, DefaultFlushRetries)
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parsePositiveInt(v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
