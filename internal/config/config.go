package config

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	MinIO MinIOConfig
	CORS  CORSConfig
	SMTP  SMTPConfig
	OTP   OTPConfig

	// Warnings collects non-fatal loading problems for the caller to log
	Warnings []string
}

type AppConfig struct {
	Env       string
	Port      string
	LogLevel  string
	LogFormat string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// OTPConfig is the one-time passcode policy
type OTPConfig struct {
	TTL           time.Duration
	MaxAttempts   int
	HashSecret    string
	IssueLimit    int // per address and purpose within IssueWindow, 0 disables
	IssueWindow   time.Duration
	SweepSchedule string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	var warnings []string

	// .env is optional, e.g. in Docker
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			warnings = append(warnings, "no .env file found, reading environment variables only")
		} else {
			warnings = append(warnings, "failed to parse .env: "+err.Error())
		}
	}

	jwtSecret := getEnv("JWT_SECRET", "default-secret")
	if jwtSecret == "default-secret" {
		warnings = append(warnings, "JWT_SECRET not set, using the built-in development secret")
	}

	otpHashSecret := getEnv("OTP_HASH_SECRET", "")
	if otpHashSecret == "" {
		otpHashSecret = deriveKey(jwtSecret, "recipehub otp hash")
		warnings = append(warnings, "OTP_HASH_SECRET not set, deriving it from JWT_SECRET")
	}

	return &Config{
		App: AppConfig{
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnv("APP_PORT", "8080"),
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", ""),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "recipehub"),
			Password: getEnv("DB_PASSWORD", "recipehub"),
			Name:     getEnv("DB_NAME", "recipehub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
			Expiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "recipehub-media"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173"), ","),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "mailpit"),
			Port:     getEnv("SMTP_PORT", "1025"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@recipehub.local"),
			FromName: getEnv("SMTP_FROM_NAME", "RecipeHub"),
		},
		OTP: OTPConfig{
			TTL:           getEnvDuration("OTP_TTL", 5*time.Minute),
			MaxAttempts:   getEnvPositiveInt("OTP_MAX_ATTEMPTS", 5),
			HashSecret:    otpHashSecret,
			IssueLimit:    getEnvInt("OTP_ISSUE_LIMIT", 5),
			IssueWindow:   getEnvDuration("OTP_ISSUE_WINDOW", time.Hour),
			SweepSchedule: getEnv("OTP_SWEEP_SCHEDULE", "@every 10m"),
		},
		Warnings: warnings,
	}
}

// deriveKey derives a key for purpose from secret
func deriveKey(secret, purpose string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	return hex.EncodeToString(mac.Sum(nil))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvPositiveInt(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}
