package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port string

	DBDriver          string
	DBConn            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	LogLevel string

	JWTSecret  string
	JWTIssuer  string
	JWTTTL     time.Duration
	BcryptCost int

	CORSOrigins []string

	Timezone        string
	Location        *time.Location
	TransferTimeout time.Duration
	ExpirySweepSpec string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	AdminName     string
	AdminPassword string
}

const (
	defaultPostgresConn = "host=localhost port=5436 user=test password=test dbname=bank sslmode=disable"
	defaultSQLiteConn   = "file:bank-cards.db?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000"
)

// NewConfig loads configuration from a .env file, if present, and the environment
func NewConfig() (*Config, error) {
	// a missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", "postgres"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "bank-cards"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:8080")),
		Timezone:        getEnv("TIMEZONE", "UTC"),
		ExpirySweepSpec: getEnv("EXPIRY_SWEEP_SPEC", "@daily"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", "no-reply@bank-cards.local"),
		AdminName:       getEnv("ADMIN_NAME", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
	}

	switch cfg.DBDriver {
	case "postgres":
		cfg.DBConn = getEnv("DB_CONN", defaultPostgresConn)
	case "sqlite3":
		conn, err := sqliteConn(getEnv("DB_CONN", defaultSQLiteConn))
		if err != nil {
			return nil, err
		}
		cfg.DBConn = conn
	default:
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", cfg.DBDriver)
	}

	var err error
	if cfg.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.DBConnMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.TransferTimeout, err = getEnvDuration("TRANSFER_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cfg.BcryptCost)
	}
	if cfg.TransferTimeout <= 0 {
		return nil, fmt.Errorf("TRANSFER_TIMEOUT must be positive")
	}
	if (cfg.AdminName == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_NAME and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

// EmailEnabled reports whether SMTP settings are present
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

// sqliteConn makes sure a sqlite DSN starts its transactions with a write lock.
// Transfers rely on it to serialise writers, sqlite has no SELECT ... FOR UPDATE.
func sqliteConn(dsn string) (string, error) {
	if dsn == "" {
		return dsn, nil
	}
	base, rawQuery, _ := strings.Cut(dsn, "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid DB_CONN parameters: %w", err)
	}
	switch mode := params.Get("_txlock"); mode {
	case "immediate", "exclusive":
		return dsn, nil
	case "":
		if rawQuery == "" {
			return base + "?_txlock=immediate", nil
		}
		return base + "?" + rawQuery + "&_txlock=immediate", nil
	default:
		return "", fmt.Errorf("DB_CONN _txlock must be immediate or exclusive for sqlite3, got %q", mode)
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return intValue, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultVal, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
