package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const defaultAllowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	CORS        CORSConfig
	Reservation ReservationConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLCA        string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// CORSConfig holds the cross-origin allow-list
type CORSConfig struct {
	AllowedOrigins []string
}

// ReservationConfig holds booking engine settings
type ReservationConfig struct {
	Timezone string
	LockTTL  time.Duration
	LockWait time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file is read
// first and .env.local, when present, overrides it.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("STORE_DRIVER", DriverMySQL)),
			Host:         getEnv("DB_HOST", ""),
			Port:         getEnvAsInt("DB_PORT", 0),
			User:         getEnv("DB_USER", ""),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", ""),
			SSLCA:        getEnv("DB_SSL_CA", ""),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", defaultAllowedOrigins)),
		},
		Reservation: ReservationConfig{
			Timezone: getEnv("RESERVATION_TIMEZONE", "UTC"),
			LockTTL:  getEnvAsDuration("BOOKING_LOCK_TTL", 10*time.Second),
			LockWait: getEnvAsDuration("BOOKING_LOCK_WAIT", 5*time.Second),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "facility-reservation"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultPort(cfg.Database.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverMySQL, DriverPostgres:
		var missing []string
		for name, value := range map[string]string{
			"DB_HOST":     c.Database.Host,
			"DB_NAME":     c.Database.Database,
			"DB_USER":     c.Database.User,
			"DB_PASSWORD": c.Database.Password,
		} {
			if value == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("missing database configuration environment variables: %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Reservation.Timezone); err != nil {
		return fmt.Errorf("invalid RESERVATION_TIMEZONE %q: %w", c.Reservation.Timezone, err)
	}
	return nil
}

// Addr returns host:port of the database server
func (c *DatabaseConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PostgresDSN returns the lib/pq connection URL
func (c *DatabaseConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Addr(),
		Path:     "/" + c.Database,
		RawQuery: c.postgresSSLParams().Encode(),
	}
	return u.String()
}

func (c *DatabaseConfig) postgresSSLParams() url.Values {
	q := url.Values{}
	if c.SSLCA != "" {
		q.Set("sslmode", "verify-full")
		q.Set("sslrootcert", c.SSLCA)
	} else {
		q.Set("sslmode", c.SSLMode)
	}
	return q
}

// MigrationURL returns the golang-migrate database URL for the configured driver
func (c *DatabaseConfig) MigrationURL() string {
	switch c.Driver {
	case DriverPostgres:
		return c.PostgresDSN()
	default:
		q := url.Values{}
		q.Set("multiStatements", "true")
		q.Set("parseTime", "true")
		if c.SSLCA != "" {
			q.Set("tls", "migrate-ca")
			q.Set("x-tls-ca", c.SSLCA)
		}
		userInfo := url.UserPassword(c.User, c.Password).String()
		return fmt.Sprintf("mysql://%s@tcp(%s)/%s?%s", userInfo, c.Addr(), c.Database, q.Encode())
	}
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func defaultPort(driver string) int {
	if driver == DriverPostgres {
		return 5432
	}
	return 3306
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
