package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/smogalia/list-gift/pkg/config"
	"github.com/smogalia/list-gift/pkg/database"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Sync transports.
const (
	TransportLocal = "local"
	TransportKafka = "kafka"
)

// Config holds all configuration for the gift registry server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort      int    `env:"HTTP_PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"giftregistry"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"giftregistry"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"giftregistry"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"500"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Change propagation between server instances.
	SyncTransport    string        `env:"SYNC_TRANSPORT" envDefault:"local"`
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	SyncPollInterval time.Duration `env:"SYNC_POLL_INTERVAL" envDefault:"30s"`

	// Sessions
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"30m"`
	SessionCacheTTL  time.Duration `env:"SESSION_CACHE_TTL" envDefault:"30s"`

	// Reservations. A zero TTL means reservations never expire.
	ReservationTTL           time.Duration `env:"RESERVATION_TTL" envDefault:"0s"`
	ReservationSweepInterval time.Duration `env:"RESERVATION_SWEEP_INTERVAL" envDefault:"1m"`

	// Link metadata
	MetadataTimeout time.Duration `env:"METADATA_TIMEOUT" envDefault:"10s"`

	// Rate limiting on auth and reservation routes
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.PublicBaseURL)
	}
	switch c.SyncTransport {
	case TransportLocal:
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when SYNC_TRANSPORT=kafka")
		}
	default:
		return fmt.Errorf("SYNC_TRANSPORT must be %q or %q, got %q", TransportLocal, TransportKafka, c.SyncTransport)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0, got %s", c.SessionTTL)
	}
	if c.PasswordResetTTL <= 0 {
		return fmt.Errorf("PASSWORD_RESET_TTL must be > 0, got %s", c.PasswordResetTTL)
	}
	if c.ReservationTTL < 0 {
		return fmt.Errorf("RESERVATION_TTL must be >= 0, got %s", c.ReservationTTL)
	}
	if c.ReservationTTL > 0 && c.ReservationSweepInterval <= 0 {
		return fmt.Errorf("RESERVATION_SWEEP_INTERVAL must be > 0 when RESERVATION_TTL is set")
	}
	if c.SyncPollInterval < 0 {
		return fmt.Errorf("SYNC_POLL_INTERVAL must be >= 0, got %s", c.SyncPollInterval)
	}

	// Outside development a real, long secret is required.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	return nil
}

// Postgres returns the pool configuration for database.NewPostgresPool.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
