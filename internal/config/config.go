package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/ilsegaertner/CUB-Film-data/pkg/config"
	"github.com/ilsegaertner/CUB-Film-data/pkg/database"
)

// placeholderSecret is the development-only signing secret. Load refuses it
// in every other environment.
const placeholderSecret = "dev-only-change-me"

const minSecretLength = 32

// Config holds all configuration for the film API.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"cub-film-data"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort          int           `env:"HTTP_PORT" envDefault:"8080"`
	HTTPReadTimeout   time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout  time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	HTTPIdleTimeout   time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxRequestBodyKiB int64         `env:"MAX_REQUEST_BODY_KIB" envDefault:"1024"`

	// PostgreSQL
	PostgresHost            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort            int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser            string        `env:"POSTGRES_USER" envDefault:"cubfilm"`
	PostgresPass            string        `env:"POSTGRES_PASSWORD" envDefault:"cubfilm_secret"`
	PostgresDB              string        `env:"POSTGRES_DB" envDefault:"cubfilm"`
	PostgresSSL             string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns        int32         `env:"POSTGRES_MAX_CONNS" envDefault:"20"`
	PostgresMinConns        int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	PostgresMaxConnLifetime time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	PostgresMaxConnIdleTime time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryThreshold      time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	MovieCacheTTL time.Duration `env:"MOVIE_CACHE_TTL" envDefault:"10m"`

	// Client-side caching of catalog responses
	CatalogCacheMaxAge time.Duration `env:"CATALOG_CACHE_MAX_AGE" envDefault:"60s"`

	// Kafka
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaUserTopic string   `env:"KAFKA_USER_TOPIC" envDefault:"user.events"`
	KafkaEnabled   bool     `env:"KAFKA_ENABLED" envDefault:"true"`

	// JWT
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"dev-only-change-me"`
	JWTTokenExpiry time.Duration `env:"JWT_TOKEN_EXPIRY" envDefault:"168h"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"cub-film-data"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"12"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// pprof
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load film api config: %w", err)
	}
	return cfg, nil
}

// Validate implements pkgconfig.Validator.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.JWTTokenExpiry <= 0 {
		return errors.New("JWT_TOKEN_EXPIRY must be positive")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}

	if !c.IsDevelopment() {
		if c.JWTSecret == placeholderSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < minSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters long, got %d", minSecretLength, len(c.JWTSecret))
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Postgres returns the connection settings for database.NewPostgresPool.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.PostgresMaxConns,
		MinConns:        c.PostgresMinConns,
		MaxConnLifetime: c.PostgresMaxConnLifetime,
		MaxConnIdleTime: c.PostgresMaxConnIdleTime,
	}
}

// Redis returns the connection settings for database.NewRedisClient.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Addr:         c.RedisAddr,
		Password:     c.RedisPassword,
		DB:           c.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}
