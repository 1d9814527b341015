// Package config loads server configuration from the environment.
//
// Variables use the ROLLCALL_ prefix. A .env file in the working directory is
// loaded first when present; real environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server captures process level configuration.
type Server struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"rollcall"`
	DatabaseURL string `env:"DATABASE_URL"`

	Auth       AuthConfig       `envPrefix:"AUTH_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	Kafka      KafkaConfig      `envPrefix:"KAFKA_"`
	Tracing    TracingConfig    `envPrefix:"OTEL_"`
	Attendance AttendanceConfig `envPrefix:"ATTENDANCE_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATELIMIT_"`
}

// AuthConfig describes how bearer tokens from the identity service are verified.
type AuthConfig struct {
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"JWT_ISSUER"`
	JWTAudience   string `env:"JWT_AUDIENCE"`
}

// RedisConfig holds connection settings. An empty URL selects in-memory stores.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig enables the audit relay when brokers are set.
type KafkaConfig struct {
	Brokers      []string      `env:"BROKERS" envSeparator:","`
	AuditTopic   string        `env:"AUDIT_TOPIC" envDefault:"rollcall.audit"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"BATCH_SIZE" envDefault:"100"`
}

// TracingConfig enables OTLP export when an endpoint is set.
type TracingConfig struct {
	Endpoint string `env:"ENDPOINT"`
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
}

// AttendanceConfig holds the engine's tunable thresholds.
type AttendanceConfig struct {
	LowAttendanceThreshold float64       `env:"LOW_ATTENDANCE_THRESHOLD" envDefault:"0.75"`
	SimilarityThreshold    float64       `env:"SIMILARITY_THRESHOLD" envDefault:"0.6"`
	MatcherTimeout         time.Duration `env:"MATCHER_TIMEOUT" envDefault:"2s"`
	InsightLowCutoff       float64       `env:"INSIGHT_LOW_CUTOFF" envDefault:"0.75"`
	InsightHighCutoff      float64       `env:"INSIGHT_HIGH_CUTOFF" envDefault:"0.9"`
	RotateSecretEvery      time.Duration `env:"ROTATE_SECRET_EVERY" envDefault:"0s"`
	MaxImageBytes          int64         `env:"MAX_IMAGE_BYTES" envDefault:"5242880"`
}

// RateLimitConfig bounds attendance mark attempts per principal.
type RateLimitConfig struct {
	MarkLimit  int           `env:"MARK_LIMIT" envDefault:"10"`
	MarkWindow time.Duration `env:"MARK_WINDOW" envDefault:"1m"`
}

// FromEnv builds the Server config from the environment.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads ROLLCALL_ variables without touching .env files.
func Parse() (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ROLLCALL_"}); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Server) Validate() error {
	a := c.Attendance
	if a.LowAttendanceThreshold <= 0 || a.LowAttendanceThreshold > 1 {
		return fmt.Errorf("low attendance threshold must be in (0,1], got %v", a.LowAttendanceThreshold)
	}
	if a.SimilarityThreshold <= 0 || a.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0,1], got %v", a.SimilarityThreshold)
	}
	if a.InsightLowCutoff > a.InsightHighCutoff {
		return fmt.Errorf("insight low cutoff %v exceeds high cutoff %v", a.InsightLowCutoff, a.InsightHighCutoff)
	}
	if a.MatcherTimeout <= 0 {
		return errors.New("matcher timeout must be positive")
	}
	if c.Auth.JWTSigningKey == "" {
		return errors.New("jwt signing key is required")
	}
	return nil
}
