// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultServiceName     = "minishop-orders"
	defaultEnv             = "dev"
	defaultHTTPAddr        = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultRequestTimeout  = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLowStock        = 5
	defaultPageLimit       = 10
	defaultPageMaxLimit    = 100
	defaultKafkaTopic      = "minishop.orders.events"
	devJWTSecret           = "dev-secret-change-me"
)

// Config captures runtime configuration organised by concern.
type Config struct {
	ServiceName string
	Env         string
	Log         LogConfig
	HTTP        HTTPConfig
	Auth        AuthConfig
	Catalog     CatalogConfig
	Pagination  PaginationConfig
	Kafka       KafkaConfig
}

type LogConfig struct {
	Level string
	File  string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds the HMAC secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string
}

type CatalogConfig struct {
	SeedFile          string
	LowStockThreshold int
}

type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// KafkaConfig enables the event relay when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether events should be relayed to Kafka.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// ValidationError lists every missing or malformed variable.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises how Load resolves values.
type Option func(*loaderOptions)

type loaderOptions struct {
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvMap layers explicit values over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

func Load(opts ...Option) (Config, error) {
	options := loaderOptions{useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		return "", false
	}
	p := parser{lookup: lookup}

	cfg := Config{
		ServiceName: p.str("SERVICE_NAME", defaultServiceName),
		Env:         strings.ToLower(p.str("ENV", defaultEnv)),
		Log: LogConfig{
			Level: p.str("LOG_LEVEL", "info"),
			File:  p.str("LOG_FILE", ""),
		},
		HTTP: HTTPConfig{
			Addr:            p.str("HTTP_ADDR", defaultHTTPAddr),
			ReadTimeout:     p.duration("HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			RequestTimeout:  p.duration("HTTP_REQUEST_TIMEOUT", defaultRequestTimeout),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Auth: AuthConfig{
			JWTSecret: p.str("JWT_SECRET", ""),
		},
		Catalog: CatalogConfig{
			SeedFile:          p.str("SEED_FILE", ""),
			LowStockThreshold: p.integer("LOW_STOCK_THRESHOLD", defaultLowStock),
		},
		Pagination: PaginationConfig{
			DefaultLimit: p.integer("PAGE_DEFAULT_LIMIT", defaultPageLimit),
			MaxLimit:     p.integer("PAGE_MAX_LIMIT", defaultPageMaxLimit),
		},
		Kafka: KafkaConfig{
			Brokers: p.csv("KAFKA_BROKERS"),
			Topic:   p.str("KAFKA_TOPIC", defaultKafkaTopic),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.Env == defaultEnv {
		cfg.Auth.JWTSecret = devJWTSecret
	}

	if err := validate(cfg, p.invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config, invalid []string) error {
	fields := append([]string(nil), invalid...)
	if cfg.Auth.JWTSecret == "" {
		fields = append(fields, "JWT_SECRET")
	}
	if cfg.HTTP.Addr == "" {
		fields = append(fields, "HTTP_ADDR")
	}
	if cfg.Catalog.LowStockThreshold < 0 {
		fields = append(fields, "LOW_STOCK_THRESHOLD")
	}
	if cfg.Pagination.DefaultLimit <= 0 {
		fields = append(fields, "PAGE_DEFAULT_LIMIT")
	}
	if cfg.Pagination.MaxLimit < cfg.Pagination.DefaultLimit {
		fields = append(fields, "PAGE_MAX_LIMIT")
	}
	if cfg.Kafka.Enabled() && cfg.Kafka.Topic == "" {
		fields = append(fields, "KAFKA_TOPIC")
	}
	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

// parser reads typed values and remembers which keys failed to parse.
type parser struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (p *parser) str(key, fallback string) string {
	if v, ok := p.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	v, ok := p.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) csv(key string) []string {
	v, ok := p.lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
