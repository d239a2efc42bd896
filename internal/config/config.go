package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment is the deployment stage.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store providers.
const (
	StoreSupabase = "supabase"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

// Token verifiers.
const (
	VerifierJWT    = "jwt"
	VerifierRemote = "remote"
)

// Config is the complete service configuration.
type Config struct {
	Environment    Environment    `yaml:"environment" validate:"required,oneof=development staging production"`
	Server         Server         `yaml:"server"`
	Supabase       Supabase       `yaml:"supabase"`
	Store          Store          `yaml:"store"`
	Auth           Auth           `yaml:"auth"`
	AWS            AWS            `yaml:"aws"`
	Events         Events         `yaml:"events"`
	Metrics        Metrics        `yaml:"metrics"`
	Tracing        Tracing        `yaml:"tracing"`
	Logging        Logging        `yaml:"logging"`
	CORS           CORS           `yaml:"cors"`
	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker"`

	// LoadedFrom lists the sources applied, in order.
	LoadedFrom []string `yaml:"-"`
}

// Server holds HTTP server settings.
type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// Supabase holds the project endpoint and keys.
type Supabase struct {
	URL       string `yaml:"url" validate:"omitempty,url"`
	Key       string `yaml:"key"`
	JWTSecret string `yaml:"jwt_secret"`
	Table     string `yaml:"table" validate:"required"`
}

// Store selects the persistence backend.
type Store struct {
	Provider  string `yaml:"provider" validate:"required,oneof=supabase dynamodb memory"`
	TableName string `yaml:"table_name"`
}

// Auth selects how bearer tokens are verified.
type Auth struct {
	Verifier string `yaml:"verifier" validate:"required,oneof=jwt remote"`
}

// AWS holds the region shared by every AWS client.
type AWS struct {
	Region string `yaml:"region" validate:"required"`
}

// Events configures MemoryCreated publishing.
type Events struct {
	Enabled      bool   `yaml:"enabled"`
	EventBusName string `yaml:"event_bus_name"`
	Source       string `yaml:"source"`
}

// Metrics configures the prometheus collector.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required"`
	Path      string `yaml:"path" validate:"required,startswith=/"`
}

// Tracing configures OpenTelemetry.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name" validate:"required"`
	SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"required,oneof=json console"`
}

// CORS configures cross-origin access to the API.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" validate:"min=1"`
	MaxAge         int      `yaml:"max_age" validate:"gte=0"`
}

// CircuitBreaker configures the store and HTTP breakers.
type CircuitBreaker struct {
	Enabled      bool          `yaml:"enabled"`
	MaxRequests  uint32        `yaml:"max_requests" validate:"gte=1"`
	Interval     time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	MinRequests  uint32        `yaml:"min_requests" validate:"gte=1"`
	FailureRatio float64       `yaml:"failure_ratio" validate:"gt=0,lte=1"`
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// NeedsSupabase reports whether any component talks to Supabase.
func (c *Config) NeedsSupabase() bool {
	return c.Store.Provider == StoreSupabase || c.Auth.Verifier == VerifierRemote
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	var problems []string
	if c.NeedsSupabase() {
		if c.Supabase.URL == "" {
			problems = append(problems, "supabase.url is required")
		}
		if c.Supabase.Key == "" {
			problems = append(problems, "supabase.key is required")
		}
	}
	if c.Auth.Verifier == VerifierJWT && c.Supabase.JWTSecret == "" {
		problems = append(problems, "supabase.jwt_secret is required for the jwt verifier")
	}
	if c.Store.Provider == StoreDynamoDB && c.Store.TableName == "" {
		problems = append(problems, "store.table_name is required for dynamodb")
	}
	if c.Events.Enabled && c.Events.EventBusName == "" {
		problems = append(problems, "events.event_bus_name is required when events are enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		problems = append(problems, "tracing.endpoint is required when tracing is enabled")
	}
	if c.IsProduction() && c.Store.Provider == StoreMemory {
		problems = append(problems, "the memory store cannot be used in production")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func formatValidationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "gt", "gte", "lte", "min":
		return fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
