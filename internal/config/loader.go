package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when MEMGRID_CONFIG is unset and the file exists.
const DefaultPath = "config/config.yaml"

// Loader builds a Config from defaults, an optional file and the environment.
type Loader struct {
	// path is the YAML file; empty means defaults and environment only.
	path string

	// required makes a missing file an error.
	required bool

	// getenv looks up environment variables.
	getenv func(string) string

	// defaults adjust Default before the file and environment apply.
	defaults []func(*Config)
}

// NewLoader creates a loader for path. An explicitly named file must exist.
func NewLoader(path string) *Loader {
	return &Loader{path: path, required: path != "", getenv: os.Getenv}
}

// WithDefaults registers fn to tweak the built-in defaults, for binaries whose
// needs differ from the API server's.
func (l *Loader) WithDefaults(fn func(*Config)) *Loader {
	l.defaults = append(l.defaults, fn)
	return l
}

// Path is the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load loads configuration using a hierarchy of sources.
// The loading order (from lowest to highest priority):
//  1. Default values (in code)
//  2. The YAML file
//  3. Environment variables
func (l *Loader) Load() (*Config, error) {
	env := Environment(strings.ToLower(l.getenv("ENVIRONMENT")))
	if env == "" {
		env = Development
	}

	cfg := Default(env)
	for _, fn := range l.defaults {
		fn(cfg)
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	if l.path != "" {
		if err := l.loadFile(cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) || l.required {
				return nil, fmt.Errorf("failed to load %s: %w", l.path, err)
			}
		} else {
			cfg.LoadedFrom = append(cfg.LoadedFrom, l.path)
		}
	}

	l.loadEnvironmentVariables(cfg)
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFile(cfg *Config) error {
	f, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// loadEnvironmentVariables overlays environment variables on the configuration.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	str := func(key string, dst *string) {
		if v := l.getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := l.getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	if v := l.getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = Environment(strings.ToLower(v))
	}

	str("SERVER_ADDRESS", &cfg.Server.Address)
	if v := l.getenv("PORT"); v != "" && l.getenv("SERVER_ADDRESS") == "" {
		cfg.Server.Address = ":" + v
	}

	str("SUPABASE_URL", &cfg.Supabase.URL)
	str("SUPABASE_KEY", &cfg.Supabase.Key)
	str("SUPABASE_JWT_SECRET", &cfg.Supabase.JWTSecret)
	str("SUPABASE_TABLE", &cfg.Supabase.Table)

	str("STORE_PROVIDER", &cfg.Store.Provider)
	str("TABLE_NAME", &cfg.Store.TableName)
	str("AUTH_VERIFIER", &cfg.Auth.Verifier)
	str("AWS_REGION", &cfg.AWS.Region)

	boolean("ENABLE_EVENTS", &cfg.Events.Enabled)
	str("EVENT_BUS_NAME", &cfg.Events.EventBusName)

	boolean("ENABLE_METRICS", &cfg.Metrics.Enabled)
	boolean("ENABLE_TRACING", &cfg.Tracing.Enabled)
	str("OTLP_ENDPOINT", &cfg.Tracing.Endpoint)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	if v := l.getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
	boolean("ENABLE_CIRCUIT_BREAKER", &cfg.CircuitBreaker.Enabled)
}

// Default returns a configuration that runs without any file.
func Default(env Environment) *Config {
	logFormat := "console"
	if env != Development {
		logFormat = "json"
	}
	return &Config{
		Environment: env,
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Supabase: Supabase{
			Table: "memories",
		},
		Store: Store{
			Provider: StoreSupabase,
		},
		Auth: Auth{
			Verifier: VerifierJWT,
		},
		AWS: AWS{
			Region: "us-east-1",
		},
		Events: Events{
			EventBusName: "default",
			Source:       "memorygrid.api",
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "memorygrid",
			Path:      "/metrics",
		},
		Tracing: Tracing{
			ServiceName: "memorygrid-api",
			SampleRate:  0.1,
		},
		Logging: Logging{
			Level:  "info",
			Format: logFormat,
		},
		CORS: CORS{
			AllowedOrigins: []string{"*"},
			MaxAge:         300,
		},
		CircuitBreaker: CircuitBreaker{
			Enabled:      true,
			MaxRequests:  3,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			MinRequests:  5,
			FailureRatio: 0.6,
		},
	}
}

// DefaultLoader reads MEMGRID_CONFIG, or DefaultPath when it exists, plus the environment.
func DefaultLoader() *Loader {
	if path := os.Getenv("MEMGRID_CONFIG"); path != "" {
		return NewLoader(path)
	}
	l := NewLoader(DefaultPath)
	l.required = false
	return l
}

// Load loads configuration through DefaultLoader.
func Load() (*Config, error) {
	return DefaultLoader().Load()
}

// MustLoad loads configuration and panics on error.
// Use this only in main() functions.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
