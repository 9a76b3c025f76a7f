// Package config loads and validates the namestream service configuration
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c360/namestream/errors"
	"github.com/c360/namestream/spill"
)

// Default values applied by Loader when the file omits a field
const (
	DefaultHTTPPort        = 8080
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultMaxRequestSize  = 256 << 20 // 256 MiB
	DefaultReadTimeout     = 5 * time.Minute
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	Gateway GatewayConfig `json:"gateway"`
	Spill   spill.Config  `json:"spill"`
	Metrics MetricsConfig `json:"metrics"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port            int      `json:"port"`
	ReadTimeout     Duration `json:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// GatewayConfig holds request-handling policy for the HTTP gateway
type GatewayConfig struct {
	// MaxRequestSize caps the request body in bytes; enforced while
	// streaming, not by buffering.
	MaxRequestSize int64 `json:"max_request_size"`
	// EnableCORS turns on CORS handling for the configured origins
	EnableCORS  bool     `json:"enable_cors"`
	CORSOrigins []string `json:"cors_origins"`
	// RateLimit is requests per second across the gateway, 0 disables
	RateLimit float64 `json:"rate_limit"`
	// RateBurst is the burst allowance when rate limiting is on
	RateBurst int `json:"rate_burst"`
}

// MetricsConfig holds the Prometheus exposition settings
type MetricsConfig struct {
	Port int    `json:"port"`
	Path string `json:"path"`
}

// Duration wraps time.Duration with JSON string encoding ("30s", "5m")
type Duration time.Duration

// MarshalJSON renders the duration in time.Duration string form
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts either a duration string or nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return errors.WrapInvalid(err, "Duration", "UnmarshalJSON", "parse duration")
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(value))
	default:
		return errors.WrapInvalid(
			fmt.Errorf("duration is %T, want string or number", v),
			"Duration", "UnmarshalJSON", "parse duration")
	}
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is supplied
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultHTTPPort,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Gateway: GatewayConfig{
			MaxRequestSize: DefaultMaxRequestSize,
		},
		Spill: spill.Config{
			MemoryThreshold: spill.DefaultMemoryThreshold,
		},
		Metrics: MetricsConfig{
			Port: DefaultMetricsPort,
			Path: DefaultMetricsPath,
		},
	}
}

// Loader loads configuration files with defaults and env overrides
type Loader struct{}

// NewLoader creates a config loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads a JSON config file, layering it over defaults and then
// applying NAMESTREAM_* environment overrides
func (l *Loader) LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "LoadFile", "read config file")
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "LoadFile", "parse config file")
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies NAMESTREAM_* environment variables on top of
// the loaded file. Only the operationally common knobs are exposed.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NAMESTREAM_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("NAMESTREAM_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("NAMESTREAM_MAX_REQUEST_SIZE"); v != "" {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Gateway.MaxRequestSize = size
		}
	}
	if v := os.Getenv("NAMESTREAM_SPILL_DIR"); v != "" {
		cfg.Spill.Dir = v
	}
}

// Validate ensures the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	if c.Metrics.Port != 0 && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("metrics port %d out of range", c.Metrics.Port))
	}
	if c.Metrics.Port == c.Server.Port && c.Metrics.Port != 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"metrics port collides with server port")
	}
	if c.Gateway.MaxRequestSize <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size must be positive")
	}
	if c.Gateway.RateLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"rate_limit cannot be negative")
	}
	if c.Gateway.RateLimit > 0 && c.Gateway.RateBurst < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"rate_burst must be at least 1 when rate limiting is enabled")
	}
	if c.Gateway.EnableCORS && len(c.Gateway.CORSOrigins) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"cors_origins required when enable_cors is set")
	}
	if c.Spill.MemoryThreshold < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"spill memory_threshold cannot be negative")
	}
	if c.Spill.Dir != "" {
		info, err := os.Stat(c.Spill.Dir)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate", "stat spill dir")
		}
		if !info.IsDir() {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				fmt.Sprintf("spill dir %s is not a directory", c.Spill.Dir))
		}
	}
	for _, timeout := range []Duration{c.Server.ReadTimeout, c.Server.WriteTimeout, c.Server.ShutdownTimeout} {
		if timeout < 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"timeouts cannot be negative")
		}
	}
	return nil
}
