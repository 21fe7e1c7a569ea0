package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "30s" or "2m"
// instead of nanosecond counts.
type Duration time.Duration

// UnmarshalYAML parses duration strings. Bare numbers are rejected so a
// config never silently means nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("durations are strings like \"30s\", got %s", value.Tag)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete application configuration: the HTTP surface,
// the ML backend connection, the optional explanation model, the saved
// pipeline library, and logging.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Explain ExplainConfig `yaml:"explain"`
	Library LibraryConfig `yaml:"library"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigin   string   `yaml:"allowed_origin"`
	MaxUploadBytes  int64    `yaml:"max_upload_bytes"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// BackendConfig defines the ML service connection.
type BackendConfig struct {
	URL            string   `yaml:"url"`
	Timeout        Duration `yaml:"timeout"`
	HealthInterval Duration `yaml:"health_interval"`
}

// ExplainConfig defines the optional language model used for stage
// explanations. When disabled, only the static texts are served.
type ExplainConfig struct {
	Enabled bool `yaml:"enabled"`

	// BaseURL points at an OpenAI-compatible API. Empty uses the OpenAI
	// default; a local service works too and needs no key.
	BaseURL string `yaml:"base_url"`

	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key. The
	// key itself never lives in the config file.
	APIKeyEnv string `yaml:"api_key_env"`

	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// LibraryConfig defines where saved pipelines live. An empty dir
// disables the library endpoints.
type LibraryConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig defines log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigin:   "*",
			MaxUploadBytes:  25 << 20,
			MaxBodyBytes:    2 << 20,
			ShutdownTimeout: Duration(30 * time.Second),
		},
		Backend: BackendConfig{
			URL:            "http://localhost:5000",
			Timeout:        Duration(30 * time.Second),
			HealthInterval: Duration(15 * time.Second),
		},
		Explain: ExplainConfig{
			Enabled:           false,
			Model:             "gpt-4o-mini",
			APIKeyEnv:         "OPENAI_API_KEY",
			RequestsPerMinute: 20,
		},
		Library: LibraryConfig{
			Dir: "data/pipelines",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Loader loads configuration with defaults, file, and environment
// layers, later layers overriding earlier ones.
type Loader struct {
	envPrefix string
}

// NewLoader creates a configuration loader.
func NewLoader() *Loader {
	return &Loader{envPrefix: "NEUROBLOCK"}
}

// LoadFile loads configuration: defaults first, then the file if path
// is non-empty, then environment overrides, then validation.
func (l *Loader) LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := safeReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		// Strict decoding surfaces typos instead of ignoring them.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies NEUROBLOCK_* environment overrides.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		key string
		dst *string
	}{
		{"ADDR", &cfg.Server.Addr},
		{"ALLOWED_ORIGIN", &cfg.Server.AllowedOrigin},
		{"BACKEND_URL", &cfg.Backend.URL},
		{"LIBRARY_DIR", &cfg.Library.Dir},
		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FORMAT", &cfg.Logging.Format},
		{"EXPLAIN_MODEL", &cfg.Explain.Model},
	}
	for _, o := range overrides {
		key := l.envPrefix + "_" + o.key
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if err := validateEnvVar(key, val); err != nil {
			return err
		}
		*o.dst = val
	}

	if val := os.Getenv(l.envPrefix + "_EXPLAIN_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s_EXPLAIN_ENABLED: %w", l.envPrefix, err)
		}
		cfg.Explain.Enabled = enabled
	}

	return nil
}

// Validate checks the configuration for values the server cannot start
// with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr: %w", err)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	if c.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("backend.url has no host")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend.timeout must be positive")
	}
	if c.Backend.HealthInterval <= 0 {
		return errors.New("backend.health_interval must be positive")
	}

	if c.Explain.Enabled {
		if c.Explain.Model == "" {
			return errors.New("explain.model is required when explain is enabled")
		}
		if c.Explain.APIKeyEnv == "" && c.Explain.BaseURL == "" {
			return errors.New("explain.api_key_env is required when explain is enabled without a local base_url")
		}
	}
	if c.Explain.RequestsPerMinute < 0 {
		return errors.New("explain.requests_per_minute cannot be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q is not one of json, text", c.Logging.Format)
	}

	return nil
}

// SaveToFile writes the configuration as YAML. Used to generate a
// starter config file.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// String renders the configuration as YAML. The config carries no
// secrets (API keys are referenced by environment variable name), so
// the full rendering is safe to log.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config{error: %v}", err)
	}
	return string(data)
}
