// Package config loads the ember server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Handler kinds a route can use.
const (
	HandlerText     = "text"
	HandlerHello    = "hello"
	HandlerFiles    = "files"
	HandlerRedirect = "redirect"
	HandlerJSON     = "json"
)

// Log formats
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config is the top-level server configuration.
type Config struct {
	Listen    string `yaml:"listen"`
	ReusePort bool   `yaml:"reuse_port"`

	ReadTimeout  Duration `yaml:"read_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`

	MaxConnections       int `yaml:"max_connections"`
	MaxKeepAliveRequests int `yaml:"max_keepalive_requests"`

	AcceptRate  float64 `yaml:"accept_rate"`
	AcceptBurst int     `yaml:"accept_burst"`
	ClientRate  float64 `yaml:"client_rate"`
	ClientBurst int     `yaml:"client_burst"`

	Cork       bool `yaml:"cork"`
	TCPNoDelay bool `yaml:"tcp_nodelay"`

	// MetricsListen serves Prometheus metrics on /metrics. Empty disables it.
	MetricsListen string `yaml:"metrics_listen"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Routes []Route `yaml:"routes"`
}

// Route binds a URL prefix to a handler.
type Route struct {
	Prefix  string `yaml:"prefix"`
	Handler string `yaml:"handler"`

	// Status overrides the handler's default status.
	Status uint16 `yaml:"status"`

	// text / hello
	Text string `yaml:"text"`
	Mime string `yaml:"mime"`

	// files
	Root        string   `yaml:"root"`
	Index       string   `yaml:"index"`
	CacheTTL    Duration `yaml:"cache_ttl"`
	MaxFileSize int64    `yaml:"max_file_size"`

	// redirect
	Location string `yaml:"location"`

	// json
	JSON any `yaml:"json"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given: one
// hello-world route on :8080.
func Default() Config {
	return Config{
		Listen:      ":8080",
		ReadTimeout: Duration(30 * time.Second),
		IdleTimeout: Duration(60 * time.Second),
		Cork:        true,
		TCPNoDelay:  true,
		LogLevel:    zerolog.LevelInfoValue,
		LogFormat:   LogFormatJSON,
		Routes: []Route{
			{Prefix: "/", Handler: HandlerHello},
		},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default() and validates the result. A document
// that sets routes replaces the default route list.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Routes = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.Routes == nil {
		cfg.Routes = Default().Routes
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen is empty", ErrInvalid)
	}
	if c.ReadTimeout < 0 || c.IdleTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalid)
	}
	if c.MaxConnections < 0 || c.MaxKeepAliveRequests < 0 {
		return fmt.Errorf("%w: connection limits must not be negative", ErrInvalid)
	}
	if c.AcceptRate < 0 || c.AcceptBurst < 0 || c.ClientRate < 0 || c.ClientBurst < 0 {
		return fmt.Errorf("%w: rates must not be negative", ErrInvalid)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalid, err)
	}
	switch c.LogFormat {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("%w: log_format %q (want %q or %q)", ErrInvalid, c.LogFormat, LogFormatJSON, LogFormatConsole)
	}

	if len(c.Routes) == 0 {
		return fmt.Errorf("%w: no routes", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Routes))
	for i := range c.Routes {
		r := &c.Routes[i]
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Prefix] {
			return fmt.Errorf("%w: duplicate route prefix %q", ErrInvalid, r.Prefix)
		}
		seen[r.Prefix] = true
	}
	return nil
}

// Validate checks one route.
func (r *Route) Validate() error {
	if !strings.HasPrefix(r.Prefix, "/") {
		return fmt.Errorf("%w: route prefix %q must start with /", ErrInvalid, r.Prefix)
	}
	if r.Status > 999 {
		return fmt.Errorf("%w: route %q: status %d out of range", ErrInvalid, r.Prefix, r.Status)
	}

	switch r.Handler {
	case HandlerText, HandlerHello, HandlerJSON:
	case HandlerFiles:
		if r.Root == "" {
			return fmt.Errorf("%w: route %q: files handler needs root", ErrInvalid, r.Prefix)
		}
		if r.CacheTTL < 0 || r.MaxFileSize < 0 {
			return fmt.Errorf("%w: route %q: cache_ttl and max_file_size must not be negative", ErrInvalid, r.Prefix)
		}
	case HandlerRedirect:
		if r.Location == "" {
			return fmt.Errorf("%w: route %q: redirect handler needs location", ErrInvalid, r.Prefix)
		}
		if r.Status != 0 && (r.Status < 300 || r.Status > 399) {
			return fmt.Errorf("%w: route %q: redirect status %d is not 3xx", ErrInvalid, r.Prefix, r.Status)
		}
	default:
		return fmt.Errorf("%w: route %q: unknown handler %q", ErrInvalid, r.Prefix, r.Handler)
	}
	return nil
}
