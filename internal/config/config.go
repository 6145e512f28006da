// Package config holds all configuration types and loading logic for smq.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for an smq server instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Queue     QueueConfig     `yaml:"queue"`
	Auth      AuthConfig      `yaml:"auth"`
	TLS       TLSConfig       `yaml:"tls"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds identity and network settings.
type ServerConfig struct {
	// ID is a ULID string. "auto" generates a fresh one for each process.
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// QueueConfig tunes the in-memory channel store.
type QueueConfig struct {
	// InitialCapacity pre-sizes every channel's buffer. Advisory only:
	// channels still grow without bound past it.
	InitialCapacity int `yaml:"initial_capacity"`
}

// AuthConfig controls the shared-secret check on the x-auth header.
// An empty Key disables the check.
type AuthConfig struct {
	Key string `yaml:"key"`
}

// Enabled reports whether requests must carry a matching x-auth header.
func (a AuthConfig) Enabled() bool { return a.Key != "" }

// TLSConfig switches the listener to HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether HTTPS should be served.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// MetricsConfig controls the dedicated Prometheus listener.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RateLimitConfig applies per-client-IP token buckets.
type RateLimitConfig struct {
	// RPS is requests per second per client IP. 0 disables rate limiting.
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns a Config populated with the defaults smq ships with.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ID:   "auto",
			Host: "0.0.0.0",
			Port: 8080,
		},
		Queue: QueueConfig{
			InitialCapacity: 10_000,
		},
		Auth: AuthConfig{},
		TLS:  TLSConfig{},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		RateLimit: RateLimitConfig{
			RPS:   0,
			Burst: 200,
		},
	}
}

// Load reads a YAML config file at path and overlays it on top of Default().
// A missing file is not an error; the defaults are used.
//
// Environment variables are applied last:
//
//	SMQ_HOST              server.host
//	SMQ_PORT              server.port
//	SMQ_INITIAL_CAPACITY  queue.initial_capacity
//	SMQ_AUTH_KEY          auth.key
//	SMQ_TLS_CERT          tls.cert_file
//	SMQ_TLS_KEY           tls.key_file
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SMQ_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SMQ_PORT"); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("SMQ_INITIAL_CAPACITY"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n >= 0 {
			cfg.Queue.InitialCapacity = n
		}
	}
	if v := os.Getenv("SMQ_AUTH_KEY"); v != "" {
		cfg.Auth.Key = v
	}
	if v := os.Getenv("SMQ_TLS_CERT"); v != "" {
		cfg.TLS.CertFile = v
	}
	if v := os.Getenv("SMQ_TLS_KEY"); v != "" {
		cfg.TLS.KeyFile = v
	}
}

// Addr returns the host:port the main listener binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that the config values are consistent and within acceptable
// ranges. It returns the first error found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Queue.InitialCapacity < 0 {
		return errors.New("queue.initial_capacity must be >= 0")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("tls.cert_file and tls.key_file must be set together")
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.New("metrics.port must be between 1 and 65535")
		}
		if c.Metrics.Port == c.Server.Port {
			return errors.New("metrics.port must differ from server.port")
		}
	}
	if c.RateLimit.RPS < 0 {
		return errors.New("rate_limit.rps must be >= 0")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return errors.New("rate_limit.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}
