// Package config loads server configuration with the precedence
// defaults < TOML file < environment (RETROSYNC_ prefix).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Database  DatabaseConfig  `koanf:"database"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Log       LogConfig       `koanf:"log"`
}

type HTTPConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `koanf:"ping_interval"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	SendBuffer   int           `koanf:"send_buffer"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"http.host":               "0.0.0.0",
		"http.port":               8080,
		"http.read_timeout":       "30s",
		"http.write_timeout":      "30s",
		"database.path":           "./retrosync.db",
		"websocket.ping_interval": "30s",
		"websocket.read_timeout":  "60s",
		"websocket.write_timeout": "10s",
		"websocket.send_buffer":   100,
		"log.level":               "info",
		"log.pretty":              false,
	}
}

// Load reads configuration. An empty path checks the default locations
// and silently falls back to defaults+env when no file exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else {
		for _, candidate := range []string{"./retrosync.toml", "$HOME/.retrosync.toml"} {
			candidate = os.ExpandEnv(candidate)
			if _, err := os.Stat(candidate); err == nil {
				if err := k.Load(file.Provider(candidate), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// RETROSYNC_HTTP_PORT=9090 -> http.port, etc.
	if err := k.Load(env.Provider("RETROSYNC_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RETROSYNC_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration, mainly for tests.
func Default() *Config {
	return &Config{
		HTTP:      HTTPConfig{Host: "0.0.0.0", Port: 8080, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second},
		Database:  DatabaseConfig{Path: "./retrosync.db"},
		WebSocket: WebSocketConfig{PingInterval: 30 * time.Second, ReadTimeout: 60 * time.Second, WriteTimeout: 10 * time.Second, SendBuffer: 100},
		Log:       LogConfig{Level: "info"},
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 0 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("http host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("websocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("websocket write timeout must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive")
	}
	return nil
}
