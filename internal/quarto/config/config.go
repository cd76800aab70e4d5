package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	TransportTCP = "tcp"
	TransportWS  = "ws"
)

type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// WSPort serves the websocket endpoint when non-zero.
	WSPort    int    `json:"ws_port"`
	Transport string `json:"transport"`

	RetryInterval    Duration `json:"retry_interval"`
	HandshakeTimeout Duration `json:"handshake_timeout"`
	LogLevel         string   `json:"log_level"`
}

// Duration reads either a Go duration string ("5s") or a number of seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func Default() *Config {
	return &Config{
		Host:             "127.0.0.1",
		Port:             5000,
		Transport:        TransportTCP,
		RetryInterval:    Duration{3 * time.Second},
		HandshakeTimeout: Duration{10 * time.Second},
		LogLevel:         "info",
	}
}

// Load reads the JSON config file at path, then applies QUARTO_* overrides
// from the environment and an optional .env file. A missing file leaves the
// defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("QUARTO_HOST"); ok {
		c.Host = v
	}
	if v, ok := os.LookupEnv("QUARTO_TRANSPORT"); ok {
		c.Transport = v
	}
	if v, ok := os.LookupEnv("QUARTO_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	for key, dst := range map[string]*int{"QUARTO_PORT": &c.Port, "QUARTO_WS_PORT": &c.WSPort} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}
	for key, dst := range map[string]*Duration{
		"QUARTO_RETRY_INTERVAL":    &c.RetryInterval,
		"QUARTO_HANDSHAKE_TIMEOUT": &c.HandshakeTimeout,
	} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		dst.Duration = d
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.WSPort < 0 || c.WSPort > 65535 {
		return fmt.Errorf("ws_port %d out of range", c.WSPort)
	}
	if c.Transport != TransportTCP && c.Transport != TransportWS {
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.RetryInterval.Duration <= 0 {
		return fmt.Errorf("retry_interval must be positive")
	}
	if c.HandshakeTimeout.Duration <= 0 {
		return fmt.Errorf("handshake_timeout must be positive")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) WSListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.WSPort))
}

// WSURL is the websocket endpoint clients dial.
func (c *Config) WSURL() string {
	return "ws://" + c.WSListenAddr() + "/ws"
}
