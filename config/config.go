// Package config loads the tunnel's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/opd-ai/wgtunnel/limits"
	"github.com/opd-ai/wgtunnel/tun"
	"gopkg.in/yaml.v3"
)

// Config holds the tunnel configuration.
type Config struct {
	ListenPort        int           `yaml:"listen_port"`
	MaxDatagram       int           `yaml:"max_datagram"`
	ReceiveTimeout    time.Duration `yaml:"receive_timeout"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	StaleTimeout      time.Duration `yaml:"stale_timeout"`

	Peer PeerConfig `yaml:"peer"`
	TUN  TUNConfig  `yaml:"tun"`
	Log  LogConfig  `yaml:"log"`
}

// PeerConfig describes the single remote peer.
type PeerConfig struct {
	Address   string `yaml:"address"`
	SessionID uint32 `yaml:"session_id"`
}

// TUNConfig describes the virtual interface and the route sent through it.
type TUNConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"` // CIDR, e.g. 192.168.233.1/24
	Route   string `yaml:"route"`   // CIDR, empty to skip
	MTU     int    `yaml:"mtu"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenPort:        51820,
		MaxDatagram:       limits.MaxDatagramSize,
		ReceiveTimeout:    time.Second,
		KeepaliveInterval: 25 * time.Second,
		StaleTimeout:      180 * time.Second,
		Peer: PeerConfig{
			Address:   "127.0.0.1:51821",
			SessionID: 12345,
		},
		TUN: TUNConfig{
			Name:    "wgtun0",
			Address: "192.168.233.1/24",
			Route:   "192.168.233.0/24",
			MTU:     1400,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return "/etc/wgtunnel/config.yaml"
}

// Load reads the configuration from the given YAML file path on top of the
// defaults. If the file does not exist, it returns Default() with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the tunnel cannot run with.
func (c *Config) Validate() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen_port %d: must be between 1 and 65535", c.ListenPort)
	}
	if err := limits.ValidateLimit(c.MaxDatagram); err != nil {
		return fmt.Errorf("max_datagram: %w", err)
	}
	if c.ReceiveTimeout <= 0 {
		return fmt.Errorf("receive_timeout must be positive")
	}
	if c.KeepaliveInterval <= 0 {
		return fmt.Errorf("keepalive_interval must be positive")
	}
	if c.StaleTimeout <= 0 {
		return fmt.Errorf("stale_timeout must be positive")
	}

	host, port, err := net.SplitHostPort(c.Peer.Address)
	if err != nil || host == "" || port == "" || port == "0" {
		return fmt.Errorf("invalid peer.address %q: expected host:port", c.Peer.Address)
	}

	if err := tun.ValidateName(c.TUN.Name); err != nil {
		return fmt.Errorf("tun.name: %w", err)
	}
	if _, _, err := net.ParseCIDR(c.TUN.Address); err != nil {
		return fmt.Errorf("invalid tun.address %q: %w", c.TUN.Address, err)
	}
	if c.TUN.Route != "" {
		if _, _, err := net.ParseCIDR(c.TUN.Route); err != nil {
			return fmt.Errorf("invalid tun.route %q: %w", c.TUN.Route, err)
		}
	}
	if c.TUN.MTU < 0 || c.TUN.MTU > 65535 {
		return fmt.Errorf("invalid tun.mtu %d", c.TUN.MTU)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}
