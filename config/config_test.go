package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/wgtunnel/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 51820, cfg.ListenPort)
	assert.Equal(t, limits.MaxDatagramSize, cfg.MaxDatagram)
	assert.Equal(t, 25*time.Second, cfg.KeepaliveInterval)
	assert.Equal(t, "127.0.0.1:51821", cfg.Peer.Address)
	assert.Equal(t, uint32(12345), cfg.Peer.SessionID)
	assert.Equal(t, "wgtun0", cfg.TUN.Name)
	assert.Equal(t, "192.168.233.0/24", cfg.TUN.Route)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen_port: 40000
keepalive_interval: 10s
peer:
  address: 203.0.113.7:51820
  session_id: 7
tun:
  name: tun9
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40000, cfg.ListenPort)
	assert.Equal(t, 10*time.Second, cfg.KeepaliveInterval)
	assert.Equal(t, "203.0.113.7:51820", cfg.Peer.Address)
	assert.Equal(t, uint32(7), cfg.Peer.SessionID)
	assert.Equal(t, "tun9", cfg.TUN.Name)
	assert.Equal(t, "json", cfg.Log.Format)

	// Fields absent from the file keep their defaults
	assert.Equal(t, 180*time.Second, cfg.StaleTimeout)
	assert.Equal(t, "192.168.233.1/24", cfg.TUN.Address)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_port: [1, 2"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"port zero", func(c *Config) { c.ListenPort = 0 }, "listen_port"},
		{"port too high", func(c *Config) { c.ListenPort = 70000 }, "listen_port"},
		{"datagram at header size", func(c *Config) { c.MaxDatagram = limits.HeaderSize }, "max_datagram"},
		{"datagram above udp max", func(c *Config) { c.MaxDatagram = limits.MaxUDPPayload + 1 }, "max_datagram"},
		{"receive timeout", func(c *Config) { c.ReceiveTimeout = 0 }, "receive_timeout"},
		{"keepalive", func(c *Config) { c.KeepaliveInterval = -time.Second }, "keepalive_interval"},
		{"stale", func(c *Config) { c.StaleTimeout = 0 }, "stale_timeout"},
		{"peer without port", func(c *Config) { c.Peer.Address = "127.0.0.1" }, "peer.address"},
		{"peer port zero", func(c *Config) { c.Peer.Address = "127.0.0.1:0" }, "peer.address"},
		{"tun name", func(c *Config) { c.TUN.Name = "a-very-long-interface-name" }, "tun.name"},
		{"tun address", func(c *Config) { c.TUN.Address = "192.168.233.1" }, "tun.address"},
		{"tun route", func(c *Config) { c.TUN.Route = "nonsense" }, "tun.route"},
		{"mtu", func(c *Config) { c.TUN.MTU = -1 }, "tun.mtu"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateAllowsEmptyRoute(t *testing.T) {
	cfg := Default()
	cfg.TUN.Route = ""
	assert.NoError(t, cfg.Validate())
}
