package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/wgtunnel/limits"
	"github.com/opd-ai/wgtunnel/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestProbeExchangesWithPeer(t *testing.T) {
	remote, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer remote.Close()

	// Echo the probe back as the peer would
	echoed := make(chan error, 1)
	go func() {
		buf := make([]byte, limits.MaxDatagramSize)
		if err := remote.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			echoed <- err
			return
		}
		n, from, err := remote.ReadFrom(buf)
		if err != nil {
			echoed <- err
			return
		}
		env, err := transport.Decode(buf[:n])
		if err != nil {
			echoed <- err
			return
		}
		reply, err := transport.Encode(transport.KindData, env.SessionID, 1, []byte("pong"), limits.MaxDatagramSize)
		if err != nil {
			echoed <- err
			return
		}
		_, err = remote.WriteTo(reply, from)
		echoed <- err
	}()

	out, err := execute(t, "probe",
		"--config", missingConfig(t),
		"--bind", "127.0.0.1:0",
		"--peer", remote.LocalAddr().String(),
		"--session-id", "12345",
		"--payload", "ping",
		"--count", "2",
		"--wait", "200ms",
	)
	require.NoError(t, err)
	require.NoError(t, <-echoed)

	assert.Contains(t, out, "Sent 4 bytes to "+remote.LocalAddr().String()+" (session 12345, counter 1)")
	assert.Contains(t, out, `Received 4 bytes from `+remote.LocalAddr().String()+` (session 12345, counter 1): "pong"`)
	assert.Contains(t, out, "Timeout waiting for datagram 2/2")
}

func TestProbeReportsTimeouts(t *testing.T) {
	remote, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer remote.Close()

	out, err := execute(t, "probe",
		"--config", missingConfig(t),
		"--bind", "127.0.0.1:0",
		"--peer", remote.LocalAddr().String(),
		"--count", "1",
		"--wait", "50ms",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Timeout waiting for datagram 1/1")
}

func TestProbeBindFailure(t *testing.T) {
	taken, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	_, err = execute(t, "probe",
		"--config", missingConfig(t),
		"--bind", taken.LocalAddr().String(),
		"--count", "0",
	)
	assert.ErrorIs(t, err, transport.ErrBindFailed)
}

func TestInvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_port: 0\n"), 0o600))

	_, err := execute(t, "run", "--config", path)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestFlagOverridesConfig(t *testing.T) {
	_, err := execute(t, "probe", "--config", missingConfig(t), "--peer", "bad-address", "--count", "0")
	assert.ErrorContains(t, err, "peer.address")
}

func TestUnknownLogLevelRejected(t *testing.T) {
	_, err := execute(t, "probe", "--config", missingConfig(t), "--log-level", "loud", "--count", "0")
	assert.ErrorContains(t, err, "invalid log level")
}
