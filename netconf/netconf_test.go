package netconf

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOps records calls and simulates a kernel route table.
type fakeOps struct {
	calls    []string
	routes   map[string]bool
	failAddr error
	failDel  error
}

func newFakeOps() *fakeOps {
	return &fakeOps{routes: make(map[string]bool)}
}

func (f *fakeOps) addrAdd(ifname string, addr *net.IPNet) error {
	f.calls = append(f.calls, "addr "+ifname+" "+addr.String())
	return f.failAddr
}

func (f *fakeOps) setMTU(ifname string, mtu int) error {
	f.calls = append(f.calls, "mtu "+ifname)
	return nil
}

func (f *fakeOps) linkUp(ifname string) error {
	f.calls = append(f.calls, "up "+ifname)
	return nil
}

func (f *fakeOps) routeExists(ifname string, dst *net.IPNet) (bool, error) {
	return f.routes[ifname+" "+dst.String()], nil
}

func (f *fakeOps) routeAdd(ifname string, dst *net.IPNet) error {
	f.calls = append(f.calls, "route add "+dst.String())
	f.routes[ifname+" "+dst.String()] = true
	return nil
}

func (f *fakeOps) routeDel(ifname string, dst *net.IPNet) error {
	f.calls = append(f.calls, "route del "+dst.String())
	if f.failDel != nil {
		return f.failDel
	}
	delete(f.routes, ifname+" "+dst.String())
	return nil
}

func TestSetupAddsMissingRoute(t *testing.T) {
	ops := newFakeOps()
	c := &Configurator{ops: ops}

	err := c.Setup(Config{
		Interface: "wgtun0",
		Address:   "192.168.233.1/24",
		Route:     "10.10.0.0/16",
		MTU:       1400,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"addr wgtun0 192.168.233.1/24",
		"mtu wgtun0",
		"up wgtun0",
		"route add 10.10.0.0/16",
	}, ops.calls)

	require.NoError(t, c.Teardown())
	assert.Equal(t, "route del 10.10.0.0/16", ops.calls[len(ops.calls)-1])
	assert.Empty(t, ops.routes)
}

func TestSetupSkipsExistingRoute(t *testing.T) {
	ops := newFakeOps()
	ops.routes["wgtun0 192.168.233.0/24"] = true
	c := &Configurator{ops: ops}

	err := c.Setup(Config{Interface: "wgtun0", Address: "192.168.233.1/24", Route: "192.168.233.0/24"})
	require.NoError(t, err)
	assert.NotContains(t, ops.calls, "route add 192.168.233.0/24")
	assert.NotContains(t, ops.calls, "mtu wgtun0", "zero MTU is left alone")

	// A route we did not install is not ours to remove
	require.NoError(t, c.Teardown())
	assert.NotContains(t, ops.calls, "route del 192.168.233.0/24")
	assert.True(t, ops.routes["wgtun0 192.168.233.0/24"])
}

func TestSetupIsIdempotentForRoutes(t *testing.T) {
	ops := newFakeOps()
	c := &Configurator{ops: ops}
	cfg := Config{Interface: "wgtun0", Address: "192.168.233.1/24", Route: "10.0.0.0/8"}

	require.NoError(t, c.Setup(cfg))
	require.NoError(t, c.Setup(cfg))

	adds := 0
	for _, call := range ops.calls {
		if call == "route add 10.0.0.0/8" {
			adds++
		}
	}
	assert.Equal(t, 1, adds)
}

func TestSetupErrors(t *testing.T) {
	ops := newFakeOps()
	c := &Configurator{ops: ops}

	err := c.Setup(Config{Interface: "wgtun0", Address: "not-a-cidr"})
	assert.Error(t, err)

	err = c.Setup(Config{Interface: "wgtun0", Address: "192.168.233.1/24", Route: "bogus"})
	assert.Error(t, err)

	ops.failAddr = errors.New("permission denied")
	err = c.Setup(Config{Interface: "wgtun0", Address: "192.168.233.1/24"})
	assert.ErrorContains(t, err, "permission denied")
}

func TestTeardownJoinsErrors(t *testing.T) {
	ops := newFakeOps()
	c := &Configurator{ops: ops}
	require.NoError(t, c.Setup(Config{Interface: "wgtun0", Address: "192.168.233.1/24", Route: "10.1.0.0/16"}))

	ops.failDel = errors.New("busy")
	err := c.Teardown()
	assert.ErrorContains(t, err, "busy")

	// Nothing left to retry
	assert.NoError(t, c.Teardown())
}

func TestParseCIDRKeepsHostAddress(t *testing.T) {
	ipnet, err := ParseCIDR("192.168.233.1/24")
	require.NoError(t, err)
	assert.Equal(t, "192.168.233.1/24", ipnet.String())
}
