// Package netconf configures the host side of the tunnel interface: it
// assigns the interface address, sets the MTU, brings the link up, and
// installs a route for the tunneled prefix if one is not already present.
// Routes it installed are removed again by Teardown.
//
// It runs once at startup and once at shutdown and is never on the packet
// path.
package netconf

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrUnsupported indicates the platform has no network configuration backend.
var ErrUnsupported = errors.New("network configuration not supported on this platform")

// Config describes the interface setup.
type Config struct {
	// Interface is the name of the TUN interface.
	Interface string
	// Address is the interface address in CIDR form, e.g. 192.168.233.1/24.
	Address string
	// Route is the tunneled prefix in CIDR form. Empty skips routing.
	Route string
	// MTU of the interface. Zero leaves it unchanged.
	MTU int
}

// linkOps is the system backend.
type linkOps interface {
	addrAdd(ifname string, addr *net.IPNet) error
	setMTU(ifname string, mtu int) error
	linkUp(ifname string) error
	routeExists(ifname string, dst *net.IPNet) (bool, error)
	routeAdd(ifname string, dst *net.IPNet) error
	routeDel(ifname string, dst *net.IPNet) error
}

type installedRoute struct {
	ifname string
	dst    *net.IPNet
}

// Configurator applies Config and remembers what it changed.
type Configurator struct {
	ops       linkOps
	mu        sync.Mutex
	installed []installedRoute
}

// New returns a Configurator backed by the host's network stack.
func New() *Configurator {
	return &Configurator{ops: systemOps{}}
}

// ParseCIDR parses s keeping the host address, as in 192.168.233.1/24.
func ParseCIDR(s string) (*net.IPNet, error) {
	ip, ipnet, err := net.ParseCIDR(s)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	ipnet.IP = ip
	return ipnet, nil
}

// Setup assigns the address, sets the MTU, brings the link up and installs
// the route when it does not exist yet.
func (c *Configurator) Setup(cfg Config) error {
	addr, err := ParseCIDR(cfg.Address)
	if err != nil {
		return fmt.Errorf("interface address: %w", err)
	}

	if err := c.ops.addrAdd(cfg.Interface, addr); err != nil {
		return fmt.Errorf("assign %s to %s: %w", addr, cfg.Interface, err)
	}
	if cfg.MTU > 0 {
		if err := c.ops.setMTU(cfg.Interface, cfg.MTU); err != nil {
			return fmt.Errorf("set mtu %d on %s: %w", cfg.MTU, cfg.Interface, err)
		}
	}
	if err := c.ops.linkUp(cfg.Interface); err != nil {
		return fmt.Errorf("bring up %s: %w", cfg.Interface, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Setup",
		"interface": cfg.Interface,
		"address":   addr.String(),
		"mtu":       cfg.MTU,
	}).Info("Interface configured")

	if cfg.Route == "" {
		return nil
	}
	return c.ensureRoute(cfg.Interface, cfg.Route)
}

// ensureRoute installs the route unless the kernel already has it, which is
// the usual case when Route is the connected prefix of Address.
func (c *Configurator) ensureRoute(ifname, route string) error {
	_, dst, err := net.ParseCIDR(route)
	if err != nil {
		return fmt.Errorf("route: parse %q: %w", route, err)
	}

	exists, err := c.ops.routeExists(ifname, dst)
	if err != nil {
		return fmt.Errorf("check route %s dev %s: %w", dst, ifname, err)
	}
	if exists {
		logrus.WithFields(logrus.Fields{
			"function":  "ensureRoute",
			"interface": ifname,
			"route":     dst.String(),
		}).Info("Route already present")
		return nil
	}

	if err := c.ops.routeAdd(ifname, dst); err != nil {
		return fmt.Errorf("add route %s dev %s: %w", dst, ifname, err)
	}

	c.mu.Lock()
	c.installed = append(c.installed, installedRoute{ifname: ifname, dst: dst})
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":  "ensureRoute",
		"interface": ifname,
		"route":     dst.String(),
	}).Info("Route added")
	return nil
}

// Teardown removes the routes Setup installed. It keeps going after a
// failure and returns all errors joined.
func (c *Configurator) Teardown() error {
	c.mu.Lock()
	routes := c.installed
	c.installed = nil
	c.mu.Unlock()

	var errs []error
	for i := len(routes) - 1; i >= 0; i-- {
		r := routes[i]
		if err := c.ops.routeDel(r.ifname, r.dst); err != nil {
			errs = append(errs, fmt.Errorf("delete route %s dev %s: %w", r.dst, r.ifname, err))
			continue
		}
		logrus.WithFields(logrus.Fields{
			"function":  "Teardown",
			"interface": r.ifname,
			"route":     r.dst.String(),
		}).Info("Route removed")
	}
	return errors.Join(errs...)
}
