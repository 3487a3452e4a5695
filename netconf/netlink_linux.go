package netconf

import (
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// systemOps drives the kernel through rtnetlink.
type systemOps struct{}

func lookupLink(ifname string) (netlink.Link, error) {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %s: %w", ifname, err)
	}
	return link, nil
}

func (systemOps) addrAdd(ifname string, addr *net.IPNet) error {
	link, err := lookupLink(ifname)
	if err != nil {
		return err
	}
	err = netlink.AddrAdd(link, &netlink.Addr{IPNet: addr})
	if err != nil && !errors.Is(err, unix.EEXIST) {
		return err
	}
	return nil
}

func (systemOps) setMTU(ifname string, mtu int) error {
	link, err := lookupLink(ifname)
	if err != nil {
		return err
	}
	return netlink.LinkSetMTU(link, mtu)
}

func (systemOps) linkUp(ifname string) error {
	link, err := lookupLink(ifname)
	if err != nil {
		return err
	}
	return netlink.LinkSetUp(link)
}

func family(dst *net.IPNet) int {
	if dst.IP.To4() != nil {
		return netlink.FAMILY_V4
	}
	return netlink.FAMILY_V6
}

func (systemOps) routeExists(ifname string, dst *net.IPNet) (bool, error) {
	link, err := lookupLink(ifname)
	if err != nil {
		return false, err
	}
	routes, err := netlink.RouteListFiltered(family(dst), &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Dst:       dst,
	}, netlink.RT_FILTER_OIF|netlink.RT_FILTER_DST)
	if err != nil {
		return false, err
	}
	return len(routes) > 0, nil
}

func (systemOps) routeAdd(ifname string, dst *net.IPNet) error {
	link, err := lookupLink(ifname)
	if err != nil {
		return err
	}
	err = netlink.RouteAdd(&netlink.Route{
		LinkIndex: link.Attrs().Index,
		Scope:     netlink.SCOPE_LINK,
		Dst:       dst,
	})
	if err != nil && !errors.Is(err, unix.EEXIST) {
		return err
	}
	return nil
}

func (systemOps) routeDel(ifname string, dst *net.IPNet) error {
	link, err := lookupLink(ifname)
	if err != nil {
		// The interface is gone and its routes with it
		return nil
	}
	err = netlink.RouteDel(&netlink.Route{
		LinkIndex: link.Attrs().Index,
		Scope:     netlink.SCOPE_LINK,
		Dst:       dst,
	})
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
