//go:build !linux

package netconf

import "net"

// systemOps reports every operation as unsupported.
type systemOps struct{}

func (systemOps) addrAdd(string, *net.IPNet) error { return ErrUnsupported }

func (systemOps) setMTU(string, int) error { return ErrUnsupported }

func (systemOps) linkUp(string) error { return ErrUnsupported }

func (systemOps) routeExists(string, *net.IPNet) (bool, error) { return false, ErrUnsupported }

func (systemOps) routeAdd(string, *net.IPNet) error { return ErrUnsupported }

func (systemOps) routeDel(string, *net.IPNet) error { return ErrUnsupported }
