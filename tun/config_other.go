//go:build !linux

package tun

import (
	"github.com/sirupsen/logrus"
	"github.com/songgao/water"
)

// platformConfig ignores name: outside Linux the driver assigns it.
func platformConfig(name string) water.Config {
	if name != "" {
		logrus.WithFields(logrus.Fields{
			"function": "platformConfig",
			"name":     name,
		}).Warn("Interface name is only honoured on Linux")
	}
	return water.Config{DeviceType: water.TUN}
}
