package tun

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/songgao/water"
)

// waterDevice adapts a water interface to Device.
type waterDevice struct {
	*water.Interface
}

// Open creates a TUN interface named name. The device carries bare IP
// datagrams without a packet information header.
func Open(name string) (Device, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	iface, err := water.New(platformConfig(name))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Open",
			"name":     name,
			"error":    err.Error(),
		}).Error("Failed to create TUN interface")
		return nil, fmt.Errorf("create tun %q: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"name":     iface.Name(),
	}).Info("TUN interface created")

	return &waterDevice{Interface: iface}, nil
}
