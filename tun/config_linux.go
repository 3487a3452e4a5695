package tun

import "github.com/songgao/water"

func platformConfig(name string) water.Config {
	cfg := water.Config{DeviceType: water.TUN}
	cfg.Name = name
	return cfg
}
