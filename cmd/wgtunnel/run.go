package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/wgtunnel/bridge"
	"github.com/opd-ai/wgtunnel/netconf"
	"github.com/opd-ai/wgtunnel/transport"
	"github.com/opd-ai/wgtunnel/tun"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Create the TUN interface and forward traffic to the peer",
		Long: `Run creates the TUN interface, assigns its address, installs the route for
the tunneled prefix, and forwards traffic until interrupted. It needs the
privileges required to create interfaces and change routes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTunnel(cmd, opts)
		},
	}
}

func runTunnel(cmd *cobra.Command, opts *rootOptions) error {
	cfg := opts.cfg

	engine, err := transport.Open(cfg.ListenPort, &transport.Options{
		MaxDatagramSize: cfg.MaxDatagram,
		StaleTimeout:    cfg.StaleTimeout,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	peer, err := engine.ConfigurePeer(cfg.Peer.Address, cfg.Peer.SessionID)
	if err != nil {
		return err
	}

	dev, err := tun.Open(cfg.TUN.Name)
	if err != nil {
		return err
	}

	nc := netconf.New()
	if err := nc.Setup(netconf.Config{
		Interface: dev.Name(),
		Address:   cfg.TUN.Address,
		Route:     cfg.TUN.Route,
		MTU:       cfg.TUN.MTU,
	}); err != nil {
		_ = dev.Close()
		return fmt.Errorf("configure %s: %w", dev.Name(), err)
	}
	defer func() {
		if err := nc.Teardown(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "runTunnel",
				"error":    err.Error(),
			}).Warn("Failed to remove routes")
		}
	}()

	if err := engine.RunKeepalive(peer, cfg.KeepaliveInterval); err != nil {
		_ = dev.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"function":   "runTunnel",
		"interface":  dev.Name(),
		"local_addr": engine.LocalAddr().String(),
		"peer":       peer.Endpoint().String(),
		"session_id": peer.SessionID(),
	}).Info("Tunnel running")

	return bridge.New(dev, engine, peer, cfg.ReceiveTimeout).Run(ctx)
}
