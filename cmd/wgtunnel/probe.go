package main

import (
	"fmt"
	"time"

	"github.com/opd-ai/wgtunnel/transport"
	"github.com/spf13/cobra"
)

type probeOptions struct {
	bind    string
	payload string
	count   int
	wait    time.Duration
}

func newProbeCmd(root *rootOptions) *cobra.Command {
	opts := &probeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Send one datagram to the peer and print the replies",
		Long: `Probe binds the transport, sends a single data envelope to the configured
peer, and then waits for replies, reporting each datagram or timeout. No TUN
interface is created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.bind, "bind", "", "listen address host:port (overrides --port)")
	flags.StringVar(&opts.payload, "payload", "Hello from wgtunnel", "payload to send")
	flags.IntVar(&opts.count, "count", 3, "number of datagrams to wait for")
	flags.DurationVar(&opts.wait, "wait", 5*time.Second, "timeout for each wait")
	return cmd
}

func runProbe(cmd *cobra.Command, root *rootOptions, opts *probeOptions) error {
	cfg := root.cfg
	out := cmd.OutOrStdout()

	tuning := &transport.Options{
		MaxDatagramSize: cfg.MaxDatagram,
		StaleTimeout:    cfg.StaleTimeout,
	}
	var (
		engine *transport.Engine
		err    error
	)
	if opts.bind != "" {
		engine, err = transport.OpenAddr(opts.bind, tuning)
	} else {
		engine, err = transport.Open(cfg.ListenPort, tuning)
	}
	if err != nil {
		return err
	}
	defer engine.Close()

	peer, err := engine.ConfigurePeer(cfg.Peer.Address, cfg.Peer.SessionID)
	if err != nil {
		return err
	}

	if err := engine.Send(peer, []byte(opts.payload)); err != nil {
		return fmt.Errorf("send probe: %w", err)
	}
	fmt.Fprintf(out, "Sent %d bytes to %s (session %d, counter %d)\n",
		len(opts.payload), peer.Endpoint(), peer.SessionID(), peer.TxCounter()-1)

	for i := 1; i <= opts.count; i++ {
		from, payload, err := engine.Receive(opts.wait)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if from == nil {
			fmt.Fprintf(out, "Timeout waiting for datagram %d/%d\n", i, opts.count)
			continue
		}
		fmt.Fprintf(out, "Received %d bytes from %s (session %d, counter %d): %q\n",
			len(payload), from.Endpoint(), from.SessionID(), from.RxWatermark(), payload)
	}

	stats := engine.Stats()
	fmt.Fprintf(out, "Dropped %d datagrams\n", stats.Dropped())
	return nil
}
