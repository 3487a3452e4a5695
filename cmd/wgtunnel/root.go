package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/opd-ai/wgtunnel/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootOptions carries the global flags and the configuration resolved from
// them. Each command tree gets its own copy so tests can build several.
type rootOptions struct {
	configPath string
	listenPort int
	peerAddr   string
	sessionID  uint32
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "wgtunnel",
		Short: "Point-to-point IP tunnel over UDP",
		Long: `wgtunnel carries IP datagrams between a local TUN interface and a single
remote peer. Every datagram is framed with a session id and a monotonically
increasing counter; replayed or reordered datagrams are dropped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", fmt.Sprintf("config file (default is %s)", config.DefaultPath()))
	flags.IntVar(&opts.listenPort, "port", 0, "UDP listen port")
	flags.StringVar(&opts.peerAddr, "peer", "", "peer address host:port")
	flags.Uint32Var(&opts.sessionID, "session-id", 0, "peer session id")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")

	cmd.AddCommand(newRunCmd(opts), newProbeCmd(opts))
	return cmd
}

// resolve loads the config file, applies flag overrides, validates the
// result and configures logging.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	path := o.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.ListenPort = o.listenPort
	}
	if flags.Changed("peer") {
		cfg.Peer.Address = o.peerAddr
	}
	if flags.Changed("session-id") {
		cfg.Peer.SessionID = o.sessionID
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := setupLogging(cfg.Log, cmd.ErrOrStderr()); err != nil {
		return err
	}

	o.cfg = cfg
	return nil
}

// setupLogging applies the level and formatter to the standard logrus logger.
func setupLogging(lc config.LogConfig, out io.Writer) error {
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(out)

	switch strings.ToLower(lc.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
