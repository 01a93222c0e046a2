package main

import (
	"time"

	"github.com/arloliu/go-marionette/logger"
	"github.com/arloliu/go-marionette/marionette"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath  string
	port        string
	network     string
	baud        int
	timeout     time.Duration
	logLevel    string
	console     bool
	noHandshake bool
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootFlags{})
}

func buildRootCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "marionette",
		Short:         "Drive a Marionette test fixture",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "TOML config file")
	pf.StringVarP(&flags.port, "port", "p", "", "serial device, or host:port with --network tcp")
	pf.StringVar(&flags.network, "network", networkSerial, "transport: serial or tcp")
	pf.IntVarP(&flags.baud, "baud", "b", 0, "baud rate (default 115200)")
	pf.DurationVarP(&flags.timeout, "timeout", "t", 0, "per-line read timeout (default 2s)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&flags.console, "console", false, "human readable log output")
	pf.BoolVar(&flags.noHandshake, "no-handshake", false, "skip the +noecho/+noprompt handshake")

	cmd.AddCommand(
		newExecCmd(flags),
		newStreamCmd(flags),
		newPortsCmd(),
	)

	return cmd
}

// resolve merges defaults, the config file and explicitly set flags, in
// that order.
func (f *rootFlags) resolve(cmd *cobra.Command) (cliConfig, error) {
	cfg := defaultCLIConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = loadConfig(f.configPath); err != nil {
			return cliConfig{}, err
		}
	}

	set := cmd.Flags().Changed
	if set("port") {
		cfg.Port = f.port
	}
	if set("network") {
		cfg.Network = f.network
	}
	if set("baud") {
		cfg.BaudRate = f.baud
	}
	if set("timeout") {
		cfg.ReadTimeout = f.timeout
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("console") {
		cfg.Console = f.console
	}
	if set("no-handshake") {
		cfg.Handshake = !f.noHandshake
	}

	return cfg, cfg.validate()
}

// connect opens a session as configured by the flags.
func (f *rootFlags) connect(cmd *cobra.Command) (*marionette.Session, logger.Logger, error) {
	cfg, err := f.resolve(cmd)
	if err != nil {
		return nil, nil, err
	}

	l, err := cfg.newLogger()
	if err != nil {
		return nil, nil, err
	}

	sessCfg, err := cfg.sessionConfig(l)
	if err != nil {
		return nil, nil, err
	}

	sess, err := marionette.Connect(cfg.Port, sessCfg)
	if err != nil {
		return nil, nil, err
	}

	return sess, l, nil
}
