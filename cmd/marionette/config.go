package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/arloliu/go-marionette/logger"
	"github.com/arloliu/go-marionette/marionette"
	"github.com/arloliu/go-marionette/transport"
)

// Transport kinds selectable in the config file and with --network.
const (
	networkSerial = "serial"
	networkTCP    = "tcp"
)

type cliConfig struct {
	Port            string
	Network         string
	BaudRate        int
	ReadTimeout     time.Duration
	SettleDelay     time.Duration
	Handshake       bool
	ParityPriming   bool
	AcquireAttempts int
	LogLevel        string
	Console         bool
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Network:         networkSerial,
		BaudRate:        transport.DefaultBaudRate,
		ReadTimeout:     marionette.BatchReadTimeout,
		SettleDelay:     marionette.DefaultSettleDelay,
		Handshake:       true,
		ParityPriming:   true,
		AcquireAttempts: transport.DefaultAcquireAttempts,
		LogLevel:        "info",
	}
}

type fileConfig struct {
	Port            string `toml:"port"`
	Network         string `toml:"network"`
	BaudRate        int    `toml:"baud_rate"`
	ReadTimeout     string `toml:"read_timeout"`
	SettleDelay     string `toml:"settle_delay"`
	Handshake       bool   `toml:"handshake"`
	ParityPriming   bool   `toml:"parity_priming"`
	AcquireAttempts int    `toml:"acquire_attempts"`
	LogLevel        string `toml:"log_level"`
	Console         bool   `toml:"console"`
}

// loadConfig reads path over the defaults. Keys missing from the file keep
// their default value.
func loadConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}

	if meta.IsDefined("network") {
		cfg.Network = strings.ToLower(strings.TrimSpace(raw.Network))
	}

	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("settle_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.SettleDelay))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse settle_delay: %w", err)
		}
		cfg.SettleDelay = d
	}

	if meta.IsDefined("handshake") {
		cfg.Handshake = raw.Handshake
	}

	if meta.IsDefined("parity_priming") {
		cfg.ParityPriming = raw.ParityPriming
	}

	if meta.IsDefined("acquire_attempts") {
		cfg.AcquireAttempts = raw.AcquireAttempts
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("console") {
		cfg.Console = raw.Console
	}

	return cfg, nil
}

func (cfg cliConfig) validate() error {
	if cfg.Port == "" {
		return fmt.Errorf("no port given: set --port or \"port\" in the config file")
	}

	switch cfg.Network {
	case networkSerial, networkTCP:
	default:
		return fmt.Errorf("unknown network %q, want %q or %q", cfg.Network, networkSerial, networkTCP)
	}

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}

	return nil
}

func (cfg cliConfig) newLogger() (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return logger.NewSlog(level, false, logger.WithConsole(cfg.Console)), nil
}

func (cfg cliConfig) sessionConfig(l logger.Logger) (*marionette.SessionConfig, error) {
	var opener transport.Opener = transport.SerialOpener{}
	if cfg.Network == networkTCP {
		opener = transport.DialOpener{}
	}

	return marionette.NewSessionConfig(
		marionette.WithOpener(opener),
		marionette.WithBaudRate(cfg.BaudRate),
		marionette.WithReadTimeout(cfg.ReadTimeout),
		marionette.WithSettleDelay(cfg.SettleDelay),
		marionette.WithHandshake(cfg.Handshake),
		marionette.WithParityPriming(cfg.ParityPriming && cfg.Network == networkSerial),
		marionette.WithAcquireAttempts(cfg.AcquireAttempts),
		marionette.WithLogger(l),
	)
}
