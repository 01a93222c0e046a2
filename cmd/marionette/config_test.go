package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arloliu/go-marionette/marionette"
	"github.com/arloliu/go-marionette/transport"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "marionette.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
port = " /dev/ttyACM0 "
baud_rate = 921600
read_timeout = "3s"
handshake = false
log_level = "debug"
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
	assert.Equal(t, transport.HighSpeedBaudRate, cfg.BaudRate)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.False(t, cfg.Handshake)
	assert.Equal(t, "debug", cfg.LogLevel)

	// keys not present keep their defaults
	assert.Equal(t, networkSerial, cfg.Network)
	assert.Equal(t, marionette.DefaultSettleDelay, cfg.SettleDelay)
	assert.True(t, cfg.ParityPriming)
	assert.Equal(t, transport.DefaultAcquireAttempts, cfg.AcquireAttempts)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", `read_timeout = "fast"`},
		{"unknown key", `baudrate = 9600`},
		{"not toml", `port = `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestDefaultCLIConfig_UsesBatchTimeout(t *testing.T) {
	cfg := defaultCLIConfig()
	assert.Equal(t, marionette.BatchReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, transport.DefaultBaudRate, cfg.BaudRate)
}

func TestCLIConfig_Validate(t *testing.T) {
	cfg := defaultCLIConfig()
	require.Error(t, cfg.validate(), "port is required")

	cfg.Port = "/dev/ttyUSB0"
	require.NoError(t, cfg.validate())

	cfg.Network = "udp"
	require.Error(t, cfg.validate())

	cfg.Network = networkTCP
	cfg.LogLevel = "loud"
	require.Error(t, cfg.validate())
}

func TestCLIConfig_SessionConfig(t *testing.T) {
	cfg := defaultCLIConfig()
	cfg.Port = "127.0.0.1:2000"
	cfg.Network = networkTCP

	l, err := cfg.newLogger()
	require.NoError(t, err)

	sc, err := cfg.sessionConfig(l)
	require.NoError(t, err)

	assert.IsType(t, transport.DialOpener{}, sc.Opener())
	assert.False(t, sc.AcquirePolicy().PrimeAlternate, "no parity priming over tcp")
	assert.Equal(t, marionette.BatchReadTimeout, sc.ReadTimeout())

	cfg.ReadTimeout = time.Nanosecond
	_, err = cfg.sessionConfig(l)
	require.Error(t, err)
}

func TestRootFlags_OverrideConfigFile(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyACM0"
read_timeout = "5s"
log_level = "warn"
`)

	flags := &rootFlags{}
	root := buildRootCmd(flags)

	var got cliConfig
	root.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = flags.resolve(cmd)

			return err
		},
	})

	root.SetArgs([]string{"probe", "--config", path, "--port", "/dev/ttyACM1", "--baud", "9600", "--no-handshake"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "/dev/ttyACM1", got.Port, "flag wins over file")
	assert.Equal(t, 9600, got.BaudRate)
	assert.Equal(t, 5*time.Second, got.ReadTimeout, "file wins over default")
	assert.Equal(t, "warn", got.LogLevel)
	assert.False(t, got.Handshake)
	assert.Equal(t, networkSerial, got.Network)
}
