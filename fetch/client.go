// Package fetch wraps the fixture's fetch command set in typed methods.
//
// Port and pin arguments are checked with marionette.CheckPortPin before
// any line is written, so an invalid address never reaches the device.
package fetch

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-marionette/marionette"
)

// Commander sends one command and returns its decoded response.
// *marionette.Session implements it.
type Commander interface {
	Command(name string, args ...marionette.Arg) (marionette.ResultSet, error)
}

// Client issues fetch commands through a Commander.
type Client struct {
	cmd Commander
}

// New creates a Client.
func New(cmd Commander) *Client {
	return &Client{cmd: cmd}
}

func (c *Client) exec(name string, args ...marionette.Arg) error {
	_, err := c.cmd.Command(name, args...)
	return err
}

// ShellPrompt turns the interactive shell prompt on or off.
func (c *Client) ShellPrompt(enabled bool) error {
	if enabled {
		return c.exec("+prompt")
	}

	return c.exec("+noprompt")
}

// ShellEcho turns input echo on or off.
func (c *Client) ShellEcho(enabled bool) error {
	if enabled {
		return c.exec("+echo")
	}

	return c.exec("+noecho")
}

// Version returns the firmware version fields.
func (c *Client) Version() (marionette.ResultSet, error) {
	return c.cmd.Command("version")
}

// Heartbeat turns the status LED heartbeat on or off.
func (c *Client) Heartbeat(enabled bool) error {
	if enabled {
		return c.exec("heartbeaton")
	}

	return c.exec("heartbeatoff")
}

// ChipID returns the microcontroller's unique id.
func (c *Client) ChipID() (string, error) {
	rs, err := c.cmd.Command("chipid")
	if err != nil {
		return "", err
	}

	return rs.Text("chip_id")
}

// ResetPins returns every pin to its power-on configuration.
func (c *Client) ResetPins() error {
	return c.exec("resetpins")
}

// flag reads a result the firmware reports either as a bool or as a
// one-element integer array.
func flag(rs marionette.ResultSet, name string) (bool, error) {
	switch v := rs[name].(type) {
	case bool:
		return v, nil
	case []int64:
		if len(v) == 0 {
			return false, fmt.Errorf("%w: %s is empty", marionette.ErrNoField, name)
		}

		return v[0] != 0, nil
	case nil:
		return false, fmt.Errorf("%w: %s", marionette.ErrNoField, name)
	default:
		return false, fmt.Errorf("%w: %s is %T", marionette.ErrFieldType, name, v)
	}
}

func portArg(port string, pin int) (marionette.Arg, marionette.Arg, error) {
	if err := marionette.CheckPortPin(port, pin); err != nil {
		return nil, nil, err
	}

	p, _ := marionette.NormalizePort(port)

	return marionette.Token(p), marionette.Int(int64(pin)), nil
}

func token(kind, value string) (marionette.Arg, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return nil, fmt.Errorf("%w: empty %s", marionette.ErrInvalidArgument, kind)
	}

	return marionette.Token(v), nil
}
