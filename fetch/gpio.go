package fetch

import (
	"fmt"
	"time"

	"github.com/arloliu/go-marionette/marionette"
)

// GPIO pin modes accepted by GPIOConfig.
const (
	ModeInput    = "input"
	ModeOutput   = "output"
	ModePullUp   = "pullup"
	ModePullDown = "pulldown"
	ModeFloating = "floating"
	ModeAnalog   = "analog"
)

// GPIO edge events accepted by GPIOWait.
const (
	EventRising  = "rising"
	EventFalling = "falling"
	EventBoth    = "both"
)

// GPIORead returns the logic level of one pin.
func (c *Client) GPIORead(port string, pin int) (bool, error) {
	p, n, err := portArg(port, pin)
	if err != nil {
		return false, err
	}

	rs, err := c.cmd.Command("gpio.read", p, n)
	if err != nil {
		return false, err
	}

	return flag(rs, "state")
}

// GPIOReadPort returns the 16 pin levels of port as a bit mask.
func (c *Client) GPIOReadPort(port string) (uint16, error) {
	p, err := marionette.NormalizePort(port)
	if err != nil {
		return 0, err
	}

	rs, err := c.cmd.Command("gpio.readport", marionette.Token(p))
	if err != nil {
		return 0, err
	}

	v, err := rs.Int("state")
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 0xffff {
		return 0, fmt.Errorf("%w: port state out of range: %d", marionette.ErrFormat, v)
	}

	return uint16(v), nil
}

// GPIOWrite drives one output pin.
func (c *Client) GPIOWrite(port string, pin int, state bool) error {
	p, n, err := portArg(port, pin)
	if err != nil {
		return err
	}

	return c.exec("gpio.write", p, n, marionette.Bool(state))
}

// GPIOSet drives one output pin high.
func (c *Client) GPIOSet(port string, pin int) error {
	return c.pinCommand("gpio.set", port, pin)
}

// GPIOClear drives one output pin low.
func (c *Client) GPIOClear(port string, pin int) error {
	return c.pinCommand("gpio.clear", port, pin)
}

// GPIOReset returns one pin to its power-on configuration.
func (c *Client) GPIOReset(port string, pin int) error {
	return c.pinCommand("gpio.reset", port, pin)
}

// GPIOConfig sets the mode of one pin, e.g. ModeOutput or ModePullUp.
func (c *Client) GPIOConfig(port string, pin int, mode string) error {
	p, n, err := portArg(port, pin)
	if err != nil {
		return err
	}

	m, err := token("gpio mode", mode)
	if err != nil {
		return err
	}

	return c.exec("gpio.config", p, n, m)
}

// GPIOInfo returns the configuration the firmware reports for one pin.
func (c *Client) GPIOInfo(port string, pin int) (marionette.ResultSet, error) {
	p, n, err := portArg(port, pin)
	if err != nil {
		return nil, err
	}

	return c.cmd.Command("gpio.info", p, n)
}

// GPIOWait blocks on the device until event occurs on the pin or timeout
// elapses. The timeout is sent in milliseconds; the session read timeout
// must be longer for the response to arrive.
func (c *Client) GPIOWait(port string, pin int, event string, timeout time.Duration) error {
	p, n, err := portArg(port, pin)
	if err != nil {
		return err
	}

	ev, err := token("gpio event", event)
	if err != nil {
		return err
	}

	if timeout < 0 {
		return fmt.Errorf("%w: negative timeout %v", marionette.ErrInvalidArgument, timeout)
	}

	return c.exec("gpio.wait", p, n, ev, marionette.Int(timeout.Milliseconds()))
}

func (c *Client) pinCommand(name, port string, pin int) error {
	p, n, err := portArg(port, pin)
	if err != nil {
		return err
	}

	return c.exec(name, p, n)
}
