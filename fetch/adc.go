package fetch

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-marionette/marionette"
)

// ADCConfig describes an acquisition set up by Client.ADCConfig.
type ADCConfig struct {
	Device      int
	Resolution  int
	SampleClock int
	VRef        int
	Count       int
	Channels    []int
}

func (cfg ADCConfig) args() ([]marionette.Arg, error) {
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("%w: adc config has no channels", marionette.ErrInvalidArgument)
	}
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("%w: adc sample count %d", marionette.ErrInvalidArgument, cfg.Count)
	}

	ch := make([]int64, len(cfg.Channels))
	for i, c := range cfg.Channels {
		ch[i] = int64(c)
	}

	return []marionette.Arg{
		marionette.Int(int64(cfg.Device)),
		marionette.Int(int64(cfg.Resolution)),
		marionette.Int(int64(cfg.SampleClock)),
		marionette.Int(int64(cfg.VRef)),
		marionette.Int(int64(cfg.Count)),
		marionette.Ints(ch...),
	}, nil
}

// ADCConfig configures the converter.
func (c *Client) ADCConfig(cfg ADCConfig) error {
	args, err := cfg.args()
	if err != nil {
		return err
	}

	return c.exec("adc.config", args...)
}

// ADCStart starts an acquisition.
func (c *Client) ADCStart() error { return c.exec("adc.start") }

// ADCStop aborts an acquisition.
func (c *Client) ADCStop() error { return c.exec("adc.stop") }

// ADCReset returns the converter to its power-on state.
func (c *Client) ADCReset() error { return c.exec("adc.reset") }

// ADCWait blocks on the device until the acquisition completes or timeout
// elapses, and reports whether samples are ready. The timeout is sent in
// whole seconds, rounded up.
func (c *Client) ADCWait(timeout time.Duration) (bool, error) {
	if timeout < 0 {
		return false, fmt.Errorf("%w: negative timeout %v", marionette.ErrInvalidArgument, timeout)
	}

	secs := int64(math.Ceil(timeout.Seconds()))

	rs, err := c.cmd.Command("adc.wait", marionette.Int(secs))
	if err != nil {
		return false, err
	}

	return flag(rs, "ready")
}

// ADCStatus reports whether samples are ready.
func (c *Client) ADCStatus() (bool, error) {
	rs, err := c.cmd.Command("adc.status")
	if err != nil {
		return false, err
	}

	return flag(rs, "ready")
}

// ADCSamples returns the captured samples as reported by the firmware.
func (c *Client) ADCSamples() (marionette.ResultSet, error) {
	return c.cmd.Command("adc.samples")
}

// DACConfig enables the converter.
func (c *Client) DACConfig() error { return c.exec("dac.config") }

// DACReset returns the converter to its power-on state.
func (c *Client) DACReset() error { return c.exec("dac.reset") }

// DACWrite sets the raw output codes of both channels.
func (c *Client) DACWrite(ch1, ch2 uint16) error {
	return c.exec("dac.write", marionette.Uint(uint64(ch1)), marionette.Uint(uint64(ch2)))
}
