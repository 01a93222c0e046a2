package fetch

import (
	"fmt"

	"github.com/arloliu/go-marionette/marionette"
)

// MaxSPIBytes is the largest transfer the firmware buffers.
const MaxSPIBytes = 64

// SPI bit orders accepted by SPIConfig.
const (
	MSBFirst = "msb"
	LSBFirst = "lsb"
)

// SPIConfig describes the bus set up by Client.SPIConfig.
type SPIConfig struct {
	Device int
	// CPOL and CPHA select the SPI mode; each is 0 or 1.
	CPOL int
	CPHA int
	// ClockDiv is the peripheral clock divisor.
	ClockDiv int
	// Order is MSBFirst or LSBFirst.
	Order string
	// ChipSelectPort and ChipSelectPin address the chip select line.
	ChipSelectPort string
	ChipSelectPin  int
}

// SPIConfig configures the bus and its chip select line.
func (c *Client) SPIConfig(cfg SPIConfig) error {
	if cfg.CPOL != 0 && cfg.CPOL != 1 {
		return fmt.Errorf("%w: cpol %d", marionette.ErrInvalidArgument, cfg.CPOL)
	}
	if cfg.CPHA != 0 && cfg.CPHA != 1 {
		return fmt.Errorf("%w: cpha %d", marionette.ErrInvalidArgument, cfg.CPHA)
	}

	p, n, err := portArg(cfg.ChipSelectPort, cfg.ChipSelectPin)
	if err != nil {
		return err
	}

	order, err := token("spi bit order", cfg.Order)
	if err != nil {
		return err
	}

	return c.exec("spi.config",
		marionette.Int(int64(cfg.Device)),
		marionette.Int(int64(cfg.CPOL)),
		marionette.Int(int64(cfg.CPHA)),
		marionette.Int(int64(cfg.ClockDiv)),
		order,
		p, n,
	)
}

// SPIReset releases the bus.
func (c *Client) SPIReset() error { return c.exec("spi.reset") }

// SPIExchange clocks tx out and returns the bytes clocked in.
func (c *Client) SPIExchange(tx []byte) ([]byte, error) {
	if len(tx) == 0 || len(tx) > MaxSPIBytes {
		return nil, fmt.Errorf("%w: spi transfer of %d bytes, want 1..%d", marionette.ErrInvalidArgument, len(tx), MaxSPIBytes)
	}

	rs, err := c.cmd.Command("spi.exchange", marionette.Token("hex"), marionette.Hex(tx))
	if err != nil {
		return nil, err
	}

	vals, err := rs.Ints("rx")
	if err != nil {
		return nil, err
	}

	rx := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 0xff {
			return nil, fmt.Errorf("%w: rx byte %d out of range: %d", marionette.ErrFormat, i, v)
		}
		rx[i] = byte(v)
	}

	return rx, nil
}
