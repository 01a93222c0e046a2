package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"
)

const (
	// DefaultDialTimeout is the TCP dial timeout used by DialOpener.
	DefaultDialTimeout = 3 * time.Second
	// DefaultWriteTimeout bounds a single write on a ConnPort.
	DefaultWriteTimeout = 3 * time.Second

	// drainWindow is how long the line must stay silent before
	// ResetInputBuffer considers the input drained.
	drainWindow = 5 * time.Millisecond
	// maxDrainBytes caps ResetInputBuffer so a chatty peer cannot stall it.
	maxDrainBytes = 64 * 1024
)

// ConnPort adapts a net.Conn to the Port interface, so a fixture behind a
// TCP serial bridge (e.g. ser2net) or an in-memory net.Pipe can be driven
// exactly like a local serial device.
type ConnPort struct {
	conn         net.Conn
	readTimeout  atomic.Int64
	writeTimeout time.Duration
}

var _ Port = (*ConnPort)(nil)

// NewConnPort wraps conn.
func NewConnPort(conn net.Conn) *ConnPort {
	return &ConnPort{conn: conn, writeTimeout: DefaultWriteTimeout}
}

// SetReadTimeout sets the timeout applied to each Read. Zero or negative blocks.
func (p *ConnPort) SetReadTimeout(t time.Duration) error {
	p.readTimeout.Store(int64(t))
	return nil
}

// Read reads from the connection. A deadline expiry returns (n, nil).
func (p *ConnPort) Read(b []byte) (int, error) {
	var deadline time.Time
	if t := time.Duration(p.readTimeout.Load()); t > 0 {
		deadline = time.Now().Add(t)
	}

	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}

	n, err := p.conn.Read(b)
	if err != nil && isTimeout(err) {
		return n, nil
	}

	return n, err
}

// Write writes b, bounded by the write timeout.
func (p *ConnPort) Write(b []byte) (int, error) {
	if p.writeTimeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
			return 0, err
		}
	}

	return p.conn.Write(b)
}

// ResetInputBuffer reads and discards bytes until the line is silent for a
// short window.
func (p *ConnPort) ResetInputBuffer() error {
	buf := make([]byte, 256)
	drained := 0

	for drained < maxDrainBytes {
		if err := p.conn.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return err
		}

		n, err := p.conn.Read(buf)
		drained += n

		if err != nil {
			if isTimeout(err) {
				return nil
			}

			return err
		}
	}

	return nil
}

// Close closes the underlying connection.
func (p *ConnPort) Close() error {
	return p.conn.Close()
}

// DialOpener opens ports by dialing a network address.
type DialOpener struct {
	// Network defaults to "tcp".
	Network string
	// Timeout defaults to DefaultDialTimeout.
	Timeout time.Duration
}

var _ Opener = DialOpener{}

// Open dials name. The mode is ignored; line settings belong to the bridge.
func (d DialOpener) Open(name string, _ Mode) (Port, error) {
	network := d.Network
	if network == "" {
		network = "tcp"
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	conn, err := net.DialTimeout(network, name, timeout)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s %s: %w", network, name, err)
	}

	return NewConnPort(conn), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
