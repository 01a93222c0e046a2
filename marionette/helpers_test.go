package marionette

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-marionette/logger"
	"github.com/arloliu/go-marionette/transport"
	"github.com/stretchr/testify/require"
)

var testLogger logger.Logger

func TestMain(m *testing.M) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logger.InfoLevel
	}
	testLogger = logger.NewSlog(level, false)

	os.Exit(m.Run())
}

// responder returns the raw response text for one request line.
type responder func(line string) string

// fakeDevice is an in-memory fixture. Every complete request line that is
// not part of the handshake is passed to respond and the returned text is
// queued for the host to read.
type fakeDevice struct {
	mu      sync.Mutex
	timeout time.Duration
	pending []byte
	wbuf    []byte
	lines   []string
	respond responder

	rx       chan []byte
	closed   chan struct{}
	once     sync.Once
	closes   atomic.Int32
	resets   atomic.Int32
	writeErr atomic.Pointer[error]
}

var _ transport.Port = (*fakeDevice)(nil)

func newFakeDevice(respond responder) *fakeDevice {
	return &fakeDevice{
		respond: respond,
		rx:      make(chan []byte, 256),
		closed:  make(chan struct{}),
	}
}

// push queues unsolicited output.
func (d *fakeDevice) push(s string) { d.rx <- []byte(s) }

func (d *fakeDevice) failWrites(err error) { d.writeErr.Store(&err) }

func (d *fakeDevice) SetReadTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = t

	return nil
}

func (d *fakeDevice) Read(b []byte) (int, error) {
	d.mu.Lock()
	if len(d.pending) > 0 {
		n := copy(b, d.pending)
		d.pending = d.pending[n:]
		d.mu.Unlock()

		return n, nil
	}
	timeout := d.timeout
	d.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d.closed:
		return 0, io.ErrClosedPipe
	case chunk := <-d.rx:
		d.mu.Lock()
		defer d.mu.Unlock()
		n := copy(b, chunk)
		d.pending = append(d.pending, chunk[n:]...)

		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

func (d *fakeDevice) Write(b []byte) (int, error) {
	select {
	case <-d.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	if errp := d.writeErr.Load(); errp != nil {
		return 0, *errp
	}

	d.mu.Lock()
	d.wbuf = append(d.wbuf, b...)

	var requests []string
	for {
		i := strings.Index(string(d.wbuf), "\r\n")
		if i < 0 {
			break
		}
		line := string(d.wbuf[:i])
		d.wbuf = d.wbuf[i+2:]
		d.lines = append(d.lines, line)

		if line != "" && !strings.HasPrefix(line, "+") {
			requests = append(requests, line)
		}
	}
	respond := d.respond
	d.mu.Unlock()

	if respond != nil {
		for _, req := range requests {
			if resp := respond(req); resp != "" {
				d.rx <- []byte(resp)
			}
		}
	}

	return len(b), nil
}

func (d *fakeDevice) ResetInputBuffer() error {
	d.resets.Add(1)

	d.mu.Lock()
	d.pending = d.pending[:0]
	d.mu.Unlock()

	for {
		select {
		case <-d.rx:
		default:
			return nil
		}
	}
}

func (d *fakeDevice) Close() error {
	d.closes.Add(1)
	d.once.Do(func() { close(d.closed) })

	return nil
}

func (d *fakeDevice) written() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.lines...)
}

// fixedOpener always hands out dev and counts opens per mode.
type fixedOpener struct {
	dev   *fakeDevice
	opens atomic.Int32
	fail  atomic.Int32 // number of leading real opens that fail
}

func (o *fixedOpener) Open(_ string, mode transport.Mode) (transport.Port, error) {
	if mode != transport.DefaultMode() {
		// priming open with the alternate parity
		return newFakeDevice(nil), nil
	}

	if o.fail.Load() > 0 {
		o.fail.Add(-1)
		return nil, io.ErrUnexpectedEOF
	}
	o.opens.Add(1)

	return o.dev, nil
}

func testConfig(t *testing.T, opener transport.Opener, opts ...Option) *SessionConfig {
	t.Helper()

	base := []Option{
		WithOpener(opener),
		WithReadTimeout(200 * time.Millisecond),
		WithSettleDelay(0),
		WithAcquireRetryDelay(time.Millisecond),
		WithLogger(testLogger),
	}

	cfg, err := NewSessionConfig(append(base, opts...)...)
	require.NoError(t, err)

	return cfg
}

// openSession opens a session on dev under a name unique to the test.
func openSession(t *testing.T, dev *fakeDevice, opts ...Option) *Session {
	t.Helper()

	s, err := Connect(portName(t), testConfig(t, &fixedOpener{dev: dev}, opts...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func portName(t *testing.T) string {
	return "fake:" + t.Name()
}

// okResponse frames body lines as a successful response.
func okResponse(body ...string) string {
	return frame("ok", body...)
}

func frame(status string, body ...string) string {
	var sb strings.Builder
	sb.WriteString("begin\r\n")
	for _, l := range body {
		sb.WriteString(l)
		sb.WriteString("\r\n")
	}
	sb.WriteString("end:" + status + "\r\n")

	return sb.String()
}
