package stream

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/arloliu/go-marionette/marionette"
	"github.com/arloliu/go-marionette/transport"
	"github.com/stretchr/testify/require"
)

// device is a TCP fixture that acknowledges streamed lines with an info
// line and answers "version" like a regular command.
type device struct {
	ln net.Listener
}

func newDevice() *device {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}

	d := &device{ln: ln}
	go d.accept()

	return d
}

func (d *device) accept() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.serve(conn)
	}
}

func (d *device) serve(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		var resp string
		switch {
		case line == "" || strings.HasPrefix(line, "+"):
			continue
		case line == "version":
			resp = "begin\r\ns:version:1.0\r\nend:ok\r\n"
		default:
			resp = "#:" + line + "\r\n"
		}

		if _, err := conn.Write([]byte(resp)); err != nil {
			return
		}
	}
}

func testSessionConfig(t *testing.T, d *device) *marionette.SessionConfig {
	t.Helper()
	t.Cleanup(func() { _ = d.ln.Close() })

	addr := d.ln.Addr().String()
	opener := transport.OpenerFunc(func(string, transport.Mode) (transport.Port, error) {
		return transport.DialOpener{}.Open(addr, transport.DefaultMode())
	})

	cfg, err := marionette.NewSessionConfig(
		marionette.WithOpener(opener),
		marionette.WithParityPriming(false),
		marionette.WithSettleDelay(10*time.Millisecond),
		marionette.WithReadTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)

	return cfg
}
