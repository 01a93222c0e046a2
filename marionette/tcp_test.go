package marionette

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-marionette/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureServer emulates a Marionette fixture behind a TCP serial bridge.
// It echoes requests and prompts until the handshake switches both off.
type fixtureServer struct {
	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	requests []string
}

func newFixtureServer(t *testing.T) *fixtureServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &fixtureServer{ln: ln}
	srv.wg.Add(1)
	go srv.acceptLoop()

	t.Cleanup(func() {
		_ = ln.Close()
		srv.wg.Wait()
	})

	return srv
}

func (srv *fixtureServer) addr() string { return srv.ln.Addr().String() }

func (srv *fixtureServer) acceptLoop() {
	defer srv.wg.Done()

	for {
		conn, err := srv.ln.Accept()
		if err != nil {
			return
		}

		srv.wg.Add(1)
		go srv.serve(conn)
	}
}

func (srv *fixtureServer) serve(conn net.Conn) {
	defer srv.wg.Done()
	defer conn.Close()

	echo, prompt := true, true
	w := bufio.NewWriter(conn)
	scanner := bufio.NewScanner(conn)

	_, _ = w.WriteString("Marionette fixture\r\nmshell> ")
	_ = w.Flush()

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch line {
		case "+noecho":
			echo = false
			continue
		case "+noprompt":
			prompt = false
			continue
		case "":
			continue
		}

		if echo {
			_, _ = w.WriteString(line + "\r\n")
		}

		srv.mu.Lock()
		srv.requests = append(srv.requests, line)
		srv.mu.Unlock()

		_, _ = w.WriteString(fixtureResponse(line))
		if prompt {
			_, _ = w.WriteString("mshell> ")
		}
		_ = w.Flush()
	}
}

func (srv *fixtureServer) seen() []string {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return append([]string(nil), srv.requests...)
}

func fixtureResponse(line string) string {
	switch {
	case line == "version":
		return okResponse("#:fetch fw", "s:version:2.1.0")
	case line == "heartbeat":
		return okResponse()
	case strings.HasPrefix(line, "gpio.read("):
		return okResponse("b:value:t")
	case strings.HasPrefix(line, "adc.samples"):
		return okResponse("?:dumping", "h16:samples:0x10,0x20,ff", "f:volts:0.5,1.0")
	case line == "slow":
		return "begin\r\n"
	default:
		return frame("error", fmt.Sprintf("e:unknown command %s", line))
	}
}

func TestSession_TCPFixture(t *testing.T) {
	srv := newFixtureServer(t)

	cfg := testConfig(t, transport.DialOpener{Timeout: time.Second},
		WithParityPriming(false),
		WithSettleDelay(20*time.Millisecond),
		WithReadTimeout(300*time.Millisecond),
	)

	s, err := Connect(srv.addr(), cfg)
	require.NoError(t, err)
	defer s.Close()

	rs, err := s.Command("version")
	require.NoError(t, err)
	v, err := rs.Text("version")
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", v)

	rs, err = s.Command("gpio.read", Token("c"), Int(4))
	require.NoError(t, err)
	assert.Equal(t, true, rs["value"])

	rs, err = s.Command("adc.samples")
	require.NoError(t, err)
	assert.Equal(t, []int64{16, 32, 255}, rs["samples"])
	assert.Equal(t, []float64{0.5, 1.0}, rs["volts"])

	_, err = s.Command("self.destruct")
	require.ErrorIs(t, err, ErrResult)
	assert.Contains(t, err.Error(), "unknown command self.destruct")

	_, err = s.Command("slow")
	require.ErrorIs(t, err, ErrReadTimeout)
	require.True(t, s.IsOpen())

	_, err = s.Command("heartbeat")
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"version", "gpio.read(c,4)", "adc.samples", "self.destruct", "slow", "heartbeat"},
		srv.seen(),
	)

	require.NoError(t, s.Close())
	require.False(t, transport.Claimed(srv.addr()))
}

func TestSession_TCPFixtureDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// drop the link as soon as the first request arrives
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || strings.TrimSpace(line) == "version" {
				_ = conn.Close()
				return
			}
		}
	}()

	cfg := testConfig(t, transport.DialOpener{}, WithParityPriming(false), WithReadTimeout(time.Second))
	s, err := Connect(ln.Addr().String(), cfg)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Command("version")
	require.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrReadTimeout)
	assert.False(t, s.IsOpen())
}
