package transport

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// fakePort is an in-memory Port fed chunk by chunk by the test.
type fakePort struct {
	mu      sync.Mutex
	timeout time.Duration
	chunks  chan []byte
	written []byte
	closed  chan struct{}
	once    sync.Once
	resets  int
}

func newFakePort() *fakePort {
	return &fakePort{
		chunks: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) feed(s string) { p.chunks <- []byte(s) }

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t

	return nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	timeout := p.timeout
	p.mu.Unlock()

	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case chunk := <-p.chunks:
		n := copy(b, chunk)
		if n < len(chunk) {
			// put the remainder back at the front by re-queueing a fresh channel
			rest := append([]byte(nil), chunk[n:]...)
			p.requeueFront(rest)
		}

		return n, nil
	case <-time.After(timeout):
		return 0, nil
	}
}

func (p *fakePort) requeueFront(rest []byte) {
	pending := [][]byte{rest}
	for {
		select {
		case c := <-p.chunks:
			pending = append(pending, c)
		default:
			for _, c := range pending {
				p.chunks <- c
			}

			return
		}
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)

	return len(b), nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	p.resets++
	p.mu.Unlock()

	for {
		select {
		case <-p.chunks:
		default:
			return nil
		}
	}
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return string(p.written)
}

// newTCPPair returns both ends of a loopback TCP connection.
func newTCPPair(t *testing.T) (client net.Conn, server net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	server, ok := <-accepted
	if !ok {
		t.Fatal("accept failed")
	}

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	return client, server
}
