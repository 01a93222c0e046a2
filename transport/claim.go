package transport

import (
	"fmt"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// claims holds identifiers of ports owned by a live session in this process.
var claims = xsync.NewMapOf[string, struct{}]()

// Claim marks name as owned. The returned release func is idempotent.
// Claiming an identifier that is already owned fails with ErrPortBusy.
func Claim(name string) (func(), error) {
	key := claimKey(name)
	if key == "" {
		return nil, fmt.Errorf("transport: empty port identifier")
	}

	if _, loaded := claims.LoadOrStore(key, struct{}{}); loaded {
		return nil, fmt.Errorf("%w: %s", ErrPortBusy, name)
	}

	var once sync.Once

	return func() {
		once.Do(func() { claims.Delete(key) })
	}, nil
}

// Claimed reports whether name is currently owned.
func Claimed(name string) bool {
	_, ok := claims.Load(claimKey(name))
	return ok
}

func claimKey(name string) string {
	return strings.TrimSpace(name)
}
