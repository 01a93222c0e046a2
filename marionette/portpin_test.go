package marionette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPortPin(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		pin     int
		wantErr error
	}{
		{"first port first pin", "a", 0, nil},
		{"last port last pin", "i", 15, nil},
		{"upper case", "H", 3, nil},
		{"long form", "PortC", 7, nil},
		{"port out of range", "j", 0, ErrPort},
		{"empty port", "", 0, ErrPort},
		{"two letters", "ab", 0, ErrPort},
		{"pin too high", "a", 16, ErrPin},
		{"negative pin", "a", -1, ErrPin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPortPin(tt.port, tt.pin)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrPortPin)

			var ppe *PortPinError
			require.ErrorAs(t, err, &ppe)
			assert.Equal(t, tt.wantErr == ErrPort, ppe.InvalidPort)
		})
	}
}

func TestCheckPortPin_PortWinsOverPin(t *testing.T) {
	err := CheckPortPin("z", 99)
	require.ErrorIs(t, err, ErrPort)
	assert.NotErrorIs(t, err, ErrPin)
}

func TestNormalizePort(t *testing.T) {
	p, err := NormalizePort(" PortH ")
	require.NoError(t, err)
	assert.Equal(t, "h", p)

	_, err = NormalizePort("port")
	require.ErrorIs(t, err, ErrPort)
}
