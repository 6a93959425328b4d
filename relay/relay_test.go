package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRelay struct {
	on, off int
}

func (c *countingRelay) On() error      { c.on++; return nil }
func (c *countingRelay) Off() error     { c.off++; return nil }
func (c *countingRelay) Release() error { return nil }

func TestSwitchHoldsUntilLastRelease(t *testing.T) {
	r := &countingRelay{}
	s := NewSwitch(r)

	first, err := s.Hold()
	require.NoError(t, err)
	second, err := s.Hold()
	require.NoError(t, err)
	assert.Equal(t, 1, r.on)

	first()
	first()
	assert.True(t, s.Held())
	assert.Equal(t, 0, r.off)

	second()
	assert.False(t, s.Held())
	assert.Equal(t, 1, r.off)
}

func TestNewWithoutPinIsNoop(t *testing.T) {
	r, err := New(Config{Type: "gpio_high"})
	require.NoError(t, err)
	assert.Equal(t, Noop{}, r)
}

func TestNewUnknownType(t *testing.T) {
	pin := 17
	_, err := New(Config{Type: "servo", Pin: &pin})
	assert.Error(t, err)
}
