package rotary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep(t *testing.T) {
	assert.Equal(t, 1, step(0))
	assert.Equal(t, -1, step(1))
	assert.Equal(t, 1, edgeLevel(true))
	assert.Equal(t, 0, edgeLevel(false))
}

func TestDisabledWithoutPins(t *testing.T) {
	r, err := New(Config{ButtonPin: 5}, Handlers{}, nil)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestDefaults(t *testing.T) {
	cfg := Config{CLKPin: 17}.withDefaults()
	assert.Equal(t, "gpiochip0", cfg.Chip)
	assert.Equal(t, 250*time.Microsecond, cfg.TurnDebounce)
	assert.Equal(t, 2*time.Millisecond, cfg.ButtonDebounce)
	assert.True(t, cfg.enabled())
}
