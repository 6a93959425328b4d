// Package relay drives the amplifier power relay.
package relay

import (
	"fmt"

	"github.com/warthog618/gpio"
)

// Relay is the interface for all relay implementations.
type Relay interface {
	// On energises the relay.
	On() error

	// Off releases the relay.
	Off() error

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for relay implementations.
type Config struct {
	Type string `yaml:"type"` // "gpio_high", "gpio_low", "none"
	Pin  *int   `yaml:"pin"`  // BCM GPIO pin number
}

// New creates a Relay based on the provided configuration.
func New(cfg Config) (Relay, error) {
	if cfg.Pin == nil {
		return Noop{}, nil
	}

	switch cfg.Type {
	case "gpio_high", "activehigh":
		return NewGPIO(*cfg.Pin, true)
	case "gpio_low", "activelow":
		return NewGPIO(*cfg.Pin, false)
	case "", "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown relay type %q", cfg.Type)
	}
}

// GPIO implements Relay with a single output pin.
type GPIO struct {
	pin        *gpio.Pin
	activeHigh bool
}

// NewGPIO opens the GPIO block and configures pin as an output, starting off.
func NewGPIO(pin int, activeHigh bool) (*GPIO, error) {
	if err := gpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{pin: gpio.NewPin(pin), activeHigh: activeHigh}
	g.pin.Output()
	g.Off()
	return g, nil
}

// On implements Relay.On.
func (g *GPIO) On() error {
	if g.activeHigh {
		g.pin.High()
	} else {
		g.pin.Low()
	}
	return nil
}

// Off implements Relay.Off.
func (g *GPIO) Off() error {
	if g.activeHigh {
		g.pin.Low()
	} else {
		g.pin.High()
	}
	return nil
}

// Release implements Relay.Release.
func (g *GPIO) Release() error {
	g.Off()
	return gpio.Close()
}

// Noop implements Relay but does nothing.
// Used when no relay is configured.
type Noop struct{}

func (Noop) On() error      { return nil }
func (Noop) Off() error     { return nil }
func (Noop) Release() error { return nil }
