package indicator

import (
	"time"

	"go.uber.org/zap"

	"piserver/display"
	"piserver/logging"
	"piserver/tag"
)

// Indicator is the interface for status indicator implementations (LEDs, buzzer, neopixels, screen).
type Indicator interface {
	// Idle sets the indicator to idle/ready state.
	Idle()

	// TagPresent signals that a card was just read.
	TagPresent(uid tag.UID)

	// Playing signals that audio is playing. label names what is playing.
	Playing(label string)

	// Failed signals that the last operation failed.
	Failed(msg string)

	// ConnectionLost sets the indicator to connection lost state.
	ConnectionLost()

	// Shutdown sets the indicator to shutdown state.
	Shutdown()

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// GPIO LED pins (nil = not configured)
	GreenPin  *uint8 `yaml:"green_pin"`
	YellowPin *uint8 `yaml:"yellow_pin"`
	RedPin    *uint8 `yaml:"red_pin"`

	// Buzzer pin pulsed when a card is read (nil = not configured)
	BuzzerPin *uint8        `yaml:"buzzer_pin"`
	Beep      time.Duration `yaml:"beep"`

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`

	// Framebuffer display
	Display display.Config `yaml:"display"`
}

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if more than one output is configured.
func New(cfg Config, logger *zap.Logger) (Indicator, error) {
	logger = logging.OrNop(logger).Named("indicator")
	var indicators []Indicator

	if cfg.GreenPin != nil || cfg.YellowPin != nil || cfg.RedPin != nil || cfg.BuzzerPin != nil {
		gpio, err := NewGPIO(cfg, logger)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, gpio)
	}

	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	if cfg.Display.Enabled {
		d, err := display.New(cfg.Display, logger)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, NewScreen(d))
	}

	switch len(indicators) {
	case 0:
		return &Noop{}, nil
	case 1:
		return indicators[0], nil
	default:
		return &Multi{indicators: indicators}, nil
	}
}
