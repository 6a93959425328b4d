package rotary

import "time"

// Config holds configuration for a rotary encoder.
type Config struct {
	Chip           string        `yaml:"chip"`
	CLKPin         int           `yaml:"clk_pin"`
	DTPin          int           `yaml:"dt_pin"`
	ButtonPin      int           `yaml:"button_pin"`
	TurnDebounce   time.Duration `yaml:"turn_debounce"`
	ButtonDebounce time.Duration `yaml:"button_debounce"`
}

// Handlers holds callback functions for rotary events.
type Handlers struct {
	OnTurn  func(delta int) // Called with +1 (CW) or -1 (CCW)
	OnPress func()          // Called when button pressed
}

func (c Config) enabled() bool {
	return c.CLKPin != 0 || c.DTPin != 0
}

func (c Config) withDefaults() Config {
	if c.Chip == "" {
		c.Chip = "gpiochip0"
	}
	if c.TurnDebounce <= 0 {
		c.TurnDebounce = 250 * time.Microsecond
	}
	if c.ButtonDebounce <= 0 {
		c.ButtonDebounce = 2 * time.Millisecond
	}
	return c
}

// step maps the DT level seen at a CLK rising edge to a direction.
func step(dt int) int {
	if dt == 0 {
		return 1
	}
	return -1
}

func edgeLevel(rising bool) int {
	if rising {
		return 1
	}
	return 0
}
