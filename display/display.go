// Package display renders short status screens on the Pi framebuffer.
// Real output needs the "screen" build tag; without it New returns
// ErrScreenNotCompiled.
package display

import "errors"

// ErrScreenNotCompiled is returned when screen support was not compiled in.
var ErrScreenNotCompiled = errors.New("screen support not compiled in (build with -tags=screen)")

// Config holds display settings.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"` // default /dev/fb0
	Font    string `yaml:"font"`   // TTF path
	Width   int    `yaml:"width"`  // logical canvas size, scaled to the framebuffer
	Height  int    `yaml:"height"`
}

// Colour is an RGB background colour with components in 0..1.
type Colour struct {
	R, G, B float64
}

var (
	Green  = Colour{0, 0.5, 0}
	Blue   = Colour{0, 0, 0.4}
	Yellow = Colour{0.7, 0.7, 0}
	Red    = Colour{0.7, 0, 0}
	Orange = Colour{0.5, 0.3, 0}
)

// textColour picks black or white text for readability on bg.
func textColour(bg Colour) Colour {
	if 0.299*bg.R+0.587*bg.G+0.114*bg.B > 0.45 {
		return Colour{}
	}
	return Colour{1, 1, 1}
}
