package indicator

import (
	"piserver/display"
	"piserver/tag"
)

// Screen draws the node state on the framebuffer display.
type Screen struct {
	d *display.Display
}

// NewScreen wraps a display as an Indicator.
func NewScreen(d *display.Display) *Screen {
	return &Screen{d: d}
}

func (s *Screen) Idle() {
	s.d.Show(display.Green, "Ready", "Scan a tag")
}

func (s *Screen) TagPresent(uid tag.UID) {
	s.d.Show(display.Blue, "Tag", uid.String())
}

func (s *Screen) Playing(label string) {
	s.d.Show(display.Yellow, "Playing", label)
}

func (s *Screen) Failed(msg string) {
	s.d.Show(display.Red, "Error", msg)
}

func (s *Screen) ConnectionLost() {
	s.d.Show(display.Orange, "Connection Lost")
}

func (s *Screen) Shutdown() {
	s.d.Clear()
}

func (s *Screen) Release() error {
	return s.d.Release()
}
