//go:build !screen

package display

import "go.uber.org/zap"

// Display is a stub when screen support is not compiled in.
type Display struct{}

// New returns an error when screen support is not compiled in.
func New(cfg Config, logger *zap.Logger) (*Display, error) {
	return nil, ErrScreenNotCompiled
}

func (d *Display) Show(bg Colour, title string, lines ...string) {}
func (d *Display) Clear()                                        {}
func (d *Display) Release() error                                { return nil }
