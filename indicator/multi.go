package indicator

import (
	"errors"

	"piserver/tag"
)

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

// NewMulti combines the given indicators.
func NewMulti(indicators ...Indicator) *Multi {
	return &Multi{indicators: indicators}
}

func (m *Multi) each(fn func(Indicator)) {
	for _, ind := range m.indicators {
		fn(ind)
	}
}

// Idle implements Indicator.Idle.
func (m *Multi) Idle() { m.each(func(i Indicator) { i.Idle() }) }

// TagPresent implements Indicator.TagPresent.
func (m *Multi) TagPresent(uid tag.UID) { m.each(func(i Indicator) { i.TagPresent(uid) }) }

// Playing implements Indicator.Playing.
func (m *Multi) Playing(label string) { m.each(func(i Indicator) { i.Playing(label) }) }

// Failed implements Indicator.Failed.
func (m *Multi) Failed(msg string) { m.each(func(i Indicator) { i.Failed(msg) }) }

// ConnectionLost implements Indicator.ConnectionLost.
func (m *Multi) ConnectionLost() { m.each(func(i Indicator) { i.ConnectionLost() }) }

// Shutdown implements Indicator.Shutdown.
func (m *Multi) Shutdown() { m.each(func(i Indicator) { i.Shutdown() }) }

// Release implements Indicator.Release. Every indicator is released; the
// errors are joined.
func (m *Multi) Release() error {
	var errs []error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
