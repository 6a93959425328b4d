//go:build linux

package rotary

import (
	"sync"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/zap"

	"piserver/logging"
)

// Rotary handles a rotary encoder input device.
type Rotary struct {
	dtLine  *gpiocdev.Line
	clkLine *gpiocdev.Line
	btnLine *gpiocdev.Line
	dt, clk int
	logger  *zap.Logger

	mu     sync.Mutex
	lastDT int
	pos    atomic.Int64

	onTurn  func(delta int)
	onPress func()
}

// New creates a new rotary encoder handler.
// Returns nil if config has no pins specified (CLKPin and DTPin both 0).
func New(cfg Config, handlers Handlers, logger *zap.Logger) (*Rotary, error) {
	if !cfg.enabled() {
		return nil, nil
	}
	cfg = cfg.withDefaults()

	r := &Rotary{
		dt:      cfg.DTPin,
		clk:     cfg.CLKPin,
		logger:  logging.OrNop(logger).Named("rotary"),
		onTurn:  handlers.OnTurn,
		onPress: handlers.OnPress,
	}

	var err error
	r.dtLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.DTPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(cfg.TurnDebounce),
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		return nil, err
	}

	r.clkLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.CLKPin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(cfg.TurnDebounce),
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		r.dtLine.Close()
		return nil, err
	}

	if cfg.ButtonPin > 0 {
		r.btnLine, err = gpiocdev.RequestLine(cfg.Chip, cfg.ButtonPin,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithDebounce(cfg.ButtonDebounce),
			gpiocdev.WithEventHandler(r.handleButton))
		if err != nil {
			r.dtLine.Close()
			r.clkLine.Close()
			return nil, err
		}
	}

	r.logger.Info("Rotary encoder initialized",
		zap.Int("clk", cfg.CLKPin),
		zap.Int("dt", cfg.DTPin),
		zap.Int("button", cfg.ButtonPin))
	return r, nil
}

func (r *Rotary) handleEvent(evt gpiocdev.LineEvent) {
	rising := evt.Type == gpiocdev.LineEventRisingEdge
	if !rising && evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}

	r.mu.Lock()
	if evt.Offset == r.dt {
		r.lastDT = edgeLevel(rising)
		r.mu.Unlock()
		return
	}
	dt := r.lastDT
	r.mu.Unlock()

	// Direction is decided on the CLK rising edge
	if evt.Offset != r.clk || !rising {
		return
	}
	delta := step(dt)
	r.pos.Add(int64(delta))
	r.logger.Debug("turn", zap.Int("delta", delta))
	if r.onTurn != nil {
		r.onTurn(delta)
	}
}

func (r *Rotary) handleButton(evt gpiocdev.LineEvent) {
	r.logger.Debug("button pressed")
	if r.onPress != nil {
		r.onPress()
	}
}

// Position returns the current encoder position.
func (r *Rotary) Position() int64 {
	return r.pos.Load()
}

// Release releases GPIO resources.
func (r *Rotary) Release() error {
	for _, l := range []*gpiocdev.Line{r.dtLine, r.clkLine, r.btnLine} {
		if l != nil {
			l.Close()
		}
	}
	return nil
}
