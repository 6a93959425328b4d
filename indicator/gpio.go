package indicator

import (
	"fmt"
	"sync"
	"time"

	"github.com/hjkoskel/govattu"
	"go.uber.org/zap"

	"piserver/tag"
)

const defaultBeep = 150 * time.Millisecond

// GPIO implements Indicator using discrete GPIO LED pins and an optional buzzer.
type GPIO struct {
	hw        govattu.Vattu
	greenPin  *uint8
	yellowPin *uint8
	redPin    *uint8
	buzzerPin *uint8
	beep      time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	beepTimer *time.Timer
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(cfg Config, logger *zap.Logger) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	beep := cfg.Beep
	if beep <= 0 {
		beep = defaultBeep
	}

	g := &GPIO{
		hw:        hw,
		greenPin:  cfg.GreenPin,
		yellowPin: cfg.YellowPin,
		redPin:    cfg.RedPin,
		buzzerPin: cfg.BuzzerPin,
		beep:      beep,
		logger:    logger,
	}

	// Initialize all pins as outputs, start off
	for _, pin := range g.pins() {
		hw.PinMode(pin, govattu.ALToutput)
		hw.PinClear(pin)
	}

	return g, nil
}

func (g *GPIO) pins() []uint8 {
	var pins []uint8
	for _, p := range []*uint8{g.greenPin, g.yellowPin, g.redPin, g.buzzerPin} {
		if p != nil {
			pins = append(pins, *p)
		}
	}
	return pins
}

// Idle implements Indicator.Idle.
func (g *GPIO) Idle() {
	g.allOff()
}

// TagPresent implements Indicator.TagPresent.
func (g *GPIO) TagPresent(uid tag.UID) {
	g.only(g.greenPin)
	g.pulseBuzzer()
}

// Playing implements Indicator.Playing.
func (g *GPIO) Playing(label string) {
	g.only(g.yellowPin)
}

// Failed implements Indicator.Failed.
func (g *GPIO) Failed(msg string) {
	g.only(g.redPin)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (g *GPIO) ConnectionLost() {
	g.allOff()
	g.set(g.yellowPin)
	g.set(g.redPin)
}

// Shutdown implements Indicator.Shutdown.
func (g *GPIO) Shutdown() {
	g.allOff()
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.mu.Lock()
	if g.beepTimer != nil {
		g.beepTimer.Stop()
	}
	g.mu.Unlock()

	g.allOff()
	if g.buzzerPin != nil {
		g.hw.PinClear(*g.buzzerPin)
	}
	return g.hw.Close()
}

func (g *GPIO) pulseBuzzer() {
	if g.buzzerPin == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hw.PinSet(*g.buzzerPin)
	if g.beepTimer != nil {
		g.beepTimer.Stop()
	}
	pin := *g.buzzerPin
	g.beepTimer = time.AfterFunc(g.beep, func() {
		g.hw.PinClear(pin)
	})
}

func (g *GPIO) only(pin *uint8) {
	g.allOff()
	g.set(pin)
}

func (g *GPIO) set(pin *uint8) {
	if pin != nil {
		g.hw.PinSet(*pin)
	}
}

func (g *GPIO) allOff() {
	for _, p := range []*uint8{g.greenPin, g.yellowPin, g.redPin} {
		if p != nil {
			g.hw.PinClear(*p)
		}
	}
}
