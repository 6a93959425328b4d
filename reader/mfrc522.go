package reader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/mfrc522"
	"periph.io/x/host/v3"

	"piserver/tag"
)

const (
	defaultSPIBus      = "SPI0.0"
	defaultResetPin    = "GPIO25"
	defaultIRQPin      = "GPIO24"
	defaultCardTimeout = 100 * time.Millisecond
)

// MFRC522 implements TagReader for an MFRC522 module on the SPI bus.
type MFRC522 struct {
	port    spi.PortCloser
	dev     *mfrc522.Dev
	timeout time.Duration
	logger  *zap.Logger
}

// NewMFRC522 opens the SPI port and initialises the reader chip. The driver
// waits for cards on the IRQ line, so both the reset and IRQ pins must exist.
func NewMFRC522(cfg Config, logger *zap.Logger) (*MFRC522, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	bus := cfg.SPIBus
	if bus == "" {
		bus = defaultSPIBus
	}
	resetName := cfg.ResetPin
	if resetName == "" {
		resetName = defaultResetPin
	}
	irqName := cfg.IRQPin
	if irqName == "" {
		irqName = defaultIRQPin
	}

	resetPin := gpioreg.ByName(resetName)
	if resetPin == nil {
		return nil, fmt.Errorf("reset pin %s not found", resetName)
	}
	irqPin := gpioreg.ByName(irqName)
	if irqPin == nil {
		return nil, fmt.Errorf("irq pin %s not found", irqName)
	}

	port, err := spireg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("open spi %s: %w", bus, err)
	}

	m, err := newMFRC522(port, resetPin, irqPin, cfg.Timeout, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("MFRC522 reader ready",
		zap.String("spi", bus),
		zap.String("reset_pin", resetName),
		zap.String("irq_pin", irqName))
	return m, nil
}

func newMFRC522(port spi.PortCloser, resetPin gpio.PinOut, irqPin gpio.PinIn, timeout time.Duration, logger *zap.Logger) (*MFRC522, error) {
	if irqPin == nil {
		port.Close()
		return nil, fmt.Errorf("init mfrc522: irq pin is required")
	}
	dev, err := mfrc522.NewSPI(port, resetPin, irqPin, mfrc522.WithSync())
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("init mfrc522: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultCardTimeout
	}
	return &MFRC522{port: port, dev: dev, timeout: timeout, logger: logger}, nil
}

// Read implements TagReader.Read. Any card-level failure, including the
// wait timing out, is reported as no card present.
func (m *MFRC522) Read(ctx context.Context) (tag.UID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uid, err := m.dev.ReadUID(m.timeout)
	if err != nil {
		m.logger.Debug("no card", zap.Error(err))
		return nil, nil
	}
	if len(uid) == 0 {
		return nil, nil
	}
	return tag.UID(uid).Clone(), nil
}

// Close implements TagReader.Close.
func (m *MFRC522) Close() error {
	if m.dev != nil {
		if err := m.dev.Halt(); err != nil {
			m.logger.Warn("halt mfrc522", zap.Error(err))
		}
	}
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}
