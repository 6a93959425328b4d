package reader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"piserver/logging"
	"piserver/tag"
)

// TagReader is the interface for all tag/card reader implementations.
type TagReader interface {
	// Read performs a single poll of the reader.
	// A return of (nil, nil) means no card is present right now.
	Read(ctx context.Context) (tag.UID, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Config holds common configuration for reader implementations.
type Config struct {
	Type     string        `yaml:"type"`      // "mfrc522", "serial", "wiegand", "keyboard", "none"
	Device   string        `yaml:"device"`    // e.g., "/dev/serial0", "/dev/input/event0"
	Baud     int           `yaml:"baud"`      // baud rate for serial devices
	Format   string        `yaml:"format"`    // keyboard digit format, e.g. "10h", "8d"
	SPIBus   string        `yaml:"spi_bus"`   // periph SPI port name, e.g. "SPI0.0"
	ResetPin string        `yaml:"reset_pin"` // MFRC522 RST pin name, default "GPIO25"
	IRQPin   string        `yaml:"irq_pin"`   // MFRC522 IRQ pin name, default "GPIO24"
	Timeout  time.Duration `yaml:"timeout"`   // per-poll card wait for MFRC522
}

// New creates a TagReader based on the provided configuration.
func New(cfg Config, logger *zap.Logger) (TagReader, error) {
	logger = logging.OrNop(logger).Named("reader")

	switch cfg.Type {
	case "", "mfrc522", "rc522":
		return NewMFRC522(cfg, logger)
	case "serial":
		return NewSerial(cfg.Device, cfg.Baud)
	case "wiegand":
		return NewWiegand(cfg.Device, cfg.Baud)
	case "keyboard", "10h-kbd":
		return NewKeyboard(cfg.Device, cfg.Format, logger)
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}

// None implements TagReader for nodes without a reader; it never sees a card.
type None struct{}

// Read implements TagReader.Read.
func (None) Read(ctx context.Context) (tag.UID, error) {
	return nil, ctx.Err()
}

// Close implements TagReader.Close.
func (None) Close() error { return nil }
