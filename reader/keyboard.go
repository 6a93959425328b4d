package reader

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kenshaw/evdev"
	"go.uber.org/zap"

	"piserver/tag"
)

// keyFormat describes the digits a keyboard-wedge reader types per badge.
type keyFormat struct {
	name      string
	numDigits int  // expected number of digits (0 = any)
	isHex     bool // true for hex input, false for decimal
}

// parseKeyFormat parses "10h" (10 hex digits), "10d" (10 decimal), "8h", "8d", etc.
// Empty defaults to "10h".
func parseKeyFormat(format string) keyFormat {
	if format == "" {
		format = "10h"
	}
	format = strings.ToLower(format)

	kf := keyFormat{name: format, isHex: true}
	switch {
	case strings.HasSuffix(format, "h"):
		kf.numDigits, _ = strconv.Atoi(strings.TrimSuffix(format, "h"))
	case strings.HasSuffix(format, "d"):
		kf.isHex = false
		kf.numDigits, _ = strconv.Atoi(strings.TrimSuffix(format, "d"))
	default:
		kf.numDigits, _ = strconv.Atoi(format)
	}
	return kf
}

// parseLine converts one typed badge line into a 4-byte UID.
func (kf keyFormat) parseLine(line string) (tag.UID, error) {
	if kf.numDigits > 0 && len(line) != kf.numDigits {
		return nil, fmt.Errorf("expected %d digits, got %d (%q)", kf.numDigits, len(line), line)
	}

	base := 10
	if kf.isHex {
		base = 16
	}
	number, err := strconv.ParseUint(line, base, 64)
	if err != nil {
		return nil, fmt.Errorf("bad badge line %q (base %d): %w", line, base, err)
	}
	return tag.FromUint32(uint32(number & 0xffffffff)), nil
}

// Keyboard implements TagReader for USB keyboard-style RFID readers
// that output digits followed by Enter. Badges typed between polls are
// queued and handed out one per Read.
type Keyboard struct {
	device *evdev.Evdev
	format keyFormat
	lines  chan tag.UID
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewKeyboard creates a new keyboard reader on the specified input device.
func NewKeyboard(device string, format string, logger *zap.Logger) (*Keyboard, error) {
	dev, err := evdev.OpenFile(device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", device, err)
	}

	kf := parseKeyFormat(format)
	logger.Info("Opened keyboard device",
		zap.String("name", dev.Name()),
		zap.String("vendor", fmt.Sprintf("0x%04x", dev.ID().Vendor)),
		zap.String("product", fmt.Sprintf("0x%04x", dev.ID().Product)),
		zap.String("format", kf.name))

	ctx, cancel := context.WithCancel(context.Background())
	k := &Keyboard{
		device: dev,
		format: kf,
		lines:  make(chan tag.UID, 8),
		cancel: cancel,
		logger: logger,
	}
	go k.listen(ctx)
	return k, nil
}

func (k *Keyboard) listen(ctx context.Context) {
	ch := k.device.Poll(ctx)
	var strbuf string

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if event == nil {
				k.logger.Warn("keyboard device closed")
				return
			}

			if _, ok := event.Type.(evdev.KeyType); !ok || event.Value != 1 {
				continue
			}

			if event.Type != evdev.KeyEnter {
				strbuf += evdev.KeyType(event.Code).String()
				continue
			}

			line := strbuf
			strbuf = ""
			if line == "" {
				continue
			}

			uid, err := k.format.parseLine(line)
			if err != nil {
				k.logger.Warn("Bad badge", zap.Error(err))
				continue
			}

			select {
			case k.lines <- uid:
			default:
				k.logger.Warn("Badge queue full, dropping", zap.String("uid", uid.String()))
			}
		}
	}
}

// Read implements TagReader.Read for keyboard readers.
func (k *Keyboard) Read(ctx context.Context) (tag.UID, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case uid := <-k.lines:
		return uid, nil
	default:
		return nil, nil
	}
}

// Close implements TagReader.Close.
func (k *Keyboard) Close() error {
	k.cancel()
	if k.device == nil {
		return nil
	}
	return k.device.Close()
}
