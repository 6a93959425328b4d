package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"piserver/tag"
)

const (
	stx = 0x02
	etx = 0x03
)

// Wiegand implements TagReader for Wiegand-style serial RFID readers.
type Wiegand struct {
	port serial.Port
}

// NewWiegand creates a new Wiegand reader on the specified serial port.
func NewWiegand(device string, baud int) (*Wiegand, error) {
	if baud == 0 {
		baud = 9600
	}

	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}

	_ = p.SetReadTimeout(50 * time.Millisecond)

	w := &Wiegand{port: p}
	w.flush()
	return w, nil
}

// Read implements TagReader.Read for Wiegand readers.
func (w *Wiegand) Read(ctx context.Context) (tag.UID, error) {
	if w.port == nil {
		return nil, errors.New("port not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.readFrame()
}

// readFrame attempts to read a single STX..ETX card frame.
func (w *Wiegand) readFrame() (tag.UID, error) {
	first := make([]byte, 1)
	n, err := w.port.Read(first)
	if err != nil {
		return nil, fmt.Errorf("read STX: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if first[0] != stx {
		w.flush()
		return nil, nil
	}

	var idBuilder strings.Builder
	buf := make([]byte, 1)

	for {
		n, err := w.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if n == 0 {
			w.flush()
			return nil, nil
		}
		if buf[0] == etx {
			break
		}
		idBuilder.WriteByte(buf[0])
	}

	return decodeWiegandID(idBuilder.String())
}

// decodeWiegandID pads the ASCII hex body to 10 digits, checks every pair is
// hex and returns the 3-byte card number held in digits 4..9.
func decodeWiegandID(id string) (tag.UID, error) {
	if len(id) > 10 {
		return nil, fmt.Errorf("frame body too long: %d", len(id))
	}
	id = strings.Repeat("0", 10-len(id)) + id

	all, err := tag.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse frame %q: %w", id, err)
	}
	return all[2:5].Clone(), nil
}

// Close implements TagReader.Close.
func (w *Wiegand) Close() error {
	if w.port == nil {
		return nil
	}
	return w.port.Close()
}

func (w *Wiegand) flush() {
	if w.port == nil {
		return
	}
	_ = w.port.SetReadTimeout(10 * time.Millisecond)
	defer func() {
		_ = w.port.SetReadTimeout(50 * time.Millisecond)
	}()

	tmp := make([]byte, 64)
	for {
		n, err := w.port.Read(tmp)
		if err != nil || n == 0 {
			return
		}
	}
}
