package reader

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tarm/serial"

	"piserver/tag"
)

const serialFrameLen = 9

var (
	serialPreamble   = []byte{0x02, 0x09}
	serialTerminator = byte(0x03)
)

// Serial implements TagReader for serial RFID readers using a custom protocol.
// Protocol: [0x02][0x09][data...][checksum][0x03]
type Serial struct {
	port   *serial.Port
	device string
}

// NewSerial creates a new serial RFID reader.
func NewSerial(device string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = 115200
	}
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 200 * time.Millisecond,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}

	return &Serial{port: port, device: device}, nil
}

// Read implements TagReader.Read for serial readers.
func (s *Serial) Read(ctx context.Context) (tag.UID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buff := make([]byte, serialFrameLen)
	n, err := s.port.Read(buff)
	if err != nil || n != serialFrameLen {
		// Timeout or partial read
		return nil, nil
	}
	return decodeSerialFrame(buff), nil
}

// decodeSerialFrame validates a 9-byte frame and returns the 4 tag bytes,
// or nil if the framing or checksum is wrong.
func decodeSerialFrame(buff []byte) tag.UID {
	if len(buff) != serialFrameLen {
		return nil
	}
	if !bytes.Equal(buff[0:2], serialPreamble) || buff[8] != serialTerminator {
		return nil
	}

	data := buff[1:7]
	xor := data[0]
	for i := 1; i < len(data); i++ {
		xor ^= data[i]
	}
	if xor != buff[7] {
		return nil
	}

	return tag.UID(data[2:6]).Clone()
}

// Close implements TagReader.Close.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
