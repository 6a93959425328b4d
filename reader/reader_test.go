package reader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piserver/tag"
)

func TestDecodeSerialFrame(t *testing.T) {
	data := []byte{0x09, 0x00, 0x01, 0x02, 0x03, 0x04}
	xor := data[0]
	for _, b := range data[1:] {
		xor ^= b
	}
	frame := append([]byte{0x02}, data...)
	frame = append(frame, xor, 0x03)

	testCases := []struct {
		name     string
		frame    []byte
		expected string
	}{
		{name: "valid frame", frame: frame, expected: "01020304"},
		{name: "bad checksum", frame: withByte(frame, 7, xor^0xff), expected: ""},
		{name: "bad preamble", frame: withByte(frame, 0, 0x05), expected: ""},
		{name: "bad terminator", frame: withByte(frame, 8, 0x00), expected: ""},
		{name: "short", frame: frame[:5], expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, decodeSerialFrame(tc.frame).String())
		})
	}
}

func withByte(b []byte, i int, v byte) []byte {
	out := append([]byte(nil), b...)
	out[i] = v
	return out
}

func TestDecodeWiegandID(t *testing.T) {
	uid, err := decodeWiegandID("1A2B3C4D5E")
	require.NoError(t, err)
	assert.Equal(t, "3c4d5e", uid.String())

	uid, err = decodeWiegandID("abcdef")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", uid.String())

	_, err = decodeWiegandID("zz00000000")
	assert.Error(t, err)

	_, err = decodeWiegandID("00112233445566")
	assert.Error(t, err)
}

func TestKeyFormat(t *testing.T) {
	testCases := []struct {
		format   string
		line     string
		expected string
		wantErr  bool
	}{
		{format: "", line: "00000000ff", expected: "000000ff"},
		{format: "10h", line: "123", wantErr: true},
		{format: "10d", line: "0012345678", expected: "00bc614e"},
		{format: "8H", line: "DEADBEEF", expected: "deadbeef"},
		{format: "0", line: "zz", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.format+"/"+tc.line, func(t *testing.T) {
			uid, err := parseKeyFormat(tc.format).parseLine(tc.line)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, uid.String())
		})
	}
}

func TestKeyboardReadQueue(t *testing.T) {
	k := &Keyboard{lines: make(chan tag.UID, 2)}
	k.lines <- tag.UID{0xaa, 0xbb}

	uid, err := k.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "aabb", uid.String())

	uid, err = k.Read(context.Background())
	require.NoError(t, err)
	assert.Nil(t, uid)
}

func TestNoneReader(t *testing.T) {
	r, err := New(Config{Type: "none"}, nil)
	require.NoError(t, err)

	uid, err := r.Read(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, uid)
	assert.NoError(t, r.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownType(t *testing.T) {
	_, err := New(Config{Type: "bogus"}, nil)
	assert.Error(t, err)
}
