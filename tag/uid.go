// Package tag holds the UID value read from RFID cards.
package tag

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// UID is the raw identifier returned by a tag reader.
// A nil or empty UID means no card was present.
type UID []byte

// String renders every byte as two lowercase hex digits.
func (u UID) String() string {
	return hex.EncodeToString(u)
}

// IsZero reports whether no card is represented.
func (u UID) IsZero() bool {
	return len(u) == 0
}

// Equal reports whether two UIDs hold the same bytes.
func (u UID) Equal(other UID) bool {
	return bytes.Equal(u, other)
}

// Clone returns a copy that does not alias the reader's buffer.
func (u UID) Clone() UID {
	if u == nil {
		return nil
	}
	return append(UID(nil), u...)
}

// FromUint32 converts a reader tag number into a big-endian 4-byte UID.
func FromUint32(n uint32) UID {
	u := make(UID, 4)
	binary.BigEndian.PutUint32(u, n)
	return u
}

// Parse decodes a hex string (either case) into a UID.
func Parse(s string) (UID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty uid")
	}
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("uid %q: odd number of hex digits", s)
	}

	u, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("uid %q: %w", s, err)
	}
	return u, nil
}
