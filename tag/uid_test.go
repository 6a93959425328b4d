package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUIDString(t *testing.T) {
	testCases := []struct {
		name     string
		uid      UID
		expected string
	}{
		{name: "nil", uid: nil, expected: ""},
		{name: "single byte padded", uid: UID{5}, expected: "05"},
		{name: "four bytes", uid: UID{0x05, 0xab, 0x00, 0xff}, expected: "05ab00ff"},
		{name: "seven bytes all encoded", uid: UID{0x04, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x80}, expected: "041a2b3c4d5e80"},
		{name: "short array keeps every byte", uid: UID{1, 2, 3, 4, 5}, expected: "0102030405"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.uid.String())
		})
	}
}

func TestParse(t *testing.T) {
	u, err := Parse("05AB00ff")
	require.NoError(t, err)
	assert.Equal(t, UID{0x05, 0xab, 0x00, 0xff}, u)
	assert.Equal(t, "05ab00ff", u.String())

	_, err = Parse("abc")
	assert.Error(t, err)
	_, err = Parse("zz")
	assert.ErrorContains(t, err, "invalid byte")
	_, err = Parse("0g")
	assert.Error(t, err)

	u, err = Parse("04112233445566")
	require.NoError(t, err)
	assert.Len(t, u, 7)
	_, err = Parse("  ")
	assert.Error(t, err)
}

func TestFromUint32(t *testing.T) {
	assert.Equal(t, "00bc614e", FromUint32(12345678).String())
}

func TestEqualAndClone(t *testing.T) {
	a := UID{1, 2, 3}
	b := a.Clone()
	b[0] = 9
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(UID{1, 2, 3}))
	assert.True(t, UID(nil).IsZero())
	assert.Nil(t, UID(nil).Clone())
}
