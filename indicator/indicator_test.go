package indicator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piserver/display"
	"piserver/tag"
)

type fakeIndicator struct {
	calls      []string
	releaseErr error
}

func (f *fakeIndicator) Idle()                  { f.calls = append(f.calls, "idle") }
func (f *fakeIndicator) TagPresent(uid tag.UID) { f.calls = append(f.calls, "tag "+uid.String()) }
func (f *fakeIndicator) Playing(label string)   { f.calls = append(f.calls, "playing "+label) }
func (f *fakeIndicator) Failed(msg string)      { f.calls = append(f.calls, "failed "+msg) }
func (f *fakeIndicator) ConnectionLost()        { f.calls = append(f.calls, "lost") }
func (f *fakeIndicator) Shutdown()              { f.calls = append(f.calls, "shutdown") }
func (f *fakeIndicator) Release() error         { return f.releaseErr }

func TestNewWithoutOutputsIsNoop(t *testing.T) {
	ind, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Noop{}, ind)
}

func TestNewDisplayWithoutScreenBuild(t *testing.T) {
	_, err := New(Config{Display: display.Config{Enabled: true}}, nil)
	assert.ErrorIs(t, err, display.ErrScreenNotCompiled)
}

func TestMultiFansOut(t *testing.T) {
	a := &fakeIndicator{}
	b := &fakeIndicator{releaseErr: errors.New("busy")}
	m := NewMulti(a, b)

	m.TagPresent(tag.UID{0x0a})
	m.Playing("song")
	m.Failed("boom")
	m.Idle()

	expected := []string{"tag 0a", "playing song", "failed boom", "idle"}
	assert.Equal(t, expected, a.calls)
	assert.Equal(t, expected, b.calls)
	assert.EqualError(t, m.Release(), "busy")
}

func TestNeopixelWritesCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neopixel")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	ind, err := New(Config{NeopixelPipe: path}, nil)
	require.NoError(t, err)

	ind.ConnectionLost()
	ind.Idle()
	ind.TagPresent(tag.UID{1})
	ind.Shutdown()
	require.NoError(t, ind.Release())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{neoConnectionLost, neoNormalIdle, neoTagPresent, neoTerminated}, lines)
}

func TestNeopixelMissingPipe(t *testing.T) {
	_, err := NewNeopixel(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
