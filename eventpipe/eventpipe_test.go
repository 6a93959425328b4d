package eventpipe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piserver/command"
)

func TestNewDisabled(t *testing.T) {
	ep, err := New(Config{}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, ep)
}

func TestEventPipeDeliversCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands")
	got := make(chan command.Command, 4)
	ep, err := New(Config{Path: path}, func(c command.Command) { got <- c }, nil)
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		ep.Start()
		close(stopped)
	}()

	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = w.WriteString("# comment\ntag 0a0b0c0d\nbogus\n\nplay /tmp/x.mp3\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	expected := []command.Command{
		{Op: command.OpTag, Arg: "0a0b0c0d"},
		{Op: command.OpPlay, Arg: "/tmp/x.mp3"},
	}
	for _, want := range expected {
		select {
		case c := <-got:
			assert.Equal(t, want, c)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing command %v", want)
		}
	}

	require.NoError(t, ep.Close())
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
