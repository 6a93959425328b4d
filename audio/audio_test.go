package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requireCommand(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available", name)
	}
	return path
}

func TestPlayerPlayFinished(t *testing.T) {
	p, err := NewPlayer(Config{Command: requireCommand(t, "true")}, zap.NewNop())
	require.NoError(t, err)

	msg, err := p.Play(context.Background(), "song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "Playback of song.mp3 finished", msg)
	assert.False(t, p.Playing())
}

func TestPlayerFailureIsSurfaced(t *testing.T) {
	p, err := NewPlayer(Config{Command: requireCommand(t, "false")}, zap.NewNop())
	require.NoError(t, err)

	msg, err := p.Play(context.Background(), "song.mp3")
	assert.Error(t, err)
	assert.Empty(t, msg)
}

func TestPlayerStopIsNotAnError(t *testing.T) {
	p, err := NewPlayer(Config{Command: requireCommand(t, "sleep")}, zap.NewNop())
	require.NoError(t, err)

	type result struct {
		msg string
		err error
	}
	done := make(chan result, 1)
	p.PlayAsync(context.Background(), "30", func(msg string, err error) {
		done <- result{msg, err}
	})

	require.Eventually(t, p.Playing, time.Second, 5*time.Millisecond)
	assert.Equal(t, StoppedMessage, p.Stop())

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "Playback of 30 finished", r.msg)
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not end after Stop")
	}
}

func TestPlayerNewPlayReplacesCurrent(t *testing.T) {
	p, err := NewPlayer(Config{Command: requireCommand(t, "sleep")}, zap.NewNop())
	require.NoError(t, err)

	first := make(chan error, 1)
	p.PlayAsync(context.Background(), "30", func(_ string, err error) { first <- err })
	require.Eventually(t, p.Playing, time.Second, 5*time.Millisecond)

	msg, err := p.Play(context.Background(), "0")
	require.NoError(t, err)
	assert.Equal(t, "Playback of 0 finished", msg)

	select {
	case err := <-first:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first playback was not replaced")
	}
}

func TestStopWithNothingPlaying(t *testing.T) {
	p := &Player{logger: zap.NewNop()}
	assert.Equal(t, StoppedMessage, p.Stop())
}

func TestHTTPStreamPlaysInOrder(t *testing.T) {
	cat := requireCommand(t, "cat")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("audio bytes"))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var ended []string
	var msgs []string
	var errs []error
	s := NewHTTPStream(cat, nil, srv.Client(), StreamHandlers{
		OnEnd: func(url, msg string, err error) {
			mu.Lock()
			defer mu.Unlock()
			ended = append(ended, url)
			msgs = append(msgs, msg)
			errs = append(errs, err)
		},
	}, zap.NewNop())

	require.NoError(t, s.Add(srv.URL+"/one"))
	require.NoError(t, s.Add(srv.URL+"/missing"))
	require.NoError(t, s.Add(srv.URL+"/two"))
	assert.Error(t, s.Add(""))
	require.NoError(t, s.Play(context.Background()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ended) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{srv.URL + "/one", srv.URL + "/missing", srv.URL + "/two"}, ended)
	assert.Equal(t, "Playback of "+srv.URL+"/one finished", msgs[0])
	assert.NoError(t, errs[0])
	require.Error(t, errs[1])
	assert.Contains(t, errs[1].Error(), "404")
	assert.Empty(t, s.Queue())
}

func TestHTTPStreamEmptyQueue(t *testing.T) {
	s := NewHTTPStream("cat", nil, nil, StreamHandlers{}, zap.NewNop())
	assert.ErrorIs(t, s.Play(context.Background()), ErrEmptyQueue)
	assert.ErrorIs(t, s.Next(), ErrEmptyQueue)
}

func TestHTTPStreamStopClearsQueue(t *testing.T) {
	sleep := requireCommand(t, "sleep")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ended := make(chan string, 4)
	s := NewHTTPStream(sleep, []string{"30"}, srv.Client(), StreamHandlers{
		OnEnd: func(url, _ string, _ error) { ended <- url },
	}, zap.NewNop())

	require.NoError(t, s.Add(srv.URL+"/a"))
	require.NoError(t, s.Add(srv.URL+"/b"))
	require.NoError(t, s.Play(context.Background()))
	assert.Len(t, s.Queue(), 2)

	msg, err := s.Stop()
	require.NoError(t, err)
	assert.Equal(t, StoppedMessage, msg)
	assert.Empty(t, s.Queue())

	select {
	case url := <-ended:
		t.Fatalf("unexpected end notification for %s", url)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHTTPStreamNextSkipsEntry(t *testing.T) {
	sleep := requireCommand(t, "sleep")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	type end struct {
		url string
		msg string
		err error
	}
	ended := make(chan end, 4)
	s := NewHTTPStream(sleep, []string{"30"}, srv.Client(), StreamHandlers{
		OnEnd: func(url, msg string, err error) { ended <- end{url, msg, err} },
	}, zap.NewNop())
	defer s.Close()

	require.NoError(t, s.Add(srv.URL+"/a"))
	require.NoError(t, s.Add(srv.URL+"/b"))
	require.NoError(t, s.Play(context.Background()))

	require.Eventually(t, func() bool { return s.Next() == nil }, 2*time.Second, 10*time.Millisecond)

	select {
	case e := <-ended:
		assert.Equal(t, srv.URL+"/a", e.url)
		assert.Equal(t, "Playback of "+srv.URL+"/a finished", e.msg)
		assert.NoError(t, e.err)
	case <-time.After(2 * time.Second):
		t.Fatal("skipped entry was not reported")
	}
	assert.Equal(t, []string{srv.URL + "/b"}, s.Queue())
}

func TestHTTPStreamPlayAfterDrain(t *testing.T) {
	cat := requireCommand(t, "cat")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ended := make(chan string, 1)
	s := NewHTTPStream(cat, nil, srv.Client(), StreamHandlers{
		OnEnd: func(url, _ string, _ error) { ended <- url },
	}, zap.NewNop())
	defer s.Close()

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Add(srv.URL+"/x"))
		require.NoError(t, s.Play(context.Background()))
		select {
		case <-ended:
		case <-time.After(2 * time.Second):
			t.Fatalf("entry %d never played", i)
		}
	}
	assert.Empty(t, s.Queue())
}

func TestTrackTransition(t *testing.T) {
	testCases := []struct {
		name            string
		prev, state     string
		file            string
		ended, expected string
	}{
		{name: "first song starts", prev: "", state: "play", file: "a", ended: "", expected: "a"},
		{name: "same song paused", prev: "a", state: "pause", file: "a", ended: "", expected: "a"},
		{name: "advance", prev: "a", state: "play", file: "b", ended: "a", expected: "b"},
		{name: "queue exhausted", prev: "b", state: "stop", file: "", ended: "b", expected: ""},
		{name: "idle stays idle", prev: "", state: "stop", file: "", ended: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ended, current := trackTransition(tc.prev, tc.state, tc.file)
			assert.Equal(t, tc.ended, ended)
			assert.Equal(t, tc.expected, current)
		})
	}
}

func TestNewStreamUnknownBackend(t *testing.T) {
	_, err := NewStream(Config{Command: "cat", Backend: "pulse"}, StreamHandlers{}, nil)
	assert.Error(t, err)
}
