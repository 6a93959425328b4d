// Package audio plays local files and queued network streams through an
// external player process or an MPD server.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"piserver/logging"
)

// ErrNoPlayer is returned when no player command is configured or found on PATH.
var ErrNoPlayer = errors.New("no audio player found")

// ErrEmptyQueue is returned when a stream is started with nothing queued.
var ErrEmptyQueue = errors.New("stream queue is empty")

// candidates are tried in order when no command is configured.
var candidates = []string{"mpg123", "mpg321", "mplayer", "mpv", "play", "omxplayer", "aplay", "cvlc"}

// Config holds playback settings.
type Config struct {
	Command    string    `yaml:"command"`     // player binary; empty = first candidate on PATH
	Args       []string  `yaml:"args"`        // extra args before the file path
	StreamArgs []string  `yaml:"stream_args"` // args that make the player read stdin, default ["-"]
	Backend    string    `yaml:"backend"`     // stream backend: "exec" (default) or "mpd"
	MPD        MPDConfig `yaml:"mpd"`
}

// MPDConfig holds MPD connection settings.
type MPDConfig struct {
	Address  string `yaml:"address"` // host:port, default "localhost:6600"
	Password string `yaml:"password"`
}

// StreamHandlers holds callbacks for stream queue events.
type StreamHandlers struct {
	// OnEnd is called once per queue entry that finished playing. err is
	// set when the entry could not be fetched or the player failed.
	OnEnd func(url, msg string, err error)
}

// Stream is a FIFO queue of URLs played one after another.
type Stream interface {
	// Add appends a URL to the queue.
	Add(url string) error

	// Play starts playing the queue. It returns once playback has started.
	Play(ctx context.Context) error

	// Next skips the entry currently playing.
	Next() error

	// Stop halts playback and empties the queue.
	Stop() (string, error)

	// Queue returns the URLs not yet finished, current entry first.
	Queue() []string

	// Close releases any held resources.
	Close() error
}

// NewStream creates a Stream for the configured backend.
func NewStream(cfg Config, handlers StreamHandlers, logger *zap.Logger) (Stream, error) {
	logger = logging.OrNop(logger).Named("stream")

	switch cfg.Backend {
	case "", "exec":
		command, err := resolveCommand(cfg.Command)
		if err != nil {
			return nil, err
		}
		args := cfg.StreamArgs
		if len(args) == 0 {
			args = []string{"-"}
		}
		return NewHTTPStream(command, args, nil, handlers, logger), nil
	case "mpd":
		return NewMPDStream(cfg.MPD, handlers, logger)
	default:
		return nil, fmt.Errorf("unknown stream backend %q", cfg.Backend)
	}
}

func resolveCommand(command string) (string, error) {
	if command != "" {
		return command, nil
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", ErrNoPlayer
}

func finishedMessage(target string) string {
	return "Playback of " + target + " finished"
}

// StoppedMessage is reported by Stop.
const StoppedMessage = "Playback finished"
