package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
	"go.uber.org/zap"
)

const defaultMPDAddress = "localhost:6600"

// MPDStream hands the queue to an MPD server and watches its player
// subsystem to report finished entries.
type MPDStream struct {
	addr     string
	password string
	handlers StreamHandlers
	logger   *zap.Logger

	mu      sync.Mutex
	watcher *mpd.Watcher
	current string
}

// NewMPDStream checks the server is reachable and starts watching it.
func NewMPDStream(cfg MPDConfig, handlers StreamHandlers, logger *zap.Logger) (*MPDStream, error) {
	addr := cfg.Address
	if addr == "" {
		addr = defaultMPDAddress
	}

	s := &MPDStream{
		addr:     addr,
		password: cfg.Password,
		handlers: handlers,
		logger:   logger,
	}

	if err := s.with(func(c *mpd.Client) error { return c.Ping() }); err != nil {
		return nil, err
	}

	w, err := mpd.NewWatcher("tcp", addr, cfg.Password, "player")
	if err != nil {
		return nil, fmt.Errorf("watch mpd %s: %w", addr, err)
	}
	s.watcher = w
	go s.watch()

	logger.Info("MPD stream backend", zap.String("address", addr))
	return s, nil
}

// with dials a short-lived connection; MPD drops idle clients.
func (s *MPDStream) with(fn func(c *mpd.Client) error) error {
	c, err := mpd.DialAuthenticated("tcp", s.addr, s.password)
	if err != nil {
		return fmt.Errorf("dial mpd %s: %w", s.addr, err)
	}
	defer c.Close()
	return fn(c)
}

func (s *MPDStream) watch() {
	for {
		select {
		case _, ok := <-s.watcher.Event:
			if !ok {
				return
			}
			s.refresh()
		case err, ok := <-s.watcher.Error:
			if !ok {
				return
			}
			s.logger.Warn("MPD watcher", zap.Error(err))
		}
	}
}

func (s *MPDStream) refresh() {
	var status, song mpd.Attrs
	err := s.with(func(c *mpd.Client) error {
		var err error
		if status, err = c.Status(); err != nil {
			return err
		}
		song, err = c.CurrentSong()
		return err
	})
	if err != nil {
		s.logger.Warn("MPD status", zap.Error(err))
		return
	}

	s.mu.Lock()
	ended, now := trackTransition(s.current, status["state"], song["file"])
	s.current = now
	s.mu.Unlock()

	if ended != "" && s.handlers.OnEnd != nil {
		s.handlers.OnEnd(ended, finishedMessage(ended), nil)
	}
}

// trackTransition works out which entry, if any, has just finished given the
// previously playing file and the server's new state and current file.
func trackTransition(prev, state, file string) (ended, current string) {
	if state == "stop" {
		return prev, ""
	}
	if file != prev {
		return prev, file
	}
	return "", prev
}

// Add implements Stream.Add.
func (s *MPDStream) Add(url string) error {
	if url == "" {
		return fmt.Errorf("empty stream url")
	}
	return s.with(func(c *mpd.Client) error { return c.Add(url) })
}

// Play implements Stream.Play.
func (s *MPDStream) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.with(func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return err
		}
		if status["state"] == "play" {
			return nil
		}
		if status["playlistlength"] == "0" {
			return ErrEmptyQueue
		}
		return c.Play(-1)
	})
}

// Next implements Stream.Next.
func (s *MPDStream) Next() error {
	return s.with(func(c *mpd.Client) error { return c.Next() })
}

// Stop implements Stream.Stop.
func (s *MPDStream) Stop() (string, error) {
	err := s.with(func(c *mpd.Client) error {
		if err := c.Stop(); err != nil {
			return err
		}
		return c.Clear()
	})
	if err != nil {
		return "", err
	}
	return StoppedMessage, nil
}

// Queue implements Stream.Queue.
func (s *MPDStream) Queue() []string {
	var urls []string
	err := s.with(func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return err
		}
		items, err := c.PlaylistInfo(-1, -1)
		if err != nil {
			return err
		}
		start := 0
		if pos, ok := status["song"]; ok {
			fmt.Sscanf(pos, "%d", &start)
		}
		for i := start; i < len(items); i++ {
			urls = append(urls, items[i]["file"])
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("MPD queue", zap.Error(err))
	}
	return urls
}

// Close implements Stream.Close.
func (s *MPDStream) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
