package audio

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// HTTPStream fetches each queued URL and pipes the body into the player's stdin.
type HTTPStream struct {
	command  string
	args     []string
	client   *http.Client
	handlers StreamHandlers
	logger   *zap.Logger

	mu      sync.Mutex
	queue   []string
	running bool
	gen     int                // bumped by Stop so a stale run loop exits quietly
	cancel  context.CancelFunc // stops the whole queue
	skip    context.CancelFunc // stops the current entry only
}

// NewHTTPStream creates an HTTPStream. A nil client uses http.DefaultClient.
func NewHTTPStream(command string, args []string, client *http.Client, handlers StreamHandlers, logger *zap.Logger) *HTTPStream {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStream{
		command:  command,
		args:     args,
		client:   client,
		handlers: handlers,
		logger:   logger,
	}
}

// Add implements Stream.Add.
func (s *HTTPStream) Add(url string) error {
	if url == "" {
		return fmt.Errorf("empty stream url")
	}
	s.mu.Lock()
	s.queue = append(s.queue, url)
	s.mu.Unlock()
	return nil
}

// Play implements Stream.Play. Calling Play while the queue is running is a no-op.
func (s *HTTPStream) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if len(s.queue) == 0 {
		return ErrEmptyQueue
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	go s.run(ctx, s.gen)
	return nil
}

func (s *HTTPStream) run(ctx context.Context, gen int) {
	for {
		s.mu.Lock()
		if ctx.Err() != nil || s.gen != gen || len(s.queue) == 0 {
			s.finishLocked(gen)
			s.mu.Unlock()
			return
		}
		url := s.queue[0]
		entryCtx, skip := context.WithCancel(ctx)
		s.skip = skip
		s.mu.Unlock()

		err := s.playOne(entryCtx, url)
		skipped := entryCtx.Err() != nil && ctx.Err() == nil
		skip()

		if ctx.Err() != nil {
			s.mu.Lock()
			s.finishLocked(gen)
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if s.gen == gen && len(s.queue) > 0 && s.queue[0] == url {
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		msg := finishedMessage(url)
		if skipped {
			err = nil
		}
		if err != nil {
			s.logger.Warn("Stream entry failed", zap.String("url", url), zap.Error(err))
			msg = ""
		}
		if s.handlers.OnEnd != nil {
			s.handlers.OnEnd(url, msg, err)
		}
	}
}

// finishLocked marks the queue idle. The caller holds mu and has just seen
// the run loop for gen exit.
func (s *HTTPStream) finishLocked(gen int) {
	if s.gen != gen {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
	s.cancel = nil
	s.skip = nil
}

func (s *HTTPStream) playOne(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %s", url, resp.Status)
	}

	s.logger.Info("Streaming", zap.String("url", url))
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stdin = resp.Body
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play %s: %w", url, err)
	}
	return nil
}

// Next implements Stream.Next.
func (s *HTTPStream) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.skip == nil {
		return ErrEmptyQueue
	}
	s.skip()
	return nil
}

// Stop implements Stream.Stop.
func (s *HTTPStream) Stop() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.running = false
	s.cancel = nil
	s.skip = nil
	s.queue = nil
	return StoppedMessage, nil
}

// Queue implements Stream.Queue.
func (s *HTTPStream) Queue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queue...)
}

// Close implements Stream.Close.
func (s *HTTPStream) Close() error {
	_, err := s.Stop()
	return err
}
