// Package poller turns single-shot reader polls into tag arrival and
// removal events.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"piserver/logging"
	"piserver/reader"
	"piserver/tag"
)

const (
	DefaultInterval      = 500 * time.Millisecond
	DefaultMissThreshold = 2
)

// Config holds polling settings.
type Config struct {
	Interval      time.Duration `yaml:"interval"`
	MissThreshold int           `yaml:"miss_threshold"` // empty polls before a card counts as removed
}

// Handlers holds callback functions for tag events.
type Handlers struct {
	OnTag     func(uid tag.UID) // new card, fired once per arrival
	OnRemoved func(uid tag.UID) // card that was present is no longer read
}

// Poller polls a TagReader on a fixed interval.
type Poller struct {
	reader        reader.TagReader
	interval      time.Duration
	missThreshold int
	handlers      Handlers
	logger        *zap.Logger

	mu     sync.Mutex
	last   tag.UID
	misses int
}

// New creates a Poller. Zero config values take the package defaults.
func New(r reader.TagReader, cfg Config, handlers Handlers, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MissThreshold <= 0 {
		cfg.MissThreshold = DefaultMissThreshold
	}
	return &Poller{
		reader:        r,
		interval:      cfg.Interval,
		missThreshold: cfg.MissThreshold,
		handlers:      handlers,
		logger:        logging.OrNop(logger).Named("poller"),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll performs a single read and fires whatever events it implies.
func (p *Poller) Poll(ctx context.Context) {
	uid, err := p.reader.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("Read tag", zap.Error(err))
		uid = nil
	}
	p.observe(uid)
}

func (p *Poller) observe(uid tag.UID) {
	p.mu.Lock()
	var arrived, removed tag.UID

	switch {
	case uid.IsZero():
		if p.last.IsZero() {
			break
		}
		p.misses++
		if p.misses >= p.missThreshold {
			removed = p.last
			p.last = nil
			p.misses = 0
		}
	case uid.Equal(p.last):
		p.misses = 0
	default:
		removed = p.last
		arrived = uid.Clone()
		p.last = arrived
		p.misses = 0
	}
	p.mu.Unlock()

	if !removed.IsZero() {
		p.logger.Info("Tag removed", zap.String("uid", removed.String()))
		if p.handlers.OnRemoved != nil {
			p.handlers.OnRemoved(removed)
		}
	}
	if !arrived.IsZero() {
		p.logger.Info("Tag read", zap.String("uid", arrived.String()))
		if p.handlers.OnTag != nil {
			p.handlers.OnTag(arrived)
		}
	}
}

// Last returns the card currently considered present, or nil.
func (p *Poller) Last() tag.UID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last.Clone()
}

// WaitForChange polls r until it reads a card different from last and
// returns it. Empty polls and read errors are skipped.
func WaitForChange(ctx context.Context, r reader.TagReader, last tag.UID, interval time.Duration) (tag.UID, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		uid, err := r.Read(ctx)
		if err == nil && !uid.IsZero() && !uid.Equal(last) {
			return uid, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
