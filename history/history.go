// Package history keeps a SQLite log of scans, playback and downloads.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Kind classifies an event.
type Kind string

const (
	KindTag      Kind = "tag"
	KindRemoved  Kind = "removed"
	KindPlayback Kind = "playback"
	KindStream   Kind = "stream"
	KindDownload Kind = "download"
)

// Event is one logged occurrence.
type Event struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"index"`
	Kind      Kind      `gorm:"size:16;index"`
	UID       string    `gorm:"size:32"`
	Target    string
	Result    string
	Failed    bool
}

// Config holds history settings.
type Config struct {
	Path string `yaml:"path"` // SQLite file, empty disables history
}

// Store records events. A nil *Store is valid and records nothing.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database. It returns a nil Store when
// history is disabled.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", cfg.Path, err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores e, filling in its id and timestamp when unset.
func (s *Store) Record(ctx context.Context, e Event) error {
	if s == nil {
		return nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("record %s event: %w", e.Kind, err)
	}
	return nil
}

// Recent returns up to n events, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Event, error) {
	if s == nil {
		return nil, nil
	}
	var events []Event
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(n).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return events, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
