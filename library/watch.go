package library

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 300 * time.Millisecond

// Watch reloads the tag file whenever it changes on disk until ctx is done.
// The parent directory is watched so that editors and our own
// temp-file-and-rename saves are both seen.
func (l *Library) Watch(ctx context.Context) error {
	if l.cfg.File == "" || !l.cfg.Watch {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(l.cfg.File)); err != nil {
		w.Close()
		return err
	}

	go l.watchLoop(ctx, w)
	return nil
}

func (l *Library) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	target := filepath.Clean(l.cfg.File)
	timer := time.NewTimer(reloadDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			l.logger.Debug("tag file event", zap.String("op", ev.Op.String()))
			timer.Reset(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("Tag file watcher", zap.Error(err))
		case <-timer.C:
			if err := l.LoadFromFile(); err != nil {
				l.logger.Warn("Reload tag file", zap.Error(err))
				continue
			}
			if l.onUpdate != nil {
				l.onUpdate(l.Len())
			}
		}
	}
}
