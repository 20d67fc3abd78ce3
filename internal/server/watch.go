package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce groups the burst of Write events a shard rewrite produces into
// one reload.
const debounce = 300 * time.Millisecond

// Watch watches the input files until ctx is cancelled and reloads the
// snapshot after changes. Watches are registered on parent directories:
// checkpoint writers typically replace files via rename, which drops a
// watch registered on the file itself.
func (s *Server) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]bool, len(s.paths))
	dirs := make(map[string]bool)
	for _, p := range s.paths {
		abs, absErr := filepath.Abs(p)
		if absErr != nil {
			abs = p
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			s.logger.Warn("watcher: add dir failed",
				slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	s.logger.Info("watcher: started", slog.Int("files", len(watched)))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			if err := s.Reload(ctx); err != nil {
				s.logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, absErr := filepath.Abs(ev.Name)
			if absErr != nil {
				abs = ev.Name
			}
			if !watched[abs] {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.logger.Debug("watcher: change detected",
					slog.String("path", abs), slog.String("op", ev.Op.String()))
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
