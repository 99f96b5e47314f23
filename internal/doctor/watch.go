package doctor

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/repo"
)

// debounce is how long after the last file event a re-check waits.
// Editors tend to fire bursts of writes for one save.
const debounce = 200 * time.Millisecond

// ReportFunc receives each report produced by Watch, including the
// initial one.
type ReportFunc func(*Report)

// Watch runs Check once, then re-runs it after every burst of changes
// in the collection directory until ctx is cancelled. Each report is
// handed to cb.
func Watch(ctx context.Context, r *repo.Repository, logger *slog.Logger, cb ReportFunc) error {
	rep, err := Check(r)
	if err != nil {
		return err
	}
	cb(rep)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(r.Dir()); err != nil {
		return err
	}
	logger.Info("watch: started", slog.String("dir", r.Dir()))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-fire:
			rep, err := Check(r)
			if err != nil {
				logger.Error("watch: check failed", slog.String("error", err.Error()))
				continue
			}
			cb(rep)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}
