package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Editors tend to save in bursts (truncate, write, chmod); events closer
// together than this collapse into one reload.
const watchDebounce = 150 * time.Millisecond

// Reload is one re-read of a watched scenario file. Exactly one of Scenario
// and Err is set.
type Reload struct {
	Scenario *Scenario
	Err      error
}

// Watch re-reads the scenario file at path whenever it changes and sends the
// validated result on the returned channel. The parent directory is watched
// so that editors which save by rename are picked up. The channel is closed
// once ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger) (<-chan Reload, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan Reload)
	go func() {
		defer close(out)
		defer w.Close()

		timer := time.NewTimer(watchDebounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				logger.Debug("scenario file changed", zap.String("path", abs), zap.Stringer("op", ev.Op))
				timer.Reset(watchDebounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("scenario watch error", zap.Error(err))
			case <-timer.C:
				r := reload(abs)
				if r.Err != nil {
					logger.Warn("scenario reload failed", zap.String("path", abs), zap.Error(r.Err))
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func reload(path string) Reload {
	sc, err := Load(path)
	if err == nil {
		err = sc.Validate()
	}
	if err != nil {
		return Reload{Err: err}
	}
	return Reload{Scenario: sc}
}
