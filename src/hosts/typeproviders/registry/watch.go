package registry

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads manifests in dir as they change and reports the provider each change affected.
// It returns when ctx is done.
func (r *Registry) Watch(ctx context.Context, dir string, logger *zap.SugaredLogger, invalidated func(provider string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".yaml" {
				continue
			}
			r.apply(event, logger, invalidated)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("manifest watch error", zap.Error(err))
		}
	}
}

func (r *Registry) apply(event fsnotify.Event, logger *zap.SugaredLogger, invalidated func(string)) {
	switch {
	case event.Has(fsnotify.Remove | fsnotify.Rename):
		if m, ok := r.Remove(event.Name); ok {
			logger.Infow("provider removed", "provider", m.Name, "manifest", event.Name)
			invalidated(m.Name)
		}
	case event.Has(fsnotify.Write | fsnotify.Create):
		previous, hadPrevious := r.Manifest(event.Name)
		m, err := r.LoadFile(event.Name)
		if err != nil {
			logger.Warnw("ignoring manifest", "manifest", event.Name, zap.Error(err))
			return
		}
		if hadPrevious && previous.Name != m.Name {
			invalidated(previous.Name)
		}
		logger.Infow("provider reloaded", "provider", m.Name, "manifest", event.Name)
		invalidated(m.Name)
	}
}
