package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilecanvas/tilemap"
)

const debounce = 100 * time.Millisecond

var errEmptyPalette = errors.New("config: palette has no types")

// Watcher reports changes to YAML files in the watched directories.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isYAMLFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < debounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// WatchPalette reloads the palette at path whenever it changes and passes it
// to apply. Invalid edits are logged and skipped. Close the returned watcher
// to stop.
func WatchPalette(path string, apply func(tilemap.Palette), log logrus.FieldLogger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWatcher(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			select {
			case name, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(name) != abs {
					continue
				}
				p, err := LoadPalette(abs)
				if err == nil && len(p) == 0 {
					err = errEmptyPalette
				}
				if err != nil {
					log.WithError(err).WithField("file", abs).Warn("palette reload skipped")
					continue
				}
				log.WithField("types", len(p)).Info("palette reloaded")
				apply(p)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("palette watcher")
			}
		}
	}()
	return w, nil
}
