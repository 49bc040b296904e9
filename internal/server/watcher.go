package server

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/livetemplate/accordion/internal/logging"
)

// debounce coalesces the burst of events an editor save produces
const debounce = 100 * time.Millisecond

// Watcher watches one file and calls onChange after it is written.
// The parent directory is watched so that editors replacing the file
// (write to temp, then rename) are seen too.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string) error
	done     chan struct{}
	stopOnce sync.Once
	log      *zap.Logger
}

// NewWatcher creates a watcher for path
func NewWatcher(path string, onChange func(string) error) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  fsWatcher,
		path:     abs,
		onChange: onChange,
		done:     make(chan struct{}),
		log:      logging.Named("watch"),
	}, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go func() {
		var timer *time.Timer
		fire := make(chan struct{}, 1)

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})

			case <-fire:
				w.log.Debug("file changed", zap.String("path", w.path))
				if err := w.onChange(w.path); err != nil {
					w.log.Warn("reload failed", zap.String("path", w.path), zap.Error(err))
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("watch error", zap.Error(err))

			case <-w.done:
				if timer != nil {
					timer.Stop()
				}
				return
			}
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
