package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads the topology file on change and invokes onChange with
// the freshly loaded Config. Rapid successive writes (editors that write
// via a temp file + rename) are debounced.
type Watcher struct {
	path     string
	stopCh   chan struct{}
	onChange func(*Config)
}

// WatchFile starts watching path for changes, calling onChange after each
// successful reload. It falls back to 5s polling if fsnotify can't attach
// (e.g. some container filesystems).
func WatchFile(path string, onChange func(*Config)) *Watcher {
	w := &Watcher{path: path, stopCh: make(chan struct{}), onChange: onChange}
	w.start()
	return w
}

func (w *Watcher) start() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("config: failed to create file watcher, falling back to polling")
		w.pollingLoop()
		return
	}
	if err := watcher.Add(w.path); err != nil {
		log.WithError(err).WithField("path", w.path).Warn("config: failed to watch file, falling back to polling")
		watcher.Close()
		w.pollingLoop()
		return
	}
	_ = watcher.Add(filepath.Dir(w.path))

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, w.reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config: file watcher error")
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *Watcher) pollingLoop() {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.reload()
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.WithError(err).WithField("path", w.path).Warn("config: reload failed")
		return
	}
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop ends the watch loop.
func (w *Watcher) Stop() { close(w.stopCh) }
