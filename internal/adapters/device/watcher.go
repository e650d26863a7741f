package device

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/typepulse/typepulse/pkg/logger"
)

const devInputDir = "/dev/input"

// Watcher reports hotplugged input device nodes so the listener can
// fold new keyboards into the live set without a restart.
type Watcher struct {
	fs      *fsnotify.Watcher
	added   chan string
	log     logger.Logger
	stopped chan struct{}
}

// NewWatcher starts watching /dev/input for new event nodes.
func NewWatcher() (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(devInputDir); err != nil {
		_ = fs.Close()
		return nil, err
	}

	w := &Watcher{
		fs:      fs,
		added:   make(chan string, 8),
		log:     logger.Named("hotplug"),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Added yields paths of newly created event nodes.
func (w *Watcher) Added() <-chan string {
	return w.added
}

func (w *Watcher) run() {
	defer close(w.added)
	ctx := context.Background()
	for {
		select {
		case <-w.stopped:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasPrefix(name, "event") {
				continue
			}
			w.log.Info(ctx, "input device attached", logger.String("path", ev.Name))
			select {
			case w.added <- ev.Name:
			case <-w.stopped:
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "hotplug watch error", logger.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.stopped:
		return nil
	default:
	}
	close(w.stopped)
	return w.fs.Close()
}
