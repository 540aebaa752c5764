package dataset

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"loraset/logger"
)

// DefaultSettleDelay is how long a directory must be quiet before a change fires.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher reports changes to the audio and lyrics files under a directory tree.
// Bursts of events are coalesced into one callback once the tree has settled.
type Watcher struct {
	dir    string
	settle time.Duration
	watch  *fsnotify.Watcher
}

// NewWatcher watches dir and all of its subdirectories.
func NewWatcher(dir string, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{dir: dir, settle: settle, watch: fw}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watch.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// isRelevant reports whether a changed path can affect a scan.
func isRelevant(path string) bool {
	return IsAudioFile(path) || strings.EqualFold(filepath.Ext(path), ".txt")
}

// Run blocks until ctx is cancelled, calling onChange with the changed paths
// after each settled burst.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	defer w.watch.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watch.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				// new subdirectories join the watch set
				if err := w.addTree(event.Name); err == nil {
					logger.Debug("watching new directory", logger.String("path", event.Name))
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 && isRelevant(event.Name) {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-w.watch.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", logger.ErrorField(err))

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			now := time.Now()
			settled := true
			for _, last := range pending {
				if now.Sub(last) < w.settle {
					settled = false
					break
				}
			}
			if !settled {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]time.Time)
			logger.Info("dataset directory changed",
				logger.String("dir", w.dir),
				logger.Int("files", len(paths)))
			onChange(paths)
		}
	}
}
