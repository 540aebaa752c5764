package dataset

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestIsRelevant(t *testing.T) {
	tests := map[string]bool{
		"/a/song.wav":  true,
		"/a/SONG.Opus": true,
		"/a/song.txt":  true,
		"/a/cover.jpg": false,
		"/a/.DS_Store": false,
	}
	for path, want := range tests {
		if got := isRelevant(path); got != want {
			t.Errorf("isRelevant(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcherCoalescesChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(paths []string) { changes <- paths })
	}()

	// give the watcher a moment to start receiving events
	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "one.wav"), "x")
	writeFile(t, filepath.Join(dir, "one.txt"), "lyrics")
	writeFile(t, filepath.Join(dir, "ignored.jpg"), "x")

	select {
	case paths := <-changes:
		if len(paths) != 2 {
			t.Errorf("paths = %v, want the wav and txt files", paths)
		}
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	if err := <-done; err != context.Canceled && err != context.DeadlineExceeded {
		t.Errorf("Run returned %v", err)
	}
}
