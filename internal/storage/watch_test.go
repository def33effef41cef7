package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maruel/cartracker/internal/models"
)

func TestWatchFile(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	path := filepath.Join(t.TempDir(), "data", "car.json")
	changed := make(chan struct{}, 16)
	if err := WatchFile(ctx, path, func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("WatchFile failed: %v", err)
	}

	wait := func(what string) {
		t.Helper()
		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatalf("no change notification after %s", what)
		}
	}
	drain := func() {
		for {
			select {
			case <-changed:
			case <-time.After(200 * time.Millisecond):
				return
			}
		}
	}

	// A save from another writer (temp file renamed over the target).
	tr := NewTracker(path)
	if _, err := tr.Add(corolla()); err != nil {
		t.Fatal(err)
	}
	wait("save")
	drain()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".tmp", []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
		t.Fatal("unexpected notification for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}

	if _, err := tr.Add(models.Fields{"model": "Honda Civic"}); err != nil {
		t.Fatal(err)
	}
	wait("second save")
}
