package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// EventType describes a storage change notification.
type EventType int

const (
	// EventWrite indicates a key was written or updated.
	EventWrite EventType = iota

	// EventRemove indicates a key was removed.
	EventRemove
)

// Event is emitted by Watch when another writer changes the session
// directory.
type Event struct {
	Type EventType
	Key  string
}

// Watch streams change events for dir until ctx is cancelled. Callers
// should drain the returned channel to avoid losing events. The channel
// is closed once ctx is done or the watcher fails.
func Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure watch dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("storage: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("storage: watch %s: %w", dir, err)
	}

	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case fsEvent, ok := <-watcher.Events:
				if !ok {
					return
				}
				event, relevant := translate(fsEvent)
				if !relevant {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}

func translate(fsEvent fsnotify.Event) (Event, bool) {
	key := filepath.Base(fsEvent.Name)
	switch {
	case fsEvent.Op.Has(fsnotify.Create), fsEvent.Op.Has(fsnotify.Write):
		return Event{Type: EventWrite, Key: key}, true
	case fsEvent.Op.Has(fsnotify.Remove), fsEvent.Op.Has(fsnotify.Rename):
		return Event{Type: EventRemove, Key: key}, true
	}
	return Event{}, false
}
