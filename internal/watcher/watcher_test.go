package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs a watcher over the given files and returns its event
// channel. Run is given a moment to install the directory watches before
// the test starts mutating files.
func startWatcher(t *testing.T, files []string) <-chan Event {
	t.Helper()
	w, err := New(files, Options{DebounceWindow: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return w.Events()
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no event within deadline")
		return Event{}
	}
}

func TestWatcher_ReportsModification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": 1}`), 0o644))

	events := startWatcher(t, []string{path})
	require.NoError(t, os.WriteFile(path, []byte(`{"id": 2}`), 0o644))

	ev := waitEvent(t, events)
	assert.Equal(t, path, ev.Path)
	assert.False(t, ev.Removed)
}

func TestWatcher_IgnoresUnwatchedFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.json")
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(watched, []byte("{}"), 0o644))

	events := startWatcher(t, []string{watched})
	require.NoError(t, os.WriteFile(other, []byte("{}"), 0o644))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_CoalescesBurstsIntoOneEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	events := startWatcher(t, []string{path})
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"rev": 1}`), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	waitEvent(t, events)
	select {
	case <-events:
		t.Fatal("burst produced more than one event")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	events := startWatcher(t, []string{path})
	require.NoError(t, os.Remove(path))

	ev := waitEvent(t, events)
	assert.Equal(t, path, ev.Path)
	assert.True(t, ev.Removed)
}

func TestWatcher_RenameOverIsAModify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.json")
	tmp := filepath.Join(dir, "docs.json.tmp")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	events := startWatcher(t, []string{path})
	// Atomic save: write a temp file, rename it over the target.
	require.NoError(t, os.WriteFile(tmp, []byte(`{"rev": 2}`), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	ev := waitEvent(t, events)
	assert.Equal(t, path, ev.Path)
	assert.False(t, ev.Removed, "the file exists after the rename lands")
}

func TestWatcher_EventsChannelClosesOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	w, err := New([]string{path}, DefaultOptions(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	_, open := <-w.Events()
	assert.False(t, open)
}
