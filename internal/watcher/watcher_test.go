package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(YAMLFilter)
	watcher.AddHandler(func(context.Context, []ChangeEvent) error { return nil })
	assert.Len(t, watcher.filters, 1)
	assert.Len(t, watcher.handlers, 1)
}

func TestFilters(t *testing.T) {
	assert.True(t, YAMLFilter("payload.yml"))
	assert.True(t, YAMLFilter("dir/payload.yaml"))
	assert.False(t, YAMLFilter("payload.json"))

	assert.True(t, NoHiddenFilter("/tmp/payload.yml"))
	assert.False(t, NoHiddenFilter("/tmp/.payload.yml.swp"))

	match := NameFilter("/srv/project/payload.yml")
	assert.True(t, match("/srv/project/payload.yml"))
	assert.True(t, match("payload.yml"))
	assert.False(t, match("/srv/project/other.yml"))
}

func TestCleanPath(t *testing.T) {
	_, err := cleanPath("../outside")
	assert.Error(t, err)

	_, err = cleanPath("a/..")
	assert.Error(t, err)

	abs, err := cleanPath(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}

func TestDebouncerCoalescesByPath(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)

	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "b.yml"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.yml"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.yml"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "a.yml", events[0].Path)
		assert.Equal(t, "b.yml", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}

	d.flush()
	assert.Empty(t, d.output)
}

func TestPayloadReloader(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WritePayloadFile(t, dir)
	ctx := context.Background()

	var got *registry.Registry
	r := NewPayloadReloader(path, func(reg *registry.Registry) { got = reg }, nil)

	require.NoError(t, r.Reload(ctx))
	require.NotNil(t, got)
	assert.Equal(t, testutils.RootPath, got.RootPath())

	got = nil
	require.NoError(t, r.Handle(ctx, []ChangeEvent{{Type: EventTypeDeleted, Path: path}}))
	assert.Nil(t, got, "a deleted payload keeps the current registry")

	require.NoError(t, os.WriteFile(path, []byte("components: [unclosed"), 0o644))
	assert.Error(t, r.Handle(ctx, []ChangeEvent{{Type: EventTypeModified, Path: path}}))
	assert.Nil(t, got)
}

func TestWatchPayloadReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := testutils.WritePayloadFile(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var reloaded []*registry.Registry
	fw, err := WatchPayload(ctx, path, 20*time.Millisecond, func(reg *registry.Registry) {
		mu.Lock()
		reloaded = append(reloaded, reg)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	defer fw.Stop()

	renamed := strings.Replace(testutils.FixturePayload, "Click me", "Press me", 1)
	require.NoError(t, os.WriteFile(path, []byte(renamed), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.yml"), []byte("x: 1"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloaded) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	reg := reloaded[len(reloaded)-1]
	mu.Unlock()

	d, ok := reg.Get(testutils.ButtonPath)
	require.True(t, ok)
	assert.Contains(t, d.StructureValue.Value, registry.Field{Key: "text", Value: "Press me"})
}
