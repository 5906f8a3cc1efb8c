package settings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, "Alt+P", s.Shortcut())
	v, ok := s.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "system", v)
	v, ok = s.Get("screenshot.maxHeight")
	require.True(t, ok)
	assert.Equal(t, 720, v)

	_, ok = s.Get("shortcuts.missing")
	assert.False(t, ok)
	_, ok = s.Get("theme.nested")
	assert.False(t, ok)
}

func TestInitialOverridesDefaults(t *testing.T) {
	s := NewStore(map[string]any{"theme": "dark", "shortcuts": map[string]any{"toggleChat": "Ctrl+K"}})
	assert.Equal(t, "Ctrl+K", s.Shortcut())
	v, _ := s.Get("theme")
	assert.Equal(t, "dark", v)
}

func TestMergeDeep(t *testing.T) {
	s := NewStore(nil)
	u := s.Merge(map[string]any{"screenshot": map[string]any{"quality": 60}})
	assert.False(t, u.ShortcutChanged)
	assert.Equal(t, map[string]any{"maxHeight": 720, "quality": 60}, u.Settings["screenshot"])
	assert.Equal(t, "Alt+P", u.Shortcut)
}

func TestMergeReportsShortcutChange(t *testing.T) {
	s := NewStore(nil)
	u := s.Merge(map[string]any{"shortcuts": map[string]any{"toggleChat": "Ctrl+Space"}})
	assert.True(t, u.ShortcutChanged)
	assert.Equal(t, "Ctrl+Space", u.Shortcut)
	assert.Equal(t, "Ctrl+Space", s.Shortcut())

	u = s.Merge(map[string]any{"shortcuts": map[string]any{"toggleChat": "Ctrl+Space"}})
	assert.False(t, u.ShortcutChanged)
}

func TestMergeNonMapReplacesSubtree(t *testing.T) {
	s := NewStore(nil)
	u := s.Merge(map[string]any{"shortcuts": "none"})
	assert.True(t, u.ShortcutChanged)
	assert.Equal(t, "", u.Shortcut)
	assert.Equal(t, "none", u.Settings["shortcuts"])
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(nil)
	snap := s.Snapshot()
	snap["shortcuts"].(map[string]any)["toggleChat"] = "changed"
	assert.Equal(t, "Alt+P", s.Shortcut())

	partial := map[string]any{"extra": map[string]any{"a": 1}}
	s.Merge(partial)
	partial["extra"].(map[string]any)["a"] = 2
	v, _ := s.Get("extra.a")
	assert.Equal(t, 1, v)
}

func TestConcurrentMerge(t *testing.T) {
	s := NewStore(nil)
	var wg sync.WaitGroup
	changes := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changes <- s.Merge(map[string]any{"shortcuts": map[string]any{"toggleChat": "Ctrl+J"}}).ShortcutChanged
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	close(changes)

	n := 0
	for c := range changes {
		if c {
			n++
		}
	}
	assert.Equal(t, 1, n)
}
