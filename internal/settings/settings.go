// Package settings holds the user-facing settings document shared by all
// connections for the lifetime of the process.
package settings

import (
	"reflect"
	"strings"
	"sync"
)

// ShortcutPath is the dot path of the chat toggle shortcut. Changing it
// notifies every connected client.
const ShortcutPath = "shortcuts.toggleChat"

// Defaults returns a fresh copy of the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"theme": "system",
		"shortcuts": map[string]any{
			"toggleChat": "Alt+P",
		},
		"screenshot": map[string]any{
			"maxHeight": 720,
		},
	}
}

// Store is a settings document guarded by a read/write lock.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewStore returns a store seeded with Defaults and then initial.
func NewStore(initial map[string]any) *Store {
	data := Defaults()
	merge(data, initial)
	return &Store{data: data}
}

// Snapshot returns a deep copy of the settings.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data)
}

// Get looks a value up by dot path, e.g. "shortcuts.toggleChat".
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.data, path)
}

// Shortcut returns the current chat toggle shortcut.
func (s *Store) Shortcut() string {
	v, _ := s.Get(ShortcutPath)
	str, _ := v.(string)
	return str
}

// Update describes the outcome of a Merge.
type Update struct {
	Settings        map[string]any
	ShortcutChanged bool
	Shortcut        string
}

// Merge deep-merges partial into the settings. Nested maps are merged key
// by key; any other value replaces what was there. The write is complete
// before Merge returns, so a caller notifying others of the change never
// races with readers seeing the old value.
func (s *Store) Merge(partial map[string]any) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, _ := lookup(s.data, ShortcutPath)
	merge(s.data, partial)
	after, _ := lookup(s.data, ShortcutPath)

	u := Update{Settings: clone(s.data)}
	u.Shortcut, _ = after.(string)
	u.ShortcutChanged = !reflect.DeepEqual(before, after)
	return u
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				merge(cur, sub)
				continue
			}
			v = clone(sub)
		}
		dst[k] = v
	}
}

func lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = node[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = clone(t)
		case []any:
			out[k] = append([]any(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}
