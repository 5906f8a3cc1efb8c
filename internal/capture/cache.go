package capture

import "sync"

// Cache holds the most recent frame. There is no history: storing a frame
// drops the previous one.
type Cache struct {
	mu    sync.RWMutex
	frame *Frame
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Store replaces the cached frame.
func (c *Cache) Store(f *Frame) {
	c.mu.Lock()
	c.frame = f
	c.mu.Unlock()
}

// Latest returns the cached frame or ErrNoFrameAvailable.
func (c *Cache) Latest() (*Frame, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.frame == nil {
		return nil, ErrNoFrameAvailable
	}
	return c.frame, nil
}
