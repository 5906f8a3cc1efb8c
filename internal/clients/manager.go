package clients

import (
	"errors"
	"fmt"
	"sync"

	"deskrelay/internal/types"
)

// Conn is one transport connection (WebSocket or WebRTC data channel).
// Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(msg types.Message) error
	Close() error
}

type Role string

const (
	RoleControl Role = "control"
	RoleStream  Role = "stream"
)

// ParseRole returns the role named by s; anything unrecognised is control.
func ParseRole(s string) Role {
	if Role(s) == RoleStream {
		return RoleStream
	}
	return RoleControl
}

// Client represents the set of connections belonging to one logical client.
type Client struct {
	Control   Conn
	Streams   []Conn
	streamIdx int
}

// Manager tracks clients keyed by client id.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

func (m *Manager) getOrCreate(id string) *Client {
	c, ok := m.clients[id]
	if !ok {
		c = &Client{}
		m.clients[id] = c
	}
	return c
}

// Add registers conn under id with the given role. A new control connection
// replaces the previous one, which is returned so the caller can close it.
func (m *Manager) Add(id string, role Role, conn Conn) (old Conn) {
	if role == RoleStream {
		m.AddStream(id, conn)
		return nil
	}
	return m.SetControl(id, conn)
}

// Remove unregisters conn from id in either role.
func (m *Manager) Remove(id string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return
	}
	if c.Control == conn {
		c.Control = nil
	}
	for i, s := range c.Streams {
		if s == conn {
			c.Streams = append(c.Streams[:i], c.Streams[i+1:]...)
			break
		}
	}
	if c.Control == nil && len(c.Streams) == 0 {
		delete(m.clients, id)
	}
}

func (m *Manager) SetControl(id string, conn Conn) (old Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.getOrCreate(id)
	if c.Control != nil && c.Control != conn {
		old = c.Control
	}
	c.Control = conn
	return
}

func (m *Manager) AddStream(id string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.getOrCreate(id)
	c.Streams = append(c.Streams, conn)
}

// NextTarget returns the next stream connection of id, round-robin, or nil
// when the client has no stream connection.
func (m *Manager) NextTarget(id string) Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil
	}
	if n := len(c.Streams); n > 0 {
		target := c.Streams[c.streamIdx%n]
		c.streamIdx++
		return target
	}
	return nil
}

// HasStreams reports whether any client has a stream connection.
func (m *Manager) HasStreams() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if len(c.Streams) > 0 {
			return true
		}
	}
	return false
}

// Counts returns the number of clients and of connections.
func (m *Manager) Counts() (clients, conns int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c.Control != nil {
			conns++
		}
		conns += len(c.Streams)
	}
	return len(m.clients), conns
}

// ForEachClient executes fn with a snapshot of client IDs.
func (m *Manager) ForEachClient(fn func(id string)) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		fn(id)
	}
}

// Broadcast sends msg to every registered connection. Sends happen outside
// the registry lock; failures are collected and returned together.
func (m *Manager) Broadcast(msg types.Message) (sent int, err error) {
	m.mu.RLock()
	var targets []Conn
	for _, c := range m.clients {
		if c.Control != nil {
			targets = append(targets, c.Control)
		}
		targets = append(targets, c.Streams...)
	}
	m.mu.RUnlock()

	var errs []error
	for _, conn := range targets {
		if e := conn.Send(msg); e != nil {
			errs = append(errs, fmt.Errorf("conn %s: %w", conn.ID(), e))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}
