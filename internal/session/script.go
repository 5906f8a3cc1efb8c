package session

import "sync"

// DefaultTurns is the reply sequence used when no script is configured.
var DefaultTurns = [][]string{
	{"Hello", ", I can see your screen", " and drive the pointer and keyboard."},
	{"Ask me to ", "click, type, ", "scroll or drag."},
	{"Done", "."},
}

// Script streams a canned multi-turn reply. Each Next call returns the turn
// at the cursor and advances it, wrapping to the first turn after the last.
type Script struct {
	mu     sync.Mutex
	turns  [][]string
	cursor int
}

func NewScript(turns [][]string) *Script {
	if len(turns) == 0 {
		turns = DefaultTurns
	}
	cp := make([][]string, len(turns))
	for i, t := range turns {
		cp[i] = append([]string(nil), t...)
	}
	return &Script{turns: cp}
}

// Next returns the chunks of the current turn and its index.
func (s *Script) Next() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.cursor
	s.cursor = (s.cursor + 1) % len(s.turns)
	return append([]string(nil), s.turns[i]...), i
}

// Cursor is the index of the turn the next call to Next will return.
func (s *Script) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Script) Len() int {
	return len(s.turns)
}
