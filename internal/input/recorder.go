package input

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Recorder is a Backend that records events instead of injecting them. The
// daemon uses it in dry-run mode, where there is no display to drive.
type Recorder struct {
	log *zap.Logger

	// Fail, when set, is consulted before each event; a non-nil result is
	// returned instead of recording.
	Fail func(event string) error

	mu     sync.Mutex
	events []string
	x, y   int
}

func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{log: log}
}

func (r *Recorder) Move(x, y int) error {
	if err := r.record(fmt.Sprintf("move %d,%d", x, y)); err != nil {
		return err
	}
	r.mu.Lock()
	r.x, r.y = x, y
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Button(b Button, down bool) error {
	return r.record(fmt.Sprintf("button %s %s", b, direction(down)))
}

func (r *Recorder) Scroll(dx, dy int) error {
	return r.record(fmt.Sprintf("scroll %d,%d", dx, dy))
}

func (r *Recorder) Key(name string, down bool) error {
	return r.record(fmt.Sprintf("key %s %s", name, direction(down)))
}

func (r *Recorder) Type(c rune) error {
	return r.record(fmt.Sprintf("type %c", c))
}

func (r *Recorder) Position() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) record(event string) error {
	if r.Fail != nil {
		if err := r.Fail(event); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.log.Debug("input event", zap.String("event", event))
	return nil
}
