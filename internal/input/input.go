// Package input sequences synthetic pointer and keyboard events. All
// coordinates taken here are canvas coordinates; they are translated to
// physical pixels before reaching the OS.
package input

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"deskrelay/internal/canvas"

	"go.uber.org/zap"
)

// ErrInjectionFailure is returned when the OS refuses an input event.
var ErrInjectionFailure = errors.New("input injection failed")

type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// ParseButton maps a client button name to a Button. Unknown names are the
// left button.
func ParseButton(b string) Button {
	switch strings.ToLower(b) {
	case "right", "r":
		return ButtonRight
	case "center", "middle", "m":
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}

// Backend is the OS injection primitive. Coordinates are physical.
type Backend interface {
	Move(x, y int) error
	Button(b Button, down bool) error
	// Scroll scrolls by whole notches; positive dy scrolls up and positive
	// dx scrolls right.
	Scroll(dx, dy int) error
	// Key presses or releases a named key or a single character.
	Key(name string, down bool) error
	// Type emits one character event.
	Type(r rune) error
	Position() (x, y int)
}

// Options tunes the pauses between synthetic events. Without them some OS
// input stacks coalesce or drop events.
type Options struct {
	StepDelay     time.Duration
	ClickInterval time.Duration
}

// DefaultOptions are used by the daemon.
var DefaultOptions = Options{
	StepDelay:     50 * time.Millisecond,
	ClickInterval: 30 * time.Millisecond,
}

// Injector drives a Backend. Every operation holds the gesture lock for its
// full duration so that compound gestures from different connections never
// interleave on the shared pointer and keyboard.
type Injector struct {
	backend Backend
	mapper  *canvas.Mapper
	opts    Options
	log     *zap.Logger

	mu sync.Mutex
}

// NewInjector returns an injector that maps coordinates through mapper.
func NewInjector(backend Backend, mapper *canvas.Mapper, opts Options, log *zap.Logger) *Injector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Injector{backend: backend, mapper: mapper, opts: opts, log: log}
}

// MoveTo moves the pointer.
func (in *Injector) MoveTo(x, y int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.moveTo(x, y)
}

// Press holds a button down at the current position.
func (in *Injector) Press(b Button) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.button(b, true)
}

// Release lets a button go at the current position.
func (in *Injector) Release(b Button) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.button(b, false)
}

// Click clicks count times at the current position.
func (in *Injector) Click(b Button, count int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.click(b, count)
}

// Scroll scrolls at the current position.
func (in *Injector) Scroll(dx, dy int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.scroll(dx, dy)
}

// ClickAt moves to (x, y) and clicks count times.
func (in *Injector) ClickAt(x, y int, b Button, count int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.moveTo(x, y); err != nil {
		return err
	}
	in.pause(in.opts.StepDelay)
	return in.click(b, count)
}

// PressAt moves to (x, y) and holds the button down.
func (in *Injector) PressAt(x, y int, b Button) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.moveTo(x, y); err != nil {
		return err
	}
	in.pause(in.opts.StepDelay)
	return in.button(b, true)
}

// ReleaseAt moves to (x, y) and releases the button.
func (in *Injector) ReleaseAt(x, y int, b Button) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.moveTo(x, y); err != nil {
		return err
	}
	in.pause(in.opts.StepDelay)
	return in.button(b, false)
}

// ScrollAt moves to (x, y) and scrolls amount notches in direction
// (up, down, left or right). An unknown direction only moves the pointer.
func (in *Injector) ScrollAt(x, y int, direction string, amount int) error {
	dx, dy, ok := ScrollDelta(direction, amount)
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.moveTo(x, y); err != nil {
		return err
	}
	if !ok {
		in.log.Warn("unknown scroll direction", zap.String("direction", direction))
		return nil
	}
	in.pause(in.opts.StepDelay)
	return in.scroll(dx, dy)
}

// Drag presses the left button at (x1, y1), moves to (x2, y2) and releases.
func (in *Injector) Drag(x1, y1, x2, y2 int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.moveTo(x1, y1); err != nil {
		return err
	}
	in.pause(in.opts.StepDelay)
	if err := in.button(ButtonLeft, true); err != nil {
		return err
	}
	in.pause(in.opts.StepDelay)
	if err := in.moveTo(x2, y2); err != nil {
		_ = in.button(ButtonLeft, false)
		return err
	}
	in.pause(in.opts.StepDelay)
	return in.button(ButtonLeft, false)
}

// Position returns the pointer position in canvas coordinates.
func (in *Injector) Position() (int, int) {
	px, py := in.backend.Position()
	return in.mapper.ToCanvas(px, py)
}

// ScrollDelta converts a direction and amount into notches. Amounts below
// one scroll a single notch.
func ScrollDelta(direction string, amount int) (dx, dy int, ok bool) {
	if amount <= 0 {
		amount = 1
	}
	switch strings.ToLower(direction) {
	case "up":
		return 0, amount, true
	case "down":
		return 0, -amount, true
	case "left":
		return -amount, 0, true
	case "right":
		return amount, 0, true
	}
	return 0, 0, false
}

func (in *Injector) moveTo(x, y int) error {
	px, py := in.mapper.ToPhysical(x, y)
	if err := in.backend.Move(px, py); err != nil {
		return fmt.Errorf("%w: move to %d,%d: %w", ErrInjectionFailure, px, py, err)
	}
	return nil
}

func (in *Injector) button(b Button, down bool) error {
	if err := in.backend.Button(b, down); err != nil {
		return fmt.Errorf("%w: %s button: %w", ErrInjectionFailure, b, err)
	}
	return nil
}

func (in *Injector) click(b Button, count int) error {
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		if i > 0 {
			in.pause(in.opts.ClickInterval)
		}
		if err := in.button(b, true); err != nil {
			return err
		}
		if err := in.button(b, false); err != nil {
			return err
		}
	}
	return nil
}

func (in *Injector) scroll(dx, dy int) error {
	if err := in.backend.Scroll(dx, dy); err != nil {
		return fmt.Errorf("%w: scroll: %w", ErrInjectionFailure, err)
	}
	return nil
}

func (in *Injector) pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
