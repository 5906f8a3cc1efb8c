package input

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"deskrelay/internal/canvas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInjector(t *testing.T) (*Injector, *Recorder) {
	t.Helper()
	rec := NewRecorder(nil)
	return NewInjector(rec, canvas.NewMapper(canvas.NewScaleState()), Options{}, nil), rec
}

func TestParseCombo(t *testing.T) {
	cases := map[string][]string{
		"":               nil,
		"a":              {"a"},
		"+":              {"+"},
		"ctrl+shift+a":   {"ctrl", "shift", "a"},
		"ctrl + c":       {"ctrl", "c"},
		"ctrl++":         {"ctrl", "+"},
		"ctrl+":          {"ctrl", "+"},
		"ctrl++b":        {"ctrl", "+", "b"},
		"Alt+P":          {"Alt", "P"},
		"ctrl+shift+tab": {"ctrl", "shift", "tab"},
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCombo(in), in)
	}
	assert.True(t, IsCombo("ctrl+a"))
	assert.False(t, IsCombo("enter"))
	assert.False(t, IsCombo("+"))
	assert.True(t, IsCombo("shift+"))
}

func TestResolveKey(t *testing.T) {
	assert.Equal(t, []string{"ctrl"}, ResolveKey("Control").Names)
	assert.Equal(t, []string{"cmd"}, ResolveKey("meta").Names)
	assert.Equal(t, []string{"up"}, ResolveKey("ArrowUp").Names)
	assert.Equal(t, []string{"f5"}, ResolveKey("F5").Names)
	assert.Equal(t, []string{"A"}, ResolveKey("A").Names)
	assert.Equal(t, []string{"é"}, ResolveKey("é").Names)

	k := ResolveKey("xyz")
	assert.True(t, k.Literal)
	assert.Equal(t, []string{"x", "y", "z"}, k.Names)

	assert.Empty(t, ResolveKey("").Names)
}

func TestSendComboOrder(t *testing.T) {
	in, rec := newTestInjector(t)
	require.NoError(t, in.SendCombo("ctrl+shift+a"))
	assert.Equal(t, []string{
		"key ctrl down",
		"key shift down",
		"key a down",
		"key a up",
		"key shift up",
		"key ctrl up",
	}, rec.Events())
}

func TestSendComboReleasesOnFailure(t *testing.T) {
	in, rec := newTestInjector(t)
	rec.Fail = func(ev string) error {
		if ev == "key a down" {
			return errors.New("denied")
		}
		return nil
	}
	err := in.SendCombo("ctrl+shift+a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInjectionFailure)
	assert.Equal(t, []string{
		"key ctrl down",
		"key shift down",
		"key shift up",
		"key ctrl up",
	}, rec.Events())
}

func TestTapKey(t *testing.T) {
	in, rec := newTestInjector(t)
	require.NoError(t, in.TapKey("Enter"))
	assert.Equal(t, []string{"key enter down", "key enter up"}, rec.Events())

	rec.Reset()
	require.NoError(t, in.TapKey("ctrl+c"))
	assert.Equal(t, []string{"key ctrl down", "key c down", "key c up", "key ctrl up"}, rec.Events())

	rec.Reset()
	require.NoError(t, in.TapKey("ab"))
	assert.Equal(t, []string{"key a down", "key b down", "key b up", "key a up"}, rec.Events())
}

func TestHoldAndReleaseKey(t *testing.T) {
	in, rec := newTestInjector(t)
	require.NoError(t, in.HoldKey("shift"))
	require.NoError(t, in.ReleaseKey("shift"))
	assert.Equal(t, []string{"key shift down", "key shift up"}, rec.Events())
}

func TestTypeTextOneEventPerChar(t *testing.T) {
	in, rec := newTestInjector(t)
	require.NoError(t, in.TypeText("hé!"))
	assert.Equal(t, []string{"type h", "type é", "type !"}, rec.Events())

	rec.Reset()
	require.NoError(t, in.TypeText(""))
	assert.Empty(t, rec.Events())
}

func TestDragSequence(t *testing.T) {
	in, rec := newTestInjector(t)
	require.NoError(t, in.Drag(10, 20, 300, 400))
	assert.Equal(t, []string{
		"move 10,20",
		"button left down",
		"move 300,400",
		"button left up",
	}, rec.Events())
}

func TestClickAtMapsCoordinates(t *testing.T) {
	state := canvas.NewScaleState()
	state.Observe(2880, 1800, func() float64 { return 2 })
	rec := NewRecorder(nil)
	in := NewInjector(rec, canvas.NewMapper(state), Options{}, nil)

	require.NoError(t, in.ClickAt(640, 360, ButtonRight, 2))
	assert.Equal(t, []string{
		"move 720,450",
		"button right down",
		"button right up",
		"button right down",
		"button right up",
	}, rec.Events())
}

func TestScrollAt(t *testing.T) {
	in, rec := newTestInjector(t)
	require.NoError(t, in.ScrollAt(5, 5, "down", 3))
	require.NoError(t, in.ScrollAt(5, 5, "left", 0))
	require.NoError(t, in.ScrollAt(5, 5, "sideways", 2))
	assert.Equal(t, []string{
		"move 5,5", "scroll 0,-3",
		"move 5,5", "scroll -1,0",
		"move 5,5",
	}, rec.Events())
}

func TestPositionlessPointerOps(t *testing.T) {
	in, rec := newTestInjector(t)
	require.NoError(t, in.Press(ButtonRight))
	require.NoError(t, in.Release(ButtonRight))
	require.NoError(t, in.Click(ButtonLeft, 2))
	require.NoError(t, in.Click(ButtonMiddle, 0))
	require.NoError(t, in.Scroll(0, 4))
	require.NoError(t, in.Scroll(-2, 0))
	assert.Equal(t, []string{
		"button right down", "button right up",
		"button left down", "button left up", "button left down", "button left up",
		"button middle down", "button middle up",
		"scroll 0,4", "scroll -2,0",
	}, rec.Events())
}

func TestPositionlessOpsWrapBackendErrors(t *testing.T) {
	in, rec := newTestInjector(t)
	rec.Fail = func(string) error { return errors.New("denied") }
	assert.ErrorIs(t, in.Press(ButtonLeft), ErrInjectionFailure)
	assert.ErrorIs(t, in.Release(ButtonLeft), ErrInjectionFailure)
	assert.ErrorIs(t, in.Click(ButtonLeft, 1), ErrInjectionFailure)
	assert.ErrorIs(t, in.Scroll(0, 1), ErrInjectionFailure)
	assert.Empty(t, rec.Events())
}

func TestParseButton(t *testing.T) {
	assert.Equal(t, ButtonLeft, ParseButton(""))
	assert.Equal(t, ButtonRight, ParseButton("R"))
	assert.Equal(t, ButtonMiddle, ParseButton("middle"))
	assert.Equal(t, ButtonMiddle, ParseButton("center"))
}

func TestConcurrentGesturesDoNotInterleave(t *testing.T) {
	in, rec := newTestInjector(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, in.Drag(1, 1, 2, 2))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, in.SendCombo("ctrl+shift+a"))
		}()
	}
	wg.Wait()

	events := rec.Events()
	require.Len(t, events, 8*4+8*6)
	for i := 0; i < len(events); {
		if strings.HasPrefix(events[i], "move") {
			assert.Equal(t, []string{"move 1,1", "button left down", "move 2,2", "button left up"}, events[i:i+4])
			i += 4
			continue
		}
		assert.Equal(t, "key ctrl down", events[i])
		assert.Equal(t, "key ctrl up", events[i+5])
		i += 6
	}
}
