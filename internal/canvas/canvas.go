// Package canvas converts between the fixed virtual canvas every client works
// in and the physical pixel space of the captured display.
package canvas

import "sync"

// Virtual canvas resolution. All coordinates exchanged with clients use it.
const (
	Width  = 1280
	Height = 720
)

// Scale is a point-in-time copy of the display geometry.
type Scale struct {
	PhysicalWidth  int     `json:"physicalWidth"`
	PhysicalHeight int     `json:"physicalHeight"`
	DisplayScale   float64 `json:"displayScale"`
	Probed         bool    `json:"probed"`
}

// ScaleState is the process-wide display geometry. It starts out as the
// canvas itself with a scale of 1.0 and is filled in by the first capture.
type ScaleState struct {
	mu     sync.RWMutex
	width  int
	height int
	scale  float64
	probed bool
}

// NewScaleState returns a state that maps canvas coordinates onto themselves.
func NewScaleState() *ScaleState {
	return &ScaleState{width: Width, height: Height, scale: 1.0}
}

// Snapshot returns the current geometry.
func (s *ScaleState) Snapshot() Scale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Scale{
		PhysicalWidth:  s.width,
		PhysicalHeight: s.height,
		DisplayScale:   s.scale,
		Probed:         s.probed,
	}
}

// Observe records the dimensions of a freshly captured frame. The display
// scale is probed only on the first call; later calls keep the first answer
// and only track resolution changes. It reports whether anything changed.
func (s *ScaleState) Observe(width, height int, probe func() float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if !s.probed {
		s.scale = sanitize(probe)
		s.probed = true
		changed = true
	}
	if width != s.width || height != s.height {
		s.width, s.height = width, height
		changed = true
	}
	return changed
}

// Reprobe runs display-scale detection again. Needed when the monitor
// configuration changes while the daemon is running.
func (s *ScaleState) Reprobe(probe func() float64) Scale {
	f := sanitize(probe)
	s.mu.Lock()
	s.scale = f
	s.probed = true
	s.mu.Unlock()
	return s.Snapshot()
}

func sanitize(probe func() float64) float64 {
	if probe == nil {
		return 1.0
	}
	if f := probe(); f > 0 {
		return f
	}
	return 1.0
}

// Mapper translates coordinates using the geometry held in a ScaleState.
type Mapper struct {
	state *ScaleState
}

// NewMapper returns a mapper reading from state.
func NewMapper(state *ScaleState) *Mapper {
	return &Mapper{state: state}
}

// ToPhysical maps canvas coordinates to physical pointer coordinates.
// The result is truncated, not rounded. Coordinates outside the canvas are
// mapped the same way and passed through.
func (m *Mapper) ToPhysical(cx, cy int) (int, int) {
	s := m.state.Snapshot()
	return ToPhysical(cx, cy, s)
}

// ToCanvas is the inverse of ToPhysical, used to report the pointer position
// back to clients.
func (m *Mapper) ToCanvas(px, py int) (int, int) {
	s := m.state.Snapshot()
	return ToCanvas(px, py, s)
}

// ToPhysical maps (cx, cy) with an explicit geometry.
func ToPhysical(cx, cy int, s Scale) (int, int) {
	scale := s.DisplayScale
	if scale <= 0 {
		scale = 1.0
	}
	px := float64(cx) * float64(s.PhysicalWidth) / (Width * scale)
	py := float64(cy) * float64(s.PhysicalHeight) / (Height * scale)
	return int(px), int(py)
}

// ToCanvas maps physical pointer coordinates back onto the canvas.
func ToCanvas(px, py int, s Scale) (int, int) {
	scale := s.DisplayScale
	if scale <= 0 {
		scale = 1.0
	}
	if s.PhysicalWidth <= 0 || s.PhysicalHeight <= 0 {
		return px, py
	}
	cx := float64(px) * scale * Width / float64(s.PhysicalWidth)
	cy := float64(py) * scale * Height / float64(s.PhysicalHeight)
	return int(cx), int(cy)
}
