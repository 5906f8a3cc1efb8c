// Package capture grabs the display, normalizes frames onto the virtual
// canvas, caches the latest frame and encodes frames for transport.
package capture

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
)

var (
	// ErrCaptureUnavailable is returned when the capture primitive fails,
	// times out or no display is present.
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrNoFrameAvailable is returned when a cached frame is needed but no
	// capture has happened yet.
	ErrNoFrameAvailable = errors.New("no frame available")
)

// Frame is a canvas-sized image plus the physical geometry it came from.
// Frames are shared between readers and must not be modified.
type Frame struct {
	Image          *image.RGBA
	PhysicalWidth  int
	PhysicalHeight int
	CapturedAt     time.Time
}

// Grabber is the OS capture primitive.
type Grabber interface {
	// Grab returns the raw pixels of a monitor at physical resolution.
	Grab(monitor int) (*image.RGBA, error)
	// ScaleFactor reports how many physical pixels make up one logical
	// pointer unit on the monitor.
	ScaleFactor(monitor int) float64
}

// ScreenGrabber captures real displays.
type ScreenGrabber struct{}

// Grab captures the whole monitor. An out of range index falls back to the
// primary display.
func (ScreenGrabber) Grab(monitor int) (*image.RGBA, error) {
	num := screenshot.NumActiveDisplays()
	if num <= 0 {
		return nil, fmt.Errorf("%w: no active displays", ErrCaptureUnavailable)
	}
	d := monitor
	if d < 0 || d >= num {
		d = 0
	}
	img, err := screenshot.CaptureDisplay(d)
	if err != nil {
		return nil, fmt.Errorf("%w: display %d: %v", ErrCaptureUnavailable, d, err)
	}
	return img, nil
}

// ScaleFactor asks the OS for the display scale of the monitor.
func (ScreenGrabber) ScaleFactor(monitor int) float64 {
	return robotgo.ScaleF(monitor)
}
