package capture

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"deskrelay/internal/canvas"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single capture.
const DefaultTimeout = 10 * time.Second

// Source produces canvas-normalized frames and keeps the scale state in step
// with what the display reports.
type Source struct {
	grabber Grabber
	state   *canvas.ScaleState
	timeout time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// NewSource wires a grabber to the shared scale state.
func NewSource(g Grabber, state *canvas.ScaleState, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Source{grabber: g, state: state, timeout: timeout, now: time.Now}
}

// Capture grabs one frame of the monitor and resizes it to the canvas.
// Concurrent captures of the same monitor share one call to the primitive.
func (s *Source) Capture(ctx context.Context, monitor int) (*Frame, error) {
	ch := s.group.DoChan(strconv.Itoa(monitor), func() (any, error) {
		return s.capture(monitor)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Frame), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, ctx.Err())
	}
}

// Reprobe re-runs display-scale detection for the monitor.
func (s *Source) Reprobe(monitor int) canvas.Scale {
	return s.state.Reprobe(func() float64 { return s.grabber.ScaleFactor(monitor) })
}

func (s *Source) capture(monitor int) (*Frame, error) {
	raw, err := s.grab(monitor)
	if err != nil {
		return nil, err
	}
	b := raw.Bounds()
	s.state.Observe(b.Dx(), b.Dy(), func() float64 { return s.grabber.ScaleFactor(monitor) })
	return &Frame{
		Image:          ToCanvas(raw),
		PhysicalWidth:  b.Dx(),
		PhysicalHeight: b.Dy(),
		CapturedAt:     s.now(),
	}, nil
}

func (s *Source) grab(monitor int) (*image.RGBA, error) {
	type result struct {
		img *image.RGBA
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := s.grabber.Grab(monitor)
		ch <- result{img, err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, r.err)
		}
		if r.img == nil || r.img.Bounds().Empty() {
			return nil, fmt.Errorf("%w: empty frame", ErrCaptureUnavailable)
		}
		return r.img, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: capture exceeded %s", ErrCaptureUnavailable, s.timeout)
	}
}

// ToCanvas hard-resizes img to the canvas resolution. The aspect ratio is
// not preserved.
func ToCanvas(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	b := img.Bounds()
	if b.Dx() == canvas.Width && b.Dy() == canvas.Height {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
		return dst
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
