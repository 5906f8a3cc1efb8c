package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"deskrelay/internal/canvas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrabber struct {
	w, h  int
	scale float64
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (g *fakeGrabber) Grab(int) (*image.RGBA, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return nil, g.err
	}
	img := image.NewRGBA(image.Rect(0, 0, g.w, g.h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 20, 40, 60, 255
	}
	return img, nil
}

func (g *fakeGrabber) ScaleFactor(int) float64 { return g.scale }

func TestCaptureNormalizesToCanvas(t *testing.T) {
	state := canvas.NewScaleState()
	src := NewSource(&fakeGrabber{w: 2880, h: 1800, scale: 2}, state, time.Second)

	f, err := src.Capture(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, canvas.Width, f.Image.Bounds().Dx())
	assert.Equal(t, canvas.Height, f.Image.Bounds().Dy())
	assert.Equal(t, 2880, f.PhysicalWidth)
	assert.Equal(t, 1800, f.PhysicalHeight)
	assert.False(t, f.CapturedAt.IsZero())

	s := state.Snapshot()
	assert.Equal(t, 2880, s.PhysicalWidth)
	assert.Equal(t, 1800, s.PhysicalHeight)
	assert.Equal(t, 2.0, s.DisplayScale)
}

func TestCaptureTracksResolutionChange(t *testing.T) {
	state := canvas.NewScaleState()
	g := &fakeGrabber{w: 1920, h: 1080, scale: 1}
	src := NewSource(g, state, time.Second)

	_, err := src.Capture(context.Background(), 0)
	require.NoError(t, err)
	g.w, g.h, g.scale = 2560, 1440, 2
	_, err = src.Capture(context.Background(), 0)
	require.NoError(t, err)

	s := state.Snapshot()
	assert.Equal(t, 2560, s.PhysicalWidth)
	assert.Equal(t, 1.0, s.DisplayScale, "scale is only probed once")

	assert.Equal(t, 2.0, src.Reprobe(0).DisplayScale)
}

func TestCaptureFailure(t *testing.T) {
	src := NewSource(&fakeGrabber{err: errors.New("boom")}, canvas.NewScaleState(), time.Second)
	_, err := src.Capture(context.Background(), 0)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestCaptureTimeout(t *testing.T) {
	src := NewSource(&fakeGrabber{w: 10, h: 10, delay: 200 * time.Millisecond}, canvas.NewScaleState(), 20*time.Millisecond)
	_, err := src.Capture(context.Background(), 0)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestCaptureSharesConcurrentCalls(t *testing.T) {
	g := &fakeGrabber{w: 1280, h: 720, scale: 1, delay: 50 * time.Millisecond}
	src := NewSource(g, canvas.NewScaleState(), time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := src.Capture(context.Background(), 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, g.calls.Load(), int32(8))
}

func TestCacheLatest(t *testing.T) {
	c := NewCache()
	_, err := c.Latest()
	assert.ErrorIs(t, err, ErrNoFrameAvailable)

	f1 := &Frame{Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	f2 := &Frame{Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	c.Store(f1)
	c.Store(f2)
	got, err := c.Latest()
	require.NoError(t, err)
	assert.Same(t, f2, got)
}

func TestJPEGEncoder(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			small.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 7), B: 90, A: 255})
		}
	}
	img := ToCanvas(small)
	enc := JPEGEncoder{}

	a, err := enc.Encode(img, 80)
	require.NoError(t, err)
	b, err := enc.Encode(img, 80)
	require.NoError(t, err)
	assert.Equal(t, a, b, "encoding is deterministic")

	decoded, err := jpeg.Decode(bytes.NewReader(a))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, canvas.Width, canvas.Height), decoded.Bounds())

	def, err := enc.Encode(img, 0)
	require.NoError(t, err)
	assert.Equal(t, a, def, "out of range quality uses the default")
}

type slowEncoder struct{ delay time.Duration }

func (e slowEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	time.Sleep(e.delay)
	return JPEGEncoder{}.Encode(img, quality)
}

func TestEncodeBase64Within(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))

	b64, err := EncodeBase64Within(context.Background(), JPEGEncoder{}, img, 80, time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, b64)

	_, err = EncodeBase64Within(context.Background(), slowEncoder{delay: 200 * time.Millisecond}, img, 80, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = EncodeBase64Within(ctx, slowEncoder{delay: 200 * time.Millisecond}, img, 80, time.Second)
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnnotateOnlyTouchesMarkerRegion(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 10, 120, 200, 255
	}
	orig := append([]uint8(nil), src.Pix...)

	const x, y = 400, 300
	out := Annotate(src, x, y, "Left Click")

	assert.Equal(t, orig, src.Pix, "source frame is not modified")
	assert.NotEqual(t, src.At(x, y), out.At(x, y), "dot drawn at the point")

	const near = 200
	for py := 0; py < canvas.Height; py++ {
		for px := 0; px < canvas.Width; px++ {
			if abs(px-x) <= near && abs(py-y) <= near {
				continue
			}
			if src.RGBAAt(px, py) != out.RGBAAt(px, py) {
				t.Fatalf("pixel (%d,%d) changed far from marker", px, py)
			}
		}
	}
}

func TestAnnotateNearEdge(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	assert.NotPanics(t, func() { Annotate(src, 0, 0, "x") })
	assert.NotPanics(t, func() { Annotate(src, canvas.Width+50, -20, "") })
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
