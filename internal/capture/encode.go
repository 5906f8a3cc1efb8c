package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// DefaultQuality is used when a request does not name a valid quality.
const DefaultQuality = 80

// Encoder compresses a frame into a transportable byte stream.
type Encoder interface {
	Encode(img image.Image, quality int) ([]byte, error)
}

// JPEGEncoder encodes frames as baseline JPEG. Output depends only on the
// pixels and the quality.
type JPEGEncoder struct{}

// Encode encodes img. A quality outside 1..100 uses DefaultQuality.
func (JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	q := quality
	if q <= 0 || q > 100 {
		q = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeBase64 encodes img and returns it as standard base64 for text-only
// channels.
func EncodeBase64(enc Encoder, img image.Image, quality int) (string, error) {
	b, err := enc.Encode(img, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// EncodeBase64Within is EncodeBase64 bounded by timeout and ctx. Running out
// of time is reported as ErrCaptureUnavailable.
func EncodeBase64Within(ctx context.Context, enc Encoder, img image.Image, quality int, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	type result struct {
		b64 string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		b64, err := EncodeBase64(enc, img, quality)
		ch <- result{b64, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.b64, r.err
	case <-timer.C:
		return "", fmt.Errorf("%w: encode exceeded %s", ErrCaptureUnavailable, timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrCaptureUnavailable, ctx.Err())
	}
}
