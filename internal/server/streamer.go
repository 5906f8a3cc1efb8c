package server

import (
	"context"
	"time"

	"deskrelay/internal/canvas"
	"deskrelay/internal/capture"
	"deskrelay/internal/clients"
	"deskrelay/internal/dispatch"
	"deskrelay/internal/types"

	"go.uber.org/zap"
)

// frameSender is implemented by connections that can drop a frame instead
// of waiting for a slow reader.
type frameSender interface {
	TrySend(types.Message) error
}

// PointerSource reports the pointer in canvas coordinates.
type PointerSource interface {
	Position() (int, int)
}

type StreamConfig struct {
	FPS           int
	Quality       int
	Monitor       int
	EncodeTimeout time.Duration
}

// Streamer pushes canvas frames to stream connections at a fixed rate. Each
// client's frames rotate across its stream connections. Frames sent here are
// not stored in the frame cache; annotate only ever sees frames a controller
// asked for.
type Streamer struct {
	cfg     StreamConfig
	source  dispatch.FrameSource
	encoder capture.Encoder
	pointer PointerSource
	clients *clients.Manager
	log     *zap.Logger
}

func NewStreamer(cfg StreamConfig, source dispatch.FrameSource, pointer PointerSource, mgr *clients.Manager, log *zap.Logger) *Streamer {
	if cfg.FPS <= 0 {
		cfg.FPS = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Streamer{
		cfg:     cfg,
		source:  source,
		encoder: capture.JPEGEncoder{},
		pointer: pointer,
		clients: mgr,
		log:     log,
	}
}

// Run streams until ctx ends.
func (s *Streamer) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !s.clients.HasStreams() {
				continue
			}
			if err := s.tick(ctx); err != nil {
				s.log.Debug("stream frame skipped", zap.Error(err))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Streamer) tick(ctx context.Context) error {
	update, err := s.frame(ctx)
	if err != nil {
		return err
	}
	s.clients.ForEachClient(func(id string) {
		conn := s.clients.NextTarget(id)
		if conn == nil {
			return
		}
		var err error
		if fs, ok := conn.(frameSender); ok {
			err = fs.TrySend(update)
		} else {
			err = conn.Send(update)
		}
		if err != nil {
			s.log.Debug("frame not delivered", zap.String("conn", conn.ID()), zap.Error(err))
		}
	})
	return nil
}

func (s *Streamer) frame(ctx context.Context) (types.ScreenUpdate, error) {
	f, err := s.source.Capture(ctx, s.cfg.Monitor)
	if err != nil {
		return types.ScreenUpdate{}, err
	}
	b64, err := capture.EncodeBase64Within(ctx, s.encoder, f.Image, s.cfg.Quality, s.cfg.EncodeTimeout)
	if err != nil {
		return types.ScreenUpdate{}, err
	}
	mx, my := s.pointer.Position()
	return types.ScreenUpdate{
		Type:   types.TypeFrame,
		Image:  b64,
		Width:  canvas.Width,
		Height: canvas.Height,
		MouseX: mx,
		MouseY: my,
	}, nil
}
