package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deskrelay/internal/canvas"
	"deskrelay/internal/capture"
	"deskrelay/internal/input"
	"deskrelay/internal/types"

	"go.uber.org/zap"
)

// ErrInvalidRequest marks a well-formed envelope whose fields cannot be
// acted on.
var ErrInvalidRequest = errors.New("invalid request")

func (d *Dispatcher) entries() []entry {
	return []entry{
		{types.ActionCaptureScreen, d.captureScreen},
		{types.ActionAnnotate, d.annotate},
		{types.ActionMovePointer, d.movePointer},
		{types.ActionClick, d.click(1)},
		{types.ActionDoubleClick, d.click(2)},
		{types.ActionTripleClick, d.click(3)},
		{types.ActionPressDown, d.pressDown},
		{types.ActionReleaseUp, d.releaseUp},
		{types.ActionDrag, d.drag},
		{types.ActionScroll, d.scroll},
		{types.ActionPressKey, d.pressKey},
		{types.ActionHoldKey, d.holdKey},
		{types.ActionReleaseKey, d.releaseKey},
		{types.ActionTypeText, d.typeText},
		{types.ActionGetSettings, d.getSettings},
		{types.ActionSetSettings, d.setSettings},
		{types.ActionGetInitialShortcut, d.getInitialShortcut},
		{types.ActionGetPointer, d.getPointer},
		{types.ActionReprobeScale, d.reprobeScale},
		{types.ActionScriptStep, d.scriptStep},
		{types.ActionEcho, d.echo},
	}
}

func (d *Dispatcher) monitor(req types.Request) int {
	if req.Monitor > 0 {
		return req.Monitor
	}
	return d.opts.Monitor
}

func (d *Dispatcher) quality(req types.Request) int {
	if req.Quality > 0 {
		return req.Quality
	}
	return d.opts.Quality
}

func (d *Dispatcher) imageResponse(ctx context.Context, req types.Request, f *capture.Frame, annotate bool) (types.Message, error) {
	img := f.Image
	if annotate {
		img = capture.Annotate(img, req.X, req.Y, req.Label)
	}
	b64, err := capture.EncodeBase64Within(ctx, d.Encoder, img, d.quality(req), d.opts.EncodeTimeout)
	if err != nil {
		return nil, err
	}
	resp := reply(req)
	resp.Image = b64
	resp.Width = canvas.Width
	resp.Height = canvas.Height
	return resp, nil
}

func (d *Dispatcher) captureScreen(ctx context.Context, req types.Request, _ Sender) (types.Message, error) {
	f, err := d.Source.Capture(ctx, d.monitor(req))
	if err != nil {
		return nil, err
	}
	d.State.Frames.Store(f)
	return d.imageResponse(ctx, req, f, false)
}

func (d *Dispatcher) annotate(ctx context.Context, req types.Request, _ Sender) (types.Message, error) {
	f, err := d.State.Frames.Latest()
	if err != nil {
		return nil, err
	}
	return d.imageResponse(ctx, req, f, true)
}

func (d *Dispatcher) movePointer(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := d.Injector.MoveTo(req.X, req.Y); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) click(count int) Handler {
	return func(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
		if err := d.Injector.ClickAt(req.X, req.Y, input.ParseButton(req.Button), count); err != nil {
			return nil, err
		}
		return reply(req), nil
	}
}

func (d *Dispatcher) pressDown(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := d.Injector.PressAt(req.X, req.Y, input.ParseButton(req.Button)); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) releaseUp(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := d.Injector.ReleaseAt(req.X, req.Y, input.ParseButton(req.Button)); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) drag(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := d.Injector.Drag(req.X1, req.Y1, req.X2, req.Y2); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) scroll(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := d.Injector.ScrollAt(req.X, req.Y, req.Direction, req.Amount); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func requireKey(req types.Request) error {
	if req.Key == "" {
		return fmt.Errorf("%w: %s needs a key", ErrInvalidRequest, req.Action)
	}
	return nil
}

func (d *Dispatcher) pressKey(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := requireKey(req); err != nil {
		return nil, err
	}
	if err := d.Injector.TapKey(req.Key); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) holdKey(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := requireKey(req); err != nil {
		return nil, err
	}
	if err := d.Injector.HoldKey(req.Key); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) releaseKey(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := requireKey(req); err != nil {
		return nil, err
	}
	if err := d.Injector.ReleaseKey(req.Key); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) typeText(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	if err := d.Injector.TypeText(req.Text); err != nil {
		return nil, err
	}
	return reply(req), nil
}

func (d *Dispatcher) getSettings(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	resp := reply(req)
	resp.Settings = d.State.Settings.Snapshot()
	return resp, nil
}

func (d *Dispatcher) setSettings(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	u := d.State.Settings.Merge(req.Settings)
	if u.ShortcutChanged && d.Notify != nil {
		sent, err := d.Notify.Broadcast(types.ShortcutUpdate{Type: types.TypeUpdateShortcut, Shortcut: u.Shortcut})
		if err != nil {
			d.log.Warn("shortcut notification incomplete", zap.Int("sent", sent), zap.Error(err))
		}
	}
	resp := reply(req)
	resp.Settings = u.Settings
	return resp, nil
}

func (d *Dispatcher) getInitialShortcut(_ context.Context, _ types.Request, _ Sender) (types.Message, error) {
	return types.ShortcutUpdate{Type: types.TypeUpdateShortcut, Shortcut: d.State.Settings.Shortcut()}, nil
}

func (d *Dispatcher) getPointer(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	x, y := d.Injector.Position()
	resp := reply(req)
	resp.X, resp.Y = &x, &y
	return resp, nil
}

func (d *Dispatcher) reprobeScale(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	s := d.Source.Reprobe(d.monitor(req))
	resp := reply(req)
	resp.Scale = &s.DisplayScale
	resp.Width = s.PhysicalWidth
	resp.Height = s.PhysicalHeight
	return resp, nil
}

func (d *Dispatcher) scriptStep(ctx context.Context, req types.Request, out Sender) (types.Message, error) {
	chunks, turn := d.State.Script.Next()
	d.log.Debug("script turn", zap.Int("turn", turn), zap.Int("chunks", len(chunks)))
	end := types.StreamEnd{Type: types.TypeStreamEnd, ID: req.ID, Action: req.Action}
	if err := d.streamChunks(ctx, req, out, chunks); err != nil {
		d.log.Warn("script stream cut short",
			zap.String("id", req.ID),
			zap.Int("turn", turn),
			zap.Error(err))
		end.Error = err.Error()
		end.Code = Code(err)
	}
	return end, nil
}

// streamChunks sends chunks in order, pausing ChunkDelay between them.
func (d *Dispatcher) streamChunks(ctx context.Context, req types.Request, out Sender, chunks []string) error {
	for i, c := range chunks {
		if i > 0 && d.opts.ChunkDelay > 0 {
			select {
			case <-time.After(d.opts.ChunkDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := out.Send(types.Chunk{Type: types.TypeChunk, ID: req.ID, Action: req.Action, Content: c}); err != nil {
			return fmt.Errorf("send chunk: %w", err)
		}
	}
	return nil
}

func (d *Dispatcher) echo(_ context.Context, req types.Request, _ Sender) (types.Message, error) {
	resp := reply(req)
	resp.Message = strings.ToUpper(req.Message)
	return resp, nil
}
