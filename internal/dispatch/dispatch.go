// Package dispatch routes decoded actions to their handlers. Every transport
// (WebSocket, WebRTC data channel, MCP) feeds the same Dispatcher.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deskrelay/internal/canvas"
	"deskrelay/internal/capture"
	"deskrelay/internal/input"
	"deskrelay/internal/session"
	"deskrelay/internal/types"

	"go.uber.org/zap"
)

// Sender delivers messages back to the connection that issued an action.
type Sender interface {
	Send(msg types.Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg types.Message) error

func (f SenderFunc) Send(msg types.Message) error { return f(msg) }

// Broadcaster delivers notifications to every connection.
type Broadcaster interface {
	Broadcast(msg types.Message) (int, error)
}

// FrameSource is the capture side the dispatcher needs.
type FrameSource interface {
	Capture(ctx context.Context, monitor int) (*capture.Frame, error)
	Reprobe(monitor int) canvas.Scale
}

// Handler runs one action. It may send intermediate messages through out
// and returns the final message for the action. A returned error becomes a
// failed response carrying the matching error code.
type Handler func(ctx context.Context, req types.Request, out Sender) (types.Message, error)

type Options struct {
	Monitor    int
	Quality    int
	ChunkDelay time.Duration
	// EncodeTimeout bounds encoding one image; zero uses capture.DefaultTimeout.
	EncodeTimeout time.Duration
}

type Deps struct {
	State    *session.State
	Source   FrameSource
	Encoder  capture.Encoder
	Injector *input.Injector
	Notify   Broadcaster
}

type Dispatcher struct {
	Deps
	opts     Options
	log      *zap.Logger
	handlers map[string]Handler
}

// New builds the dispatcher and its handler registry. A registry that is
// missing a known action, or registers one twice, is an error.
func New(deps Deps, opts Options, log *zap.Logger) (*Dispatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Encoder == nil {
		deps.Encoder = capture.JPEGEncoder{}
	}
	d := &Dispatcher{Deps: deps, opts: opts, log: log}
	reg, err := buildRegistry(d.entries())
	if err != nil {
		return nil, err
	}
	if err := validate(reg, types.Actions); err != nil {
		return nil, err
	}
	d.handlers = reg
	return d, nil
}

// Dispatch decodes one raw envelope and runs it. Unparseable envelopes and
// unknown actions are logged and produce no message. The returned error is
// only ever a failure to write to out.
func (d *Dispatcher) Dispatch(ctx context.Context, out Sender, raw []byte) error {
	var req types.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.log.Warn("invalid action envelope", zap.Error(err), zap.Int("bytes", len(raw)))
		return nil
	}
	return d.Invoke(ctx, out, req)
}

// Invoke runs an already-decoded request.
func (d *Dispatcher) Invoke(ctx context.Context, out Sender, req types.Request) error {
	h, ok := d.handlers[req.Action]
	if !ok {
		d.log.Warn("unknown action", zap.String("action", req.Action), zap.String("id", req.ID))
		return nil
	}

	start := time.Now()
	msg, err := h(ctx, req, out)
	if err != nil {
		d.log.Error("action failed",
			zap.String("action", req.Action),
			zap.String("id", req.ID),
			zap.Error(err))
		msg = failure(req, err)
	} else {
		d.log.Debug("action done",
			zap.String("action", req.Action),
			zap.String("id", req.ID),
			zap.Duration("took", time.Since(start)))
	}
	if msg == nil {
		return nil
	}
	if err := out.Send(msg); err != nil {
		return fmt.Errorf("send %s reply: %w", req.Action, err)
	}
	return nil
}

// Known reports whether action has a handler.
func (d *Dispatcher) Known(action string) bool {
	_, ok := d.handlers[action]
	return ok
}

// Code maps an error to the code carried in a failed response.
func Code(err error) string {
	switch {
	case errors.Is(err, capture.ErrCaptureUnavailable):
		return types.CodeCaptureUnavailable
	case errors.Is(err, capture.ErrNoFrameAvailable):
		return types.CodeNoFrameAvailable
	case errors.Is(err, input.ErrInjectionFailure):
		return types.CodeInjectionFailure
	case errors.Is(err, ErrInvalidRequest):
		return types.CodeInvalidAction
	default:
		return types.CodeInternal
	}
}

func reply(req types.Request) types.Response {
	return types.Response{Type: types.TypeResponse, ID: req.ID, Action: req.Action, Success: true}
}

func failure(req types.Request, err error) types.Response {
	return types.Response{
		Type:    types.TypeResponse,
		ID:      req.ID,
		Action:  req.Action,
		Success: false,
		Error:   err.Error(),
		Code:    Code(err),
	}
}
