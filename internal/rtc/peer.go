package rtc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"deskrelay/internal/clients"
	"deskrelay/internal/types"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

type peer struct {
	id     string
	pc     *webrtc.PeerConnection
	h      *Handler
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	mu     sync.Mutex
	conns  []*channelConn
	closed bool
}

func (h *Handler) newPeer(id string) (*peer, error) {
	cfg := webrtc.Configuration{}
	if len(h.cfg.STUNURLs) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: h.cfg.STUNURLs}}
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	ctx, cancel := context.WithCancel(h.ctx)
	s := &peer{
		id:     id,
		pc:     pc,
		h:      h,
		ctx:    ctx,
		cancel: cancel,
		log:    h.log.With(zap.String("session", id)),
	}

	pc.OnDataChannel(s.onDataChannel)
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.log.Debug("peer connection state", zap.String("state", state.String()))
		switch state {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateDisconnected,
			webrtc.PeerConnectionStateClosed:
			h.forget(s.id)
			go s.close()
		}
	})
	return s, nil
}

func (s *peer) answer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote: %w", err)
	}
	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
	return s.pc.LocalDescription(), nil
}

func (s *peer) onDataChannel(dc *webrtc.DataChannel) {
	var role clients.Role
	switch dc.Label() {
	case LabelActions:
		role = clients.RoleControl
	case LabelFrames:
		role = clients.RoleStream
	default:
		s.log.Debug("ignoring data channel", zap.String("label", dc.Label()))
		return
	}

	conn := &channelConn{id: s.id + "/" + dc.Label(), dc: dc}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	dc.OnOpen(func() {
		if old := s.h.clients.Add(s.id, role, conn); old != nil {
			_ = old.Close()
		}
		s.log.Info("data channel open", zap.String("label", dc.Label()))
	})
	dc.OnClose(func() {
		s.h.clients.Remove(s.id, conn)
	})
	if role != clients.RoleControl {
		return
	}
	// pion delivers messages for one channel sequentially, which keeps
	// actions in arrival order.
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if !msg.IsString {
			return
		}
		if err := s.h.dispatcher.Dispatch(s.ctx, conn, msg.Data); err != nil {
			s.log.Warn("reply not delivered", zap.Error(err))
		}
	})
}

func (s *peer) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := s.conns
	s.mu.Unlock()

	s.cancel()
	for _, c := range conns {
		s.h.clients.Remove(s.id, c)
	}
	if err := s.pc.Close(); err != nil {
		s.log.Debug("peer connection close", zap.Error(err))
	}
	s.log.Info("rtc session closed")
}

// channelConn adapts a data channel to clients.Conn.
type channelConn struct {
	id string
	dc *webrtc.DataChannel
	mu sync.Mutex
}

func (c *channelConn) ID() string { return c.id }

func (c *channelConn) Send(msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dc.ReadyState() != webrtc.DataChannelStateOpen {
		return fmt.Errorf("data channel %s is %s", c.id, c.dc.ReadyState())
	}
	return c.dc.SendText(string(data))
}

func (c *channelConn) Close() error {
	return c.dc.Close()
}
