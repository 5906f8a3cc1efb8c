// Package rtc carries actions and frames over WebRTC data channels. A peer
// opens an "actions" channel, which behaves like a control WebSocket, and
// optionally a "frames" channel, which receives the periodic frame stream.
package rtc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"deskrelay/internal/clients"
	"deskrelay/internal/dispatch"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

const (
	LabelActions = "actions"
	LabelFrames  = "frames"

	maxOfferSize = 1 << 20
)

type Config struct {
	STUNURLs []string
}

// Handler answers offers on POST /rtc/offer and tears sessions down on
// DELETE /rtc/{id}.
type Handler struct {
	ctx        context.Context
	cfg        Config
	dispatcher *dispatch.Dispatcher
	clients    *clients.Manager
	log        *zap.Logger

	mux      *http.ServeMux
	mu       sync.Mutex
	sessions map[string]*peer
}

func NewHandler(ctx context.Context, cfg Config, d *dispatch.Dispatcher, mgr *clients.Manager, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		ctx:        ctx,
		cfg:        cfg,
		dispatcher: d,
		clients:    mgr,
		log:        log,
		mux:        http.NewServeMux(),
		sessions:   make(map[string]*peer),
	}
	h.mux.HandleFunc("POST /rtc/offer", h.handleOffer)
	h.mux.HandleFunc("DELETE /rtc/{id}", h.handleDelete)
	return h
}

// ServeHTTP serves everything under /rtc/.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Answer is the reply to an offer.
type Answer struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func (h *Handler) handleOffer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxOfferSize))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	offer, err := parseOffer(r.Header.Get("Content-Type"), body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := h.newPeer(uuid.NewString())
	if err != nil {
		h.log.Error("rtc session create failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	answer, err := sess.answer(offer)
	if err != nil {
		sess.close()
		h.log.Warn("rtc negotiation failed", zap.String("session", sess.id), zap.Error(err))
		http.Error(w, "bad SDP offer", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
	h.log.Info("rtc session started", zap.String("session", sess.id))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/rtc/"+sess.id)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(Answer{ID: sess.id, Type: answer.Type.String(), SDP: answer.SDP})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mu.Lock()
	sess, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	sess.close()
	w.WriteHeader(http.StatusOK)
}

// Close tears every session down.
func (h *Handler) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*peer)
	h.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

// Sessions is the number of live sessions.
func (h *Handler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) forget(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// parseOffer accepts either a JSON session description or a raw SDP body.
func parseOffer(contentType string, body []byte) (webrtc.SessionDescription, error) {
	if strings.HasPrefix(contentType, "application/sdp") {
		return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: string(body)}, nil
	}
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(body, &offer); err != nil {
		return offer, fmt.Errorf("decode offer: %w", err)
	}
	if offer.Type != webrtc.SDPTypeOffer {
		return offer, fmt.Errorf("expected an offer, got %s", offer.Type)
	}
	return offer, nil
}
