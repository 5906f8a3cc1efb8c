package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"deskrelay/internal/clients"
	"deskrelay/internal/dispatch"
	"deskrelay/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v4/host"
	"go.uber.org/zap"
)

//go:embed index.html
var indexHTML []byte

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 << 10,
	// Local tool; the page may be served from anywhere on the LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	ctx        context.Context
	dispatcher *dispatch.Dispatcher
	clients    *clients.Manager
	state      *session.State
	log        *zap.Logger

	// Extra handlers mounted on the mux, e.g. /rtc/offer and /mcp.
	mounts map[string]http.Handler
}

// New returns a server whose connections live until ctx ends.
func New(ctx context.Context, d *dispatch.Dispatcher, mgr *clients.Manager, state *session.State, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ctx:        ctx,
		dispatcher: d,
		clients:    mgr,
		state:      state,
		log:        log,
		mounts:     make(map[string]http.Handler),
	}
}

// Mount adds h under pattern. Call before Handler.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mounts[pattern] = h
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.serveStatus)
	mux.HandleFunc("/ws", s.HandleWS)
	for pattern, h := range s.mounts {
		mux.Handle(pattern, h)
	}
	return mux
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

type status struct {
	Hostname    string  `json:"hostname,omitempty"`
	OS          string  `json:"os,omitempty"`
	Platform    string  `json:"platform,omitempty"`
	Uptime      uint64  `json:"uptime,omitempty"`
	Clients     int     `json:"clients"`
	Connections int     `json:"connections"`
	Physical    [2]int  `json:"physical"`
	Scale       float64 `json:"scale"`
	Probed      bool    `json:"probed"`
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	st := status{}
	if info, err := host.InfoWithContext(r.Context()); err == nil {
		st.Hostname = info.Hostname
		st.OS = info.OS
		st.Platform = info.Platform
		st.Uptime = info.Uptime
	} else {
		s.log.Debug("host info unavailable", zap.Error(err))
	}
	st.Clients, st.Connections = s.clients.Counts()
	sc := s.state.Scale.Snapshot()
	st.Physical = [2]int{sc.PhysicalWidth, sc.PhysicalHeight}
	st.Scale = sc.DisplayScale
	st.Probed = sc.Probed

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.log.Warn("write status", zap.Error(err))
	}
}

// HandleWS upgrades a connection and registers it for its role. Control
// connections carry actions; stream connections receive frames.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	role := clients.ParseRole(r.URL.Query().Get("role"))
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newWSConn(ws, uuid.NewString(), clientID, role, s.log)
	if old := s.clients.Add(clientID, role, conn); old != nil {
		s.log.Info("replacing control connection", zap.String("client", clientID), zap.String("old", old.ID()))
		_ = old.Close()
	}
	s.log.Info("websocket connected",
		zap.String("conn", conn.id),
		zap.String("client", clientID),
		zap.String("role", string(role)))

	go conn.writePump()
	go s.serveConn(conn)
}

func (s *Server) serveConn(conn *wsConn) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer func() {
		cancel()
		s.clients.Remove(conn.clientID, conn)
		_ = conn.Close()
		s.log.Info("websocket disconnected", zap.String("conn", conn.id), zap.String("client", conn.clientID))
	}()

	conn.readPump(ctx, func(ctx context.Context, msg []byte) {
		if conn.role == clients.RoleStream {
			return
		}
		start := time.Now()
		if err := s.dispatcher.Dispatch(ctx, conn, msg); err != nil {
			s.log.Warn("reply not delivered", zap.String("conn", conn.id), zap.Error(err))
		}
		s.log.Debug("message handled", zap.String("conn", conn.id), zap.Duration("took", time.Since(start)))
	})
}
