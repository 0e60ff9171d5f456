// Package api serves the read-only HTTP surface: node status, channel and
// poll listings, the event journal, Prometheus metrics, and a WebSocket
// feed of applied instructions.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chainchat/chainchat/internal/config"
	"github.com/chainchat/chainchat/internal/host"
	"github.com/chainchat/chainchat/internal/state"
	"github.com/chainchat/chainchat/internal/store"
)

// Server provides the HTTP API and WebSocket interface.
type Server struct {
	logger   *zap.Logger
	config   config.APIConfig
	hostNode *host.Host
	journal  *store.Store
	gatherer prometheus.Gatherer

	router   *mux.Router
	server   *http.Server
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	started  time.Time

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
}

// Response is the envelope every JSON endpoint uses.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Time    time.Time   `json:"time"`
}

// NewServer builds the API server. journal may be nil when event
// persistence is disabled.
func NewServer(logger *zap.Logger, cfg config.APIConfig, h *host.Host, journal *store.Store, gatherer prometheus.Gatherer) (*Server, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("API server disabled")
	}

	s := &Server{
		logger:   logger,
		config:   cfg,
		hostNode: h,
		journal:  journal,
		gatherer: gatherer,
		started:  time.Now(),
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return false
				}
				for _, allowed := range cfg.AllowOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. It returns immediately; errors after startup are
// logged.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", zap.String("listen_addr", s.config.ListenAddr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the server and closes all WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.clientsMu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.Use(s.corsMiddleware)
	api.Use(s.loggingMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/channels", s.handleChannels).Methods("GET")
	api.HandleFunc("/channels/{id:[0-9]+}/polls", s.handlePolls).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")
	api.HandleFunc("/ws", s.handleWebSocket)
}

// Middleware

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, allowed := range s.config.AllowOrigins {
				if allowed == "*" || allowed == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("API request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusView struct {
	Sequence uint64 `json:"sequence"`
	Accounts int    `json:"accounts"`
	Records  int    `json:"records"`
	UptimeS  int64  `json:"uptime_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusView{
		Sequence: s.hostNode.Sequence(),
		Accounts: s.hostNode.Ledger().Accounts(),
		Records:  s.hostNode.Ledger().Records(),
		UptimeS:  int64(time.Since(s.started).Seconds()),
	})
}

type channelView struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        uint64 `json:"cost"`
	Creator     string `json:"creator"`
	IsPrivate   bool   `json:"is_private"`
	MemberCount uint64 `json:"member_count"`
	PollCount   uint64 `json:"poll_count"`
	CreatedAt   int64  `json:"created_at"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels := s.hostNode.Channels()
	views := make([]channelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, channelView{
			ID:          ch.ID,
			Name:        ch.Name,
			Description: ch.Description,
			Cost:        ch.Cost,
			Creator:     ch.Creator.String(),
			IsPrivate:   ch.IsPrivate,
			MemberCount: ch.MemberCount,
			PollCount:   ch.PollCount,
			CreatedAt:   ch.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

type pollView struct {
	ChannelID     uint64   `json:"channel_id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Tally         []uint64 `json:"tally"`
	TotalVotes    uint64   `json:"total_votes"`
	RequiredVotes uint64   `json:"required_votes"`
	EndTime       int64    `json:"end_time"`
	Ended         bool     `json:"ended"`
	Delegated     bool     `json:"delegated"`
	Outcome       string   `json:"outcome"`
}

func (s *Server) handlePolls(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid channel id")
		return
	}
	polls := s.hostNode.Polls(id)
	views := make([]pollView, 0, len(polls))
	for _, p := range polls {
		views = append(views, pollView{
			ChannelID:     p.ChannelID,
			Type:          p.Type.String(),
			Question:      p.Question,
			Options:       p.Options,
			Tally:         p.Tally,
			TotalVotes:    p.TotalVotes,
			RequiredVotes: p.RequiredVotes,
			EndTime:       p.EndTime,
			Ended:         p.Ended,
			Delegated:     p.Delegated,
			Outcome:       outcomeString(p.Outcome),
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func outcomeString(o state.PollOutcome) string {
	switch o {
	case state.OutcomePassed:
		return "passed"
	case state.OutcomeFailed:
		return "failed"
	case state.OutcomeNoAction:
		return "no_action"
	default:
		return "none"
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusServiceUnavailable, "event journal disabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	entries, err := s.journal.RecentEvents(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read event journal", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// feedMessage is one WebSocket frame: an applied instruction with its
// events.
type feedMessage struct {
	Sequence uint64      `json:"sequence"`
	Kind     string      `json:"kind"`
	Caller   string      `json:"caller"`
	Time     int64       `json:"time"`
	Events   []feedEvent `json:"events"`
}

type feedEvent struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()

	feed, cancel := s.hostNode.Subscribe(64)
	go func() {
		defer func() {
			cancel()
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
			conn.Close()
		}()
		for applied := range feed {
			msg := feedMessage{
				Sequence: applied.Sequence,
				Kind:     applied.Kind,
				Caller:   applied.Caller.String(),
				Time:     applied.Now,
				Events:   make([]feedEvent, 0, len(applied.Events)),
			}
			for _, e := range applied.Events {
				msg.Events = append(msg.Events, feedEvent{Name: e.Name(), Payload: e})
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	// Reader loop: clients never send frames, but reading surfaces
	// disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: true, Data: data, Time: time.Now()})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: false, Error: message, Time: time.Now()})
}
