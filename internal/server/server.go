// Package server exposes the cookie cache over HTTP: domain listings,
// deletion requests, and a websocket stream of refresh events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/artpar/cookiesweep/internal/cache"
	"github.com/artpar/cookiesweep/internal/cookies"
)

// Cache is the part of cache.Manager the API serves.
type Cache interface {
	Domains(filter string) []string
	Cookies(domain string) []*cookies.Cookie
	CookieCount(domain string) int
	IsProtected(domain string) bool
	Stats() cache.Stats
	DeleteDomain(ctx context.Context, domain string) (cache.Result, error)
	DeleteFiltered(ctx context.Context, filter string) (cache.Result, error)
	DeleteAllExceptProtected(ctx context.Context) (cache.Result, error)
}

const writeWait = 10 * time.Second

// Server serves the cookie cache API.
type Server struct {
	cache    Cache
	config   Config
	logger   *slog.Logger
	hub      *hub
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// New creates a server for c. Register Refresh as the cache's refresh callback.
func New(c Cache, opts ...ConfigOption) *Server {
	cfg := NewConfig(opts...)

	s := &Server{
		cache:  c,
		config: cfg,
		logger: cfg.Logger,
		hub:    newHub(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /api/domains", s.handleDomains)
	s.mux.HandleFunc("GET /api/domains/{domain}", s.handleDomain)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("POST /api/delete", s.handleDelete)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)

	return s
}

// Handler returns the API handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Refresh pushes the current stats to every event subscriber.
func (s *Server) Refresh() {
	s.hub.publish(Event{Type: "refresh", Stats: s.cache.Stats()})
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("api server listening", "addr", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	return nil
}

// Stop shuts the server down and closes every event stream.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		_ = s.httpServer.Close()
	}

	s.running = false
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ListenAddr returns the bound address, which differs from the configured
// one when listening on port 0.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddr
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.config.AllowedOrigins, r.Header.Get("Origin"))
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	names := s.cache.Domains(filter)

	resp := DomainsResponse{
		Filter:  filter,
		Domains: make([]DomainEntry, 0, len(names)),
		Total:   s.cache.Stats().Domains,
	}
	for _, d := range names {
		resp.Domains = append(resp.Domains, DomainEntry{
			Domain:    d,
			Site:      cookies.Site(d),
			Count:     s.cache.CookieCount(d),
			Protected: s.cache.IsProtected(d),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDomain(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")
	list := s.cache.Cookies(domain)
	if len(list) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "domain not cached"})
		return
	}

	views := make([]CookieView, 0, len(list))
	for _, c := range list {
		views = append(views, newCookieView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var (
		result cache.Result
		err    error
	)
	switch req.Scope {
	case ScopeDomain:
		if req.Domain == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "domain is required"})
			return
		}
		result, err = s.cache.DeleteDomain(r.Context(), req.Domain)
	case ScopeFiltered:
		result, err = s.cache.DeleteFiltered(r.Context(), req.Filter)
	case ScopeAll:
		result, err = s.cache.DeleteAllExceptProtected(r.Context())
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown scope %q", req.Scope)})
		return
	}

	if err != nil {
		s.logger.Warn("some cookies could not be removed", "scope", req.Scope, "failed", result.Failed, "error", err)
	}
	writeJSON(w, http.StatusAccepted, DeleteResponse{Requested: result.Requested, Failed: result.Failed})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := s.hub.subscribe()
	defer s.hub.unsubscribe(events)

	// The client never sends anything; reading detects when it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !s.writeEvent(conn, Event{Type: "hello", Stats: s.cache.Stats()}) {
		return
	}

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
					time.Now().Add(writeWait))
				return
			}
			if !s.writeEvent(conn, ev) {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, ev Event) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		s.logger.Debug("event stream closed", "error", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
