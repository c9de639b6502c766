// Package server exposes builder sessions over HTTP. Each session is driven
// through a JSON operation endpoint and streams its change events to
// WebSocket clients.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/blockwright/internal/config"
	"github.com/conneroisu/blockwright/internal/export"
	"github.com/conneroisu/blockwright/internal/logging"
	"github.com/conneroisu/blockwright/internal/registry"
	"github.com/conneroisu/blockwright/internal/session"
)

// Server hosts builder sessions for one component registry.
type Server struct {
	config  *config.Config
	logger  logging.Logger
	aliases *export.AliasTable

	regMutex sync.RWMutex
	registry *registry.Registry

	sessionsMutex sync.RWMutex
	sessions      map[string]*entry
	nextSession   atomic.Int64

	serverMutex sync.Mutex
	httpServer  *http.Server
}

// entry pairs a session with the lock serializing access to it and the hub
// fanning its events out to WebSocket clients.
type entry struct {
	id      string
	seq     int64
	mu      sync.Mutex
	session *session.Session
	hub     *hub
	created time.Time
}

// New creates a server. A nil logger discards output.
func New(cfg *config.Config, reg *registry.Registry, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	aliases := make([]export.Alias, 0, len(cfg.Export.Aliases))
	for _, a := range cfg.Export.Aliases {
		aliases = append(aliases, export.Alias{Prefix: a.Prefix, Alias: a.Alias})
	}

	return &Server{
		config:   cfg,
		logger:   logger.WithComponent("server"),
		aliases:  export.NewAliasTable(aliases, cfg.Export.DefaultAlias),
		registry: reg,
		sessions: make(map[string]*entry),
	}
}

// Registry returns the registry new sessions are created from.
func (s *Server) Registry() *registry.Registry {
	s.regMutex.RLock()
	defer s.regMutex.RUnlock()

	return s.registry
}

// SetRegistry swaps the registry used by sessions created from now on.
// Existing sessions keep the registry they were created with.
func (s *Server) SetRegistry(reg *registry.Registry) {
	s.regMutex.Lock()
	s.registry = reg
	s.regMutex.Unlock()

	s.logger.Info(context.Background(), "registry replaced",
		"components", len(reg.All()))
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/registry", s.handleRegistry)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleGetSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/insertable", s.withSession(s.handleInsertable))
	mux.HandleFunc("POST /api/sessions/{id}/ops", s.withSession(s.handleOperation))
	mux.HandleFunc("POST /api/sessions/{id}/export", s.withSession(s.handleExport))
	mux.HandleFunc("GET /api/sessions/{id}/ws", s.withSession(s.handleWebSocket))
	mux.HandleFunc("GET /sessions/{id}", s.withSession(s.handleOutline))
	mux.HandleFunc("GET /{$}", s.handleIndex)

	return s.originMiddleware(mux)
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.serverMutex.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}

		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes every WebSocket client and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessionsMutex.Lock()
	for _, e := range s.sessions {
		e.hub.close()
	}
	s.sessionsMutex.Unlock()

	s.serverMutex.Lock()
	srv := s.httpServer
	s.serverMutex.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info(ctx, "shutting down server")

	return srv.Shutdown(ctx)
}

// createSession starts a session on the current registry and registers it.
func (s *Server) createSession(ctx context.Context) (*entry, error) {
	seq := s.nextSession.Add(1)
	id := "s" + strconv.FormatInt(seq, 10)

	logger := s.logger.With("session", id)
	sess, err := session.New(s.Registry(),
		session.WithLogger(logger),
		session.WithDefaultExposed(s.config.Builder.DefaultExposed),
		session.WithGenerator(export.NewGenerator(s.aliases, logger)),
	)
	if err != nil {
		return nil, err
	}

	e := &entry{
		id:      id,
		seq:     seq,
		session: sess,
		hub:     newHub(logger),
		created: time.Now().UTC(),
	}
	sess.Subscribe(session.ObserverFunc(e.hub.publish))

	s.sessionsMutex.Lock()
	s.sessions[id] = e
	s.sessionsMutex.Unlock()

	s.logger.Info(ctx, "session created", "session", id)

	return e, nil
}

func (s *Server) lookup(id string) (*entry, bool) {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()

	e, ok := s.sessions[id]

	return e, ok
}

func (s *Server) remove(id string) bool {
	s.sessionsMutex.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.sessionsMutex.Unlock()

	if ok {
		e.hub.close()
	}

	return ok
}

// entries returns every live session ordered by creation.
func (s *Server) entries() []*entry {
	s.sessionsMutex.RLock()
	out := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e)
	}
	s.sessionsMutex.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})

	return out
}
