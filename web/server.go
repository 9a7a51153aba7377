// Package web is the transport delivering pipeline events to observers.  It
// serves the event envelope over WebSocket and Server-Sent Events, the
// annotated frames as an MJPEG stream, and a small JSON API for the game
// state and reward history.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/swdee/go-smilecam/ledger"
	"github.com/swdee/go-smilecam/pipeline"
)

// Game is the view of the frame pipeline the transport needs
type Game interface {
	Snapshot() *pipeline.Snapshot
	Stats() pipeline.Stats
	Reset()
}

// History is the reward history store, it is optional
type History interface {
	RecentRewards(ctx context.Context, limit int) ([]ledger.Reward, error)
	Leaderboard(ctx context.Context, limit int) ([]ledger.Standing, error)
}

// Server is the HTTP server for observers
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	hub        *Hub
	game       Game
	history    History
	log        *zap.Logger
	upgrader   websocket.Upgrader
	// writeWait is the time allowed to write one message to a WebSocket
	writeWait time.Duration
}

// NewServer returns a server listening on addr.  history may be nil when no
// reward ledger is configured.
func NewServer(addr string, hub *Hub, game Game, history History, log *zap.Logger) *Server {

	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	s := &Server{
		router:  r,
		hub:     hub,
		game:    game,
		history: history,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// observers are served from any origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		writeWait: 10 * time.Second,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chiMiddleware.Recoverer)

	s.setupRoutes()

	// no write timeout as streams stay open for the life of the client
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {

	s.router.Get("/healthz", s.handleHealth)

	// observer streams
	s.router.Get("/ws", s.handleWebSocket)
	s.router.Get("/events", s.handleEvents)
	s.router.Get("/stream", s.handleStream)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/points", s.handlePoints)
		r.Get("/stats", s.handleStats)
		r.Post("/reset", s.handleReset)
		r.Get("/rewards", s.handleRewards)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {

	s.log.Info("starting web server", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}

	return nil
}

// Shutdown gracefully shuts down the server.  Open streams end when the hub
// stops and closes their subscriptions.
func (s *Server) Shutdown(ctx context.Context) error {

	s.log.Info("shutting down web server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutting down server")
	}

	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// requestLogger logs each request once it completes
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			)
		})
	}
}
