// Package server is a reference implementation of the chats API backed by
// the SQLite session store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/guilhermegouw/chatkeeper/internal/debug"
)

const component = "server"

// Options configures a Server.
type Options struct {
	Addr string
	// PublicURL prefixes share links. Defaults to the request host.
	PublicURL      string
	AllowedOrigins []string
	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// Server serves the chats API.
type Server struct {
	opts    Options
	store   Store
	metrics *Metrics
	router  chi.Router
}

// New creates a Server over st.
func New(st Store, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		opts:    opts,
		store:   st,
		metrics: NewMetrics(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	h := &chatsHandler{
		store:     s.store,
		metrics:   s.metrics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		publicURL: s.opts.PublicURL,
		now:       time.Now,
	}

	// {key} is an owner token on list routes and a session id elsewhere.
	r.Route("/chats", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/export/{key}", h.export)
		r.Post("/export/{key}", h.export)
		r.Delete("/deleteAll/{key}", h.deleteAll)

		r.Get("/{key}", h.listActive)
		r.Get("/{key}/archived", h.listArchived)
		r.Get("/{key}/shared", h.listShared)

		r.Patch("/{key}", h.rename)
		r.Patch("/{key}/archive", h.setArchived)
		r.Patch("/{key}/share", h.setShared)
		r.Delete("/{key}", h.deleteOne)
		r.Post("/{key}/messages", h.appendMessage)
	})

	return r
}

// Run serves on opts.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		debug.Logger().Info("server listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// requestLogger writes one debug log line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		debug.Logger().Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
