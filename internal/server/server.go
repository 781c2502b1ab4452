// Package server exposes the annotation review API: reviewers list
// pre-filled annotations, correct or confirm field values, and pull the
// queue of verifications flagged for human review.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ocrmate/ocrmate/internal/annotate"
	"github.com/ocrmate/ocrmate/internal/schema"
)

// Config holds server settings.
type Config struct {
	Port         int `yaml:"port" mapstructure:"port"`
	ReadTimeout  int `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeout int `yaml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
}

// Server serves the review API over HTTP.
type Server struct {
	store  annotate.Store
	schema *schema.Schema
	http   *http.Server
}

// New creates a Server bound to an annotation store and the active schema.
func New(cfg Config, store annotate.Store, s *schema.Schema) *Server {
	srv := &Server{store: store, schema: s}

	readTimeout := 30 * time.Second
	if cfg.ReadTimeout > 0 {
		readTimeout = time.Duration(cfg.ReadTimeout) * time.Second
	}
	writeTimeout := 60 * time.Second
	if cfg.WriteTimeout > 0 {
		writeTimeout = time.Duration(cfg.WriteTimeout) * time.Second
	}

	srv.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

// Router builds the chi route tree. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/annotations", func(r chi.Router) {
		r.Get("/", s.handleListAnnotations)
		r.Get("/document", s.handleGetAnnotation)
		r.Get("/status", s.handleCompletionStatus)
		r.Post("/fields", s.handleSetField)
		r.Post("/confirm", s.handleConfirmField)
	})

	r.Get("/verifications", s.handleListVerifications)

	return r
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("review server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-stop:
	}

	zap.L().Info("review server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
