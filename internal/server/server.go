package server

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/metrics"
)

// MetricsPath is where metrics are served when enabled.
const MetricsPath = "/metrics"

const shutdownTimeout = 5 * time.Second

// Server serves a site's static files and the host metrics over HTTP.
type Server struct {
	site    fs.FS
	metrics *metrics.HostMetrics
	logger  *zap.Logger
}

// NewServer creates a server. A nil site serves only metrics; nil metrics
// disables the metrics endpoint.
func NewServer(site fs.FS, m *metrics.HostMetrics, logger *zap.Logger) *Server {
	return &Server{
		site:    site,
		metrics: m,
		logger:  logger.With(zap.String("component", "server")),
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics != nil {
		mux.Handle(MetricsPath, s.metrics.Handler())
	}
	if s.site != nil {
		mux.Handle("/", http.FileServer(http.FS(s.site)))
	}
	return s.logRequests(mux)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("Serving",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("site", s.site != nil),
		zap.Bool("metrics", s.metrics != nil),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown server", zap.Error(err))
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
