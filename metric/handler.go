package metric

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/semtransform/errors"
)

// Server represents the metrics HTTP server
type Server struct {
	addr     string
	path     string
	registry *MetricsRegistry

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// NewServer creates a metrics server. An empty addr defaults to ":9090" and
// an empty path to "/metrics".
func NewServer(addr, path string, registry *MetricsRegistry) *Server {
	if addr == "" {
		addr = ":9090"
	}
	if path == "" {
		path = "/metrics"
	}
	return &Server{addr: addr, path: path, registry: registry}
}

// Handler returns the HTTP handler serving metrics and health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Serve listens and serves until ctx is cancelled, then shuts down with a
// five second grace period.
func (s *Server) Serve(ctx context.Context) error {
	if s.registry == nil {
		return errors.WrapFatal(stderrors.New("nil registry"), "Server", "Serve", "metrics registry check")
	}

	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(stderrors.New("server already running"), "Server", "Serve", "state check")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.WrapFatal(err, "Server", "Serve", fmt.Sprintf("listen on %s", s.addr))
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.listener = ln
	s.server = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		s.reset()
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapFatal(err, "Server", "Serve", "serve metrics")
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.reset()
		if err != nil {
			return errors.WrapTransient(err, "Server", "Serve", "shutdown metrics server")
		}
		return nil
	}
}

func (s *Server) reset() {
	s.mu.Lock()
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
}

// Address returns the metrics URL, using the bound port once serving.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr := s.addr
	if s.listener != nil {
		addr = s.listener.Addr().String()
	}
	return fmt.Sprintf("http://%s%s", addr, s.path)
}
