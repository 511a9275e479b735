// Package prometheus serves the process metrics over http.
package prometheus

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/internal/utils"
)

// Service provides Prometheus metrics via the /metrics route. This route will
// show all the metrics registered with PromRegistry.
type Service struct {
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger

	lock       sync.Mutex
	failStatus error
}

// Handler represents a path and handler func to serve on the same port as /metrics, /goroutinez.
type Handler struct {
	Path    string
	Handler func(http.ResponseWriter, *http.Request)
}

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
)

// PromRegistry return the registry all metrics of the process are registered to.
func PromRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return registry
}

// NewService sets up a new instance for a given address host:port.
// An empty host will match with any IP so an address like ":9900" is perfectly acceptable.
func NewService(addr string, additionalHandlers ...Handler) *Service {
	reg := PromRegistry()
	handler := promhttp.InstrumentMetricHandler(
		reg,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	s := &Service{
		logger: utils.GetLogger("prometheus"),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)

	// Register additional handlers.
	for _, h := range additionalHandlers {
		mux.HandleFunc(h.Path, h.Handler)
	}
	s.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	stack := debug.Stack()
	if _, err := w.Write(stack); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write goroutines stack")
	}
	if err := pprof.Lookup("goroutine").WriteTo(w, 2); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write pprof goroutines")
	}
}

// Start listens on the configured address and serves in the background.
func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %s", s.server.Addr)
	}
	s.listener = listener
	s.logger.Info().Str("address", listener.Addr().String()).Msg("Starting prometheus service")
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Str("address", listener.Addr().String()).Msg("Prometheus service stopped")
			s.lock.Lock()
			s.failStatus = err
			s.lock.Unlock()
		}
	}()
	return nil
}

// Addr returns the address the service listens on, once started.
func (s *Service) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop the service gracefully.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status checks for any service failure conditions.
func (s *Service) Status() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.failStatus
}
