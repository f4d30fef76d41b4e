// Package server exposes a lookup.Service over HTTP.
//
// Routes:
//
//	GET /v1/vendors/{identifier}  vendor for a hardware address
//	GET /healthz                  liveness and table size
//	GET /metrics                  Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frzifus/ouilookup/pkg/lookup"
)

const (
	resultFound    = "found"
	resultNotFound = "not_found"
	resultInvalid  = "invalid"
)

// Logger interface passes to Server
type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (*nullLogger) Printf(format string, v ...interface{}) {}

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the Prometheus registry metrics are registered with
// and served from. Default: a new registry per Server.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithLogger creates an option that sets the given logger to a Server.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// VendorResponse is the body of a successful lookup.
type VendorResponse struct {
	Prefix   string `json:"prefix"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Country  string `json:"country"`
}

// ErrorResponse is the body of a failed lookup.
type ErrorResponse struct {
	Error string `json:"error"`
}

type metrics struct {
	lookups *prometheus.CounterVec
	entries prometheus.Gauge
}

// Server answers vendor lookups over HTTP.
type Server struct {
	service  *lookup.Service
	router   chi.Router
	registry *prometheus.Registry
	metrics  *metrics
	logger   Logger
}

// New creates a Server backed by service.
func New(service *lookup.Service, opts ...Option) *Server {
	s := &Server{
		service: service,
		logger:  &nullLogger{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	factory := promauto.With(s.registry)
	s.metrics = &metrics{
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vlookup",
			Name:      "lookups_total",
			Help:      "Total number of vendor lookups by result",
		}, []string{"result"}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vlookup",
			Name:      "table_entries",
			Help:      "Number of prefixes in the loaded table",
		}),
	}
	s.metrics.entries.Set(float64(service.Table().Len()))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/v1/vendors/{identifier}", s.handleVendor)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s\n", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleVendor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identifier")
	v, ok, err := s.service.Lookup(id)
	switch {
	case err != nil:
		s.metrics.lookups.WithLabelValues(resultInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case !ok:
		s.metrics.lookups.WithLabelValues(resultNotFound).Inc()
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "vendor not found"})
	default:
		s.metrics.lookups.WithLabelValues(resultFound).Inc()
		prefix, _ := lookup.Normalize(id)
		writeJSON(w, http.StatusOK, VendorResponse{
			Prefix:   prefix,
			Company:  v.Company,
			Location: v.Location,
			Country:  v.Country,
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"entries": s.service.Table().Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
