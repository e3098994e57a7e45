// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

// Package observability provides HTTP endpoints for metrics and health
// checks, plus the marketplace Prometheus metrics.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the service is ready.
type ReadinessChecker func() bool

// Package-level counters so the bidding engine and session sweeper can
// record events without holding a Server reference.
var (
	bidsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavelhouse_bids_total",
			Help: "Total number of evaluated bids by outcome",
		},
		[]string{"outcome"},
	)

	sessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gavelhouse_sessions_swept_total",
			Help: "Total number of expired sessions removed by the periodic sweep",
		},
	)
)

// RecordBid increments the bid counter for an accepted or rejected bid.
func RecordBid(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	bidsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionsSwept adds the number of sessions removed by one sweep.
func RecordSessionsSwept(n int64) {
	if n > 0 {
		sessionsSweptTotal.Add(float64(n))
	}
}

// Metrics contains the registered marketplace metrics.
type Metrics struct {
	SitesLoaded prometheus.Gauge
}

// NewMetrics creates and registers the marketplace metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SitesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gavelhouse_sites_loaded",
			Help: "Number of sites currently loaded with an active sweeper",
		}),
	}

	reg.MustRegister(m.SitesLoaded)
	reg.MustRegister(bidsTotal)
	reg.MustRegister(sessionsSweptTotal)

	return m
}

// Server provides HTTP endpoints for metrics and health probes.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server for the given listen
// address.
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
	}
}

// Metrics returns the registered marketplace metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints. The returned channel
// receives any error from the HTTP server and closes on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the listening address, or empty if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n")) //nolint:errcheck // health check write, client may disconnect
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.isReady != nil && !s.isReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n")) //nolint:errcheck // health check write
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n")) //nolint:errcheck // health check write
}
