package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"pandacare-chat/internal/api/middleware"
	"pandacare-chat/internal/queue"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const defaultShutdownDeadline = 10 * time.Second

var ErrUnexpected = errors.New("unexpected server error")

type RouteRegistrar func(r chi.Router, s *APIServer)

type Config struct {
	ListenAddr string
	Queue      *queue.RequestQueueManager
	Logger     *zerolog.Logger
	CORS       middleware.CORSConfig
	// Registry receives the HTTP metrics and backs /metrics. Nil means the
	// process-wide default registry.
	Registry *prometheus.Registry
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
	cors                middleware.CORSConfig
	logger              zerolog.Logger

	handlerOnce sync.Once
	handler     http.Handler
}

func NewAPIServer(cfg Config, registrars ...RouteRegistrar) *APIServer {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "http-server").Logger()
	}
	rqm := cfg.Queue
	if rqm == nil {
		rqm = queue.NewRequestQueueManager(10, 10, cfg.Logger)
	}

	return &APIServer{
		listenAddr:          cfg.ListenAddr,
		requestQueueManager: rqm,
		routeRegistrars:     registrars,
		metrics:             newMetrics(cfg.Registry, cfg.ListenAddr, rqm),
		cors:                cfg.CORS,
		logger:              logger,
	}
}

func (s *APIServer) Logger() *zerolog.Logger {
	return &s.logger
}

// Handler builds the router once and returns it wrapped in the metrics
// instrumentation.
func (s *APIServer) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		r := chi.NewRouter()
		for _, reg := range s.routeRegistrars {
			reg(r, s)
		}
		r.Handle("/metrics", s.metrics.metricsHandler())
		s.handler = s.metrics.instrument(r)
	})
	return s.handler
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errSrv := make(chan error, 1)
	go func() {
		errSrv <- srv.ListenAndServe()
	}()
	s.logger.Info().Str("addr", s.listenAddr).Msg("server started")

	defer s.requestQueueManager.Shutdown()

	select {
	case err := <-errSrv:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Join(ErrUnexpected, err)
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown failed")
			return err
		}
		s.logger.Info().Msg("server stopped")
		return nil
	}
}
