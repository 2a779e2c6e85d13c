package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelapi "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/darkerego/particle-proxy/chains"
	"github.com/darkerego/particle-proxy/config"
	"github.com/darkerego/particle-proxy/logutils"
	"github.com/darkerego/particle-proxy/metrics"
	"github.com/darkerego/particle-proxy/proxy"
)

type Server struct {
	cfg     *config.Config
	failure chan error
	logger  *zap.Logger

	proxy *proxy.Proxy

	metrics *http.Server
}

func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  zap.L(),
		failure: make(chan error, 16),
	}

	networks, err := chains.Resolve(cfg.Particle.Chains)
	if err != nil {
		return nil, err
	}

	routes, err := proxy.NewRouteTable(networks, cfg.Particle)
	if err != nil {
		return nil, err
	}

	p, err := proxy.New(&proxy.Config{
		Name:   "pproxy",
		Proxy:  cfg.Proxy,
		Routes: routes,
	})
	if err != nil {
		return nil, err
	}
	s.proxy = p

	mux := http.NewServeMux()
	mux.Handle("/", promhttp.Handler())
	mux.Handle("/metrics", promhttp.Handler())

	s.metrics = &http.Server{
		Addr:              cfg.Metrics.ListenAddress,
		Handler:           mux,
		MaxHeaderBytes:    1024,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s, nil
}

func (s *Server) Run() error {
	l := s.logger
	ctx := logutils.ContextWithLogger(context.Background(), l)

	if err := metrics.Setup(ctx, s.observe); err != nil {
		return err
	}

	go func() { // run the metrics server
		l.Info("Metrics server is going up...",
			zap.String("server_listen_address", s.cfg.Metrics.ListenAddress),
		)
		if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.failure <- err
		}
		l.Info("Metrics server is down")
	}()

	s.proxy.Run(ctx, s.failure)

	errs := []error{}
	{ // wait until termination or internal failure
		terminator := make(chan os.Signal, 1)
		signal.Notify(terminator, os.Interrupt, syscall.SIGTERM)

		select {
		case stop := <-terminator:
			l.Info("Stop signal received; shutting down...",
				zap.String("signal", stop.String()),
			)
		case err := <-s.failure:
			l.Error("Internal failure; shutting down...",
				zap.Error(err),
			)
			errs = append(errs, err)
		exhaustErrors:
			for { // exhaust the errors
				select {
				case err := <-s.failure:
					l.Error("Extra internal failure",
						zap.Error(err),
					)
					errs = append(errs, err)
				default:
					break exhaustErrors
				}
			}
		}
	}

	{ // stop the proxy
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.proxy.Stop(ctx); err != nil {
			l.Error("Failed to shutdown the proxy",
				zap.Error(err),
			)
		}
	}

	{ // stop metrics server
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.metrics.Shutdown(ctx); err != nil {
			l.Error("Metrics server shutdown failed",
				zap.Error(err),
			)
		}
	}

	switch len(errs) {
	default:
		return errors.Join(errs...)
	case 1:
		return errs[0]
	case 0:
		return nil
	}
}

func (s *Server) observe(ctx context.Context, o otelapi.Observer) error {
	return s.proxy.Observe(ctx, o)
}
