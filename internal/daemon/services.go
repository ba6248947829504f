package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"cinespin/internal/logging"
	"cinespin/internal/vibecache"
)

// httpService runs the API server as a supervised service.
type httpService struct {
	bind            string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          *slog.Logger

	addr      atomic.Value
	ready     chan struct{}
	readyOnce sync.Once
}

func newHTTPService(bind string, handler http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) *httpService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &httpService{
		bind:            bind,
		handler:         handler,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		ready:           make(chan struct{}),
	}
}

// Serve implements suture.Service.
func (s *httpService) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.addr.Store(listener.Addr().String())
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// Addr returns the bound address, or "" before the first listen.
func (s *httpService) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

func (s *httpService) String() string { return "http-server" }

// sweeperService removes expired cache entries on an interval.
type sweeperService struct {
	cache    vibecache.Admin
	interval time.Duration
	logger   *slog.Logger
}

func newSweeperService(cache vibecache.Admin, interval time.Duration, logger *slog.Logger) *sweeperService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &sweeperService{cache: cache, interval: interval, logger: logger}
}

// Serve implements suture.Service.
func (s *sweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sweeperService) sweep(ctx context.Context) {
	removed, err := s.cache.Sweep(ctx)
	if err != nil {
		logging.WarnWithContext(s.logger, "cache sweep failed", "vibecache_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "expired proposals stay on disk until the next sweep"),
		)
		return
	}
	if removed > 0 {
		s.logger.Info("swept expired proposals", logging.Int("removed", removed), logging.String("backend", s.cache.Backend()))
	}
}

func (s *sweeperService) String() string { return "cache-sweeper" }
