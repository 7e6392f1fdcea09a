// internal/server/timeouts.go
//
// HTTP server helper with explicit timeouts and graceful shutdown.
//
//   - ReadTimeout   – abort slow-loris headers
//   - WriteTimeout  – cap total response time
//   - IdleTimeout   – close idle keep-alives
//
// Values come from the `http` config section; zero values fall back to
// 10 s / 15 s / 60 s.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Timeouts groups the server deadlines.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Read <= 0 {
		t.Read = 10 * time.Second
	}
	if t.Write <= 0 {
		t.Write = 15 * time.Second
	}
	if t.Idle <= 0 {
		t.Idle = 60 * time.Second
	}
	if t.Shutdown <= 0 {
		t.Shutdown = 20 * time.Second
	}
	return t
}

// New constructs an *http.Server with the given deadlines.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	t = t.withDefaults()
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most shutdown.  A clean shutdown returns nil.
func Run(ctx context.Context, srv *http.Server, shutdown time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.L()
	}
	if shutdown <= 0 {
		shutdown = Timeouts{}.withDefaults().Shutdown
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("http shutting down", zap.Duration("grace", shutdown))
	sctx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
