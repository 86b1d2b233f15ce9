package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 15 * time.Second

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down: stop accepting requests, cancel consumers, wait for background work
// and close resources.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return errors.Join(err, a.shutdown())
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on a listener the caller opened.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", ln.Addr().String())
		serveErr <- a.httpServer.Serve(ln)
	}()

	var err error
	select {
	case <-ctx.Done():
		slog.Info("shutdown requested", "cause", context.Cause(ctx))
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	return errors.Join(err, a.shutdown())
}

func (a *App) shutdown() error {
	timeout := a.config.GetSecond("app.server.shutdown_timeout_seconds")
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	a.cancel()
	slog.InfoContext(ctx, "waiting for background work")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background work ended with errors", "error", err)
	}

	errs = append(errs, a.close(ctx))
	slog.InfoContext(ctx, "docmailer stopped")
	return errors.Join(errs...)
}
