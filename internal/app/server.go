package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start serves HTTP on the configured address. The returned channel closes
// once a termination signal arrives; the caller then runs Stop.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr, "gateway_bypass", a.config.GetBool("relay.gateway_bypass"))

		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen and serve http server", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		<-sigCtx.Done()
		slog.Info("termination signal received, shutting down")
		close(done)
	}()

	return done
}

// ShutdownTimeout bounds how long Stop may take.
func (a *App) ShutdownTimeout() time.Duration {
	if d := a.config.GetSecond("app.server.shutdown_timeout_seconds"); d > 0 {
		return d
	}
	return 10 * time.Second
}

// Serve runs the HTTP server on l. Used by tests to bind an ephemeral port.
func (a *App) Serve(l net.Listener) <-chan error {
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		errs <- a.httpServer.Serve(l)
	}()

	return errs
}

// Stop drains in-flight requests, stops background jobs such as the rate
// limiter sweep, then releases resources in order.
func (a *App) Stop(ctx context.Context) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shut down http server", "error", err)
	}

	a.cancel()

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background jobs finished with errors", "error", err)
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application stopped")
}
