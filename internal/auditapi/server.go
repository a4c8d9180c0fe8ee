package auditapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tos-network/gaudit/log"
)

const shutdownTimeout = 5 * time.Second

// Serve runs handler on the configured endpoint until ctx is cancelled and
// then shuts the server down, waiting for in-flight requests.
func Serve(ctx context.Context, cfg Config, handler http.Handler) error {
	listener, err := net.Listen("tcp", cfg.Endpoint())
	if err != nil {
		return err
	}
	return ServeListener(ctx, cfg, listener, handler)
}

// ServeListener is like Serve on an existing listener.
func ServeListener(ctx context.Context, cfg Config, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(listener) }()
	log.Info("HTTP server started", "endpoint", listener.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serr := <-errc; serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		return serr
	}
	log.Info("HTTP server stopped", "endpoint", listener.Addr())
	return err
}
