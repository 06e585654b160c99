// Package staticserve previews the collectstatic output locally, with
// optional live reload over SSE.
package staticserve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/drbea224/djx/internal/sse"
	"github.com/drbea224/djx/internal/watch"
)

// Server serves one static root.
type Server struct {
	// StaticRoot is the directory produced by collectstatic.
	StaticRoot string
	// Addr is the listen address, e.g. ":8800".
	Addr string
	// Watch enables the file watcher and the /events live-reload stream.
	Watch bool
}

// Router builds the preview router. broker may be nil when live reload is
// disabled.
func Router(staticRoot string, broker *sse.Broker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	r.Handle("/*", http.FileServer(http.Dir(staticRoot)))

	return r
}

// Run starts the preview server and blocks until the context is cancelled
// or a shutdown signal arrives.
func (s *Server) Run(ctx context.Context, logger *slog.Logger) error {
	info, err := os.Stat(s.StaticRoot)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("staticserve: static root %s missing (run collectstatic first)", s.StaticRoot)
	}

	var broker *sse.Broker
	if s.Watch {
		broker = sse.NewBroker(time.Second)
		defer broker.Close()
	}

	httpServer := &http.Server{
		Addr:    s.Addr,
		Handler: Router(s.StaticRoot, broker),
	}

	logger.Info("preview server starting",
		slog.String("address", s.Addr),
		slog.String("static_root", s.StaticRoot),
		slog.Bool("watch", s.Watch))

	g, gCtx := errgroup.WithContext(ctx)

	if s.Watch {
		g.Go(func() error {
			return watch.Watch(gCtx, s.StaticRoot, logger, func(path string) {
				broker.PublishAssetEvent(path)
			})
		})
	}

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("staticserve: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("preview server stopped")
	return nil
}
