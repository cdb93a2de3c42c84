// Command server runs the page-visit counting engine behind a thin HTTP
// surface: POST /visit/{page_id}, GET /visits/{page_id}, POST /flush,
// GET /buffer, and GET /metrics for Prometheus scraping.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kauxp/visit-counter/config"
	"github.com/kauxp/visit-counter/counter"
	"github.com/kauxp/visit-counter/internal/shardclient"
	"github.com/kauxp/visit-counter/metrics/prom"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pool, err := shardclient.New(cfg.RedisNodes, shardclient.Options{
		VirtualNodes: cfg.VirtualNodes,
	})
	if err != nil {
		return fmt.Errorf("building shard client pool: %w", err)
	}

	metricsAdapter := prom.New(nil, "visitcounter", "", nil)

	svc := counter.NewService(pool, cfg.CacheTTL,
		counter.WithLogger(logger),
		counter.WithMetrics(metricsAdapter),
	)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.StartBackgroundFlusher(ctx, cfg.FlushInterval); err != nil {
		return fmt.Errorf("starting background flusher: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /visit/{page_id}", handleVisit(svc))
	mux.HandleFunc("GET /visits/{page_id}", handleGetVisits(svc))
	mux.HandleFunc("POST /flush", handleFlush(svc))
	mux.HandleFunc("GET /buffer", handleBuffer(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr(),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func addr() string {
	if a := os.Getenv("LISTEN_ADDR"); a != "" {
		return a
	}
	return ":8080"
}

func handleVisit(svc *counter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := r.PathValue("page_id")
		if err := svc.Increment(page); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": fmt.Sprintf("Visit recorded for page %s", page),
		})
	}
}

func handleGetVisits(svc *counter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := r.PathValue("page_id")
		count, via, err := svc.Get(r.Context(), page)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"visits":     count,
			"served_via": via,
		})
	}
}

func handleFlush(svc *counter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.FlushAll(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "Successfully flushed visit counts to Redis",
		})
	}
}

func handleBuffer(svc *counter.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := svc.BufferStatus()
		writeJSON(w, http.StatusOK, map[string]any{
			"buffer_size":           status.Size,
			"buffer_contents":       status.Pending,
			"time_since_last_flush": status.AgeSinceLastFlush.Seconds(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
}
