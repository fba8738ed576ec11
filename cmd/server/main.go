package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"trapsink/internal/config"
	"trapsink/internal/logger"
	"trapsink/internal/metrics"
	"trapsink/internal/server"
	"trapsink/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {

	// Container schedulers hand out fractional CPU shares; left alone
	// the runtime assumes it owns every visible core. GOMAXPROCS should
	// be pinned to the allocated share in the task definition, with a
	// single-CPU default for the common sidecar deployment.
	if v := os.Getenv("GOMAXPROCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			runtime.GOMAXPROCS(n)
		}
	} else {
		runtime.GOMAXPROCS(1)
	}

	cfg := config.Load()
	logger.Init(cfg)
	m := metrics.New()

	// Pipeline: ingest handler → RecordCh → dispatcher (classify, stage,
	// dedup fast path) → bounded upload workers → S3.
	mgr := worker.NewManager(cfg, m, worker.NewS3Store(cfg))
	mgr.Start()

	h := server.NewHandler(cfg, m, mgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", h.HandleIngest)
	mux.HandleFunc("/metrics", h.HandleMetrics)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  8 * time.Second,
		WriteTimeout: 8 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Shutdown order matters: stop accepting records first, then drain
	// the pipeline so staged uploads get their chance to finish. Staged
	// files of anything that still fails stay on disk by design.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		cancel()

		log.Info().Msg("draining sink pipeline")
		mgr.Shutdown()
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("bucket", cfg.Bucket).Msg("sink listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server terminated")
	}

	// Safe to call twice; ensures the pipeline is drained before exit.
	mgr.Shutdown()
	log.Info().Msg("shutdown complete")
}
