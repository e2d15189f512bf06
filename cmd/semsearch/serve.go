package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/version"
	chiTransport "github.com/kailas-cloud/semsearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

var warmup bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serves the query form on / and the JSON API on /api/search.
The corpus cache is built on the first query unless --warmup is given.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&warmup, "warmup", false, "load or build the corpus before accepting requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger := globalConfig, globalLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting semsearch server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", globalEnv),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if warmup {
		if _, err := a.corpus.Ensure(ctx); err != nil {
			return fmt.Errorf("warm up corpus: %w", err)
		}
	}

	searchSvc := searchuc.New(a.corpus, a.embedder, a.tokenizer, cfg.Search.MaxTopK, logger)

	// Pass a nil interface, not a typed nil pointer, when no database is configured.
	var pinger healthuc.DBPinger
	if a.store != nil {
		pinger = a.store
	}
	healthSvc := healthuc.New(a.corpus, a.embedder, pinger)

	server := chiTransport.NewServer(searchSvc, healthSvc, chiTransport.Options{
		DefaultK:      cfg.Search.TopK,
		TokenizerName: tokenizerLabel(cfg.Tokenizer),
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
