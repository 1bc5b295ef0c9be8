package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/nanobrain/internal/engine"
	"github.com/lazypower/nanobrain/internal/logging"
	"github.com/lazypower/nanobrain/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging)

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	eng := newEngine(cfg, st, log)

	if cfg.Housekeeping.Enabled {
		sched := engine.NewScheduler(log)
		task := &engine.InventoryTask{Store: st, TempMaxAge: cfg.Housekeeping.TempMaxAge, Log: log}
		if err := sched.Add(cfg.Housekeeping.Schedule, task); err != nil {
			return fmt.Errorf("housekeeping: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	if cfg.Server.APIKey == "" {
		log.Warn().Msg("server.api_key is empty, privileged routes are disabled")
	}

	srv := server.New(eng, cfg.Server.APIKey, VersionString(), log)
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("store", eng.Describe()).Msg("nanobrain serving")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
