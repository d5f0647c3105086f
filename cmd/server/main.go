// Package main is the entry point for the growth simulator service: an
// HTTP API that replays portfolio scenarios over historical prices,
// analyzes rolling returns, and stress-tests survival odds with
// bootstrap Monte Carlo.
//
// Startup sequence:
//  1. Load configuration from environment variables
//  2. Initialize logging
//  3. Open the price cache database
//  4. Wire the market data provider and simulation services
//  5. Register the background price refresh job
//  6. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ycliang/growthsim/internal/config"
	"github.com/ycliang/growthsim/internal/database"
	"github.com/ycliang/growthsim/internal/modules/marketdata"
	"github.com/ycliang/growthsim/internal/modules/montecarlo"
	montecarlohandlers "github.com/ycliang/growthsim/internal/modules/montecarlo/handlers"
	"github.com/ycliang/growthsim/internal/modules/simulation"
	simulationhandlers "github.com/ycliang/growthsim/internal/modules/simulation/handlers"
	"github.com/ycliang/growthsim/internal/scheduler"
	"github.com/ycliang/growthsim/internal/server"
	"github.com/ycliang/growthsim/pkg/logger"
)

// runStoreTTL is how long finished simulation runs stay exportable.
const runStoreTTL = 30 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info"})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Growth simulator starting")

	cacheDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "pricecache.db"),
		Name: "pricecache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open price cache database")
	}
	defer cacheDB.Close()

	cache, err := marketdata.NewCache(cacheDB, time.Duration(cfg.PriceCacheTTL)*time.Hour, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize price cache")
	}

	client := marketdata.NewClient(cfg.YahooBaseURL, log)
	provider := marketdata.NewProvider(client, cache, log)

	store := simulation.NewRunStore(runStoreTTL)
	tester := montecarlo.NewTester(cfg.StressNumWorkers, log)

	srv := server.New(server.Config{
		Log:                log,
		Port:               cfg.Port,
		DevMode:            cfg.DevMode,
		SimulationHandlers: simulationhandlers.NewHandler(provider, store, log),
		MonteCarloHandlers: montecarlohandlers.NewHandler(provider, tester, cfg.MaxStressTrials, log),
	})

	sched := scheduler.New(log)
	if tracked := parseSymbols(cfg.TrackedSymbols); len(tracked) > 0 {
		job := marketdata.NewRefreshJob(provider, tracked, log)
		if err := sched.AddJob(cfg.RefreshSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("Failed to register refresh job")
		}
	}
	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	sched.Stop()

	log.Info().Msg("Growth simulator stopped")
}

// parseSymbols splits the comma-separated tracked symbol list.
func parseSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			symbols = append(symbols, p)
		}
	}
	return symbols
}
