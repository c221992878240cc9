package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"lendpool/config"
	"lendpool/core/state"
	"lendpool/core/types"
	nativecommon "lendpool/native/common"
	"lendpool/native/lending"
	"lendpool/native/oracle"
	"lendpool/observability"
	"lendpool/observability/logging"
	"lendpool/rpc"
	"lendpool/storage"
)

const envVar = "LENDPOOL_ENV"

func main() {
	configFile := flag.String("config", "./lendpool.toml", "Path to the configuration file")
	memState := flag.Bool("mem-state", false, "DEV ONLY: keep all state in memory instead of LevelDB")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.Setup("lendpoold", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var db storage.Database
	if *memState {
		db = storage.NewMemDB()
		logger.Warn("running with in-memory state; all data is lost on exit")
	} else {
		path := filepath.Join(cfg.DataDir, "lendpool")
		ldb, err := storage.NewLevelDB(path)
		if err != nil {
			logger.Error("failed to open database", "path", path, "error", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)

	rates := oracle.New(cfg.AdminAddress, time.Duration(cfg.RateStaleAfterSeconds)*time.Second)
	rates.SetEmitter(eventLogger(logger))
	for _, submitter := range cfg.OracleSubmitters {
		if err := rates.SetAuthorizedSubmitter(cfg.AdminAddress, submitter, true); err != nil {
			logger.Error("failed to authorize submitter", "submitter", submitter, "error", err)
			os.Exit(1)
		}
	}

	engine := lending.NewEngine(cfg.ModuleAddress, cfg.CollateralAddress)
	engine.SetState(manager)
	engine.SetOracle(rates)
	engine.SetAdmin(cfg.AdminAddress)
	engine.SetPauses(nativecommon.NewPauses())
	engine.SetRequireFreshRate(cfg.RequireFreshRate)
	engine.SetEmitter(eventLogger(logger))
	if err := engine.SetMinCollateralRatio(cfg.MinCollateralRatioBps); err != nil {
		logger.Error("invalid minimum collateral ratio", "error", err)
		os.Exit(1)
	}

	server := rpc.NewServer(rpc.ServerConfig{
		Engine:             engine,
		Oracle:             rates,
		Logger:             logger,
		Metrics:            observability.Metrics(),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", fmt.Sprint(sig))
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// eventLogger renders engine and oracle events as structured log lines.
func eventLogger(logger *slog.Logger) func(types.Event) {
	return func(evt types.Event) {
		args := make([]any, 0, len(evt.Attributes)*2)
		for k, v := range evt.Attributes {
			args = append(args, k, v)
		}
		logger.Info("event "+evt.Type, args...)
	}
}
