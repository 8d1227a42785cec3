package main

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"beaconchain_verifier/internal/adapter/indexer"
	"beaconchain_verifier/internal/adapter/node"
	"beaconchain_verifier/internal/domain"
	"beaconchain_verifier/internal/fetch"
	"beaconchain_verifier/internal/handler"
	"beaconchain_verifier/internal/usecase"
	"beaconchain_verifier/pkg/config"
	httpPkg "beaconchain_verifier/pkg/http"
	"beaconchain_verifier/pkg/logger"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.Log.Debug)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := log.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "error syncing logger: %v\n", err)
		}
	}()
	zap.ReplaceGlobals(log)

	fetcher := fetch.New(fetch.Config{
		Timeout:    cfg.Fetch.Timeout,
		MaxRetries: cfg.Fetch.MaxRetries,
		Backoff:    cfg.Fetch.Backoff,
	})

	blockCache, err := node.NewBlockCache(cfg.Node.Cache.MaxEntries, cfg.Node.Cache.TTL)
	if err != nil {
		zap.L().Fatal("init block cache", zap.Error(err))
	}

	indexerClient := indexer.NewClient(fetcher, cfg.Indexer.BaseURL, cfg.Indexer.APIKey, cfg.Indexer.Pace)
	nodeClient := node.NewClient(fetcher, cfg.Node.Providers, blockCache, cfg.Node.ScanPace)

	forks := domain.NewMainnetForkRegistry()
	checks := usecase.NewRegistry(indexerClient, nodeClient, forks)
	orch := usecase.NewOrchestrator(checks, forks)
	sweep := usecase.NewBalanceSweep(indexerClient, nodeClient)

	h := handler.NewHandler(orch, sweep, forks, cfg.Node.Providers, cfg.Report.OutputDir, cfg.Sampling.SamplesPerFork)
	r := httpPkg.NewRouter(h)

	srv := &stdhttp.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}
	go func() {
		zap.L().Info("starting server", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			zap.L().Fatal("listen error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zap.L().Info("shutting down…")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("shutdown error", zap.Error(err))
	}
	zap.L().Info("server stopped")
}
