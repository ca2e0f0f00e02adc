package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"asset-classify/go-engine/internal/adapters/rpc"
	"asset-classify/go-engine/internal/bootstrap/engineconfig"
	"asset-classify/go-engine/internal/composition/engineservice"
	"asset-classify/go-engine/internal/platform/metrics"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	rpcAddr := flag.String("rpc-addr", "", "JSON-RPC listen address (overrides config)")
	configPath := flag.String("config", "", "Path to classifyd.yaml (optional)")
	rpcToken := flag.String("rpc-token", "", "RPC token for Authorization/X-Classify-RPC-Token (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("classifyd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *rpcToken != "" {
		_ = os.Setenv("CLASSIFY_RPC_TOKEN", *rpcToken)
	}

	cfg := engineconfig.LoadFromPath(*configPath)
	if *rpcAddr != "" {
		cfg.ListenAddress = *rpcAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("classifyd configuration is invalid: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	registry := metrics.NewRegistry()

	svc, err := engineservice.New(cfg, engineservice.Options{
		Logger:  logger,
		Metrics: registry,
	})
	if err != nil {
		log.Fatalf("classifyd failed to initialize: %v", err)
	}

	opts := rpc.DefaultOptions().WithRateLimit(cfg.RateLimitRPS, cfg.RateBurst)
	opts.Addr = cfg.ListenAddress
	opts.Token = cfg.RPCToken
	opts.Metrics = registry
	srv := rpc.NewServerWithService(opts, svc)

	logger.Info("classifyd starting", "addr", cfg.ListenAddress, "admin", cfg.AdminAddress)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("classifyd failed: %v", err)
	}
	logger.Info("classifyd stopped")
}
