// Package main implements the GRC API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/api"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/asset"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/auth"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/cloud"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/config"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/control"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/framework"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/integration"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/policy"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/risk"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/search"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/task"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/template"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/vendor"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/metrics"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/postgres"
)

var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("GRC_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting grc-server", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Database.DSN(), postgres.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("failed to create token manager", "error", err)
		os.Exit(1)
	}

	vendorRepo := postgres.NewVendorRepository(db)
	frameworkRepo := postgres.NewFrameworkRepository(db)
	controlRepo := postgres.NewControlRepository(db)
	assetRepo := postgres.NewAssetRepository(db)
	policyRepo := postgres.NewPolicyRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	riskRepo := postgres.NewRiskRepository(db)
	searchRepo := postgres.NewSearchRepository(db)
	cloudRepo := postgres.NewCloudRepository(db)

	assetSvc := asset.NewService(assetRepo)
	integrationSvc := integration.NewService(assetSvc)
	for _, ic := range cfg.Integrations {
		integrationSvc.Register(integration.NewHTTPProvider(ic.Name, ic.Description, ic.URL, ic.Token))
		logger.Info("registered integration", "name", ic.Name)
	}

	services := &api.Services{
		Vendor:      vendor.NewService(vendorRepo),
		Framework:   framework.NewService(frameworkRepo),
		Control:     control.NewService(controlRepo),
		Asset:       assetSvc,
		Policy:      policy.NewService(policyRepo),
		Template:    template.NewService(),
		Task:        task.NewService(taskRepo),
		Risk:        risk.NewService(riskRepo),
		Search:      search.NewService(searchRepo),
		Integration: integrationSvc,
		Cloud:       cloud.NewService(cloudRepo),
		SSO:         auth.NewSSOExchanger(cfg.Auth, tokens),
	}

	routerCfg := api.DefaultRouterConfig()
	routerCfg.Logger = logger
	routerCfg.TokenVerifier = tokens
	routerCfg.Metrics = metrics.NewServiceMetrics("server", version)
	routerCfg.SearchEnabled = cfg.Features.Search
	router := api.NewRouter(routerCfg, services)

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.Server.Addr()
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout
	serverCfg.Logger = logger
	server := api.NewServer(router, serverCfg)

	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
