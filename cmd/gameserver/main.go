// Package main provides the game server binary: the Telnet frontend, the
// session registry runtime, the tick loop and the gRPC health endpoint.
// SIGHUP reloads the rules and migrates every client into a new registry.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hysbakstryd/internal/config"
	"github.com/cory-johannsen/hysbakstryd/internal/frontend/handlers"
	"github.com/cory-johannsen/hysbakstryd/internal/frontend/telnet"
	"github.com/cory-johannsen/hysbakstryd/internal/gameserver"
	"github.com/cory-johannsen/hysbakstryd/internal/observability"
	"github.com/cory-johannsen/hysbakstryd/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	rulesPath := flag.String("rules", "", "rules manifest; overrides game.rules_path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *rulesPath != "" {
		cfg.Game.RulesPath = *rulesPath
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	level, err := observability.ParseLevel(cfg.Logging)
	if err != nil {
		logger.Fatal("parsing log level", zap.Error(err))
	}
	sinks := observability.NewClientSinks(cfg.Game.DiagnosticsDir, level, logger)
	defer sinks.Close()

	health := gameserver.NewHealthServer(cfg.Admin.Addr(), logger)
	dir := handlers.NewConnDirectory()

	rt, err := gameserver.NewRuntime(gameserver.RuntimeOptions{
		RulesPath:        cfg.Game.RulesPath,
		InstructionLimit: cfg.Game.ScriptInstructionLimit,
		BcryptCost:       cfg.Game.BcryptCost,
		Deliverer:        dir,
		Sinks:            sinks,
		Logger:           logger,
		Health:           health,
	})
	if err != nil {
		logger.Fatal("starting runtime", zap.Error(err))
	}
	defer rt.Close()

	logger.Info("runtime ready",
		zap.String("rules", cfg.Game.RulesPath),
		zap.String("version", rt.Version()),
		zap.Duration("elapsed", time.Since(start)),
	)

	ticks := gameserver.NewTickLoop(cfg.Game.TickInterval, rt, logger)
	acceptor := telnet.NewAcceptor(cfg.Telnet, handlers.NewGameHandler(rt, dir, logger), logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("health", &server.FuncService{
		StartFn: health.Serve,
		StopFn:  health.Stop,
	})
	lifecycle.Add("ticks", &server.FuncService{
		StartFn: func() error { return ticks.Run(context.Background()) },
		StopFn:  ticks.Stop,
	})
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})
	lifecycle.OnReload(rt.Reload)

	logger.Info("game server initialized",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("admin_addr", cfg.Admin.Addr()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
