package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mazewars/internal/api"
	"mazewars/internal/config"
	"mazewars/internal/game"
	"mazewars/internal/logging"
)

func main() {
	// Load .env file from parent directory
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		// Try current directory as fallback
		envErr = godotenv.Load(".env")
	}

	appConfig, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(appConfig.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("no .env file found, using environment variables only")
	}
	for _, w := range appConfig.Warnings {
		logger.Warn(w)
	}
	if appConfig.TuningFile != "" {
		logger.Info("tuning overlay applied", zap.String("file", appConfig.TuningFile))
	}

	mazeCfg := appConfig.Maze
	roundCfg := appConfig.Round
	serverCfg := appConfig.Server

	logger.Info("mazewars starting",
		zap.Int("width", mazeCfg.Width),
		zap.Int("height", mazeCfg.Height),
		zap.Stringer("difficulty", mazeCfg.Difficulty),
		zap.Int("lobby_s", roundCfg.LobbySeconds),
		zap.Int("round_s", roundCfg.RoundSeconds),
		zap.Int("intermission_s", roundCfg.IntermissionSeconds))

	// Start debug server
	debugServer := api.StartDebugServer(appConfig.Observability, logger)

	server, err := api.NewServer(serverCfg, game.WorldConfig{
		Width:      mazeCfg.Width,
		Height:     mazeCfg.Height,
		Difficulty: mazeCfg.Difficulty,
		Durations: game.RoundDurations{
			Lobby:        roundCfg.LobbySeconds,
			Round:        roundCfg.RoundSeconds,
			Intermission: roundCfg.IntermissionSeconds,
		},
	}, logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}
	engine := server.Engine()

	// Start event log
	if appConfig.EventLog.Dir != "" {
		if err := engine.StartEventLog(appConfig.EventLog.Dir); err != nil {
			logger.Warn("event log disabled", zap.Error(err))
		} else {
			logger.Info("event log", zap.String("dir", appConfig.EventLog.Dir))
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(serverCfg.Addr())
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	engine.StopEventLog()
	if debugServer != nil {
		debugServer.Close()
	}
	logger.Info("goodbye")
}
