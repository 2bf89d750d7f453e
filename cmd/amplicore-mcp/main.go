// Amplicore MCP — MCP-сервер оркестратора FROGS jobs на stdio.
//
// Stdout занят протоколом, поэтому логи пишутся в stderr.
// Процесс сам запускает монитор: jobs, запущенные через MCP,
// отслеживаются до выхода из сессии и сверяются при следующем старте.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Amplicore/internal/bootstrap"
	"github.com/shaiso/Amplicore/internal/config"
	"github.com/shaiso/Amplicore/internal/mcpserver"
	"github.com/shaiso/Amplicore/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	logger := telemetry.SetupLoggerTo(os.Stderr)
	logger.Info("starting amplicore-mcp", "version", version)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start monitor", "error", err)
		return
	}

	srv := mcpserver.New(app.Service, version, logger)
	if err := srv.ServeStdio(); err != nil {
		logger.Error("mcp server error", "error", err)
	}
	logger.Info("stopped")
}
