// Package bootstrap собирает компоненты Amplicore по конфигурации.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shaiso/Amplicore/internal/catalog"
	"github.com/shaiso/Amplicore/internal/config"
	"github.com/shaiso/Amplicore/internal/engine"
	"github.com/shaiso/Amplicore/internal/mq"
	"github.com/shaiso/Amplicore/internal/orchestrator"
	"github.com/shaiso/Amplicore/internal/pipeline"
	"github.com/shaiso/Amplicore/internal/process"
	"github.com/shaiso/Amplicore/internal/repo"
	"github.com/shaiso/Amplicore/internal/service"
)

// App содержит собранные компоненты одного процесса.
type App struct {
	Config    *config.Config
	Store     repo.Store
	Catalog   *catalog.Catalog
	Monitor   *orchestrator.Monitor
	Launcher  *orchestrator.Launcher
	Pipeline  *pipeline.Pipeline
	Service   *service.Service
	Publisher *mq.Publisher // nil без RABBITMQ_URL

	conn   *mq.Connection
	logger *slog.Logger
}

// New открывает хранилище, загружает каталог и связывает компоненты.
// Монитор не запускается до вызова Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := catalog.Load(cfg.CatalogPath, catalog.Options{
		ToolsDir:    cfg.ToolsDir,
		BinDir:      cfg.BinDir,
		LibDir:      cfg.LibDir,
		Interpreter: cfg.Python,
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog loaded", "tools", len(cat.Names()), "path", cfg.CatalogPath)

	rules := engine.NewRuleSet(engine.DefaultFlowRules, nil)
	warnRules(logger, engine.ValidateRules(rules.Rules(), cat.Get))

	store, err := repo.Open(ctx, repo.Options{DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.SQLitePath})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.DatabaseURL != "" {
		logger.Info("connected to database")
	} else {
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
	}

	app := &App{
		Config:  cfg,
		Store:   store,
		Catalog: cat,
		logger:  logger,
	}

	var events orchestrator.EventPublisher
	if cfg.RabbitMQURL != "" {
		if err := app.connectEvents(ctx); err != nil {
			logger.Warn("job events disabled", "error", err)
		} else {
			events = app.Publisher
		}
	}

	runner := process.NewExecRunner()
	app.Monitor = orchestrator.NewMonitor(orchestrator.MonitorConfig{
		Store:        store,
		Runner:       runner,
		Publisher:    events,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	app.Launcher = orchestrator.NewLauncher(orchestrator.LauncherConfig{
		Catalog:       cat,
		Store:         store,
		Runner:        runner,
		Monitor:       app.Monitor,
		Publisher:     events,
		WorkspaceRoot: cfg.WorkspaceRoot,
		Env:           process.ToolEnv(os.Environ(), cat.BinDir(), cat.LibDir()),
		Command:       engine.CommandOptions{DefaultCPUs: cfg.DefaultCPUs},
		Logger:        logger,
	})
	app.Pipeline = pipeline.New(pipeline.Config{
		Store:   store,
		Catalog: cat,
		Rules:   rules,
		Logger:  logger,
	})
	app.Service = service.New(service.Config{
		Store:         store,
		Catalog:       cat,
		Launcher:      app.Launcher,
		Pipeline:      app.Pipeline,
		WorkspaceRoot: cfg.WorkspaceRoot,
		Logger:        logger,
	})

	return app, nil
}

// connectEvents подключается к RabbitMQ и объявляет топологию.
func (a *App) connectEvents(ctx context.Context) error {
	conn, err := mq.NewConnection(a.Config.RabbitMQURL, "amplicore", a.logger)
	if err != nil {
		return err
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return err
	}
	a.conn = conn
	a.Publisher = mq.NewPublisher(conn, a.logger, mq.PublisherConfig{})
	a.logger.Info("job events enabled", "topology", mq.TopologyInfo())
	return nil
}

// Start сверяет running jobs и запускает монитор.
func (a *App) Start(ctx context.Context) error {
	if err := os.MkdirAll(a.Config.WorkspaceRoot, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	return a.Monitor.Start(ctx)
}

// Close останавливает монитор и закрывает соединения.
func (a *App) Close() error {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}

	var errs []error
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// warnRules логирует проблемы таблицы правил по одной.
func warnRules(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			logger.Warn("flow rule does not match catalog", "error", e)
		}
		return
	}
	logger.Warn("flow rule does not match catalog", "error", err)
}
