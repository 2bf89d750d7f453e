// Package config читает конфигурацию процессов Amplicore из окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrInvalidValue: переменная окружения не разбирается.
var ErrInvalidValue = errors.New("invalid config value")

// Config — конфигурация, общая для сервера, MCP сервера и CLI.
type Config struct {
	WorkspaceRoot string

	// DatabaseURL выбирает PostgreSQL; пустое значение означает SQLite.
	DatabaseURL string
	SQLitePath  string

	// CatalogPath пуст для встроенного каталога.
	CatalogPath string
	ToolsDir    string
	BinDir      string
	LibDir      string
	Python      string
	DefaultCPUs int

	PollInterval time.Duration
	APIPort      string

	// RabbitMQURL пуст, если события jobs не публикуются.
	RabbitMQURL string

	// SubmitRatePerMin — лимит запусков через HTTP; 0 отключает лимит.
	SubmitRatePerMin int
}

// Load читает конфигурацию. Некорректные числа и интервалы возвращаются ошибкой.
func Load() (*Config, error) {
	cfg := &Config{
		WorkspaceRoot: getenv("WORKSPACE_ROOT", "./workspaces"),
		DatabaseURL:   os.Getenv("DB_URL"),
		SQLitePath:    getenv("SQLITE_PATH", "./amplicore.db"),
		CatalogPath:   os.Getenv("CATALOG_PATH"),
		ToolsDir:      getenv("FROGS_TOOLS_DIR", "./FROGS/tools"),
		BinDir:        getenv("FROGS_BIN_DIR", "./FROGS/libexec"),
		LibDir:        getenv("FROGS_LIB_DIR", "./FROGS/lib"),
		Python:        getenv("FROGS_PYTHON", "/usr/bin/python3"),
		APIPort:       getenv("API_PORT", "8080"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
	}

	var errs []error
	var err error

	if cfg.DefaultCPUs, err = intEnv("DEFAULT_NB_CPUS", 4); err != nil {
		errs = append(errs, err)
	} else if cfg.DefaultCPUs < 1 {
		errs = append(errs, fmt.Errorf("%w: DEFAULT_NB_CPUS must be positive, got %d", ErrInvalidValue, cfg.DefaultCPUs))
	}

	if cfg.SubmitRatePerMin, err = intEnv("SUBMIT_RATE_PER_MIN", 60); err != nil {
		errs = append(errs, err)
	} else if cfg.SubmitRatePerMin < 0 {
		errs = append(errs, fmt.Errorf("%w: SUBMIT_RATE_PER_MIN must not be negative", ErrInvalidValue))
	}

	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", 10*time.Second); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return n, nil
}

// durationEnv принимает Go duration ("500ms") или число секунд ("2.5").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
}
