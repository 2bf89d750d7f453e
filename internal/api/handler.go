package api

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/shaiso/Amplicore/internal/service"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	svc     *service.Service
	limiter *rate.Limiter // nil — без лимита
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Service *service.Service

	// SubmitRatePerMin ограничивает запуски jobs; 0 отключает лимит.
	SubmitRatePerMin int

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		svc:    cfg.Service,
		logger: logger.With("component", "api"),
	}
	if cfg.SubmitRatePerMin > 0 {
		burst := max(1, cfg.SubmitRatePerMin/10)
		h.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.SubmitRatePerMin)), burst)
	}
	return h
}
