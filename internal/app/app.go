package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/AppStore/internal/config"
	"github.com/GoArmGo/AppStore/internal/core/ports"
	"github.com/GoArmGo/AppStore/internal/handler"
	"github.com/GoArmGo/AppStore/internal/usecase"
)

// Режимы запуска
const (
	ModeServer  = "server"
	ModeEnqueue = "enqueue"
)

// Options — параметры запуска из флагов командной строки
type Options struct {
	Mode string
	// Job и Days используются только в режиме enqueue
	Job  string
	Days int
}

type App struct {
	Config      *config.Config
	logger      *slog.Logger
	router      http.Handler
	rateLimiter *handler.RateLimiter
	maintenance usecase.MaintenanceUseCase
	publisher   ports.MaintenancePublisher
	consumer    ports.MaintenanceConsumer
	closers     []func() error
}

// Deps — собранные контейнером зависимости приложения
type Deps struct {
	Router      http.Handler
	RateLimiter *handler.RateLimiter
	Maintenance usecase.MaintenanceUseCase
	Publisher   ports.MaintenancePublisher
	Consumer    ports.MaintenanceConsumer
	// Closers вызываются в обратном порядке при завершении
	Closers []func() error
}

func NewApp(cfg *config.Config, logger *slog.Logger, deps Deps) *App {
	return &App{
		Config:      cfg,
		logger:      logger,
		router:      deps.Router,
		rateLimiter: deps.RateLimiter,
		maintenance: deps.Maintenance,
		publisher:   deps.Publisher,
		consumer:    deps.Consumer,
		closers:     deps.Closers,
	}
}

// LoggerIns возвращает логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

func (a *App) Run(ctx context.Context, opts Options) error {
	// канал для graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting application", "mode", opts.Mode)

	var err error
	switch opts.Mode {
	case ModeServer:
		err = a.runServer(ctx)
	case ModeEnqueue:
		err = a.runEnqueue(ctx, opts.Job, opts.Days)
	default:
		err = fmt.Errorf("неизвестный режим: %s (используйте %q или %q)", opts.Mode, ModeServer, ModeEnqueue)
	}

	// аккуратно закрываем ресурсы
	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("error during shutdown", "error", closeErr)
	}

	if err != nil {
		return err
	}
	a.logger.Info("application stopped")
	return nil
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
