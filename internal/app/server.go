package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// shutdownTimeout — сколько ждем завершения активных запросов
const shutdownTimeout = 30 * time.Second

// runServer запускает HTTP-сервер, потребителя заданий и планировщик до отмены ctx
func (a *App) runServer(ctx context.Context) error {
	if err := a.startConsumer(ctx); err != nil {
		return err
	}

	handle := maintenanceHandler(a.maintenance, a.Config.RetentionMaxAgeDays, a.logger)
	scheduler, err := newScheduler(ctx, a.Config.RetentionSchedule, a.Config.BackupSchedule, handle, a.logger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer func() {
			// ждем задания, которые уже выполняются
			<-scheduler.Stop().Done()
		}()
	}

	if a.rateLimiter != nil {
		a.rateLimiter.StartCleanup(ctx, 10*time.Minute)
	}

	serverAddr := fmt.Sprintf(":%s", a.Config.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("server started", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("ошибка при запуске сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received, stopping server")

	ctxServer, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxServer); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("server stopped gracefully")
	return nil
}
