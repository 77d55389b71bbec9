package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/GoArmGo/AppStore/internal/app"
	"github.com/GoArmGo/AppStore/internal/di"
)

func main() {
	var opts app.Options
	flag.StringVar(&opts.Mode, "mode", app.ModeServer, "Режим запуска приложения: server или enqueue")
	flag.StringVar(&opts.Job, "job", "cleanup", "Задание для режима enqueue: cleanup или backup")
	flag.IntVar(&opts.Days, "days", 0, "Возраст приложений в днях для cleanup (по умолчанию RETENTION_MAX_AGE_DAYS)")
	flag.Parse()

	// bootstrap-логгер (используется только на этапе инициализации т.к еще не создан slogger)
	bootstrapLogger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	bootstrapLogger.Info("starting application", "mode", opts.Mode)

	ctx := context.Background()

	application, err := di.BuildApp(ctx, opts.Mode)
	if err != nil {
		bootstrapLogger.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	log := application.LoggerIns()
	log.Info("application initialized successfully")

	if err := application.Run(ctx, opts); err != nil {
		log.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
