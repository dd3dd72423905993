package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/aidar/rookie-board/internal/app"
	"github.com/aidar/rookie-board/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("Сервер завершился с ошибкой", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	var (
		port        string
		migrateOnly bool
		skipMigrate bool
	)

	flagSet := pflag.NewFlagSet("rookie-board", pflag.ContinueOnError)
	flagSet.StringVar(&port, "port", "", "порт HTTP сервера (перекрывает SERVER_PORT)")
	flagSet.BoolVar(&migrateOnly, "migrate-only", false, "применить миграции и выйти")
	flagSet.BoolVar(&skipMigrate, "skip-migrate", false, "не применять миграции при старте (перекрывает DB_AUTO_MIGRATE)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if migrateOnly && skipMigrate {
		return fmt.Errorf("--migrate-only и --skip-migrate нельзя указывать вместе")
	}

	// Загружаем конфигурацию из переменных окружения, флаги имеют приоритет
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if skipMigrate {
		cfg.Database.AutoMigrate = false
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("не удалось создать приложение: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrateOnly {
		if err := application.Migrate(ctx); err != nil {
			return fmt.Errorf("не удалось применить миграции: %w", err)
		}
		logger.Info("Миграции применены")
		return nil
	}

	// Инициализируем приложение (подключение к БД, миграции, настройка роутинга)
	if err := application.Initialize(ctx); err != nil {
		return fmt.Errorf("не удалось инициализировать приложение: %w", err)
	}

	// Запускаем HTTP сервер в отдельной горутине
	serverErr := make(chan error, 1)
	go func() {
		if err := application.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	logger.Info("Сервер запущен",
		"port", cfg.Server.Port,
		"auto_migrate", cfg.Database.AutoMigrate,
		"timezone", cfg.Calendar.Timezone,
		"cache_ttl", cfg.Cache.TTL.String(),
	)

	// Ожидаем сигнал прерывания (Ctrl+C или SIGTERM) или падение сервера
	select {
	case <-ctx.Done():
		logger.Info("Остановка сервера")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("ошибка сервера: %w", err)
		}
	}

	// Даем текущим запросам завершиться
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("не удалось корректно остановить сервер: %w", err)
	}

	logger.Info("Сервер остановлен")
	return nil
}
