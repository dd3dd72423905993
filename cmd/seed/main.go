package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	flag "github.com/spf13/pflag"

	"github.com/aidar/rookie-board/internal/config"
	"github.com/aidar/rookie-board/internal/repository/postgres"
	"github.com/aidar/rookie-board/internal/roster"
	"github.com/aidar/rookie-board/internal/service"
	"github.com/aidar/rookie-board/migrations"
)

func main() {
	file := flag.StringP("file", "f", "roster.yaml", "путь к YAML файлу с кланами и участниками")
	migrate := flag.Bool("migrate", true, "применить миграции перед загрузкой")
	dryRun := flag.Bool("dry-run", false, "только проверить файл, не трогая базу")
	timeout := flag.Duration("timeout", time.Minute, "общий таймаут операции")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Проверяем файл до подключения к БД
	r, err := roster.Load(*file)
	if err != nil {
		log.Fatalf("Не удалось прочитать список участников: %v", err)
	}
	if *dryRun {
		fmt.Printf("Файл %s корректен: кланов %d, участников %d\n", *file, len(r.Clans), len(r.Members))
		return
	}

	// Для сидера нужны только настройки БД, секреты OAuth не обязательны
	_ = godotenv.Load()
	var dbCfg config.DatabaseConfig
	if err := envconfig.Process("", &dbCfg); err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию БД: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatalf("Не удалось подключиться к базе данных: %v", err)
	}
	defer pool.Close()

	if *migrate {
		db := stdlib.OpenDBFromPool(pool)
		err := migrations.Apply(ctx, db)
		_ = db.Close()
		if err != nil {
			log.Fatalf("Не удалось применить миграции: %v", err)
		}
	}

	provisioning := service.NewProvisioningService(
		postgres.NewMemberRepository(pool),
		postgres.NewClanRepository(pool),
		logger,
	)

	result, err := provisioning.Apply(ctx, r)
	if err != nil {
		log.Fatalf("Не удалось загрузить участников: %v", err)
	}

	fmt.Printf("Готово: кланов %d, участников %d\n", result.Clans, result.Members)
}
