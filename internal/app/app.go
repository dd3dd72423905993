package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/aidar/rookie-board/internal/aggregator"
	"github.com/aidar/rookie-board/internal/cache"
	"github.com/aidar/rookie-board/internal/config"
	"github.com/aidar/rookie-board/internal/handler"
	"github.com/aidar/rookie-board/internal/identity"
	"github.com/aidar/rookie-board/internal/metrics"
	"github.com/aidar/rookie-board/internal/middleware"
	"github.com/aidar/rookie-board/internal/repository/postgres"
	"github.com/aidar/rookie-board/internal/service"
	"github.com/aidar/rookie-board/migrations"
)

// App представляет приложение со всеми зависимостями
type App struct {
	config  *config.Config
	db      *pgxpool.Pool
	server  *http.Server
	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   *cache.Cache[[]aggregator.LeaderboardEntry]
	stop    context.CancelFunc
}

// New создает новый экземпляр приложения
func New(cfg *config.Config) (*App, error) {
	// Инициализируем структурированный логгер (JSON формат)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	app := &App{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	return app, nil
}

// Initialize инициализирует все компоненты приложения
func (a *App) Initialize(ctx context.Context) error {
	// Подключаемся к базе данных
	if err := a.connectDB(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if a.config.Database.AutoMigrate {
		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Настраиваем HTTP сервер и роутинг
	if err := a.setupServer(); err != nil {
		return err
	}

	a.logger.Info("Application initialized successfully")
	return nil
}

// connectDB устанавливает подключение к PostgreSQL с connection pool
func (a *App) connectDB(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	// Настраиваем размеры connection pool
	poolConfig.MaxConns = a.config.Database.MaxConns
	poolConfig.MinConns = a.config.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверяем подключение к БД
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.logger.Info("Connected to database")
	return nil
}

// Migrate подключается к базе, применяет миграции и закрывает подключение
func (a *App) Migrate(ctx context.Context) error {
	if err := a.connectDB(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		a.db.Close()
		a.db = nil
	}()

	return a.migrate(ctx)
}

// migrate применяет встроенные миграции через database/sql обертку над пулом
func (a *App) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(a.db)
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		return err
	}

	a.logger.Info("Database schema is up to date")
	return nil
}

// setupServer инициализирует HTTP роутер и обработчики
func (a *App) setupServer() error {
	loc, err := a.config.Calendar.Location()
	if err != nil {
		return err
	}

	// Кэш лидерборда живет столько же, сколько процесс
	a.cache = cache.New[[]aggregator.LeaderboardEntry](a.config.Cache.TTL, cache.WithObserver(a.metrics))

	// Инициализируем слой репозиториев (работа с БД)
	memberRepo := postgres.NewMemberRepository(a.db)
	clanRepo := postgres.NewClanRepository(a.db)
	txRepo := postgres.NewTransactionRepository(a.db)

	// Инициализируем слой сервисов (бизнес-логика)
	sessionService := service.NewSessionService(a.config.Session.Secret, a.config.Session.GetExpiration())
	linker := service.NewAccountLinker(memberRepo, a.logger, a.metrics)
	awardService := service.NewAwardService(memberRepo, txRepo, a.cache, a.logger, a.metrics)
	rosterService := service.NewRosterService(memberRepo, a.logger)
	leaderboardService := service.NewLeaderboardService(memberRepo, txRepo, a.cache)
	calendarService := service.NewCalendarService(txRepo, loc)
	profileService := service.NewProfileService(memberRepo, txRepo, loc)
	adminService := service.NewAdminService(memberRepo, clanRepo)

	gateway := identity.NewGitHubGateway(identity.GitHubConfig{
		ClientID:     a.config.GitHub.ClientID,
		ClientSecret: a.config.GitHub.ClientSecret,
		RedirectURL:  a.config.GitHub.RedirectURL,
		Scopes:       a.config.GitHub.Scopes,
		AuthURL:      a.config.GitHub.AuthURL,
		TokenURL:     a.config.GitHub.TokenURL,
		UserInfoURL:  a.config.GitHub.UserInfoURL,
	}, &http.Client{Timeout: 10 * time.Second})

	// Инициализируем HTTP обработчики
	authHandler := handler.NewAuthHandler(gateway, linker, sessionService, memberRepo, handler.AuthConfig{
		CookieName:      a.config.Session.CookieName,
		SecureCookie:    a.config.Session.SecureCookie,
		SuccessRedirect: a.config.GitHub.SuccessRedirect,
		FailureRedirect: a.config.GitHub.FailureRedirect,
	}, a.logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	calendarHandler := handler.NewCalendarHandler(calendarService)
	profileHandler := handler.NewProfileHandler(profileService, loc)
	awardHandler := handler.NewAwardHandler(awardService)
	rosterHandler := handler.NewRosterHandler(rosterService)
	adminHandler := handler.NewAdminHandler(adminService)

	// Сессия берется из cookie или из заголовка Authorization
	requireSession := middleware.RequireSession(sessionService, a.config.Session.CookieName)
	optionalSession := middleware.OptionalSession(sessionService, a.config.Session.CookieName)

	limiterCtx, stop := context.WithCancel(context.Background())
	a.stop = stop
	authLimiter := middleware.NewRateLimiter(a.config.RateLimit.RequestsPerSecond, a.config.RateLimit.Burst, a.logger)
	authLimiter.StartCleanup(limiterCtx, 10*time.Minute)

	// Настраиваем роутер
	r := chi.NewRouter()

	// Глобальные middleware (применяются ко всем запросам)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.metrics.InstrumentHandler)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check и метрики для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			a.logger.Error("Failed to write health check response", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	// OAuth вход через GitHub
	r.Route("/auth", func(r chi.Router) {
		r.With(authLimiter.Handler).Get("/login", authHandler.Login)
		r.With(authLimiter.Handler).Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	// Публичные эндпоинты чтения
	r.With(optionalSession).Get("/leaderboard", leaderboardHandler.GetLeaderboard)
	r.Get("/calendar", calendarHandler.GetCalendar)
	r.Get("/profile/{id}", profileHandler.GetProfile)
	r.Get("/profile/{id}/calendar", profileHandler.GetProfileCalendar)

	// Защищенные эндпоинты (роль проверяется в сервисах по данным из БД)
	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/me", authHandler.Me)

		r.Get("/captain/rookies", rosterHandler.ListRookies)
		r.Post("/captain/rookies", rosterHandler.AddRookie)
		r.Post("/awards", awardHandler.Award)

		r.Get("/admin/members", adminHandler.GetMembers)
	})

	// Создаем HTTP сервер с настройками таймаутов
	addr := fmt.Sprintf("%s:%s", a.config.Server.Host, a.config.Server.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.logger.Info("HTTP server configured", "addr", addr)
	return nil
}

// Handler возвращает корневой HTTP обработчик (используется в интеграционных тестах)
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// DB возвращает пул подключений к базе данных
func (a *App) DB() *pgxpool.Pool {
	return a.db
}

// Run запускает HTTP сервер
func (a *App) Run() error {
	a.logger.Info("Starting HTTP server", "addr", a.server.Addr)
	return a.server.ListenAndServe()
}

// Shutdown корректно останавливает приложение
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application")

	// Останавливаем HTTP сервер (ждем завершения текущих запросов)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	if a.stop != nil {
		a.stop()
	}

	// Останавливаем таймеры вытеснения кэша
	if a.cache != nil {
		a.cache.Close()
	}

	// Закрываем подключения к базе данных
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("Application stopped gracefully")
	return nil
}
