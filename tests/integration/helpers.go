package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aidar/rookie-board/internal/app"
	"github.com/aidar/rookie-board/internal/config"
	"github.com/aidar/rookie-board/internal/repository/postgres"
	"github.com/aidar/rookie-board/internal/roster"
	"github.com/aidar/rookie-board/internal/service"
)

const sessionCookieName = "rb_session"

// GitHubUser описывает пользователя фейкового OAuth провайдера
type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// TestEnvironment содержит все ресурсы необходимые для интеграционных тестов
type TestEnvironment struct {
	PostgresContainer *tcpostgres.PostgresContainer
	App               *app.App
	Server            *httptest.Server
	GitHub            *httptest.Server
	BaseURL           string
	DB                *pgxpool.Pool
	ctx               context.Context
}

// SetupTestEnvironment создает и инициализирует полное тестовое окружение.
// Пользователи фейкового GitHub выдаются по коду авторизации: code == login.
func SetupTestEnvironment(t *testing.T, users ...GitHubUser) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	// Запускаем PostgreSQL контейнер
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rookie_board_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	gh := newFakeGitHub(t, users)

	// Миграции применяет само приложение (DB_AUTO_MIGRATE)
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: "0",
			Host: "127.0.0.1",
		},
		Database: config.DatabaseConfig{
			Host:        host,
			Port:        port.Port(),
			User:        "test_user",
			Password:    "test_password",
			Name:        "rookie_board_test",
			SSLMode:     "disable",
			MaxConns:    10,
			MinConns:    1,
			AutoMigrate: true,
		},
		Session: config.SessionConfig{
			Secret:          "test-session-secret-for-integration-tests",
			ExpirationHours: 24,
			CookieName:      sessionCookieName,
		},
		GitHub: config.GitHubConfig{
			ClientID:        "test-client",
			ClientSecret:    "test-secret",
			RedirectURL:     "http://localhost/auth/callback",
			Scopes:          []string{"read:user"},
			AuthURL:         gh.URL + "/login/oauth/authorize",
			TokenURL:        gh.URL + "/login/oauth/access_token",
			UserInfoURL:     gh.URL + "/user",
			SuccessRedirect: "/leaderboard",
			FailureRedirect: "/login",
		},
		Cache:     config.CacheConfig{TTL: time.Minute},
		Calendar:  config.CalendarConfig{Timezone: "UTC"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}

	application, err := app.New(cfg)
	require.NoError(t, err, "Failed to create application")

	err = application.Initialize(ctx)
	require.NoError(t, err, "Failed to initialize application")

	// Обработчик приложения поднимаем на случайном порту
	srv := httptest.NewServer(application.Handler())

	return &TestEnvironment{
		PostgresContainer: pgContainer,
		App:               application,
		Server:            srv,
		GitHub:            gh,
		BaseURL:           srv.URL,
		DB:                application.DB(),
		ctx:               ctx,
	}
}

// Cleanup очищает все тестовые ресурсы
func (te *TestEnvironment) Cleanup(t *testing.T) {
	t.Helper()

	if te.Server != nil {
		te.Server.Close()
	}
	if te.GitHub != nil {
		te.GitHub.Close()
	}

	// Останавливаем приложение (закрывает и пул БД)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if te.App != nil {
		_ = te.App.Shutdown(shutdownCtx)
	}

	// Останавливаем PostgreSQL контейнер
	if te.PostgresContainer != nil {
		_ = te.PostgresContainer.Terminate(te.ctx)
	}
}

// Provision загружает кланы и участников так же, как это делает cmd/seed
func (te *TestEnvironment) Provision(t *testing.T, doc string) {
	t.Helper()

	r, err := roster.Parse(strings.NewReader(doc))
	require.NoError(t, err, "Failed to parse roster")
	svc := service.NewProvisioningService(
		postgres.NewMemberRepository(te.DB),
		postgres.NewClanRepository(te.DB),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	_, err = svc.Apply(te.ctx, r)
	require.NoError(t, err, "Failed to provision roster")
}

// MemberID возвращает ID участника по имени пользователя GitHub
func (te *TestEnvironment) MemberID(t *testing.T, username string) string {
	t.Helper()

	var id string
	err := te.DB.QueryRow(te.ctx, `SELECT id::text FROM members WHERE github_username = $1`, username).Scan(&id)
	require.NoError(t, err, "Member %s not found", username)
	return id
}

// InsertTransaction добавляет транзакцию с заданным временем создания
func (te *TestEnvironment) InsertTransaction(t *testing.T, memberID, givenByID string, amount int, description string, createdAt time.Time) {
	t.Helper()

	_, err := te.DB.Exec(te.ctx, `
		INSERT INTO transactions (member_id, given_by_id, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		memberID, givenByID, amount, description, createdAt)
	require.NoError(t, err, "Failed to insert transaction")
}

// CountTransactions возвращает число транзакций в базе
func (te *TestEnvironment) CountTransactions(t *testing.T) int {
	t.Helper()

	var n int
	require.NoError(t, te.DB.QueryRow(te.ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n))
	return n
}

// noRedirectClient не следует редиректам, чтобы тесты видели Location и cookie
func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Login проходит OAuth поток через фейковый GitHub и возвращает ответ колбэка
func (te *TestEnvironment) Login(t *testing.T, code string) *http.Response {
	t.Helper()
	client := noRedirectClient()

	resp, err := client.Get(te.BaseURL + "/auth/login")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	req, err := http.NewRequest(http.MethodGet,
		te.BaseURL+"/auth/callback?code="+url.QueryEscape(code)+"&state="+url.QueryEscape(state), nil)
	require.NoError(t, err)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}

	callback, err := client.Do(req)
	require.NoError(t, err)
	callback.Body.Close()
	return callback
}

// SessionToken логинится и достает токен сессии из cookie
func (te *TestEnvironment) SessionToken(t *testing.T, code string) string {
	t.Helper()

	resp := te.Login(t, code)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c.Value
		}
	}
	t.Fatalf("session cookie not set, redirected to %s", resp.Header.Get("Location"))
	return ""
}

// MakeRequest вспомогательная функция для HTTP запросов в тестах
func (te *TestEnvironment) MakeRequest(t *testing.T, method, path string, body io.Reader, token string, headers ...string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, te.BaseURL+path, body)
	require.NoError(t, err, "Failed to create request")

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err, "Failed to make request")

	return resp
}

// WaitForHealthCheck ждет пока приложение станет доступным
func (te *TestEnvironment) WaitForHealthCheck(t *testing.T) {
	t.Helper()

	maxRetries := 30
	for i := 0; i < maxRetries; i++ {
		resp, err := http.Get(te.BaseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatal("Application did not become healthy in time")
}

// newFakeGitHub поднимает минимальный OAuth провайдер: токен равен коду, код равен login
func newFakeGitHub(t *testing.T, users []GitHubUser) *httptest.Server {
	t.Helper()

	byLogin := make(map[string]GitHubUser, len(users))
	for _, u := range users {
		byLogin[u.Login] = u
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		code := r.Form.Get("code")
		if _, ok := byLogin[code]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": code,
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		u, ok := byLogin[token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	})

	return httptest.NewServer(mux)
}

// decode читает JSON тело ответа и закрывает его
func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v), fmt.Sprintf("status %d", resp.StatusCode))
}
