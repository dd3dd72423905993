package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig    // Настройки HTTP сервера
	Database  DatabaseConfig  // Настройки подключения к БД
	Session   SessionConfig   // Настройки сессионных токенов
	GitHub    GitHubConfig    // Настройки OAuth приложения GitHub
	Cache     CacheConfig     // Настройки кэша лидерборда
	Calendar  CalendarConfig  // Настройки календаря
	RateLimit RateLimitConfig // Ограничение частоты запросов к /auth
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port string `envconfig:"SERVER_PORT" default:"8080"`
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"rookie_board"`
	Password    string `envconfig:"DB_PASSWORD" default:"rookie_board_pass"`
	Name        string `envconfig:"DB_NAME" default:"rookie_board"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int32  `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// SessionConfig содержит настройки сессии (JWT в cookie)
type SessionConfig struct {
	Secret          string `envconfig:"SESSION_SECRET" required:"true"`
	ExpirationHours int    `envconfig:"SESSION_EXPIRATION_HOURS" default:"168"`
	CookieName      string `envconfig:"SESSION_COOKIE_NAME" default:"rb_session"`
	SecureCookie    bool   `envconfig:"SESSION_SECURE_COOKIE" default:"true"`
}

// GitHubConfig содержит настройки OAuth приложения.
// Endpoint поля переопределяются в тестах, чтобы ходить в фейковый провайдер.
type GitHubConfig struct {
	ClientID        string   `envconfig:"GITHUB_CLIENT_ID" required:"true"`
	ClientSecret    string   `envconfig:"GITHUB_CLIENT_SECRET" required:"true"`
	RedirectURL     string   `envconfig:"GITHUB_REDIRECT_URL" default:"http://localhost:8080/auth/callback"`
	Scopes          []string `envconfig:"GITHUB_SCOPES" default:"read:user,user:email"`
	AuthURL         string   `envconfig:"GITHUB_AUTH_URL"`
	TokenURL        string   `envconfig:"GITHUB_TOKEN_URL"`
	UserInfoURL     string   `envconfig:"GITHUB_USER_INFO_URL" default:"https://api.github.com/user"`
	SuccessRedirect string   `envconfig:"GITHUB_SUCCESS_REDIRECT" default:"/leaderboard"`
	FailureRedirect string   `envconfig:"GITHUB_FAILURE_REDIRECT" default:"/login"`
}

// CacheConfig содержит настройки кэша чтения
type CacheConfig struct {
	TTL time.Duration `envconfig:"CACHE_TTL" default:"30s"`
}

// CalendarConfig содержит настройки раскладки транзакций по дням
type CalendarConfig struct {
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
}

// RateLimitConfig содержит настройки лимита для эндпоинтов аутентификации
type RateLimitConfig struct {
	RequestsPerSecond int `envconfig:"AUTH_RATE_LIMIT_RPS" default:"5"`
	Burst             int `envconfig:"AUTH_RATE_LIMIT_BURST" default:"10"`
}

// GetExpiration возвращает срок действия сессии как time.Duration
func (s SessionConfig) GetExpiration() time.Duration {
	return time.Duration(s.ExpirationHours) * time.Hour
}

// DSN возвращает строку подключения к PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Location возвращает часовой пояс, в котором считаются календарные дни
func (c CalendarConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load читает конфигурацию из переменных окружения.
// Если рядом лежит .env, значения из него подхватываются, но не перекрывают уже заданные.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := cfg.Calendar.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
