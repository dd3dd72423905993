package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/service"
)

// ContextKey это кастомный тип для ключей контекста
type ContextKey string

const (
	// MemberIDKey ключ контекста для ID участника
	MemberIDKey ContextKey = "member_id"
	// SubjectIDKey ключ контекста для внешнего субъекта
	SubjectIDKey ContextKey = "subject_id"
)

// LoginPath куда отправляется неаутентифицированный клиент
const LoginPath = "/auth/login"

// SessionValidator проверяет токен сессии
type SessionValidator interface {
	Validate(token string) (*service.Claims, error)
}

// RequireSession создает middleware, пропускающий только запросы с валидной сессией.
// Токен берется из cookie сессии или из заголовка Authorization: Bearer.
func RequireSession(sessions SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := authenticate(r, sessions, cookieName)
			if !ok {
				// Эквивалент редиректа на логин для JSON клиентов
				w.Header().Set("Location", LoginPath)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]any{
					"error": map[string]string{
						"code":    string(domain.CodeUnauthenticated),
						"message": "authentication required",
					},
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims.MemberID, claims.SubjectID)))
		})
	}
}

// OptionalSession добавляет сессию в контекст, если она есть, и никогда не отклоняет запрос
func OptionalSession(sessions SessionValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := authenticate(r, sessions, cookieName); ok {
				r = r.WithContext(WithSession(r.Context(), claims.MemberID, claims.SubjectID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, sessions SessionValidator, cookieName string) (*service.Claims, bool) {
	token := tokenFromRequest(r, cookieName)
	if token == "" {
		return nil, false
	}

	claims, err := sessions.Validate(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	// Заголовок имеет приоритет над cookie
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return ""
		}
		return parts[1]
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithSession кладет данные сессии в контекст
func WithSession(ctx context.Context, memberID, subjectID string) context.Context {
	ctx = context.WithValue(ctx, MemberIDKey, memberID)
	return context.WithValue(ctx, SubjectIDKey, subjectID)
}

// GetMemberIDFromContext извлекает ID участника из контекста
func GetMemberIDFromContext(ctx context.Context) string {
	memberID, ok := ctx.Value(MemberIDKey).(string)
	if !ok {
		return ""
	}
	return memberID
}

// GetSubjectIDFromContext извлекает внешний субъект из контекста
func GetSubjectIDFromContext(ctx context.Context) string {
	subjectID, ok := ctx.Value(SubjectIDKey).(string)
	if !ok {
		return ""
	}
	return subjectID
}
