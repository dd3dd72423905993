package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/middleware"
	"github.com/aidar/rookie-board/internal/service"
)

const (
	stateCookieName = "rb_oauth_state"
	nextCookieName  = "rb_oauth_next"
	stateCookieTTL  = 10 * time.Minute
)

// IdentityGateway выполняет OAuth обмен с провайдером
type IdentityGateway interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.Identity, error)
}

// Linker решает, пускать ли пользователя, и привязывает его к участнику
type Linker interface {
	Link(ctx context.Context, identity domain.Identity) (service.LinkResult, error)
}

// SessionIssuer выпускает токены сессии
type SessionIssuer interface {
	Issue(memberID, subjectID string) (string, error)
	Expiry() time.Duration
}

// MemberGetter читает участника по ID
type MemberGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Member, error)
}

// AuthConfig содержит настройки cookie и редиректов
type AuthConfig struct {
	CookieName      string
	SecureCookie    bool
	SuccessRedirect string
	FailureRedirect string
}

// AuthHandler обрабатывает эндпоинты аутентификации
type AuthHandler struct {
	gateway  IdentityGateway
	linker   Linker
	sessions SessionIssuer
	members  MemberGetter
	cfg      AuthConfig
	logger   *slog.Logger
}

// NewAuthHandler создает новый AuthHandler
func NewAuthHandler(
	gateway IdentityGateway,
	linker Linker,
	sessions SessionIssuer,
	members MemberGetter,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		gateway:  gateway,
		linker:   linker,
		sessions: sessions,
		members:  members,
		cfg:      cfg,
		logger:   logger,
	}
}

// Login обрабатывает GET /auth/login?next=...
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	h.setShortCookie(w, stateCookieName, state)

	if next := r.URL.Query().Get("next"); isLocalPath(next) {
		h.setShortCookie(w, nextCookieName, next)
	}

	http.Redirect(w, r, h.gateway.AuthCodeURL(state), http.StatusFound)
}

// Callback обрабатывает GET /auth/callback?code=...&state=...
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	h.clearCookie(w, stateCookieName)
	h.clearCookie(w, nextCookieName)

	if err := h.checkState(r, q.Get("state")); err != nil {
		h.logger.Warn("oauth state mismatch", "error", err)
		h.fail(w, r, "invalid_state")
		return
	}

	code := q.Get("code")
	if code == "" || q.Get("error") != "" {
		h.fail(w, r, "Could not authenticate with GitHub")
		return
	}

	identity, err := h.gateway.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("oauth exchange failed", "error", err)
		h.fail(w, r, "Could not authenticate with GitHub")
		return
	}

	result, err := h.linker.Link(ctx, *identity)
	if err != nil {
		h.logger.Error("account linking failed", "subject_id", identity.SubjectID, "error", err)
		h.fail(w, r, "Could not authenticate with GitHub")
		return
	}
	if !result.Allowed() {
		// Пользователя нет в allow-list: любая существующая сессия завершается
		h.clearCookie(w, h.cfg.CookieName)
		h.fail(w, r, string(domain.DenyUnauthorized))
		return
	}

	token, err := h.sessions.Issue(result.Member.ID, identity.SubjectID)
	if err != nil {
		h.logger.Error("failed to issue session", "member_id", result.Member.ID, "error", err)
		h.fail(w, r, "Could not authenticate with GitHub")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.Expiry().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	next := h.cfg.SuccessRedirect
	if c, err := r.Cookie(nextCookieName); err == nil && isLocalPath(c.Value) {
		next = c.Value
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout обрабатывает POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, h.cfg.CookieName)
	w.WriteHeader(http.StatusNoContent)
}

// Me обрабатывает GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.GetMemberIDFromContext(r.Context())

	member, err := h.members.GetByID(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrUnauthenticated
		}
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, member)
}

func (h *AuthHandler) checkState(r *http.Request, state string) error {
	c, err := r.Cookie(stateCookieName)
	if err != nil || state == "" {
		return domain.ErrInvalidState
	}
	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
		return domain.ErrInvalidState
	}
	return nil
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, reason string) {
	target := h.cfg.FailureRedirect + "?error=" + url.QueryEscape(reason)
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandler) setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	path := "/auth"
	if name == h.cfg.CookieName {
		path = "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// isLocalPath защищает от open redirect: разрешены только пути этого сервиса
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}
