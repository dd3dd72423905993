package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidar/rookie-board/internal/service"
)

const cookieName = "rb_session"

func echoSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"member_id":  GetMemberIDFromContext(r.Context()),
			"subject_id": GetSubjectIDFromContext(r.Context()),
		})
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireSession(t *testing.T) {
	sessions := service.NewSessionService("secret", time.Hour)
	token, err := sessions.Issue("member-1", "4242")
	require.NoError(t, err)

	handler := RequireSession(sessions, cookieName)(echoSession())

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "member-1", body["member_id"])
		assert.Equal(t, "4242", body["subject_id"])
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	for name, mutate := range map[string]func(*http.Request){
		"no credentials":   func(*http.Request) {},
		"malformed header": func(r *http.Request) { r.Header.Set("Authorization", "Token "+token) },
		"bad cookie":       func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookieName, Value: "garbage"}) },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			mutate(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, LoginPath, rec.Header().Get("Location"))
			errBody := decode(t, rec)["error"].(map[string]any)
			assert.Equal(t, "UNAUTHENTICATED", errBody["code"])
		})
	}
}

func TestOptionalSession(t *testing.T) {
	sessions := service.NewSessionService("secret", time.Hour)
	token, err := sessions.Issue("member-1", "4242")
	require.NoError(t, err)

	handler := OptionalSession(sessions, cookieName)(echoSession())

	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "4242", decode(t, rec)["subject_id"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decode(t, rec)["subject_id"])
}
