package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidar/rookie-board/internal/domain"
)

func newFakeProvider(t *testing.T, user map[string]any, userStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-123",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userStatus)
		_ = json.NewEncoder(w).Encode(user)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(srv *httptest.Server) *GitHubGateway {
	return NewGitHubGateway(GitHubConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/callback",
		Scopes:       []string{"read:user"},
		AuthURL:      srv.URL + "/login/oauth/authorize",
		TokenURL:     srv.URL + "/login/oauth/access_token",
		UserInfoURL:  srv.URL + "/user",
	}, srv.Client())
}

func TestGitHubGateway_AuthCodeURL(t *testing.T) {
	srv := newFakeProvider(t, nil, http.StatusOK)
	g := newGateway(srv)

	u, err := url.Parse(g.AuthCodeURL("state-1"))
	require.NoError(t, err)

	assert.Equal(t, "/login/oauth/authorize", u.Path)
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "client", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost/auth/callback", u.Query().Get("redirect_uri"))
}

func TestGitHubGateway_Exchange(t *testing.T) {
	srv := newFakeProvider(t, map[string]any{
		"id":         4242,
		"login":      "OctoCat",
		"email":      "octo@example.com",
		"name":       "The Octocat",
		"avatar_url": "https://avatars.example.com/4242",
	}, http.StatusOK)

	identity, err := newGateway(srv).Exchange(context.Background(), "good-code")
	require.NoError(t, err)

	assert.Equal(t, "4242", identity.SubjectID)
	assert.Equal(t, "OctoCat", identity.Profile.Username)
	assert.Equal(t, "octo@example.com", identity.Profile.Email)
	assert.Equal(t, "The Octocat", identity.Profile.DisplayName)
	assert.Equal(t, "https://avatars.example.com/4242", identity.Profile.AvatarURL)
}

func TestGitHubGateway_ExchangeBadCode(t *testing.T) {
	srv := newFakeProvider(t, nil, http.StatusOK)

	_, err := newGateway(srv).Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestGitHubGateway_UserInfoFailure(t *testing.T) {
	srv := newFakeProvider(t, map[string]any{"message": "boom"}, http.StatusInternalServerError)

	_, err := newGateway(srv).Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestGitHubGateway_UserWithoutID(t *testing.T) {
	srv := newFakeProvider(t, map[string]any{"login": "ghost"}, http.StatusOK)

	_, err := newGateway(srv).Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}
