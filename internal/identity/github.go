// Package identity talks to the external OAuth identity provider (GitHub).
// It only authenticates; deciding who may use the service is up to the
// account linker.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/aidar/rookie-board/internal/domain"
)

// GitHubConfig holds the OAuth application settings.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// AuthURL, TokenURL and UserInfoURL override the public GitHub endpoints.
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// GitHubGateway implements the OAuth code flow against GitHub.
type GitHubGateway struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGitHubGateway creates a gateway. A nil httpClient uses http.DefaultClient.
func NewGitHubGateway(cfg GitHubConfig, httpClient *http.Client) *GitHubGateway {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = "https://api.github.com/user"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GitHubGateway{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  httpClient,
	}
}

// AuthCodeURL returns the provider URL the browser is redirected to.
func (g *GitHubGateway) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and loads the profile.
// Any provider-side failure is reported as domain.ErrAuthenticationFailed.
func (g *GitHubGateway) Exchange(ctx context.Context, code string) (*domain.Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %v", domain.ErrAuthenticationFailed, err)
	}

	identity, err := g.fetchUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}
	return identity, nil
}

type githubUser struct {
	ID                int64  `json:"id"`
	Login             string `json:"login"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	AvatarURL         string `json:"avatar_url"`
}

func (g *GitHubGateway) fetchUser(ctx context.Context, token *oauth2.Token) (*domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	token.SetAuthHeader(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed: %s", resp.Status)
	}

	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if u.ID == 0 {
		return nil, fmt.Errorf("user info has no id")
	}

	return &domain.Identity{
		SubjectID: strconv.FormatInt(u.ID, 10),
		Profile: domain.Profile{
			Username:          u.Login,
			PreferredUsername: u.PreferredUsername,
			Email:             u.Email,
			DisplayName:       u.Name,
			AvatarURL:         u.AvatarURL,
		},
	}, nil
}
