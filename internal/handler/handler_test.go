package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidar/rookie-board/internal/aggregator"
	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/middleware"
	"github.com/aidar/rookie-board/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func withMember(r *http.Request, memberID string) *http.Request {
	return r.WithContext(middleware.WithSession(r.Context(), memberID, "sub-"+memberID))
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   domain.ErrorCode
		msg    string
	}{
		{"scope denial", domain.Deny(domain.DenyScope), http.StatusForbidden, domain.CodeAccessDenied, "scope"},
		{"wrapped denial", fmt.Errorf("award: %w", domain.Deny(domain.DenyInvalidAmount)), http.StatusForbidden, domain.CodeAccessDenied, "invalid-amount"},
		{"validation", domain.Invalid("description", "too long"), http.StatusBadRequest, domain.CodeValidation, "description: too long"},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, domain.CodeUnauthenticated, "authentication required"},
		{"not found", domain.ErrMemberNotFound, http.StatusNotFound, domain.CodeNotFound, "resource not found"},
		{"username taken", domain.ErrUsernameTaken, http.StatusConflict, domain.CodeUsernameTaken, "a member with this GitHub username already exists"},
		{"idempotency conflict", domain.ErrIdempotencyConflict, http.StatusConflict, domain.CodeIdempotencyConflict, "Idempotency-Key was already used for a different award"},
		{"store failure", errors.New("pq: connection refused"), http.StatusInternalServerError, domain.CodeInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, string(tt.code), body.Code)
			assert.Equal(t, tt.msg, body.Message)
		})
	}

	rec := httptest.NewRecorder()
	HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), domain.ErrUnauthenticated)
	assert.Equal(t, middleware.LoginPath, rec.Header().Get("Location"))
}

type fakeAwarder struct {
	actorID string
	req     service.AwardRequest
	result  *service.AwardResult
	err     error
}

func (f *fakeAwarder) Award(_ context.Context, actorID string, req service.AwardRequest) (*service.AwardResult, error) {
	f.actorID = actorID
	f.req = req
	return f.result, f.err
}

func TestAwardHandler_Award(t *testing.T) {
	awarder := &fakeAwarder{result: &service.AwardResult{Count: 2}}
	h := NewAwardHandler(awarder)

	req := httptest.NewRequest(http.MethodPost, "/awards",
		strings.NewReader(`{"member_ids":["r1","r2"],"amount":5,"description":"quiz-1/1"}`))
	req.Header.Set(IdempotencyKeyHeader, " key-1 ")
	rec := httptest.NewRecorder()

	h.Award(rec, withMember(req, "cap"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"count":2,"replayed":false}`, rec.Body.String())
	assert.Equal(t, "cap", awarder.actorID)
	assert.Equal(t, []string{"r1", "r2"}, awarder.req.MemberIDs)
	assert.Equal(t, 5, awarder.req.Amount)
	assert.Equal(t, "key-1", awarder.req.IdempotencyKey)
}

func TestAwardHandler_Replay(t *testing.T) {
	h := NewAwardHandler(&fakeAwarder{result: &service.AwardResult{Count: 1, Replayed: true}})

	req := httptest.NewRequest(http.MethodPost, "/awards", strings.NewReader(`{"member_ids":["r1"],"amount":5}`))
	rec := httptest.NewRecorder()
	h.Award(rec, withMember(req, "org"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAwardHandler_Errors(t *testing.T) {
	t.Run("denied", func(t *testing.T) {
		h := NewAwardHandler(&fakeAwarder{err: domain.Deny(domain.DenyScope)})
		req := httptest.NewRequest(http.MethodPost, "/awards", strings.NewReader(`{"member_ids":["r1"],"amount":5}`))
		rec := httptest.NewRecorder()

		h.Award(rec, withMember(req, "cap"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "scope", errorBody(t, rec).Message)
	})

	t.Run("bad body", func(t *testing.T) {
		awarder := &fakeAwarder{}
		h := NewAwardHandler(awarder)
		req := httptest.NewRequest(http.MethodPost, "/awards", strings.NewReader(`{"member_ids":"r1"}`))
		rec := httptest.NewRecorder()

		h.Award(rec, withMember(req, "cap"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, awarder.actorID)
	})

	t.Run("unknown field", func(t *testing.T) {
		h := NewAwardHandler(&fakeAwarder{})
		req := httptest.NewRequest(http.MethodPost, "/awards", strings.NewReader(`{"member_ids":["r1"],"amount":5,"role":"organizer"}`))
		rec := httptest.NewRecorder()

		h.Award(rec, withMember(req, "cap"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type fakeCalendar struct {
	year, month int
	err         error
}

func (f *fakeCalendar) Month(_ context.Context, year, month int) (*aggregator.Calendar, error) {
	f.year, f.month = year, month
	if f.err != nil {
		return nil, f.err
	}
	m, err := aggregator.NewMonth(year, month)
	if err != nil {
		return nil, domain.Invalid("month", err.Error())
	}
	return &aggregator.Calendar{Month: m, Days: []aggregator.CalendarDay{}, Prev: m.Prev(), Next: m.Next()}, nil
}

func (f *fakeCalendar) Location() *time.Location { return time.UTC }

func TestCalendarHandler(t *testing.T) {
	cal := &fakeCalendar{}
	h := NewCalendarHandler(cal)
	h.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	rec := httptest.NewRecorder()
	h.GetCalendar(rec, httptest.NewRequest(http.MethodGet, "/calendar", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2024, cal.year)
	assert.Equal(t, 3, cal.month)

	rec = httptest.NewRecorder()
	h.GetCalendar(rec, httptest.NewRequest(http.MethodGet, "/calendar?year=2023&month=12", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Month aggregator.Month `json:"month"`
		Next  aggregator.Month `json:"next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, aggregator.Month{Year: 2023, Month: time.December}, body.Month)
	assert.Equal(t, aggregator.Month{Year: 2024, Month: time.January}, body.Next)

	rec = httptest.NewRecorder()
	h.GetCalendar(rec, httptest.NewRequest(http.MethodGet, "/calendar?month=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.GetCalendar(rec, httptest.NewRequest(http.MethodGet, "/calendar?month=13", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeLeaderboard struct{ viewer string }

func (f *fakeLeaderboard) Get(_ context.Context, viewer string) ([]aggregator.LeaderboardEntry, error) {
	f.viewer = viewer
	return []aggregator.LeaderboardEntry{{Rank: 1, MemberID: "a", TotalPoints: 7, IsViewer: viewer == "sub-a"}}, nil
}

func TestLeaderboardHandler(t *testing.T) {
	board := &fakeLeaderboard{}
	h := NewLeaderboardHandler(board)

	rec := httptest.NewRecorder()
	h.GetLeaderboard(rec, withMember(httptest.NewRequest(http.MethodGet, "/leaderboard", nil), "a"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-a", board.viewer)
	assert.JSONEq(t, `{"entries":[{"rank":1,"member_id":"a","name":"","total_points":7,"is_viewer":true}]}`, rec.Body.String())
}

type fakeProfiles struct{}

func (fakeProfiles) Get(_ context.Context, id string) (*service.Profile, error) {
	if id != "a" {
		return nil, domain.ErrMemberNotFound
	}
	return &service.Profile{Member: &domain.Member{ID: "a"}, TotalPoints: 7}, nil
}

func (fakeProfiles) Calendar(_ context.Context, id string, year, month int) (*aggregator.ProfileCalendar, error) {
	m, _ := aggregator.NewMonth(year, month)
	return &aggregator.ProfileCalendar{Month: m, Days: []aggregator.ProfileDay{}}, nil
}

func TestProfileHandler(t *testing.T) {
	h := NewProfileHandler(fakeProfiles{}, nil)
	r := chi.NewRouter()
	r.Get("/profile/{id}", h.GetProfile)
	r.Get("/profile/{id}/calendar", h.GetProfileCalendar)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/a", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_points":7`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/a/calendar?year=2024&month=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"month":{"year":2024,"month":1}`)
}

type fakeRoster struct {
	added service.AddRookieRequest
	err   error
}

func (f *fakeRoster) ListManageableRookies(_ context.Context, actorID string) ([]*domain.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*domain.Member{{ID: "r1", Role: domain.RoleRookie}}, nil
}

func (f *fakeRoster) AddRookie(_ context.Context, actorID string, req service.AddRookieRequest) (*domain.Member, error) {
	f.added = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Member{ID: "new", DisplayName: req.Name, Role: domain.RoleRookie}, nil
}

func TestRosterHandler(t *testing.T) {
	roster := &fakeRoster{}
	h := NewRosterHandler(roster)

	rec := httptest.NewRecorder()
	h.ListRookies(rec, withMember(httptest.NewRequest(http.MethodGet, "/captain/rookies", nil), "cap"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rookies":[`)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/captain/rookies", strings.NewReader(`{"name":"Jane","github_username":"jane"}`))
	h.AddRookie(rec, withMember(req, "cap"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "jane", roster.added.GitHubUsername)

	roster.err = domain.ErrUsernameTaken
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/captain/rookies", strings.NewReader(`{"name":"Jane","github_username":"jane"}`))
	h.AddRookie(rec, withMember(req, "cap"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	roster.err = domain.Deny(domain.DenyRole)
	rec = httptest.NewRecorder()
	h.ListRookies(rec, withMember(httptest.NewRequest(http.MethodGet, "/captain/rookies", nil), "rookie"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "role", errorBody(t, rec).Message)
}

type fakeOverview struct{}

func (fakeOverview) Overview(_ context.Context, actorID string) (*service.Overview, error) {
	if actorID != "org" {
		return nil, domain.Deny(domain.DenyRole)
	}
	return &service.Overview{Total: 3}, nil
}

func TestAdminHandler(t *testing.T) {
	h := NewAdminHandler(fakeOverview{})

	rec := httptest.NewRecorder()
	h.GetMembers(rec, withMember(httptest.NewRequest(http.MethodGet, "/admin/members", nil), "org"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":3`)

	rec = httptest.NewRecorder()
	h.GetMembers(rec, withMember(httptest.NewRequest(http.MethodGet, "/admin/members", nil), "cap"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
