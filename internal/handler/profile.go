package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidar/rookie-board/internal/aggregator"
	"github.com/aidar/rookie-board/internal/service"
)

// ProfileReader читает профиль участника
type ProfileReader interface {
	Get(ctx context.Context, memberID string) (*service.Profile, error)
	Calendar(ctx context.Context, memberID string, year, month int) (*aggregator.ProfileCalendar, error)
}

// ProfileHandler обрабатывает эндпоинты профиля
type ProfileHandler struct {
	profiles ProfileReader
	loc      *time.Location
	now      func() time.Time
}

// NewProfileHandler создает новый ProfileHandler
func NewProfileHandler(profiles ProfileReader, loc *time.Location) *ProfileHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ProfileHandler{
		profiles: profiles,
		loc:      loc,
		now:      time.Now,
	}
}

// GetProfile обрабатывает GET /profile/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, profile)
}

// GetProfileCalendar обрабатывает GET /profile/{id}/calendar?year=...&month=...
func (h *ProfileHandler) GetProfileCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r, h.now().In(h.loc))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	cal, err := h.profiles.Calendar(r.Context(), chi.URLParam(r, "id"), year, month)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, cal)
}
