package handler

import (
	"context"
	"net/http"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/middleware"
	"github.com/aidar/rookie-board/internal/service"
)

// RosterManager управляет новичками клана
type RosterManager interface {
	ListManageableRookies(ctx context.Context, actorID string) ([]*domain.Member, error)
	AddRookie(ctx context.Context, actorID string, req service.AddRookieRequest) (*domain.Member, error)
}

// RosterHandler обрабатывает эндпоинты капитана
type RosterHandler struct {
	roster RosterManager
}

// NewRosterHandler создает новый RosterHandler
func NewRosterHandler(roster RosterManager) *RosterHandler {
	return &RosterHandler{
		roster: roster,
	}
}

// RookiesResponse представляет список новичков
type RookiesResponse struct {
	Rookies []*domain.Member `json:"rookies"`
}

// AddRookieResponse представляет ответ на добавление новичка
type AddRookieResponse struct {
	Member *domain.Member `json:"member"`
}

// ListRookies обрабатывает GET /captain/rookies
func (h *RosterHandler) ListRookies(w http.ResponseWriter, r *http.Request) {
	rookies, err := h.roster.ListManageableRookies(r.Context(), middleware.GetMemberIDFromContext(r.Context()))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, RookiesResponse{Rookies: rookies})
}

// AddRookie обрабатывает POST /captain/rookies
func (h *RosterHandler) AddRookie(w http.ResponseWriter, r *http.Request) {
	var req service.AddRookieRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	member, err := h.roster.AddRookie(r.Context(), middleware.GetMemberIDFromContext(r.Context()), req)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, AddRookieResponse{Member: member})
}
