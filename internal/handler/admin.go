package handler

import (
	"context"
	"net/http"

	"github.com/aidar/rookie-board/internal/middleware"
	"github.com/aidar/rookie-board/internal/service"
)

// OverviewReader строит обзор участников для организатора
type OverviewReader interface {
	Overview(ctx context.Context, actorID string) (*service.Overview, error)
}

// AdminHandler обрабатывает эндпоинты организатора
type AdminHandler struct {
	admin OverviewReader
}

// NewAdminHandler создает новый AdminHandler
func NewAdminHandler(admin OverviewReader) *AdminHandler {
	return &AdminHandler{
		admin: admin,
	}
}

// GetMembers обрабатывает GET /admin/members
func (h *AdminHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	overview, err := h.admin.Overview(r.Context(), middleware.GetMemberIDFromContext(r.Context()))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, overview)
}
