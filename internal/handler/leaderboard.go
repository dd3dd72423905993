package handler

import (
	"context"
	"net/http"

	"github.com/aidar/rookie-board/internal/aggregator"
	"github.com/aidar/rookie-board/internal/middleware"
)

// LeaderboardReader возвращает рейтинг новичков
type LeaderboardReader interface {
	Get(ctx context.Context, viewerSubject string) ([]aggregator.LeaderboardEntry, error)
}

// LeaderboardHandler обрабатывает эндпоинт лидерборда
type LeaderboardHandler struct {
	leaderboard LeaderboardReader
}

// NewLeaderboardHandler создает новый LeaderboardHandler
func NewLeaderboardHandler(leaderboard LeaderboardReader) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
	}
}

// LeaderboardResponse представляет ответ лидерборда
type LeaderboardResponse struct {
	Entries []aggregator.LeaderboardEntry `json:"entries"`
}

// GetLeaderboard обрабатывает GET /leaderboard
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	// Сессия необязательна: без нее флаг is_viewer просто не выставляется
	subject := middleware.GetSubjectIDFromContext(r.Context())

	entries, err := h.leaderboard.Get(r.Context(), subject)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, LeaderboardResponse{Entries: entries})
}
