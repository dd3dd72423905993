package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/aidar/rookie-board/internal/middleware"
	"github.com/aidar/rookie-board/internal/service"
)

// IdempotencyKeyHeader заголовок для защиты от повторного начисления
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 200

// Awarder начисляет очки
type Awarder interface {
	Award(ctx context.Context, actorID string, req service.AwardRequest) (*service.AwardResult, error)
}

// AwardHandler обрабатывает эндпоинт начисления очков
type AwardHandler struct {
	awards Awarder
}

// NewAwardHandler создает новый AwardHandler
func NewAwardHandler(awards Awarder) *AwardHandler {
	return &AwardHandler{
		awards: awards,
	}
}

// Award обрабатывает POST /awards
func (h *AwardHandler) Award(w http.ResponseWriter, r *http.Request) {
	var req service.AwardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		badRequest(w, r, "Idempotency-Key is too long")
		return
	}

	actorID := middleware.GetMemberIDFromContext(r.Context())
	result, err := h.awards.Award(r.Context(), actorID, req)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	RespondWithJSON(w, r, status, result)
}
