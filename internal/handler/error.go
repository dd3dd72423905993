package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/middleware"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail содержит код и описание ошибки
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithError отправляет ответ с ошибкой
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, code domain.ErrorCode, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error: ErrorDetail{
			Code:    string(code),
			Message: message,
		},
	})
}

// HandleError преобразует доменные ошибки в HTTP ответы
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *domain.AccessDeniedError
	var invalid *domain.ValidationError

	switch {
	case errors.As(err, &denied):
		// Причина отказа показывается пользователю как есть
		RespondWithError(w, r, http.StatusForbidden, domain.CodeAccessDenied, string(denied.Reason))
	case errors.As(err, &invalid):
		RespondWithError(w, r, http.StatusBadRequest, domain.CodeValidation, invalid.Error())
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidToken):
		w.Header().Set("Location", middleware.LoginPath)
		RespondWithError(w, r, http.StatusUnauthorized, domain.CodeUnauthenticated, "authentication required")
	case errors.Is(err, domain.ErrNotFound):
		RespondWithError(w, r, http.StatusNotFound, domain.CodeNotFound, "resource not found")
	case errors.Is(err, domain.ErrUsernameTaken):
		RespondWithError(w, r, http.StatusConflict, domain.CodeUsernameTaken, "a member with this GitHub username already exists")
	case errors.Is(err, domain.ErrIdempotencyConflict):
		RespondWithError(w, r, http.StatusConflict, domain.CodeIdempotencyConflict, "Idempotency-Key was already used for a different award")
	default:
		// Ошибки хранилища не раскрываются клиенту
		RespondWithError(w, r, http.StatusInternalServerError, domain.CodeInternal, "internal server error")
	}
}

// badRequest отправляет 400 для некорректного тела или параметров запроса
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	RespondWithError(w, r, http.StatusBadRequest, domain.CodeValidation, message)
}
