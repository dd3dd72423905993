package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aidar/rookie-board/internal/aggregator"
)

// CalendarReader строит календарь месяца
type CalendarReader interface {
	Month(ctx context.Context, year, month int) (*aggregator.Calendar, error)
	Location() *time.Location
}

// CalendarHandler обрабатывает эндпоинт общего календаря
type CalendarHandler struct {
	calendar CalendarReader
	now      func() time.Time
}

// NewCalendarHandler создает новый CalendarHandler
func NewCalendarHandler(calendar CalendarReader) *CalendarHandler {
	return &CalendarHandler{
		calendar: calendar,
		now:      time.Now,
	}
}

// GetCalendar обрабатывает GET /calendar?year=...&month=...
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r, h.now().In(h.calendar.Location()))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	cal, err := h.calendar.Month(r.Context(), year, month)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, cal)
}
