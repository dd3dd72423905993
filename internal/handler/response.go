package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"github.com/aidar/rookie-board/internal/domain"
)

// maxBodyBytes ограничивает размер JSON тела запроса
const maxBodyBytes = 1 << 20

// RespondWithJSON отправляет JSON ответ с указанным статус кодом
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	render.Status(r, statusCode)
	render.JSON(w, r, data)
}

// decodeJSON читает JSON тело запроса, отклоняя неизвестные поля
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// yearMonth читает параметры year и month (1-12), по умолчанию текущий месяц
func yearMonth(r *http.Request, now time.Time) (int, int, error) {
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, domain.Invalid("year", "must be an integer")
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, domain.Invalid("month", "must be an integer")
		}
		month = n
	}
	return year, month, nil
}
