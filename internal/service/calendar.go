package service

import (
	"context"
	"time"

	"github.com/aidar/rookie-board/internal/aggregator"
	"github.com/aidar/rookie-board/internal/domain"
	"github.com/aidar/rookie-board/internal/repository"
)

// CalendarService builds the global month calendar
type CalendarService struct {
	txRepo repository.TransactionRepository
	loc    *time.Location
}

// NewCalendarService creates a new CalendarService bucketing days in loc
func NewCalendarService(txRepo repository.TransactionRepository, loc *time.Location) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarService{
		txRepo: txRepo,
		loc:    loc,
	}
}

// Location returns the time zone used for day bucketing
func (s *CalendarService) Location() *time.Location {
	return s.loc
}

// Month returns the calendar of the given month (1-12). Every transaction
// created in that year is considered, so backdated entries land on their
// effective day wherever in the year they were recorded.
func (s *CalendarService) Month(ctx context.Context, year, month int) (*aggregator.Calendar, error) {
	m, err := parseMonth(year, month)
	if err != nil {
		return nil, err
	}

	from, to := m.FetchRange(s.loc)
	txs, err := s.txRepo.ListByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return aggregator.BuildCalendar(m, txs, s.loc), nil
}

func parseMonth(year, month int) (aggregator.Month, error) {
	m, err := aggregator.NewMonth(year, month)
	if err != nil {
		return aggregator.Month{}, domain.Invalid("month", err.Error())
	}
	return m, nil
}
