package aggregator

import (
	"slices"
	"time"

	"github.com/aidar/rookie-board/internal/domain"
)

// CalendarDay holds all transactions attributed to one day.
type CalendarDay struct {
	Date         Date                      `json:"date"`
	Total        int                       `json:"total"`
	Transactions []*domain.TransactionView `json:"transactions"`
}

// Calendar is the global month view.
type Calendar struct {
	Month             Month         `json:"month"`
	Days              []CalendarDay `json:"days"`
	TotalPoints       int           `json:"total_points"`
	TotalTransactions int           `json:"total_transactions"`
	Prev              Month         `json:"prev"`
	Next              Month         `json:"next"`
}

// DescriptionGroup collects same-description transactions of one day.
type DescriptionGroup struct {
	Description  string                    `json:"description"`
	Subtotal     int                       `json:"subtotal"`
	Count        int                       `json:"count"`
	Transactions []*domain.TransactionView `json:"transactions"`
}

// ProfileDay is a day bucket of a member calendar.
type ProfileDay struct {
	Date   Date               `json:"date"`
	Total  int                `json:"total"`
	Groups []DescriptionGroup `json:"groups"`
}

// ProfileCalendar is the month view of a single member.
type ProfileCalendar struct {
	Month             Month        `json:"month"`
	Days              []ProfileDay `json:"days"`
	TotalPoints       int          `json:"total_points"`
	TotalTransactions int          `json:"total_transactions"`
	Prev              Month        `json:"prev"`
	Next              Month        `json:"next"`
}

// BuildCalendar buckets txs by effective date into the days of month. Only
// transactions whose effective date falls inside the month are counted, no
// matter when they were created. Within a day the input order is kept.
func BuildCalendar(month Month, txs []*domain.TransactionView, loc *time.Location) *Calendar {
	cal := &Calendar{
		Month: month,
		Days:  []CalendarDay{},
		Prev:  month.Prev(),
		Next:  month.Next(),
	}

	index := make(map[Date]int)
	for _, t := range txs {
		d := EffectiveDate(t.Description, t.CreatedAt, loc)
		if !month.Contains(d) {
			continue
		}
		i, ok := index[d]
		if !ok {
			i = len(cal.Days)
			index[d] = i
			cal.Days = append(cal.Days, CalendarDay{Date: d, Transactions: []*domain.TransactionView{}})
		}
		cal.Days[i].Total += t.Amount
		cal.Days[i].Transactions = append(cal.Days[i].Transactions, t)
		cal.TotalPoints += t.Amount
		cal.TotalTransactions++
	}

	slices.SortFunc(cal.Days, func(a, b CalendarDay) int { return compareDates(a.Date, b.Date) })
	return cal
}

// BuildProfileCalendar is BuildCalendar for a single member, with each day
// further grouped by description. Groups keep first-seen order.
func BuildProfileCalendar(month Month, txs []*domain.TransactionView, loc *time.Location) *ProfileCalendar {
	flat := BuildCalendar(month, txs, loc)

	pc := &ProfileCalendar{
		Month:             flat.Month,
		Days:              make([]ProfileDay, 0, len(flat.Days)),
		TotalPoints:       flat.TotalPoints,
		TotalTransactions: flat.TotalTransactions,
		Prev:              flat.Prev,
		Next:              flat.Next,
	}

	for _, day := range flat.Days {
		pd := ProfileDay{Date: day.Date, Total: day.Total, Groups: []DescriptionGroup{}}
		groupIndex := make(map[string]int)
		for _, t := range day.Transactions {
			g, ok := groupIndex[t.Description]
			if !ok {
				g = len(pd.Groups)
				groupIndex[t.Description] = g
				pd.Groups = append(pd.Groups, DescriptionGroup{Description: t.Description})
			}
			pd.Groups[g].Subtotal += t.Amount
			pd.Groups[g].Count++
			pd.Groups[g].Transactions = append(pd.Groups[g].Transactions, t)
		}
		pc.Days = append(pc.Days, pd)
	}
	return pc
}

// Total sums the amounts of txs.
func Total(txs []*domain.TransactionView) int {
	total := 0
	for _, t := range txs {
		total += t.Amount
	}
	return total
}

func compareDates(a, b Date) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}
