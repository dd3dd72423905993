package aggregator

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// daysIn returns the length of month m in year y.
func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// effectiveDatePattern matches a trailing "-D/M" or "-DD/MM" suffix.
var effectiveDatePattern = regexp.MustCompile(`-(\d{1,2})/(\d{1,2})$`)

// EffectiveDate returns the day a transaction is attributed to on calendars.
// A description ending in "-D/M" moves the entry to that day and month of the
// year it was created in; anything else falls back to the creation date in loc.
// Suffixes with day outside 1..31, month outside 1..12, or a day past the end
// of the named month (e.g. "-31/2") are ignored.
func EffectiveDate(description string, createdAt time.Time, loc *time.Location) Date {
	created := DateOf(createdAt, loc)

	match := effectiveDatePattern.FindStringSubmatch(description)
	if match == nil {
		return created
	}

	day, err := strconv.Atoi(match[1])
	if err != nil {
		return created
	}
	month, err := strconv.Atoi(match[2])
	if err != nil {
		return created
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return created
	}
	if day > daysIn(created.Year, time.Month(month)) {
		return created
	}

	return Date{Year: created.Year, Month: time.Month(month), Day: day}
}

// Month identifies a calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t in loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	y, m, _ := t.In(loc).Date()
	return Month{Year: y, Month: m}
}

// NewMonth validates month (1..12) and builds a Month.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("month %d out of range 1..12", month)
	}
	if year < 1 || year > 9999 {
		return Month{}, fmt.Errorf("year %d out of range", year)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// Prev returns the previous month, wrapping January to December of the previous year.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Next returns the next month, wrapping December to January of the next year.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// First returns the first day of the month.
func (m Month) First() Date {
	return Date{Year: m.Year, Month: m.Month, Day: 1}
}

// Last returns the last day of the month.
func (m Month) Last() Date {
	return Date{Year: m.Year, Month: m.Month, Day: daysIn(m.Year, m.Month)}
}

// Contains reports whether d lies within [First, Last].
func (m Month) Contains(d Date) bool {
	return !d.Before(m.First()) && !m.Last().Before(d)
}

// Start returns midnight of the first day in loc.
func (m Month) Start(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// FetchRange returns the creation-time window [from, to) loaded for the global
// calendar of m. An effective date keeps the year of creation, so any entry
// created during m's year may land in m: the window is that whole year in loc.
func (m Month) FetchRange(loc *time.Location) (from, to time.Time) {
	from = time.Date(m.Year, time.January, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(1, 0, 0)
}
