// Package calendar computes the selectable booking window and month grids
// for the reschedule calendar.
package calendar

import (
	"time"

	"mentorhub/internal/models"
)

// DefaultHorizonDays is the default inclusive booking horizon.
const DefaultHorizonDays = 30

// Window is the selectable date range [Earliest, Latest], both inclusive.
// It is recomputed from "now" on every read and never persisted.
type Window struct {
	Earliest time.Time
	Latest   time.Time
}

// ComputeWindow derives the booking window from now: bookings open tomorrow
// and close horizonDays-1 days after that (a horizonDays-day inclusive range).
func ComputeWindow(now time.Time, horizonDays int) Window {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	earliest := models.StartOfDay(now).AddDate(0, 0, 1)
	return Window{
		Earliest: earliest,
		Latest:   earliest.AddDate(0, 0, horizonDays-1),
	}
}

// Contains reports whether day falls inside the window. Only the calendar
// date matters; days are compared by their YYYY-MM-DD key so a UTC grid day
// and a zoned window boundary agree.
func (w Window) Contains(day time.Time) bool {
	d := models.DateKey(day)
	return d >= models.DateKey(w.Earliest) && d <= models.DateKey(w.Latest)
}

// IsSelectable reports whether a day can be picked on the calendar: it must
// sit inside the booking window and inside the visible month.
func IsSelectable(day time.Time, visibleYear int, visibleMonth time.Month, w Window) bool {
	if day.Year() != visibleYear || day.Month() != visibleMonth {
		return false
	}
	return w.Contains(day)
}

// MonthGrid enumerates a visible month for a Monday-first calendar widget.
type MonthGrid struct {
	Year  int
	Month time.Month
	// Days lists every calendar day of the month in order.
	Days []time.Time
	// LeadingPadding is the number of blank cells before the first day so
	// the grid aligns under a Monday-first week header: 0 for a month that
	// starts on Monday, 6 for Sunday.
	LeadingPadding int
}

// BuildMonthGrid enumerates all days of the month and the leading padding.
// Days are midnight UTC dates.
func BuildMonthGrid(year int, month time.Month) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	// time.Weekday is Sunday-first (Sunday=0); shift to Monday-first.
	padding := (int(first.Weekday()) + 6) % 7

	days := make([]time.Time, 0, 31)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	return MonthGrid{
		Year:           year,
		Month:          month,
		Days:           days,
		LeadingPadding: padding,
	}
}

// SelectableDays filters the grid down to days inside the window. This is
// the candidate list handed to the availability prober.
func (g MonthGrid) SelectableDays(w Window) []time.Time {
	var out []time.Time
	for _, d := range g.Days {
		if IsSelectable(d, g.Year, g.Month, w) {
			out = append(out, d)
		}
	}
	return out
}
