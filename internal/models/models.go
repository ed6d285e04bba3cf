// Package models holds the domain types shared across the scheduling core.
package models

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// TimeSlot is a bookable half-open interval [StartAt, EndAt).
// Slots are immutable once returned by the slot gateway; they are
// copied by value, never mutated.
type TimeSlot struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// IsZero reports whether the slot carries no interval.
func (s TimeSlot) IsZero() bool {
	return s.StartAt.IsZero() && s.EndAt.IsZero()
}

// Duration returns the slot length.
func (s TimeSlot) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

// Overlaps checks two half-open intervals for overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.StartAt.Before(other.EndAt) && other.StartAt.Before(s.EndAt)
}

// Valid reports whether the interval is well-formed.
func (s TimeSlot) Valid() bool {
	return !s.StartAt.IsZero() && s.EndAt.After(s.StartAt)
}

// DayAvailability is the derived per-day availability flag for a probed month.
type DayAvailability struct {
	Date         time.Time `json:"date"`
	HasOpenSlots bool      `json:"has_open_slots"`
}

// DateKey formats a day as the YYYY-MM-DD map key used throughout
// availability maps and gateway requests.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a YYYY-MM-DD key back into a UTC date.
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// StartOfDay truncates a timestamp to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// InitiatorRole identifies which party proposed a reschedule. The trust
// model is asymmetric: mentor-initiated changes need student approval,
// student-initiated changes take effect immediately.
type InitiatorRole string

const (
	RoleMentor  InitiatorRole = "mentor"
	RoleStudent InitiatorRole = "student"
)

// Valid reports whether the role is one of the known initiators.
func (r InitiatorRole) Valid() bool {
	return r == RoleMentor || r == RoleStudent
}
