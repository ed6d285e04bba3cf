package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mentorhub/internal/calendar"
	"mentorhub/internal/metrics"
	"mentorhub/internal/models"
	"mentorhub/internal/probe"
)

var errBadYearMonth = errors.New("year and month must be a valid calendar month")

type availabilityDay struct {
	Date         string `json:"date"`
	Selectable   bool   `json:"selectable"`
	HasOpenSlots bool   `json:"has_open_slots"`
}

type availabilityResponse struct {
	Year           int               `json:"year"`
	Month          int               `json:"month"`
	LeadingPadding int               `json:"leading_padding"`
	WindowEarliest string            `json:"window_earliest"`
	WindowLatest   string            `json:"window_latest"`
	Days           []availabilityDay `json:"days"`
}

// handleAvailability renders one calendar month: the grid layout, which
// days fall inside the booking window, and which of those have open slots.
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("availability")

	q := r.URL.Query()
	mentorID := q.Get("mentor_id")
	offeringID := q.Get("offering_id")
	if mentorID == "" || offeringID == "" {
		writeError(w, http.StatusBadRequest, "mentor_id and offering_id are required")
		return
	}

	now := s.now()
	year, month, err := parseYearMonth(q.Get("year"), q.Get("month"), now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := calendar.ComputeWindow(now, s.horizonDays)
	grid := calendar.BuildMonthGrid(year, month)
	candidates := grid.SelectableDays(window)

	key := probe.Key{MentorID: mentorID, OfferingID: offeringID, Year: year, Month: month}
	availability, _ := s.viewFor(mentorID, offeringID).Refresh(r.Context(), key, candidates)

	resp := availabilityResponse{
		Year:           year,
		Month:          int(month),
		LeadingPadding: grid.LeadingPadding,
		WindowEarliest: models.DateKey(window.Earliest),
		WindowLatest:   models.DateKey(window.Latest),
		Days:           make([]availabilityDay, 0, len(grid.Days)),
	}
	for _, day := range grid.Days {
		dateKey := models.DateKey(day)
		resp.Days = append(resp.Days, availabilityDay{
			Date:         dateKey,
			Selectable:   calendar.IsSelectable(day, year, month, window),
			HasOpenSlots: availability[dateKey],
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type slotsResponse struct {
	Date  string            `json:"date"`
	Slots []models.TimeSlot `json:"slots"`
}

// handleSlots lists the open slots for one selectable day.
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("slots")

	q := r.URL.Query()
	mentorID := q.Get("mentor_id")
	offeringID := q.Get("offering_id")
	if mentorID == "" || offeringID == "" {
		writeError(w, http.StatusBadRequest, "mentor_id and offering_id are required")
		return
	}

	date, err := models.ParseDateKey(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	window := calendar.ComputeWindow(s.now(), s.horizonDays)
	if !window.Contains(date) {
		writeError(w, http.StatusUnprocessableEntity, "date is outside the booking window")
		return
	}

	slots, err := s.gateway.ListOpenSlots(r.Context(), mentorID, offeringID, date)
	if err != nil {
		s.logger.Error().Err(err).Str("mentor_id", mentorID).Str("date", models.DateKey(date)).
			Msg("slot listing failed")
		writeError(w, http.StatusBadGateway, "slot service unavailable")
		return
	}
	if slots == nil {
		slots = []models.TimeSlot{}
	}
	writeJSON(w, http.StatusOK, slotsResponse{Date: models.DateKey(date), Slots: slots})
}

// parseYearMonth defaults to the month the booking window opens in.
func parseYearMonth(yearStr, monthStr string, now time.Time) (int, time.Month, error) {
	if yearStr == "" && monthStr == "" {
		open := models.StartOfDay(now).AddDate(0, 0, 1)
		return open.Year(), open.Month(), nil
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 2000 || year > 2200 {
		return 0, 0, errBadYearMonth
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errBadYearMonth
	}
	return year, time.Month(month), nil
}
