package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mentorhub/internal/booking"
	"mentorhub/internal/calendar"
	"mentorhub/internal/metrics"
	"mentorhub/internal/models"
	"mentorhub/internal/orderapi"
)

type rescheduleRequest struct {
	SessionID  string               `json:"session_id"`
	MentorID   string               `json:"mentor_id"`
	OfferingID string               `json:"offering_id"`
	Initiator  models.InitiatorRole `json:"initiator"`
	Date       string               `json:"date"`
	Slot       models.TimeSlot      `json:"slot"`
}

type rescheduleResponse struct {
	RequestID         string `json:"request_id"`
	Status            string `json:"status"`
	RemainingAttempts int    `json:"remaining_attempts"`
	Retryable         bool   `json:"retryable,omitempty"`
	Message           string `json:"message,omitempty"`
}

// handleReschedules drives a full reschedule submission: open a request,
// record the chosen date and slot, and submit it to the order service.
func (s *HTTPServer) handleReschedules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("reschedules")

	var body rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SessionID == "" || body.MentorID == "" || body.OfferingID == "" {
		writeError(w, http.StatusBadRequest, "session_id, mentor_id and offering_id are required")
		return
	}
	if !body.Initiator.Valid() {
		writeError(w, http.StatusBadRequest, "initiator must be mentor or student")
		return
	}

	date, err := models.ParseDateKey(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	window := calendar.ComputeWindow(s.now(), s.horizonDays)
	if !window.Contains(date) {
		writeError(w, http.StatusUnprocessableEntity, "date is outside the booking window")
		return
	}
	if !body.Slot.Valid() || models.DateKey(body.Slot.StartAt) != models.DateKey(date) {
		writeError(w, http.StatusUnprocessableEntity, "slot must be a valid interval on the selected date")
		return
	}

	req, err := s.manager.Begin(body.SessionID, body.MentorID, body.OfferingID, body.Initiator)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.manager.SelectDate(req.ID, date); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.manager.SelectSlot(req.ID, body.Slot); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	state, err := s.manager.Submit(r.Context(), req.ID)
	resp := rescheduleResponse{
		RequestID:         req.ID,
		Status:            string(state),
		RemainingAttempts: s.manager.Remaining(body.SessionID),
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, resp)
	case errors.Is(err, booking.ErrNoAttemptsLeft):
		resp.Message = "reschedule attempts exhausted for this session"
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, orderapi.ErrRejected):
		// Backend validation rejected the slot; the request keeps its
		// selection and may resubmit a different one.
		var rej *orderapi.RejectionError
		if errors.As(err, &rej) {
			resp.Message = rej.Message
		} else {
			resp.Message = "reschedule rejected by the order service"
		}
		resp.Retryable = true
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, booking.ErrSubmissionFailed):
		resp.Retryable = true
		resp.Message = "submission failed, the selected slot was kept"
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleRescheduleByID serves GET /api/v1/reschedules/{id} plus the
// POST {id}/approve and {id}/decline resolutions.
func (s *HTTPServer) handleRescheduleByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reschedules/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		metrics.IncHTTP("reschedule_get")
		s.serveRescheduleSnapshot(w, parts[0])

	case len(parts) == 2 && (parts[1] == "approve" || parts[1] == "decline"):
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		metrics.IncHTTP("reschedule_" + parts[1])
		s.resolveReschedule(w, parts[0], parts[1])

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

type rescheduleSnapshot struct {
	RequestID         string               `json:"request_id"`
	SessionID         string               `json:"session_id"`
	MentorID          string               `json:"mentor_id"`
	OfferingID        string               `json:"offering_id"`
	Initiator         models.InitiatorRole `json:"initiator"`
	Status            string               `json:"status"`
	Date              string               `json:"date,omitempty"`
	Slot              *models.TimeSlot     `json:"slot,omitempty"`
	RemainingAttempts int                  `json:"remaining_attempts"`
	ApprovalDeadline  string               `json:"approval_deadline,omitempty"`
}

func (s *HTTPServer) serveRescheduleSnapshot(w http.ResponseWriter, id string) {
	req, err := s.manager.Lookup(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown reschedule request")
		return
	}

	snap := rescheduleSnapshot{
		RequestID:         req.ID,
		SessionID:         req.SessionID,
		MentorID:          req.MentorID,
		OfferingID:        req.OfferingID,
		Initiator:         req.Initiator,
		Status:            string(req.Status),
		RemainingAttempts: s.manager.Remaining(req.SessionID),
	}
	if !req.SelectedDate.IsZero() {
		snap.Date = models.DateKey(req.SelectedDate)
	}
	if !req.ProposedSlot.IsZero() {
		slot := req.ProposedSlot
		snap.Slot = &slot
	}
	if !req.ApprovalDeadline.IsZero() {
		snap.ApprovalDeadline = req.ApprovalDeadline.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *HTTPServer) resolveReschedule(w http.ResponseWriter, id, action string) {
	var err error
	if action == "approve" {
		err = s.manager.Approve(id)
	} else {
		err = s.manager.Decline(id)
	}

	switch {
	case err == nil:
		s.serveRescheduleSnapshot(w, id)
	case errors.Is(err, booking.ErrUnknownRequest):
		writeError(w, http.StatusNotFound, "unknown reschedule request")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
