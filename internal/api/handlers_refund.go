package api

import (
	"encoding/json"
	"net/http"
	"time"

	"mentorhub/internal/metrics"
)

type refundPreviewRequest struct {
	SessionStartAt time.Time `json:"session_start_at"`
	CancelledAt    time.Time `json:"cancelled_at,omitempty"`
}

// handleRefundPreview evaluates the refund policy without any side effect.
// The frontend calls this to render the refund banner before the student
// commits to cancelling.
func (s *HTTPServer) handleRefundPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("refund_preview")

	var body refundPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.CancelledAt.IsZero() {
		body.CancelledAt = s.now()
	}

	decision := s.policy.Evaluate(body.SessionStartAt, body.CancelledAt)
	writeJSON(w, http.StatusOK, decision)
}

type cancellationRequest struct {
	OrderID        string    `json:"order_id"`
	SessionStartAt time.Time `json:"session_start_at"`
	Reason         string    `json:"reason,omitempty"`
}

type cancellationResponse struct {
	OrderID        string  `json:"order_id"`
	RefundFraction float64 `json:"refund_fraction"`
	Reason         string  `json:"reason,omitempty"`
}

// handleCancellations cancels a session. The local policy is checked first;
// an ineligible cancellation is refused without touching the order service.
func (s *HTTPServer) handleCancellations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("cancellations")

	var body cancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	decision := s.policy.Evaluate(body.SessionStartAt, s.now())
	if !decision.Eligible {
		writeJSON(w, http.StatusUnprocessableEntity, decision)
		return
	}

	fraction, err := s.orders.RequestCancellation(r.Context(), body.OrderID, body.Reason)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", body.OrderID).Msg("cancellation request failed")
		writeError(w, http.StatusBadGateway, "order service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, cancellationResponse{
		OrderID:        body.OrderID,
		RefundFraction: fraction,
		Reason:         decision.Reason,
	})
}
