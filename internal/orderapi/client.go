// Package orderapi is the HTTP client for the booking/order service and the
// refund/cancellation service. The order service decides whether a submitted
// reschedule is effective immediately or needs counterparty approval; the
// refund service runs the authoritative refund math server-side.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mentorhub/internal/models"
)

// SubmissionStatus is the order service's answer to a reschedule submission.
type SubmissionStatus string

const (
	// SubmissionConfirmed means the change took effect immediately.
	SubmissionConfirmed SubmissionStatus = "confirmed"
	// SubmissionAwaitingApproval means the counterparty must approve first.
	SubmissionAwaitingApproval SubmissionStatus = "awaiting_approval"
)

// ErrRejected is returned when the order service refuses a submission with a
// message meant for the user. The submission may be retried with another slot.
var ErrRejected = errors.New("reschedule rejected")

// RejectionError carries the backend's human-readable reason.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("reschedule rejected: %s", e.Message)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

// Client calls the order and refund endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// rescheduleRequest is the wire shape of POST /api/v1/reschedules.
type rescheduleRequest struct {
	SessionID string               `json:"session_id"`
	Initiator models.InitiatorRole `json:"initiator"`
	Slot      models.TimeSlot      `json:"proposed_slot"`
	RequestID string               `json:"request_id"`
}

type rescheduleResponse struct {
	Status SubmissionStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
}

// SubmitReschedule submits a slot change for a session. The request id makes
// re-submissions after a network failure idempotent on the server side.
func (c *Client) SubmitReschedule(ctx context.Context, requestID, sessionID string, initiator models.InitiatorRole, slot models.TimeSlot) (SubmissionStatus, error) {
	body := rescheduleRequest{
		SessionID: sessionID,
		Initiator: initiator,
		Slot:      slot,
		RequestID: requestID,
	}

	var resp rescheduleResponse
	status, err := c.doPost(ctx, c.baseURL+"/api/v1/reschedules", body, &resp)
	if err != nil {
		return "", fmt.Errorf("submit reschedule: %w", err)
	}
	if status == http.StatusUnprocessableEntity || resp.Error != "" {
		return "", &RejectionError{Message: resp.Error}
	}
	if resp.Status != SubmissionConfirmed && resp.Status != SubmissionAwaitingApproval {
		return "", fmt.Errorf("submit reschedule: unexpected status %q", resp.Status)
	}
	return resp.Status, nil
}

// cancellationRequest is the wire shape of POST /api/v1/cancellations.
type cancellationRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type cancellationResponse struct {
	RefundFraction float64 `json:"refund_fraction"`
	Error          string  `json:"error,omitempty"`
}

// RequestCancellation asks the refund service to cancel an order. The server
// applies its own refund table; the returned fraction is what it granted,
// which the caller may compare against the advisory local decision.
func (c *Client) RequestCancellation(ctx context.Context, orderID, reason string) (float64, error) {
	body := cancellationRequest{OrderID: orderID, Reason: reason}

	var resp cancellationResponse
	status, err := c.doPost(ctx, c.baseURL+"/api/v1/cancellations", body, &resp)
	if err != nil {
		return 0, fmt.Errorf("request cancellation: %w", err)
	}
	if status == http.StatusUnprocessableEntity || resp.Error != "" {
		return 0, &RejectionError{Message: resp.Error}
	}
	return resp.RefundFraction, nil
}

// doPost sends a JSON body and decodes a JSON reply. 2xx and 422 replies are
// decoded (422 carries the user-facing rejection); everything else is an
// opaque HTTP error.
func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnprocessableEntity {
		return resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
