package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mentorhub/internal/events"
	"mentorhub/internal/metrics"
	"mentorhub/internal/models"
	"mentorhub/internal/orderapi"
)

var (
	// ErrNoAttemptsLeft blocks submission before any network call once the
	// session's reschedule quota is exhausted. Not retryable.
	ErrNoAttemptsLeft = errors.New("no reschedule attempts left")
	// ErrInvalidTransition signals a call that does not fit the request's
	// current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnknownRequest signals an id the store does not hold.
	ErrUnknownRequest = errors.New("unknown reschedule request")
	// ErrSubmissionFailed wraps order-service failures. The request is back
	// in SlotSelected and may be retried without losing the selected slot.
	ErrSubmissionFailed = errors.New("reschedule submission failed")
)

// Submitter is the slice of the order service the manager needs.
type Submitter interface {
	SubmitReschedule(ctx context.Context, requestID, sessionID string, initiator models.InitiatorRole, slot models.TimeSlot) (orderapi.SubmissionStatus, error)
}

// Manager drives reschedule requests through the state machine and is the
// only component with an externally observable side effect: the submission
// call to the order service.
type Manager struct {
	store       *Store
	orders      Submitter
	bus         *events.Bus
	fsm         *FSM
	approvalTTL time.Duration
	logger      *zerolog.Logger
	now         func() time.Time
}

// NewManager wires a manager. approvalTTL bounds how long a mentor-initiated
// request may sit unanswered before it expires.
func NewManager(store *Store, orders Submitter, bus *events.Bus, approvalTTL time.Duration, logger *zerolog.Logger) *Manager {
	if approvalTTL <= 0 {
		approvalTTL = 48 * time.Hour
	}
	return &Manager{
		store:       store,
		orders:      orders,
		bus:         bus,
		fsm:         NewFSM(),
		approvalTTL: approvalTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the manager's clock. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Begin opens a new reschedule request for a session.
func (m *Manager) Begin(sessionID, mentorID, offeringID string, initiator models.InitiatorRole) (*Request, error) {
	if !initiator.Valid() {
		return nil, fmt.Errorf("begin reschedule: invalid initiator %q", initiator)
	}
	return m.store.Create(sessionID, mentorID, offeringID, initiator), nil
}

// SelectDate records the chosen calendar day; slots for it are fetched by
// the caller through the prober/gateway.
func (m *Manager) SelectDate(id string, date time.Time) error {
	req := m.store.Get(id)
	if req == nil {
		return ErrUnknownRequest
	}
	if !m.fsm.Transition(req, StateDateSelected) {
		return fmt.Errorf("select date in state %s: %w", req.GetStatus(), ErrInvalidTransition)
	}
	req.mu.Lock()
	req.SelectedDate = models.StartOfDay(date)
	req.mu.Unlock()
	return nil
}

// SelectSlot records the chosen slot.
func (m *Manager) SelectSlot(id string, slot models.TimeSlot) error {
	if !slot.Valid() {
		return fmt.Errorf("select slot: malformed interval")
	}
	req := m.store.Get(id)
	if req == nil {
		return ErrUnknownRequest
	}
	if !m.fsm.Transition(req, StateSlotSelected) {
		return fmt.Errorf("select slot in state %s: %w", req.GetStatus(), ErrInvalidTransition)
	}
	req.mu.Lock()
	req.ProposedSlot = slot
	req.mu.Unlock()
	return nil
}

// Submit sends the selected slot to the order service.
//
// Attempt accounting: a submission that fails (network or backend
// validation) returns the request to SlotSelected and consumes nothing;
// only reaching a terminal state consumes exactly one attempt. An exhausted
// quota is rejected here, before any network call.
func (m *Manager) Submit(ctx context.Context, id string) (State, error) {
	req := m.store.Get(id)
	if req == nil {
		return "", ErrUnknownRequest
	}

	if m.store.Remaining(req.SessionID) <= 0 {
		metrics.IncRescheduleSubmitted("quota_exhausted")
		return req.GetStatus(), ErrNoAttemptsLeft
	}

	if !m.fsm.Transition(req, StateSubmitting) {
		return req.GetStatus(), fmt.Errorf("submit in state %s: %w", req.GetStatus(), ErrInvalidTransition)
	}

	status, err := m.orders.SubmitReschedule(ctx, req.ID, req.SessionID, req.Initiator, req.ProposedSlot)
	if err != nil {
		// Back to SlotSelected; the selected slot is kept and the attempt
		// is not consumed.
		m.fsm.Transition(req, StateSlotSelected)
		metrics.IncRescheduleSubmitted("failed")
		m.publish(events.TypeSubmissionFailed, req, err.Error())
		m.logger.Warn().Err(err).Str("request_id", req.ID).Str("session_id", req.SessionID).
			Msg("reschedule submission failed")
		return StateSlotSelected, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	switch status {
	case orderapi.SubmissionConfirmed:
		m.fsm.Transition(req, StateConfirmed)
		m.consumeAttempt(req)
		metrics.IncRescheduleSubmitted("confirmed")
		metrics.IncRescheduleResolved(string(StateConfirmed))
		m.publish(events.TypeRescheduleConfirmed, req, "")
		return StateConfirmed, nil

	case orderapi.SubmissionAwaitingApproval:
		deadline := m.now().Add(m.approvalTTL)
		m.fsm.Transition(req, StateAwaitingApproval)
		req.mu.Lock()
		req.ApprovalDeadline = deadline
		req.mu.Unlock()
		metrics.IncRescheduleSubmitted("awaiting_approval")
		m.publish(events.TypeRescheduleSubmitted, req, "")
		return StateAwaitingApproval, nil

	default:
		m.fsm.Transition(req, StateSlotSelected)
		metrics.IncRescheduleSubmitted("failed")
		return StateSlotSelected, fmt.Errorf("%w: unexpected order status %q", ErrSubmissionFailed, status)
	}
}

// Lookup returns a snapshot of a request.
func (m *Manager) Lookup(id string) (Request, error) {
	req := m.store.Get(id)
	if req == nil {
		return Request{}, ErrUnknownRequest
	}
	return req.Snapshot(), nil
}

// Remaining reports how many reschedule attempts a session has left.
func (m *Manager) Remaining(sessionID string) int {
	return m.store.Remaining(sessionID)
}

// Approve resolves a pending mentor-initiated request: the student accepted
// the proposed time.
func (m *Manager) Approve(id string) error {
	return m.resolve(id, StateConfirmed, events.TypeRescheduleConfirmed)
}

// Decline resolves a pending request: the student declined.
func (m *Manager) Decline(id string) error {
	return m.resolve(id, StateRejected, events.TypeRescheduleRejected)
}

func (m *Manager) resolve(id string, to State, eventType string) error {
	req := m.store.Get(id)
	if req == nil {
		return ErrUnknownRequest
	}
	if !m.fsm.Transition(req, to) {
		return fmt.Errorf("resolve to %s in state %s: %w", to, req.GetStatus(), ErrInvalidTransition)
	}
	m.consumeAttempt(req)
	metrics.IncRescheduleResolved(string(to))
	m.publish(eventType, req, "")
	return nil
}

// ExpireOverdue expires AwaitingApproval requests whose deadline passed and
// returns how many it expired.
func (m *Manager) ExpireOverdue() int {
	overdue := m.store.AwaitingBefore(m.now())
	expired := 0
	for _, req := range overdue {
		if !m.fsm.Transition(req, StateExpired) {
			continue
		}
		m.consumeAttempt(req)
		metrics.IncRescheduleResolved(string(StateExpired))
		m.publish(events.TypeRescheduleExpired, req, "counterparty approval timed out")
		m.logger.Info().Str("request_id", req.ID).Str("session_id", req.SessionID).
			Msg("reschedule request expired without counterparty approval")
		expired++
	}
	return expired
}

// RunSweeper expires overdue requests on a ticker until the context ends.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ExpireOverdue()
		}
	}
}

// consumeAttempt decrements the session quota exactly once per request,
// regardless of how the terminal state was reached.
func (m *Manager) consumeAttempt(req *Request) {
	req.mu.Lock()
	if req.attemptConsumed {
		req.mu.Unlock()
		return
	}
	req.attemptConsumed = true
	req.mu.Unlock()

	left := m.store.ConsumeAttempt(req.SessionID)

	req.mu.Lock()
	req.RemainingAttempts = left
	req.mu.Unlock()
}

func (m *Manager) publish(eventType string, req *Request, detail string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{
		Type:      eventType,
		RequestID: req.ID,
		SessionID: req.SessionID,
		Detail:    detail,
	})
}
