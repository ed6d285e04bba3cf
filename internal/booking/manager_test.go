package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mentorhub/internal/events"
	"mentorhub/internal/models"
	"mentorhub/internal/orderapi"
)

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) SubmitReschedule(ctx context.Context, requestID, sessionID string, initiator models.InitiatorRole, slot models.TimeSlot) (orderapi.SubmissionStatus, error) {
	args := m.Called(ctx, requestID, sessionID, initiator, slot)
	return args.Get(0).(orderapi.SubmissionStatus), args.Error(1)
}

func testManager(t *testing.T, quota int, orders Submitter) (*Manager, *Store, *events.Bus) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store := NewStore(quota)
	bus := events.NewBus()
	return NewManager(store, orders, bus, time.Hour, &logger), store, bus
}

func proposedSlot() models.TimeSlot {
	start := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	return models.TimeSlot{StartAt: start, EndAt: start.Add(time.Hour)}
}

func advanceToSlotSelected(t *testing.T, m *Manager, sessionID string, initiator models.InitiatorRole) *Request {
	t.Helper()
	req, err := m.Begin(sessionID, "mentor-1", "offering-1", initiator)
	require.NoError(t, err)
	require.NoError(t, m.SelectDate(req.ID, time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, m.SelectSlot(req.ID, proposedSlot()))
	return req
}

func TestSubmit_StudentInitiatedConfirmsImmediately(t *testing.T) {
	orders := new(mockOrders)
	m, store, _ := testManager(t, 2, orders)

	req := advanceToSlotSelected(t, m, "sess-1", models.RoleStudent)
	orders.On("SubmitReschedule", mock.Anything, req.ID, "sess-1", models.RoleStudent, proposedSlot()).
		Return(orderapi.SubmissionConfirmed, nil).Once()

	status, err := m.Submit(context.Background(), req.ID)
	require.NoError(t, err)

	assert.Equal(t, StateConfirmed, status)
	assert.Equal(t, StateConfirmed, req.GetStatus())
	assert.Equal(t, 1, store.Remaining("sess-1"), "terminal transition consumes exactly one attempt")
	orders.AssertExpectations(t)
}

func TestSubmit_MentorInitiatedAwaitsApproval(t *testing.T) {
	orders := new(mockOrders)
	m, store, _ := testManager(t, 2, orders)

	req := advanceToSlotSelected(t, m, "sess-2", models.RoleMentor)
	orders.On("SubmitReschedule", mock.Anything, req.ID, "sess-2", models.RoleMentor, proposedSlot()).
		Return(orderapi.SubmissionAwaitingApproval, nil).Once()

	status, err := m.Submit(context.Background(), req.ID)
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingApproval, status)
	assert.Equal(t, 2, store.Remaining("sess-2"), "no attempt consumed until the request resolves")
	assert.False(t, req.Snapshot().ApprovalDeadline.IsZero(), "pending requests carry an approval deadline")
}

func TestSubmit_FailureKeepsSlotAndAttempts(t *testing.T) {
	orders := new(mockOrders)
	m, store, bus := testManager(t, 2, orders)

	var failures []events.Event
	bus.Subscribe(events.TypeSubmissionFailed, func(e events.Event) { failures = append(failures, e) })

	req := advanceToSlotSelected(t, m, "sess-3", models.RoleStudent)
	orders.On("SubmitReschedule", mock.Anything, req.ID, "sess-3", models.RoleStudent, proposedSlot()).
		Return(orderapi.SubmissionStatus(""), errors.New("order service unavailable")).Once()

	status, err := m.Submit(context.Background(), req.ID)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrSubmissionFailed))
	assert.Equal(t, StateSlotSelected, status, "failed submission falls back to the selected slot")
	assert.Equal(t, proposedSlot(), req.Snapshot().ProposedSlot, "slot survives the failure for retry")
	assert.Equal(t, 2, store.Remaining("sess-3"), "failed submission must not consume an attempt")
	assert.Len(t, failures, 1)

	// Retry succeeds.
	orders.On("SubmitReschedule", mock.Anything, req.ID, "sess-3", models.RoleStudent, proposedSlot()).
		Return(orderapi.SubmissionConfirmed, nil).Once()
	status, err = m.Submit(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, status)
	assert.Equal(t, 1, store.Remaining("sess-3"))
}

func TestSubmit_ExhaustedQuotaBlocksBeforeNetwork(t *testing.T) {
	orders := new(mockOrders)
	m, store, _ := testManager(t, 1, orders)

	first := advanceToSlotSelected(t, m, "sess-4", models.RoleStudent)
	orders.On("SubmitReschedule", mock.Anything, first.ID, "sess-4", models.RoleStudent, proposedSlot()).
		Return(orderapi.SubmissionConfirmed, nil).Once()
	_, err := m.Submit(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, 0, store.Remaining("sess-4"))

	second := advanceToSlotSelected(t, m, "sess-4", models.RoleStudent)
	_, err = m.Submit(context.Background(), second.ID)

	assert.True(t, errors.Is(err, ErrNoAttemptsLeft))
	// No order-service call was made for the second request.
	orders.AssertNumberOfCalls(t, "SubmitReschedule", 1)
}

func TestApproveAndDecline(t *testing.T) {
	for _, tc := range []struct {
		name       string
		resolve    func(m *Manager, id string) error
		wantStatus State
		wantEvent  string
	}{
		{"approve", func(m *Manager, id string) error { return m.Approve(id) }, StateConfirmed, events.TypeRescheduleConfirmed},
		{"decline", func(m *Manager, id string) error { return m.Decline(id) }, StateRejected, events.TypeRescheduleRejected},
	} {
		t.Run(tc.name, func(t *testing.T) {
			orders := new(mockOrders)
			m, store, bus := testManager(t, 3, orders)

			var got []events.Event
			bus.Subscribe(tc.wantEvent, func(e events.Event) { got = append(got, e) })

			req := advanceToSlotSelected(t, m, "sess-5", models.RoleMentor)
			orders.On("SubmitReschedule", mock.Anything, req.ID, "sess-5", models.RoleMentor, proposedSlot()).
				Return(orderapi.SubmissionAwaitingApproval, nil).Once()
			_, err := m.Submit(context.Background(), req.ID)
			require.NoError(t, err)

			require.NoError(t, tc.resolve(m, req.ID))

			assert.Equal(t, tc.wantStatus, req.GetStatus())
			assert.Equal(t, 2, store.Remaining("sess-5"), "resolution consumes one attempt")
			assert.Len(t, got, 1)

			// Resolving twice is an invalid transition and must not consume again.
			err = tc.resolve(m, req.ID)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, 2, store.Remaining("sess-5"))
		})
	}
}

func TestExpireOverdue(t *testing.T) {
	orders := new(mockOrders)
	m, store, bus := testManager(t, 2, orders)

	var expired []events.Event
	bus.Subscribe(events.TypeRescheduleExpired, func(e events.Event) { expired = append(expired, e) })

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	current := base
	m.WithClock(func() time.Time { return current })

	req := advanceToSlotSelected(t, m, "sess-6", models.RoleMentor)
	orders.On("SubmitReschedule", mock.Anything, req.ID, "sess-6", models.RoleMentor, proposedSlot()).
		Return(orderapi.SubmissionAwaitingApproval, nil).Once()
	_, err := m.Submit(context.Background(), req.ID)
	require.NoError(t, err)

	// Before the deadline nothing expires.
	current = base.Add(30 * time.Minute)
	assert.Equal(t, 0, m.ExpireOverdue())
	assert.Equal(t, StateAwaitingApproval, req.GetStatus())

	// Past the 1h TTL the request expires and consumes its attempt.
	current = base.Add(2 * time.Hour)
	assert.Equal(t, 1, m.ExpireOverdue())
	assert.Equal(t, StateExpired, req.GetStatus())
	assert.Equal(t, 1, store.Remaining("sess-6"))
	assert.Len(t, expired, 1)

	// Idempotent: a second sweep finds nothing.
	assert.Equal(t, 0, m.ExpireOverdue())
	assert.Equal(t, 1, store.Remaining("sess-6"))
}

func TestSubmit_RequiresSelectedSlot(t *testing.T) {
	orders := new(mockOrders)
	m, _, _ := testManager(t, 2, orders)

	req, err := m.Begin("sess-7", "mentor-1", "offering-1", models.RoleStudent)
	require.NoError(t, err)

	_, err = m.Submit(context.Background(), req.ID)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "submitting from Idle must be rejected")
	orders.AssertNumberOfCalls(t, "SubmitReschedule", 0)
}

func TestBegin_InvalidInitiator(t *testing.T) {
	orders := new(mockOrders)
	m, _, _ := testManager(t, 2, orders)

	_, err := m.Begin("sess-8", "m", "o", models.InitiatorRole("admin"))
	assert.Error(t, err)
}

func TestSelectSlot_Validation(t *testing.T) {
	orders := new(mockOrders)
	m, _, _ := testManager(t, 2, orders)

	req, err := m.Begin("sess-9", "m", "o", models.RoleStudent)
	require.NoError(t, err)
	require.NoError(t, m.SelectDate(req.ID, time.Now()))

	err = m.SelectSlot(req.ID, models.TimeSlot{})
	assert.Error(t, err, "zero slot must be rejected")

	err = m.SelectSlot("nope", proposedSlot())
	assert.True(t, errors.Is(err, ErrUnknownRequest))
}
