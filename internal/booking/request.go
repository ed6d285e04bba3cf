package booking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mentorhub/internal/models"
)

// Request is a reschedule request owned by the requesting side until the
// order service acknowledges a terminal status. All state is in-memory.
type Request struct {
	ID         string
	SessionID  string
	MentorID   string
	OfferingID string
	Initiator  models.InitiatorRole

	SelectedDate time.Time
	ProposedSlot models.TimeSlot

	// RemainingAttempts is the per-session quota snapshot as of the last
	// update. Monotonically non-increasing; the sole gate on re-submission.
	RemainingAttempts int

	Status State

	// ApprovalDeadline is set when a mentor-initiated request enters
	// AwaitingApproval; past it the request expires.
	ApprovalDeadline time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// attemptConsumed guards the one-decrement-per-terminal invariant.
	attemptConsumed bool

	mu sync.Mutex
}

func (r *Request) setStatusLocked(s State) {
	r.Status = s
	r.UpdatedAt = time.Now()
}

// GetStatus returns the current state.
func (r *Request) GetStatus() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Status
}

// Snapshot returns a copy safe to hand to encoders.
func (r *Request) Snapshot() Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Request{
		ID:                r.ID,
		SessionID:         r.SessionID,
		MentorID:          r.MentorID,
		OfferingID:        r.OfferingID,
		Initiator:         r.Initiator,
		SelectedDate:      r.SelectedDate,
		ProposedSlot:      r.ProposedSlot,
		RemainingAttempts: r.RemainingAttempts,
		Status:            r.Status,
		ApprovalDeadline:  r.ApprovalDeadline,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// Store keeps live reschedule requests and the per-session attempt quota.
// Everything here is in-memory and recomputed per process lifetime.
type Store struct {
	requests map[string]*Request
	// remaining tracks attempts left per session id; sessions start at the
	// configured quota on first sight.
	remaining map[string]int
	quota     int
	mu        sync.RWMutex
}

// NewStore creates a store with the given per-session attempt quota.
func NewStore(quota int) *Store {
	if quota <= 0 {
		quota = 1
	}
	return &Store{
		requests:  make(map[string]*Request),
		remaining: make(map[string]int),
		quota:     quota,
	}
}

// Create registers a new request for a session in the Idle state.
func (s *Store) Create(sessionID, mentorID, offeringID string, initiator models.InitiatorRole) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.remaining[sessionID]; !ok {
		s.remaining[sessionID] = s.quota
	}

	now := time.Now()
	req := &Request{
		ID:                uuid.New().String(),
		SessionID:         sessionID,
		MentorID:          mentorID,
		OfferingID:        offeringID,
		Initiator:         initiator,
		RemainingAttempts: s.remaining[sessionID],
		Status:            StateIdle,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.requests[req.ID] = req
	return req
}

// Get returns a request by id, or nil.
func (s *Store) Get(id string) *Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[id]
}

// Delete removes a request.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, id)
}

// Remaining returns the attempts left for a session. Sessions never seen
// before have the full quota.
func (s *Store) Remaining(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.remaining[sessionID]; ok {
		return n
	}
	return s.quota
}

// ConsumeAttempt decrements a session's quota, never below zero, and
// returns the new remainder.
func (s *Store) ConsumeAttempt(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.remaining[sessionID]
	if !ok {
		n = s.quota
	}
	if n > 0 {
		n--
	}
	s.remaining[sessionID] = n
	return n
}

// AwaitingBefore returns requests sitting in AwaitingApproval whose
// deadline has passed.
func (s *Store) AwaitingBefore(now time.Time) []*Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var overdue []*Request
	for _, req := range s.requests {
		req.mu.Lock()
		if req.Status == StateAwaitingApproval && !req.ApprovalDeadline.IsZero() && req.ApprovalDeadline.Before(now) {
			overdue = append(overdue, req)
		}
		req.mu.Unlock()
	}
	return overdue
}
