// Package booking models the lifecycle of a reschedule request: slot
// selection, submission to the order service, and the counterparty approval
// protocol for mentor-initiated changes.
package booking

// State represents the current state of a reschedule request.
type State string

const (
	StateIdle             State = "idle"
	StateDateSelected     State = "date_selected"
	StateSlotSelected     State = "slot_selected"
	StateSubmitting       State = "submitting"
	StateAwaitingApproval State = "awaiting_approval"
	StateConfirmed        State = "confirmed"
	StateRejected         State = "rejected"
	StateExpired          State = "expired"
)

// Terminal reports whether the state ends the request's lifecycle. Reaching
// a terminal state is what consumes a reschedule attempt.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateRejected, StateExpired:
		return true
	}
	return false
}

// FSM manages the allowed state transitions.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the FSM with the reschedule transition table.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateIdle:         {StateDateSelected},
			StateDateSelected: {StateSlotSelected, StateDateSelected, StateIdle},
			StateSlotSelected: {StateSubmitting, StateSlotSelected, StateDateSelected, StateIdle},
			// A failed submission falls back to SlotSelected so the user
			// can retry without re-picking the slot.
			StateSubmitting:       {StateConfirmed, StateAwaitingApproval, StateSlotSelected},
			StateAwaitingApproval: {StateConfirmed, StateRejected, StateExpired},
			StateConfirmed:        {},
			StateRejected:         {},
			StateExpired:          {},
		},
	}
}

// CanTransition checks if a transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the request to the new state if allowed.
func (f *FSM) Transition(r *Request, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !f.CanTransition(r.Status, to) {
		return false
	}
	r.setStatusLocked(to)
	return true
}
