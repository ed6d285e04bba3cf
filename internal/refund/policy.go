// Package refund computes the advisory, client-side refund decision for a
// cancellation. The refund service applies the authoritative rule table
// server-side; this engine exists so the frontend can show the outcome
// before any network call, and must be kept consistent with the server's
// table through configuration.
package refund

import (
	"fmt"
	"sort"
	"time"

	"mentorhub/internal/metrics"
)

// Tier maps "at least this many hours before session start" to a refund
// fraction. Tables are ordered most generous first (descending MinHours).
type Tier struct {
	MinHoursBeforeStart float64 `yaml:"min_hours_before_start" json:"min_hours_before_start"`
	RefundFraction      float64 `yaml:"refund_fraction" json:"refund_fraction"`
}

// Decision is the computed outcome of evaluating a cancellation moment
// against the tier table. It is never stored, always recomputed.
type Decision struct {
	Eligible bool    `json:"eligible"`
	Fraction float64 `json:"fraction"`
	Reason   string  `json:"reason,omitempty"`
}

// Ineligibility reasons surfaced to the user.
const (
	ReasonAlreadyStarted = "session already started"
	ReasonNoStartTime    = "session start time unknown"
	ReasonWindowClosed   = "cancellation window has closed"
)

// DefaultTiers is the rule table observed in this domain: full refund a day
// or more ahead, half refund down to two hours, nothing inside two hours.
func DefaultTiers() []Tier {
	return []Tier{
		{MinHoursBeforeStart: 24, RefundFraction: 1.0},
		{MinHoursBeforeStart: 2, RefundFraction: 0.5},
		{MinHoursBeforeStart: 0, RefundFraction: 0},
	}
}

// Policy evaluates cancellations against a tier table.
type Policy struct {
	tiers []Tier
	// blockZeroFraction additionally blocks the cancellation action itself
	// when the matched fraction is zero, instead of allowing a no-money
	// cancellation. Policy input, not a hardcoded assumption.
	blockZeroFraction bool
}

// NewPolicy validates the tier table and returns a Policy. The table must be
// non-empty, strictly descending in MinHoursBeforeStart, end at 0 hours so
// every non-negative lead time matches a tier, and have fractions within
// [0,1] that do not increase as the session draws closer.
func NewPolicy(tiers []Tier, blockZeroFraction bool) (*Policy, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("refund policy: empty tier table")
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinHoursBeforeStart > sorted[j].MinHoursBeforeStart
	})

	for i, tier := range sorted {
		if tier.MinHoursBeforeStart < 0 {
			return nil, fmt.Errorf("refund policy: tier %d has negative threshold", i)
		}
		if tier.RefundFraction < 0 || tier.RefundFraction > 1 {
			return nil, fmt.Errorf("refund policy: tier %d fraction %v outside [0,1]", i, tier.RefundFraction)
		}
		if i > 0 {
			if tier.MinHoursBeforeStart == sorted[i-1].MinHoursBeforeStart {
				return nil, fmt.Errorf("refund policy: duplicate threshold %v", tier.MinHoursBeforeStart)
			}
			if tier.RefundFraction > sorted[i-1].RefundFraction {
				return nil, fmt.Errorf("refund policy: fraction increases toward session start at tier %d", i)
			}
		}
	}
	if last := sorted[len(sorted)-1]; last.MinHoursBeforeStart != 0 {
		return nil, fmt.Errorf("refund policy: table must end at 0 hours, got %v", last.MinHoursBeforeStart)
	}

	return &Policy{tiers: sorted, blockZeroFraction: blockZeroFraction}, nil
}

// MustPolicy is NewPolicy for static tables known to be valid.
func MustPolicy(tiers []Tier, blockZeroFraction bool) *Policy {
	p, err := NewPolicy(tiers, blockZeroFraction)
	if err != nil {
		panic(err)
	}
	return p
}

// Tiers returns a copy of the normalized tier table.
func (p *Policy) Tiers() []Tier {
	out := make([]Tier, len(p.tiers))
	copy(out, p.tiers)
	return out
}

// Evaluate computes the refund decision for cancelling at cancelledAt a
// session starting at sessionStartAt. Pure: identical inputs always yield
// an identical Decision, and it never returns an error — missing data and
// in-progress sessions degrade to an ineligible Decision with a reason.
//
// Boundary convention: thresholds are inclusive on the generous side. A
// cancellation exactly 24h00m00s ahead matches the >=24h tier (full refund);
// one second later than that matches the next tier down.
func (p *Policy) Evaluate(sessionStartAt, cancelledAt time.Time) Decision {
	if sessionStartAt.IsZero() {
		metrics.IncRefundEvaluated("ineligible")
		return Decision{Eligible: false, Fraction: 0, Reason: ReasonNoStartTime}
	}

	lead := sessionStartAt.Sub(cancelledAt)
	if lead < 0 {
		metrics.IncRefundEvaluated("ineligible")
		return Decision{Eligible: false, Fraction: 0, Reason: ReasonAlreadyStarted}
	}

	hoursBefore := lead.Hours()
	for _, tier := range p.tiers {
		if tier.MinHoursBeforeStart <= hoursBefore {
			if tier.RefundFraction == 0 && p.blockZeroFraction {
				metrics.IncRefundEvaluated("blocked")
				return Decision{Eligible: false, Fraction: 0, Reason: ReasonWindowClosed}
			}
			metrics.IncRefundEvaluated("eligible")
			return Decision{Eligible: true, Fraction: tier.RefundFraction}
		}
	}

	// Unreachable with a validated table (last tier is at 0 hours), kept so
	// the function cannot panic on a hand-built Policy.
	metrics.IncRefundEvaluated("ineligible")
	return Decision{Eligible: false, Fraction: 0, Reason: ReasonWindowClosed}
}
