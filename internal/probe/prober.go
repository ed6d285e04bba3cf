// Package probe fills a calendar month with per-day availability by fanning
// out slot-gateway lookups under a fixed concurrency cap.
package probe

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mentorhub/internal/batch"
	"mentorhub/internal/metrics"
	"mentorhub/internal/models"
)

// SlotSource answers the one question the prober needs: which open slots
// exist for a mentor/offering on a single date. Implemented by slotgw.
type SlotSource interface {
	ListOpenSlots(ctx context.Context, mentorID, offeringID string, date time.Time) ([]models.TimeSlot, error)
}

// Key identifies what a probe was issued for. Results are only merged into
// a view while its key still matches; anything else is a stale answer for a
// month the user already navigated away from.
type Key struct {
	MentorID   string
	OfferingID string
	Year       int
	Month      time.Month
}

// Prober issues bounded-concurrency availability lookups.
type Prober struct {
	source    SlotSource
	batchSize int
	logger    *zerolog.Logger
}

// New creates a Prober. batchSize caps concurrently in-flight gateway calls;
// values <= 0 fall back to the batch package default.
func New(source SlotSource, batchSize int, logger *zerolog.Logger) *Prober {
	if batchSize <= 0 {
		batchSize = batch.DefaultWidth
	}
	return &Prober{source: source, batchSize: batchSize, logger: logger}
}

// ProbeMonth resolves availability for the given candidate days. A day maps
// to true iff the gateway returned at least one open slot. A failed lookup
// for one day degrades to "no slots" for that day only; it never fails the
// probe. Keys of the result map are YYYY-MM-DD.
func (p *Prober) ProbeMonth(ctx context.Context, key Key, days []time.Time) map[string]bool {
	results := batch.Map(ctx, days, p.batchSize, func(ctx context.Context, day time.Time) (bool, error) {
		slots, err := p.source.ListOpenSlots(ctx, key.MentorID, key.OfferingID, day)
		if err != nil {
			return false, err
		}
		return len(slots) > 0, nil
	})

	availability := make(map[string]bool, len(days))
	for i, r := range results {
		dateKey := models.DateKey(days[i])
		if r.Err != nil {
			// Degraded availability, not an error: the day renders as
			// unavailable and the rest of the month is unaffected.
			p.logger.Debug().
				Err(r.Err).
				Str("date", dateKey).
				Str("mentor_id", key.MentorID).
				Msg("availability lookup failed, treating day as unavailable")
			availability[dateKey] = false
			metrics.IncProbeDay("error")
			continue
		}
		availability[dateKey] = r.Value
		if r.Value {
			metrics.IncProbeDay("available")
		} else {
			metrics.IncProbeDay("empty")
		}
	}
	return availability
}

// View owns the availability map for the calendar month currently on
// screen. Refreshes are keyed; a refresh finishing after the user moved to
// another month (or another mentor/offering) is dropped instead of merged.
type View struct {
	prober *Prober

	mu           sync.Mutex
	current      Key
	availability map[string]bool
}

// NewView creates an empty view bound to a prober.
func NewView(prober *Prober) *View {
	return &View{prober: prober}
}

// Refresh probes the given month and installs the result if the view still
// shows the same key when the probe settles. It returns the probed map and
// whether it was installed; a false return means the view moved to another
// key mid-probe and the stale result was dropped, not merged.
func (v *View) Refresh(ctx context.Context, key Key, days []time.Time) (map[string]bool, bool) {
	v.mu.Lock()
	if v.current != key {
		v.current = key
		v.availability = nil // month changed, old map is invalid
	}
	v.mu.Unlock()

	availability := v.prober.ProbeMonth(ctx, key, days)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current != key {
		// The user navigated away while gateway calls were in flight.
		v.prober.logger.Debug().
			Int("year", key.Year).
			Str("month", key.Month.String()).
			Msg("dropping stale availability probe result")
		return availability, false
	}
	v.availability = availability
	return availability, true
}

// Current returns the key and a copy of the availability map the view holds.
func (v *View) Current() (Key, map[string]bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]bool, len(v.availability))
	for k, val := range v.availability {
		out[k] = val
	}
	return v.current, out
}
