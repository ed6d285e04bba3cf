// Package api exposes the scheduling and refund core over a small JSON API
// consumed by the marketplace web frontend.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mentorhub/internal/booking"
	"mentorhub/internal/models"
	"mentorhub/internal/probe"
	"mentorhub/internal/refund"
)

// SlotLister is the slice of the slot gateway the API needs directly (the
// per-day slot listing once a date is picked).
type SlotLister interface {
	ListOpenSlots(ctx context.Context, mentorID, offeringID string, date time.Time) ([]models.TimeSlot, error)
}

// CancellationRequester forwards an eligible cancellation to the refund
// service.
type CancellationRequester interface {
	RequestCancellation(ctx context.Context, orderID, reason string) (float64, error)
}

// HTTPServer serves the scheduling API.
type HTTPServer struct {
	server *http.Server

	gateway SlotLister
	prober  *probe.Prober
	manager *booking.Manager
	policy  *refund.Policy
	orders  CancellationRequester

	horizonDays int
	apiKey      string
	logger      *zerolog.Logger
	now         func() time.Time

	viewsMu sync.Mutex
	views   map[string]*probe.View
}

// NewHTTPServer wires the API routes.
func NewHTTPServer(
	port int,
	apiKey string,
	gateway SlotLister,
	prober *probe.Prober,
	manager *booking.Manager,
	policy *refund.Policy,
	orders CancellationRequester,
	horizonDays int,
	logger *zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		gateway:     gateway,
		prober:      prober,
		manager:     manager,
		policy:      policy,
		orders:      orders,
		horizonDays: horizonDays,
		apiKey:      apiKey,
		logger:      logger,
		now:         time.Now,
		views:       make(map[string]*probe.View),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/availability", s.auth(s.handleAvailability))
	mux.HandleFunc("/api/v1/slots", s.auth(s.handleSlots))
	mux.HandleFunc("/api/v1/reschedules", s.auth(s.handleReschedules))
	mux.HandleFunc("/api/v1/reschedules/", s.auth(s.handleRescheduleByID))
	mux.HandleFunc("/api/v1/refunds/preview", s.auth(s.handleRefundPreview))
	mux.HandleFunc("/api/v1/cancellations", s.auth(s.handleCancellations))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the configured handler. Used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// WithClock overrides the server's clock. Test hook.
func (s *HTTPServer) WithClock(now func() time.Time) *HTTPServer {
	s.now = now
	return s
}

// Start runs the server until the context is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("scheduling API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// auth requires the configured API key on every route when one is set.
func (s *HTTPServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-Api-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

// viewFor returns the availability view for a mentor/offering pair. One
// view per pair keeps month flips from merging stale probe results.
func (s *HTTPServer) viewFor(mentorID, offeringID string) *probe.View {
	key := mentorID + "\x00" + offeringID
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	v, ok := s.views[key]
	if !ok {
		v = probe.NewView(s.prober)
		s.views[key] = v
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
