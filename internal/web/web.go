package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"raidcal/internal/catalog"
	"raidcal/internal/config"
	appLog "raidcal/internal/log"
	"raidcal/internal/model"
	"raidcal/internal/timeline"
)

// Server exposes the event catalog and the timeline aligner over HTTP.
type Server struct {
	cfg   *config.Config
	store *catalog.Store
	mux   *http.ServeMux
}

// NewServer constructs a new Server backed by the given catalog store.
func NewServer(cfg *config.Config, store *catalog.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for liveness probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="raidcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config, store *catalog.Store) error {
	s := NewServer(cfg, store)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/timeline", s.handleTimeline)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// occurrenceDTO is a JSON-friendly view of one expanded event occurrence.
// Start/End are the encoded components in the canonical frame; TimeMode
// says how a client must interpret them.
type occurrenceDTO struct {
	EventUID string    `json:"event_uid"`
	Summary  string    `json:"summary"`
	Key      string    `json:"key"`
	TimeMode string    `json:"time_mode"` // "absolute" or "local"
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	Truncated   []string        `json:"truncated_uids,omitempty"`
	RangeStart  time.Time       `json:"range_start"`
	RangeEnd    time.Time       `json:"range_end"`
}

// handleEvents returns expanded catalog occurrences within a requested
// window.
//
// GET /api/events?days=14&backfill=1
//   - days:     how many future days to include (default config HorizonDays)
//   - backfill: how many past days to include (default 1)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	now := time.Now().UTC()
	rangeStart := now.AddDate(0, 0, -backfill)
	rangeEnd := now.AddDate(0, 0, days)

	appLog.Debug("api events request",
		"days", days,
		"backfill", backfill,
		"range_start", rangeStart.Format(time.RFC3339),
		"range_end", rangeEnd.Format(time.RFC3339),
	)

	result, err := catalog.Expand(s.store.Events(), catalog.ExpandConfig{
		RangeStart: rangeStart,
		RangeEnd:   rangeEnd,
	})
	if err != nil {
		appLog.Error("api events: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(result.Occurrences))
	for _, occ := range result.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			EventUID: occ.EventUID,
			Summary:  occ.Summary,
			Key:      occ.Key,
			TimeMode: timeModeString(occ.Time.Absolute),
			Start:    occ.Time.Start,
			End:      occ.Time.End,
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences: dtos,
		Truncated:   result.Truncated,
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
	})
}

// timelineItemDTO is a JSON-friendly view of one timeline item. Gap items
// carry a signed duration; clients branch on its sign to distinguish a
// travel break from an overlap.
type timelineItemDTO struct {
	Kind            string    `json:"kind"`
	Key             string    `json:"key"`
	City            string    `json:"city,omitempty"`
	Zone            string    `json:"zone,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationSeconds int64     `json:"duration_seconds"`
	Degraded        bool      `json:"degraded,omitempty"`
}

type timelineDTO struct {
	Items                 []timelineItemDTO `json:"items"`
	TotalSpanSeconds      int64             `json:"total_span_seconds"`
	ActiveDurationSeconds int64             `json:"active_duration_seconds"`
	ObserverZone          string            `json:"observer_zone"`
	GeneratedAt           time.Time         `json:"generated_at"`
}

// timelineResponse wraps the timeline so that "no usable window" is an
// explicit null, not an error status.
type timelineResponse struct {
	EventUID string       `json:"event_uid"`
	Summary  string       `json:"summary"`
	Timeline *timelineDTO `json:"timeline"`
}

// handleTimeline aligns one event occurrence across candidate cities.
//
// GET /api/timeline?event=UID[&start=RFC3339][&zone=ID][&cities=Label:Zone,...]
//   - event:  catalog event UID (required)
//   - start:  occurrence key for recurring events; defaults to the first
//     occurrence inside the horizon
//   - zone:   observer zone override (default config Timezone)
//   - cities: candidate city override (default config Cities)
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	uid := q.Get("event")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "missing event parameter")
		return
	}

	ev, ok := s.store.Find(uid)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown event")
		return
	}

	spec, err := s.pickOccurrence(ev, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	observer := model.Zone(s.cfg.Timezone)
	if z := q.Get("zone"); z != "" {
		observer = model.Zone(z)
	}

	cities, err := s.resolveCities(q.Get("cities"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tl := timeline.Align(spec, cities, observer)

	resp := timelineResponse{EventUID: ev.UID, Summary: ev.Summary}
	if tl != nil {
		resp.Timeline = toTimelineDTO(tl)
	}
	writeJSON(w, http.StatusOK, resp)
}

// pickOccurrence selects the concrete occurrence to align. Non-recurring
// events use their own spec directly; recurring events are expanded within
// the horizon and matched against startKey (or default to the earliest
// occurrence).
func (s *Server) pickOccurrence(ev catalog.Event, startKey string) (model.TimeSpec, error) {
	if ev.RawRRule == "" {
		return ev.Time, nil
	}

	now := time.Now().UTC()
	result, err := catalog.Expand([]catalog.Event{ev}, catalog.ExpandConfig{
		RangeStart: now.AddDate(0, 0, -1),
		RangeEnd:   now.AddDate(0, 0, s.cfg.HorizonDays),
	})
	if err != nil {
		return model.TimeSpec{}, err
	}
	if len(result.Occurrences) == 0 {
		return model.TimeSpec{}, errors.New("no occurrence inside horizon")
	}

	if startKey == "" {
		return result.Occurrences[0].Time, nil
	}
	for _, occ := range result.Occurrences {
		if occ.Key == startKey {
			return occ.Time, nil
		}
	}
	return model.TimeSpec{}, errors.New("no occurrence matching start")
}

// resolveCities builds the candidate list from the override parameter
// ("Label:Zone,Label:Zone") or falls back to the configured cities.
func (s *Server) resolveCities(param string) ([]model.City, error) {
	if param == "" {
		cities := make([]model.City, 0, len(s.cfg.Cities))
		for _, c := range s.cfg.Cities {
			cities = append(cities, model.City{Label: c.Label, Zone: model.Zone(c.Zone)})
		}
		return cities, nil
	}

	parts := strings.Split(param, ",")
	cities := make([]model.City, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, zone, ok := strings.Cut(part, ":")
		if !ok || label == "" || zone == "" {
			return nil, errors.New("malformed cities parameter, expected Label:Zone,...")
		}
		cities = append(cities, model.City{Label: label, Zone: model.Zone(zone)})
	}
	return cities, nil
}

func toTimelineDTO(tl *model.Timeline) *timelineDTO {
	items := make([]timelineItemDTO, 0, len(tl.Items))
	for _, it := range tl.Items {
		items = append(items, timelineItemDTO{
			Kind:            string(it.Kind),
			Key:             it.Key(),
			City:            it.City,
			Zone:            string(it.Zone),
			Start:           it.Interval.Start,
			End:             it.Interval.End,
			DurationSeconds: int64(it.Interval.Duration() / time.Second),
			Degraded:        it.Degraded,
		})
	}
	return &timelineDTO{
		Items:                 items,
		TotalSpanSeconds:      int64(tl.TotalSpan / time.Second),
		ActiveDurationSeconds: int64(tl.ActiveDuration / time.Second),
		ObserverZone:          string(tl.ObserverZone),
		GeneratedAt:           tl.GeneratedAt,
	}
}

func timeModeString(absolute bool) string {
	if absolute {
		return "absolute"
	}
	return "local"
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
