package catalog

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "raidcal/internal/log"
	"raidcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the expansion, evaluated against the
	// encoded components (the canonical frame), not per-zone instants.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxPerEvent caps occurrences per event to avoid runaway expansions.
	// Zero means defaultMaxOccurrencesPerEvent.
	MaxPerEvent int
}

// Occurrence is one concrete dated instance of a catalog event. Its TimeSpec
// is ready for the resolver; the time mode is inherited from the event.
type Occurrence struct {
	EventUID string
	Summary  string

	// Key identifies this instance of a recurring event, derived from the
	// encoded start.
	Key string

	Time model.TimeSpec
}

// ExpandResult wraps expanded occurrences plus the UIDs of events that hit
// the per-event cap.
type ExpandResult struct {
	Occurrences []Occurrence
	Truncated   []string
}

// Expand turns catalog events into concrete occurrences within the range.
// Non-recurring events yield at most one occurrence; RRULE events are
// expanded with their original duration preserved. Events whose RRULE fails
// to parse are logged and skipped.
func Expand(events []Event, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxOccurrencesPerEvent
	}

	all := make([]Occurrence, 0)
	for _, ev := range events {
		occ, hitCap := expandEvent(ev, cfg)
		if hitCap {
			result.Truncated = append(result.Truncated, ev.UID)
			appLog.Error("expand: truncated occurrences for event",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxPerEvent,
			)
		}
		all = append(all, occ...)
	}

	result.Occurrences = all
	return result, nil
}

func expandEvent(ev Event, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingle(ev, cfg), false
	}
	return expandRecurring(ev, cfg)
}

func expandSingle(ev Event, cfg ExpandConfig) []Occurrence {
	if !rangesOverlap(ev.Time.Start, ev.Time.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, ev.Time.Start, ev.Time.End)}
}

func expandRecurring(ev Event, cfg ExpandConfig) ([]Occurrence, bool) {
	out := make([]Occurrence, 0)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Time.Start)

	starts := r.Between(cfg.RangeStart, cfg.RangeEnd, true)

	hitCap := false
	if len(starts) > cfg.MaxPerEvent {
		starts = starts[:cfg.MaxPerEvent]
		hitCap = true
	}

	dur := ev.Time.End.Sub(ev.Time.Start)
	for _, start := range starts {
		out = append(out, makeOccurrence(ev, start, start.Add(dur)))
	}

	return out, hitCap
}

func makeOccurrence(ev Event, start, end time.Time) Occurrence {
	return Occurrence{
		EventUID: ev.UID,
		Summary:  ev.Summary,
		Key:      start.UTC().Format(time.RFC3339),
		Time: model.TimeSpec{
			Start:    start,
			End:      end,
			Absolute: ev.Time.Absolute,
		},
	}
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
