package resolve

import (
	"time"

	"raidcal/internal/model"
)

// Result carries a resolved interval plus whether resolution had to fall
// back to the unconverted encoded instants. Degraded results are still
// usable; callers that want stricter correctness can exclude them.
type Result struct {
	Interval model.Interval
	Degraded bool
}

// Resolve computes the actual start/end instants of spec as observed from
// zone.
//
// Absolute specs already denote UTC instants and pass through unchanged;
// zone has no effect on them, so callers can pass the observer zone without
// branching.
//
// Local specs are a wall-clock recipe: the six encoded calendar fields are
// re-encoded as a local date-time inside zone. This is a reinterpretation,
// not an offset shift — 18:00 becomes 18:00 in Tokyo and 18:00 in Denver, at
// different absolute instants.
//
// If the zone identifier cannot be resolved, a wall-clock time falls in a
// DST spring-forward gap, or reinterpretation would invert the start/end
// order, Resolve returns the encoded instants unconverted with Degraded set
// rather than failing. Resolve is pure: no I/O, no shared mutable state.
func Resolve(spec model.TimeSpec, zone model.Zone) Result {
	if spec.Absolute {
		return Result{Interval: model.Interval{
			Start: spec.Start.UTC(),
			End:   spec.End.UTC(),
		}}
	}

	fallback := Result{
		Interval: model.Interval{Start: spec.Start.UTC(), End: spec.End.UTC()},
		Degraded: true,
	}

	loc, err := zone.Location()
	if err != nil {
		return fallback
	}

	start, ok := reinterpret(spec.Start, loc)
	if !ok {
		return fallback
	}
	end, ok := reinterpret(spec.End, loc)
	if !ok {
		return fallback
	}
	if end.Before(start) {
		// Zone transitions between the two wall-clock times must not invert
		// the ordering implied by the encoded components.
		return fallback
	}

	return Result{Interval: model.Interval{Start: start, End: end}}
}

// reinterpret rebuilds t's calendar components as a local time in loc.
// It reports false when the wall-clock time does not exist in loc (DST
// spring-forward gap), detected by time.Date normalizing the components.
func reinterpret(t time.Time, loc *time.Location) (time.Time, bool) {
	u := t.UTC()
	local := time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), loc)

	if local.Year() != u.Year() || local.Month() != u.Month() || local.Day() != u.Day() ||
		local.Hour() != u.Hour() || local.Minute() != u.Minute() || local.Second() != u.Second() {
		return time.Time{}, false
	}
	return local, true
}
