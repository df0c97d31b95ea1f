package timeline

import (
	"sort"
	"time"

	"raidcal/internal/model"
	"raidcal/internal/resolve"
)

// Align resolves one event against every candidate city and builds the
// chronological schedule of city windows, expressed in observer's zone,
// interleaved with the signed gaps between consecutive windows.
//
// It returns nil when no city yields a window of strictly positive duration
// (empty city list, malformed spec, or every resolution collapsing). That is
// a normal outcome, not an error: callers must treat "no timeline" as a
// distinct state from "timeline with one item".
func Align(spec model.TimeSpec, cities []model.City, observer model.Zone) *model.Timeline {
	return AlignAt(spec, cities, observer, time.Now())
}

// AlignAt is Align with a caller-supplied generation stamp. Apart from the
// stamp the computation is pure: identical inputs yield identical output.
func AlignAt(spec model.TimeSpec, cities []model.City, observer model.Zone, now time.Time) *model.Timeline {
	loc := displayLocation(observer)

	type window struct {
		city     model.City
		interval model.Interval
		degraded bool
	}

	// Resolve each city in its own zone; only strictly positive windows
	// survive. Zero/negative durations are collapsed resolutions of a
	// malformed spec and are dropped silently.
	windows := make([]window, 0, len(cities))
	for _, city := range cities {
		res := resolve.Resolve(spec, city.Zone)
		if res.Interval.Duration() <= 0 {
			continue
		}
		windows = append(windows, window{
			city:     city,
			interval: res.Interval.In(loc),
			degraded: res.Degraded,
		})
	}

	if len(windows) == 0 {
		return nil
	}

	// Stable: cities resolving to the same start instant keep their
	// supplied order.
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].interval.Start.Before(windows[j].interval.Start)
	})

	items := make([]model.TimelineItem, 0, 2*len(windows)-1)
	var active time.Duration

	for i, w := range windows {
		if i > 0 {
			prev := windows[i-1]
			// Signed gap from the previous window's end to this window's
			// start. Negative duration means overlap and is preserved as-is;
			// clamping would hide a real scheduling conflict.
			items = append(items, model.TimelineItem{
				Kind:     model.ItemGap,
				Interval: model.Interval{Start: prev.interval.End, End: w.interval.Start},
			})
		}
		items = append(items, model.TimelineItem{
			Kind:     model.ItemWindow,
			City:     w.city.Label,
			Zone:     w.city.Zone,
			Interval: w.interval,
			Degraded: w.degraded,
		})
		active += w.interval.Duration()
	}

	first := windows[0].interval
	last := windows[len(windows)-1].interval

	return &model.Timeline{
		Items:          items,
		TotalSpan:      last.End.Sub(first.Start),
		ActiveDuration: active,
		ObserverZone:   observer,
		GeneratedAt:    now.In(loc),
	}
}

// displayLocation resolves the observer zone for display re-expression.
// An unresolvable observer falls back to UTC rather than time.Local so the
// result does not depend on the host's locale.
func displayLocation(zone model.Zone) *time.Location {
	loc, err := zone.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}
