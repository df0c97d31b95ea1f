package model

import "time"

// Zone identifies a geographic time zone by its IANA identifier
// (e.g. "Asia/Tokyo"). Two zones are equal iff their identifiers match;
// offset rules come from the platform zone database and are not modeled
// separately.
type Zone string

// Location resolves the zone against the platform zone database.
func (z Zone) Location() (*time.Location, error) {
	return time.LoadLocation(string(z))
}

// TimeSpec is the canonical encoding of when an event occurs. Start and End
// hold the six calendar components (year, month, day, hour, minute, second)
// stored in UTC; the components carry no zone semantics until interpreted.
//
// Absolute=true means the components denote one fixed UTC instant identical
// for every observer (a location-specific live event). Absolute=false means
// they are a wall-clock recipe reproduced in every observer's own zone
// (a globally-themed event that starts at 6pm everywhere).
type TimeSpec struct {
	Start    time.Time
	End      time.Time
	Absolute bool
}

// Interval is a resolved pair of absolute instants. For resolver output
// End is never before Start; a gap interval may have End before Start,
// in which case Duration is negative and signals overlap.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End minus Start. Negative for overlapping gaps.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// In re-expresses both instants in loc for display. The instants themselves
// are frame-independent; only the wall-clock view changes.
func (iv Interval) In(loc *time.Location) Interval {
	return Interval{Start: iv.Start.In(loc), End: iv.End.In(loc)}
}

// City is one candidate city supplied to the aligner. Duplicate zones are
// permitted; each entry is resolved independently.
type City struct {
	Label string
	Zone  Zone
}

// ItemKind tags the two timeline item variants.
type ItemKind string

const (
	// ItemWindow is one city's engagement window for the event.
	ItemWindow ItemKind = "window"
	// ItemGap spans from one window's end to the next window's start.
	// Its duration is negative when the two windows overlap.
	ItemGap ItemKind = "gap"
)

// TimelineItem is one entry of an aligned timeline: either a city window or
// the gap between two consecutive windows. Interval times are expressed in
// the observer zone.
type TimelineItem struct {
	Kind     ItemKind
	City     string // window only
	Zone     Zone   // window only
	Interval Interval

	// Degraded marks a window whose resolution fell back to the unconverted
	// encoded instants (unresolvable zone or DST gap collision).
	Degraded bool
}

// Key returns a deterministic identity for list consumers, built from
// already-available fields rather than a hash of epoch seconds.
func (it TimelineItem) Key() string {
	return string(it.Kind) + "|" + it.City + "|" + it.Interval.Start.UTC().Format(time.RFC3339)
}

// Timeline is the aligner's output: city windows interleaved with gaps in
// chronological order, plus derived metrics.
type Timeline struct {
	Items []TimelineItem

	// TotalSpan is the end of the last window minus the start of the first.
	TotalSpan time.Duration

	// ActiveDuration is the sum of all window durations. Overlaps are
	// double-counted: it answers "total engaged time if each window is
	// played separately", so simultaneous obligations count twice.
	ActiveDuration time.Duration

	ObserverZone Zone
	GeneratedAt  time.Time
}
