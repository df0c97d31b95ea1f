package catalog

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "raidcal/internal/log"
	"raidcal/internal/model"
)

// timeModeProperty overrides the time mode inferred from the DTSTART form.
// Accepted values: "absolute", "local".
const timeModeProperty = "X-TIME-MODE"

// Event is one catalog entry: an in-game event definition as parsed from a
// VEVENT, before recurrence expansion.
type Event struct {
	UID         string
	Summary     string
	Description string

	// Time holds the encoded start/end components and the time mode.
	// UTC-form DTSTART values ("...Z") yield absolute events; floating
	// values yield repeating-local events, matching iCalendar's floating
	// time semantics ("same wall clock in every zone").
	Time model.TimeSpec

	// RawRRule is kept verbatim; expansion happens in expand.go.
	RawRRule string
}

// Parse parses an ICS payload into catalog events. Individual malformed
// VEVENTs are logged and skipped so one bad entry never blocks the catalog.
func Parse(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty catalog body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("catalog parse failed", err)
		return nil, err
	}

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Error("catalog vevent skipped", perr, "uid", ev.UID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("catalog parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (Event, error) {
	var out Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if dtEnd == nil || dtEnd.Value == "" {
		return out, errors.New("missing DTEND")
	}

	start, err := parseEncodedTime(dtStart.Value)
	if err != nil {
		return out, err
	}
	end, err := parseEncodedTime(dtEnd.Value)
	if err != nil {
		return out, err
	}
	if end.Before(start) {
		return out, errors.New("DTEND before DTSTART")
	}

	out.Time = model.TimeSpec{
		Start:    start,
		End:      end,
		Absolute: inferTimeMode(ve, dtStart.Value),
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	return out, nil
}

// inferTimeMode decides absolute vs repeating-local. The DTSTART form is
// authoritative unless an explicit X-TIME-MODE property overrides it.
func inferTimeMode(ve *ical.VEvent, dtStartValue string) bool {
	if p := ve.GetProperty(ical.ComponentProperty(timeModeProperty)); p != nil {
		switch strings.ToLower(strings.TrimSpace(p.Value)) {
		case "absolute":
			return true
		case "local":
			return false
		}
	}
	return strings.HasSuffix(dtStartValue, "Z")
}

// parseEncodedTime parses an ICS date or date-time value into the canonical
// component encoding (components held in UTC). Floating values are parsed in
// UTC deliberately: the components are a recipe, and per-zone interpretation
// is the resolver's job.
func parseEncodedTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g. 20250601T180000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Floating date-time, e.g. 20250601T180000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, time.UTC)
	}

	// Date-only, e.g. 20250601
	const layoutDate = "20060102"
	return time.ParseInLocation(layoutDate, v, time.UTC)
}
