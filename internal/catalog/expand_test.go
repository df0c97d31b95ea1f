package catalog

import (
	"testing"
	"time"

	"raidcal/internal/model"
)

func utc(y int, mo time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, mo, d, h, mi, s, 0, time.UTC)
}

func TestExpandSingleEventInRange(t *testing.T) {
	ev := Event{
		UID:     "raid",
		Summary: "Raid Hour",
		Time: model.TimeSpec{
			Start:    utc(2025, time.June, 10, 18, 0, 0),
			End:      utc(2025, time.June, 10, 21, 0, 0),
			Absolute: true,
		},
	}

	result, err := Expand([]Event{ev}, ExpandConfig{
		RangeStart: utc(2025, time.June, 1, 0, 0, 0),
		RangeEnd:   utc(2025, time.June, 30, 0, 0, 0),
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result.Occurrences) != 1 {
		t.Fatalf("occurrences = %d, want 1", len(result.Occurrences))
	}

	occ := result.Occurrences[0]
	if occ.EventUID != "raid" || !occ.Time.Absolute {
		t.Errorf("unexpected occurrence: %+v", occ)
	}
	if occ.Key != "2025-06-10T18:00:00Z" {
		t.Errorf("key = %q", occ.Key)
	}
}

func TestExpandSingleEventOutsideRange(t *testing.T) {
	ev := Event{
		UID: "raid",
		Time: model.TimeSpec{
			Start: utc(2025, time.July, 10, 18, 0, 0),
			End:   utc(2025, time.July, 10, 21, 0, 0),
		},
	}

	result, err := Expand([]Event{ev}, ExpandConfig{
		RangeStart: utc(2025, time.June, 1, 0, 0, 0),
		RangeEnd:   utc(2025, time.June, 30, 0, 0, 0),
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result.Occurrences) != 0 {
		t.Errorf("occurrences = %d, want 0", len(result.Occurrences))
	}
}

func TestExpandWeeklyRecurrence(t *testing.T) {
	// Tuesday spotlight hour, weekly, repeating-local.
	ev := Event{
		UID:     "spotlight",
		Summary: "Spotlight Hour",
		Time: model.TimeSpec{
			Start: utc(2025, time.June, 3, 18, 0, 0),
			End:   utc(2025, time.June, 3, 19, 0, 0),
		},
		RawRRule: "FREQ=WEEKLY;BYDAY=TU",
	}

	result, err := Expand([]Event{ev}, ExpandConfig{
		RangeStart: utc(2025, time.June, 1, 0, 0, 0),
		RangeEnd:   utc(2025, time.June, 30, 0, 0, 0),
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	// Tuesdays in June 2025 from the 3rd: 3, 10, 17, 24.
	if len(result.Occurrences) != 4 {
		t.Fatalf("occurrences = %d, want 4", len(result.Occurrences))
	}
	if len(result.Truncated) != 0 {
		t.Errorf("truncated = %v, want none", result.Truncated)
	}

	for i, occ := range result.Occurrences {
		wantStart := utc(2025, time.June, 3+7*i, 18, 0, 0)
		if !occ.Time.Start.Equal(wantStart) {
			t.Errorf("occurrence %d start = %v, want %v", i, occ.Time.Start, wantStart)
		}
		if occ.Time.End.Sub(occ.Time.Start) != time.Hour {
			t.Errorf("occurrence %d duration = %v, want 1h", i, occ.Time.End.Sub(occ.Time.Start))
		}
		if occ.Time.Absolute {
			t.Errorf("occurrence %d should inherit the local time mode", i)
		}
	}
}

func TestExpandCapsOccurrences(t *testing.T) {
	ev := Event{
		UID: "daily",
		Time: model.TimeSpec{
			Start: utc(2025, time.June, 1, 12, 0, 0),
			End:   utc(2025, time.June, 1, 13, 0, 0),
		},
		RawRRule: "FREQ=DAILY",
	}

	result, err := Expand([]Event{ev}, ExpandConfig{
		RangeStart:  utc(2025, time.June, 1, 0, 0, 0),
		RangeEnd:    utc(2025, time.June, 30, 0, 0, 0),
		MaxPerEvent: 3,
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result.Occurrences) != 3 {
		t.Errorf("occurrences = %d, want cap of 3", len(result.Occurrences))
	}
	if len(result.Truncated) != 1 || result.Truncated[0] != "daily" {
		t.Errorf("truncated = %v, want [daily]", result.Truncated)
	}
}

func TestExpandSkipsBadRRule(t *testing.T) {
	bad := Event{
		UID: "broken",
		Time: model.TimeSpec{
			Start: utc(2025, time.June, 1, 12, 0, 0),
			End:   utc(2025, time.June, 1, 13, 0, 0),
		},
		RawRRule: "FREQ=NOPE",
	}
	good := Event{
		UID: "fine",
		Time: model.TimeSpec{
			Start: utc(2025, time.June, 2, 12, 0, 0),
			End:   utc(2025, time.June, 2, 13, 0, 0),
		},
	}

	result, err := Expand([]Event{bad, good}, ExpandConfig{
		RangeStart: utc(2025, time.June, 1, 0, 0, 0),
		RangeEnd:   utc(2025, time.June, 30, 0, 0, 0),
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(result.Occurrences) != 1 || result.Occurrences[0].EventUID != "fine" {
		t.Errorf("occurrences = %+v, want only the valid event", result.Occurrences)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	_, err := Expand(nil, ExpandConfig{
		RangeStart: utc(2025, time.June, 30, 0, 0, 0),
		RangeEnd:   utc(2025, time.June, 1, 0, 0, 0),
	})
	if err == nil {
		t.Error("Expand with inverted range should fail")
	}
}
