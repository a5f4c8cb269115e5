package ics

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func timedEvent(uid string, start, end time.Time) ParsedEvent {
	return ParsedEvent{
		UID:     uid,
		Summary: uid,
		Start:   start,
		End:     end,
		HasEnd:  true,
	}
}

func TestFullExpandLiteralEvent(t *testing.T) {
	ev := timedEvent("ev1",
		time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC))

	occs := FullExpander{}.Expand([]ParsedEvent{ev}, Window{Start: day(5), End: day(6)})

	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].UID != "ev1" || !occs[0].Start.Equal(ev.Start) {
		t.Fatalf("occurrence wrong: %+v", occs[0])
	}
}

func TestFullExpandLiteralOutsideWindow(t *testing.T) {
	// More than a day away from the window even with slack.
	ev := timedEvent("ev1",
		time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 10, 11, 0, 0, 0, time.UTC))

	occs := FullExpander{}.Expand([]ParsedEvent{ev}, Window{Start: day(5), End: day(6)})

	if len(occs) != 0 {
		t.Fatalf("expected no occurrences, got %v", occs)
	}
}

func TestFullExpandDailyRRule(t *testing.T) {
	ev := timedEvent("ev1",
		time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=DAILY;COUNT=5"

	// Window Jan 6 widens to [Jan 5, Jan 8]: instances on Jan 5, 6, 7.
	occs := FullExpander{}.Expand([]ParsedEvent{ev}, Window{Start: day(6), End: day(7)})

	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d: %v", len(occs), occs)
	}
	for i, occ := range occs {
		want := time.Date(2026, 1, 5+i, 9, 0, 0, 0, time.UTC)
		if !occ.Start.Equal(want) {
			t.Errorf("occurrence %d start = %v, want %v", i, occ.Start, want)
		}
		if occ.End.Sub(occ.Start) != time.Hour {
			t.Errorf("occurrence %d span = %v, want 1h", i, occ.End.Sub(occ.Start))
		}
	}
	// Each instance has a distinct key under a shared UID.
	if occs[0].InstanceKey == occs[1].InstanceKey {
		t.Error("instance keys not distinct")
	}
}

func TestFullExpandExDate(t *testing.T) {
	ev := timedEvent("ev1",
		time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=DAILY;COUNT=5"
	ev.ExDates = []time.Time{time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)}

	occs := FullExpander{}.Expand([]ParsedEvent{ev}, Window{Start: day(6), End: day(7)})

	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences after EXDATE, got %d: %v", len(occs), occs)
	}
	for _, occ := range occs {
		if occ.Start.Day() == 6 {
			t.Errorf("excluded instance still present: %v", occ.Start)
		}
	}
}

func TestFullExpandOverride(t *testing.T) {
	base := timedEvent("ev1",
		time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	base.RawRRule = "FREQ=DAILY;COUNT=3"

	movedFrom := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	override := timedEvent("ev1",
		time.Date(2026, 1, 6, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 6, 15, 0, 0, 0, time.UTC))
	override.Recurrence = &movedFrom
	override.IsOverride = true

	occs := FullExpander{}.Expand([]ParsedEvent{base, override}, Window{Start: day(6), End: day(7)})

	var found bool
	for _, occ := range occs {
		if occ.Start.Equal(override.Start) {
			found = true
		}
		if occ.Start.Equal(movedFrom) {
			t.Errorf("original instance not replaced by override: %v", occ.Start)
		}
	}
	if !found {
		t.Fatal("override occurrence missing")
	}
}

func TestFullExpandBadRRuleDegradesToLiteral(t *testing.T) {
	ev := timedEvent("ev1",
		time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=BOGUS"

	occs := FullExpander{}.Expand([]ParsedEvent{ev}, Window{Start: day(5), End: day(6)})

	if len(occs) != 1 {
		t.Fatalf("expected the literal event, got %d occurrences", len(occs))
	}
	if !occs[0].Start.Equal(ev.Start) {
		t.Fatalf("literal fallback start = %v, want %v", occs[0].Start, ev.Start)
	}
}

func TestFullExpandDefaultEnd(t *testing.T) {
	ev := ParsedEvent{
		UID:   "ev1",
		Start: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}

	occs := FullExpander{}.Expand([]ParsedEvent{ev}, Window{Start: day(5), End: day(6)})

	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if occs[0].End.Sub(occs[0].Start) != time.Hour {
		t.Fatalf("default end span = %v, want 1h", occs[0].End.Sub(occs[0].Start))
	}
}

func TestFullExpandOccurrenceCap(t *testing.T) {
	ev := timedEvent("ev1",
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 0, 30, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=MINUTELY"

	occs := FullExpander{MaxOccurrencesPerEvent: 10}.Expand(
		[]ParsedEvent{ev}, Window{Start: day(5), End: day(6)})

	if len(occs) != 10 {
		t.Fatalf("expected cap of 10 occurrences, got %d", len(occs))
	}
}

func TestBasicExpanderIgnoresRRule(t *testing.T) {
	ev := timedEvent("ev1",
		time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	ev.RawRRule = "FREQ=DAILY;COUNT=5"

	occs := BasicExpander{}.Expand([]ParsedEvent{ev}, Window{Start: day(5), End: day(6)})

	if len(occs) != 1 {
		t.Fatalf("expected only the literal component, got %d", len(occs))
	}
}

func TestExpanderNames(t *testing.T) {
	if (FullExpander{}).Name() != "full" || (BasicExpander{}).Name() != "basic" {
		t.Fatal("unexpected expander names")
	}
}
