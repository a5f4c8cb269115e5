package schedule

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// writeICS writes an ICS fixture with CRLF line endings to a temp file.
func writeICS(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.ics")
	body := strings.Join(lines, "\r\n") + "\r\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func baseRequest(source string) Request {
	return Request{
		Source:           source,
		Timezone:         "UTC",
		DayStartHour:     8,
		DayEndHour:       21,
		MinBlockMinutes:  60,
		DeepBlockMinutes: 90,
		Now:              time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC),
	}
}

func TestFreeBlocksMissingSource(t *testing.T) {
	engine := New(nil, nil)

	req := baseRequest(filepath.Join(t.TempDir(), "absent.ics"))
	result := engine.FreeBlocks(context.Background(), req)

	if !result.Degraded {
		t.Fatal("expected Degraded for a missing calendar source")
	}
	if len(result.Gaps) != 1 {
		t.Fatalf("expected whole window as one gap, got %d", len(result.Gaps))
	}
	g := result.Gaps[0]
	if g.Minutes != 780 {
		t.Errorf("gap minutes = %d, want 780", g.Minutes)
	}
	if want := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC); !g.Start.Equal(want) {
		t.Errorf("gap start = %v, want %v", g.Start, want)
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0].Kind != KindDeepWork {
		t.Errorf("expected one Deep work suggestion, got %v", result.Suggestions)
	}
	if !result.WindowStart.Equal(g.Start) || !result.WindowEnd.Equal(g.End) {
		t.Errorf("window %v-%v does not match the whole-window gap %v-%v",
			result.WindowStart, result.WindowEnd, g.Start, g.End)
	}
}

func TestFreeBlocksSingleEvent(t *testing.T) {
	path := writeICS(t,
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//morningbrief//test//EN",
		"BEGIN:VEVENT",
		"UID:ev-standup",
		"DTSTART:20260105T100000Z",
		"DTEND:20260105T110000Z",
		"SUMMARY:Standup",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	engine := New(nil, nil)
	result := engine.FreeBlocks(context.Background(), baseRequest(path))

	if result.Degraded {
		t.Fatal("unexpected Degraded")
	}
	if len(result.Gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d: %v", len(result.Gaps), result.Gaps)
	}
	if result.Gaps[0].Minutes != 120 || result.Gaps[1].Minutes != 600 {
		t.Errorf("gap minutes = %d, %d; want 120, 600", result.Gaps[0].Minutes, result.Gaps[1].Minutes)
	}
	// Output times are naive local wall clock.
	if want := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC); !result.Gaps[1].Start.Equal(want) {
		t.Errorf("second gap start = %v, want %v", result.Gaps[1].Start, want)
	}
	for i, s := range result.Suggestions {
		if s.Kind != KindDeepWork {
			t.Errorf("suggestion %d kind = %q, want %q", i, s.Kind, KindDeepWork)
		}
	}
}

func TestFreeBlocksDisplayZone(t *testing.T) {
	// 10:00Z-11:00Z is 19:00-20:00 in Seoul.
	path := writeICS(t,
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//morningbrief//test//EN",
		"BEGIN:VEVENT",
		"UID:ev-call",
		"DTSTART:20260105T100000Z",
		"DTEND:20260105T110000Z",
		"SUMMARY:Evening call",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	req := baseRequest(path)
	req.Timezone = "Asia/Seoul"
	// 01:00Z is 10:00 KST, so "today" in Seoul is still Jan 5.
	req.Now = time.Date(2026, 1, 5, 1, 0, 0, 0, time.UTC)

	result := New(nil, nil).FreeBlocks(context.Background(), req)

	if len(result.Gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d: %v", len(result.Gaps), result.Gaps)
	}
	if want := time.Date(2026, 1, 5, 19, 0, 0, 0, time.UTC); !result.Gaps[0].End.Equal(want) {
		t.Errorf("first gap end = %v, want naive 19:00", result.Gaps[0].End)
	}
	if want := time.Date(2026, 1, 5, 20, 0, 0, 0, time.UTC); !result.Gaps[1].Start.Equal(want) {
		t.Errorf("second gap start = %v, want naive 20:00", result.Gaps[1].Start)
	}
}

func TestFreeBlocksAllDayEvent(t *testing.T) {
	// An all-day event on the query day blocks the entire window.
	path := writeICS(t,
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//morningbrief//test//EN",
		"BEGIN:VEVENT",
		"UID:ev-holiday",
		"DTSTART;VALUE=DATE:20260105",
		"DTEND;VALUE=DATE:20260106",
		"SUMMARY:Holiday",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	result := New(nil, nil).FreeBlocks(context.Background(), baseRequest(path))

	if len(result.Gaps) != 0 {
		t.Fatalf("expected no gaps on an all-day blocked day, got %v", result.Gaps)
	}
	if len(result.Suggestions) != 0 {
		t.Fatalf("expected no suggestions, got %v", result.Suggestions)
	}
	// The window is reported even when no gaps survive.
	if want := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC); !result.WindowStart.Equal(want) {
		t.Errorf("WindowStart = %v, want %v", result.WindowStart, want)
	}
	if want := time.Date(2026, 1, 5, 21, 0, 0, 0, time.UTC); !result.WindowEnd.Equal(want) {
		t.Errorf("WindowEnd = %v, want %v", result.WindowEnd, want)
	}
}

func TestFreeBlocksIdempotent(t *testing.T) {
	path := writeICS(t,
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//morningbrief//test//EN",
		"BEGIN:VEVENT",
		"UID:ev-standup",
		"DTSTART:20260105T100000Z",
		"DTEND:20260105T110000Z",
		"SUMMARY:Standup",
		"END:VEVENT",
		"END:VCALENDAR",
	)

	engine := New(nil, nil)
	req := baseRequest(path)

	first := engine.FreeBlocks(context.Background(), req)
	second := engine.FreeBlocks(context.Background(), req)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ across runs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFreeBlocksUnparsableSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.ics")
	if err := os.WriteFile(path, []byte("this is not a calendar"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	result := New(nil, nil).FreeBlocks(context.Background(), baseRequest(path))

	if !result.Degraded {
		t.Fatal("expected Degraded for an unparsable source")
	}
	if len(result.Gaps) != 1 || result.Gaps[0].Minutes != 780 {
		t.Fatalf("expected whole-window fallback, got %v", result.Gaps)
	}
}
