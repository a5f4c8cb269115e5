package schedule

import (
	"testing"
	"time"

	"morningbrief/internal/model"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}

func TestNormalizeAllDaySingleDay(t *testing.T) {
	seoul := mustLoc(t, "Asia/Seoul")

	// All-day dates come out of parsing as UTC midnights with an exclusive
	// end date one day later.
	occ := model.Occurrence{
		UID:    "ev1",
		AllDay: true,
		Start:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	got := Normalize(occ, NormalizeOptions{Location: seoul})

	wantStart := time.Date(2026, 1, 5, 0, 0, 0, 0, seoul)
	wantEnd := time.Date(2026, 1, 6, 0, 0, 0, 0, seoul)
	if !got.Start.Equal(wantStart) || !got.End.Equal(wantEnd) {
		t.Fatalf("got %v-%v, want %v-%v", got.Start, got.End, wantStart, wantEnd)
	}
}

func TestNormalizeAllDayDegenerateEnd(t *testing.T) {
	seoul := mustLoc(t, "Asia/Seoul")

	// End date equal to the start date still yields the full day.
	occ := model.Occurrence{
		UID:    "ev1",
		AllDay: true,
		Start:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}

	got := Normalize(occ, NormalizeOptions{Location: seoul})

	if want := time.Date(2026, 1, 6, 0, 0, 0, 0, seoul); !got.End.Equal(want) {
		t.Fatalf("end = %v, want %v", got.End, want)
	}
}

func TestNormalizeZonedPreservesInstant(t *testing.T) {
	seoul := mustLoc(t, "Asia/Seoul")

	occ := model.Occurrence{
		UID:   "ev1",
		Start: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
	}

	got := Normalize(occ, NormalizeOptions{Location: seoul})

	// 10:00Z is 19:00 KST; the instant must not move.
	if !got.Start.Equal(occ.Start) {
		t.Fatalf("instant moved: %v != %v", got.Start, occ.Start)
	}
	if got.Start.Hour() != 19 {
		t.Fatalf("wall clock = %02d:00, want 19:00", got.Start.Hour())
	}
}

func TestNormalizeNaiveAssumeLocal(t *testing.T) {
	seoul := mustLoc(t, "Asia/Seoul")

	// Floating timestamps carry a UTC placeholder zone and the naive flags.
	occ := model.Occurrence{
		UID:        "ev1",
		Start:      time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
		NaiveStart: true,
		NaiveEnd:   true,
	}

	got := Normalize(occ, NormalizeOptions{Location: seoul, Naive: NaiveAssumeLocal})

	wantStart := time.Date(2026, 1, 5, 10, 0, 0, 0, seoul)
	if !got.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", got.Start, wantStart)
	}
}

func TestNormalizeNaiveAssumeUTC(t *testing.T) {
	seoul := mustLoc(t, "Asia/Seoul")

	occ := model.Occurrence{
		UID:        "ev1",
		Start:      time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
		NaiveStart: true,
		NaiveEnd:   true,
	}

	got := Normalize(occ, NormalizeOptions{Location: seoul, Naive: NaiveAssumeUTC})

	// 10:00 read as UTC displays as 19:00 KST.
	if got.Start.Hour() != 19 {
		t.Fatalf("wall clock = %02d:00, want 19:00", got.Start.Hour())
	}
}

func TestNormalizeClampsInvertedEnd(t *testing.T) {
	occ := model.Occurrence{
		UID:   "ev1",
		Start: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}

	got := Normalize(occ, NormalizeOptions{Location: time.UTC})

	if want := occ.Start.Add(time.Minute); !got.End.Equal(want) {
		t.Fatalf("end = %v, want clamped %v", got.End, want)
	}
}
