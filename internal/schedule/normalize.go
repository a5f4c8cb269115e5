package schedule

import (
	"time"

	"morningbrief/internal/model"
)

// NaivePolicy decides how floating (zone-less) timestamps are interpreted.
//
// Assuming a naive timestamp is already in the display zone is a policy
// choice, not a law of the domain: a misconfigured source could silently
// shift events by hours, so the policy is explicit and configurable.
type NaivePolicy int

const (
	// NaiveAssumeLocal interprets the wall clock as being in the display
	// zone. This matches how most consumer calendar apps export floating
	// times and is the default.
	NaiveAssumeLocal NaivePolicy = iota
	// NaiveAssumeUTC interprets the wall clock as UTC.
	NaiveAssumeUTC
)

// NormalizeOptions configures occurrence normalization.
type NormalizeOptions struct {
	// Location is the display zone every interval is converted into.
	Location *time.Location
	// Naive is the floating-timestamp policy.
	Naive NaivePolicy
}

// Normalize converts an occurrence's start/end into a display-zone Interval.
//
// Rules, applied in order:
//
//  1. All-day: start is local midnight of the start date; the end date is
//     taken as exclusive (standard DTEND semantics), so a one-day event
//     occupies exactly [D 00:00, D+1 00:00). A degenerate end (<= start
//     date) still yields the full day.
//  2. Timed with an explicit zone: converted preserving the instant.
//  3. Timed floating: wall clock reinterpreted per the naive policy.
//  4. After conversion, end <= start clamps to end = start + 1 minute so a
//     malformed source contributes a visible sliver of busy time instead of
//     being discarded.
func Normalize(occ model.Occurrence, opts NormalizeOptions) Interval {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	var start, end time.Time

	if occ.AllDay {
		start = midnightOf(occ.Start, loc)
		end = rebuildWallClock(occ.End, loc)
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	} else {
		start = normalizeTimed(occ.Start, occ.NaiveStart, opts.Naive, loc)
		end = normalizeTimed(occ.End, occ.NaiveEnd, opts.Naive, loc)
	}

	// Guard against zero/negative durations (malformed DTEND).
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	return Interval{Start: start, End: end}
}

func normalizeTimed(t time.Time, naive bool, policy NaivePolicy, loc *time.Location) time.Time {
	if !naive {
		return t.In(loc)
	}
	switch policy {
	case NaiveAssumeUTC:
		return rebuildWallClock(t, time.UTC).In(loc)
	default:
		return rebuildWallClock(t, loc)
	}
}

// rebuildWallClock re-homes t's wall-clock reading into loc, changing the
// instant it denotes.
func rebuildWallClock(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

func midnightOf(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
