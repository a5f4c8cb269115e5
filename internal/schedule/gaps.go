package schedule

import "time"

// Suggestion kinds, ordered by the gap-size tier they require.
const (
	KindDeepWork = "Deep work"
	KindFocus    = "Focus"
)

// FreeGap is a maximal unoccupied interval inside the query window, annotated
// with its whole-minute duration.
type FreeGap struct {
	Start   time.Time
	End     time.Time
	Minutes int
}

// Suggestion is a study-block recommendation derived from exactly one gap.
type Suggestion struct {
	Kind    string
	Start   time.Time
	End     time.Time
	Minutes int
}

// DeriveGaps walks the busy set against the window boundaries and returns the
// free gaps of at least minMinutes, in chronological order.
//
// busy must already be a merged busy set (sorted, strictly separated) clipped
// to win; Merge and Clip produce exactly that. Pass minMinutes <= 0 to get
// every gap.
func DeriveGaps(busy []Interval, win Interval, minMinutes int) []FreeGap {
	gaps := make([]FreeGap, 0, len(busy)+1)

	cursor := win.Start
	for _, iv := range busy {
		if cursor.Before(iv.Start) {
			gaps = appendGap(gaps, cursor, iv.Start, minMinutes)
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
	}
	if cursor.Before(win.End) {
		gaps = appendGap(gaps, cursor, win.End, minMinutes)
	}

	return gaps
}

func appendGap(gaps []FreeGap, start, end time.Time, minMinutes int) []FreeGap {
	mins := wholeMinutes(start, end)
	if mins < minMinutes {
		return gaps
	}
	return append(gaps, FreeGap{Start: start, End: end, Minutes: mins})
}

// ClassifySuggestions maps every gap to exactly one suggestion: Deep work
// when the gap meets the deep-work threshold, Focus otherwise. The input is
// assumed to be pre-filtered by the minimum gap size, so every gap qualifies
// for at least the Focus tier.
//
// This is a pure classification pass over all gaps; it deliberately replaces
// a stop-at-first-match scan so that no qualifying slot is hidden.
func ClassifySuggestions(gaps []FreeGap, deepMinutes int) []Suggestion {
	if len(gaps) == 0 {
		return nil
	}

	out := make([]Suggestion, 0, len(gaps))
	for _, g := range gaps {
		kind := KindFocus
		if g.Minutes >= deepMinutes {
			kind = KindDeepWork
		}
		out = append(out, Suggestion{
			Kind:    kind,
			Start:   g.Start,
			End:     g.End,
			Minutes: g.Minutes,
		})
	}
	return out
}

// wholeMinutes floors the span between start and end to whole minutes.
func wholeMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
