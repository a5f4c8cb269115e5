package schedule

import (
	"sort"
	"time"
)

// Interval is a normalized half-open [Start, End) range with Start < End,
// both instants in the engine's display zone.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the covered span.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Clip intersects iv with win. ok is false when the intersection is empty or
// collapses to a single instant.
func Clip(iv, win Interval) (Interval, bool) {
	s := iv.Start
	if win.Start.After(s) {
		s = win.Start
	}
	e := iv.End
	if win.End.Before(e) {
		e = win.End
	}
	if !s.Before(e) {
		return Interval{}, false
	}
	return Interval{Start: s, End: e}, true
}

// Merge sorts the given intervals by start and merges overlapping and
// adjacent ones in a single left-to-right sweep. The result is the busy set:
// sorted, with every consecutive pair strictly separated (e1 < s2).
//
// The input slice is not modified.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		// Start <= cur.End also merges exact adjacency.
		if !iv.Start.After(cur.End) {
			if iv.End.After(cur.End) {
				cur.End = iv.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = iv
	}
	merged = append(merged, cur)

	return merged
}
