package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "morningbrief/internal/log"
	"morningbrief/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000

	// fetchWindowSlack widens the expansion range on both sides so events
	// that span midnight in a different source zone are not missed before
	// normalization. Occurrences are re-filtered against the normalized
	// window downstream.
	fetchWindowSlack = 24 * time.Hour
)

// Window is a half-open [Start, End) query range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Expander turns parsed events into concrete occurrences overlapping a
// widened query window. Two implementations exist:
//
//   - FullExpander: RRULE-based expansion with EXDATE and RECURRENCE-ID
//     override support.
//   - BasicExpander: literal (non-expanded) components only. This is the
//     typed degradation path; recurring exceptions may be missed.
type Expander interface {
	Expand(events []ParsedEvent, win Window) []model.Occurrence
	Name() string
}

// FullExpander expands recurring events via RRULE.
type FullExpander struct {
	// MaxOccurrencesPerEvent is a safety cap against runaway rules.
	// Zero means defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

func (FullExpander) Name() string { return "full" }

// Expand returns every occurrence (single or recurring) whose raw interval
// overlaps [win.Start − 1 day, win.End + 1 day]. Events whose RRULE fails to
// parse degrade to their literal component with a warning.
func (f FullExpander) Expand(events []ParsedEvent, win Window) []model.Occurrence {
	maxOcc := f.MaxOccurrencesPerEvent
	if maxOcc <= 0 {
		maxOcc = defaultMaxOccurrencesPerEvent
	}

	wideStart := win.Start.Add(-fetchWindowSlack)
	wideEnd := win.End.Add(fetchWindowSlack)

	base, overrides := splitOverrides(events)

	out := make([]model.Occurrence, 0)
	for _, ev := range base {
		ev = withDefaultEnd(ev)

		if ev.RawRRule == "" {
			if occ, ok := literalOccurrence(ev, overrides[ev.UID], wideStart, wideEnd); ok {
				out = append(out, occ)
			}
			continue
		}

		occs, hitCap := expandRecurring(ev, overrides[ev.UID], wideStart, wideEnd, maxOcc)
		if hitCap {
			appLog.Warn("expand: occurrence cap reached for recurring event",
				"uid", ev.UID, "cap", maxOcc)
		}
		out = append(out, occs...)
	}

	return out
}

// BasicExpander returns only the literal event components. Selected when full
// recurrence expansion is disabled or unavailable.
type BasicExpander struct{}

func (BasicExpander) Name() string { return "basic" }

func (BasicExpander) Expand(events []ParsedEvent, win Window) []model.Occurrence {
	wideStart := win.Start.Add(-fetchWindowSlack)
	wideEnd := win.End.Add(fetchWindowSlack)

	base, overrides := splitOverrides(events)

	out := make([]model.Occurrence, 0)
	for _, ev := range base {
		ev = withDefaultEnd(ev)
		if occ, ok := literalOccurrence(ev, overrides[ev.UID], wideStart, wideEnd); ok {
			out = append(out, occ)
		}
	}
	return out
}

// splitOverrides groups base events and RECURRENCE-ID overrides by UID.
func splitOverrides(events []ParsedEvent) ([]ParsedEvent, map[string][]ParsedEvent) {
	base := make([]ParsedEvent, 0, len(events))
	overrides := make(map[string][]ParsedEvent)

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			base = append(base, ev)
		}
	}
	return base, overrides
}

// withDefaultEnd applies the visible default-end policy: an occurrence's end
// is never left undefined. Timed events without DTEND run one hour; all-day
// events without DTEND become a 1-hour block at midnight of the same day.
func withDefaultEnd(ev ParsedEvent) ParsedEvent {
	if ev.HasEnd {
		return ev
	}
	ev.End = ev.Start.Add(time.Hour)
	ev.HasEnd = true
	ev.EndNaive = ev.StartNaive
	return ev
}

func literalOccurrence(ev ParsedEvent, overrides []ParsedEvent, wideStart, wideEnd time.Time) (model.Occurrence, bool) {
	if !timeRangesOverlap(ev.Start, ev.End, wideStart, wideEnd) {
		return model.Occurrence{}, false
	}

	start := ev.Start
	end := ev.End
	if o, ok := findOverrideForStart(overrides, start); ok {
		o = withDefaultEnd(o)
		return makeOccurrence(o, o.Start, o.End), true
	}
	return makeOccurrence(ev, start, end), true
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, wideStart, wideEnd time.Time, maxOcc int) ([]model.Occurrence, bool) {
	out := make([]model.Occurrence, 0)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		// Degrade to the literal component rather than dropping the event.
		appLog.Warn("expand: RRULE parse failed, using literal event",
			"uid", ev.UID, "rrule", ev.RawRRule, "err", err.Error())
		if occ, ok := literalOccurrence(ev, overrides, wideStart, wideEnd); ok {
			out = append(out, occ)
		}
		return out, false
	}

	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)

	for _, ex := range ev.ExDates {
		// Best effort: align EXDATE location with the event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := wideStart.In(ev.Start.Location())
	rangeEnd := wideEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(occTimes) > maxOcc {
		occTimes = occTimes[:maxOcc]
		hitCap = true
	}

	span := ev.End.Sub(ev.Start)

	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day instance: snap to [date 00:00, date 00:00 + span).
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(span)
		} else {
			occEnd = occStart.Add(span)
		}

		if o, ok := findOverrideForStart(overrides, occStart); ok {
			o = withDefaultEnd(o)
			out = append(out, makeOccurrence(o, o.Start, o.End))
			continue
		}
		out = append(out, makeOccurrence(ev, occStart, occEnd))
	}

	return out, hitCap
}

// findOverrideForStart finds an override event whose RECURRENCE-ID matches
// the given occurrence start with exact instant equality.
func findOverrideForStart(overrides []ParsedEvent, occStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(occStart.Location()).Equal(occStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time) model.Occurrence {
	return model.Occurrence{
		UID:         ev.UID,
		InstanceKey: start.Format(time.RFC3339Nano),
		Summary:     ev.Summary,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
		NaiveStart:  ev.StartNaive,
		NaiveEnd:    ev.EndNaive,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
