// Package schedule implements the calendar free/busy computation engine:
// timezone normalization, busy-interval merging, free-gap derivation and
// study-block suggestions for a single day's working-hours window.
//
// The engine is a pure function of (calendar source, window, thresholds,
// injected now); it holds no state between invocations and may be called
// concurrently for different sources.
package schedule

import (
	"context"
	"time"

	"morningbrief/internal/ics"
	appLog "morningbrief/internal/log"
)

// Request describes one free-blocks computation.
type Request struct {
	// Source is a local ICS path or HTTP(S) URL.
	Source string

	// Timezone is the IANA display zone; invalid or empty falls back to
	// the process-local zone with an error log.
	Timezone string

	// DayStartHour / DayEndHour bound the working-hours window
	// [start:00, end:00) on the day of Now.
	DayStartHour int
	DayEndHour   int

	// MinBlockMinutes filters gaps; DeepBlockMinutes is the Deep-work tier.
	MinBlockMinutes  int
	DeepBlockMinutes int

	// Naive is the floating-timestamp policy applied during normalization.
	Naive NaivePolicy

	// Now establishes "today". Injected for testability; the zero value
	// means the current wall clock.
	Now time.Time
}

// Result is the engine output. Gap and suggestion times are naive local wall
// clock: the display zone has been applied and then stripped, so they render
// directly without further conversion.
type Result struct {
	Gaps        []FreeGap
	Suggestions []Suggestion

	// WindowStart / WindowEnd are the queried working-hours window, in the
	// same naive wall clock as the gaps. Always set, even when every gap was
	// filtered out or the day is fully busy.
	WindowStart time.Time
	WindowEnd   time.Time

	// Degraded is true when the calendar could not be loaded or parsed and
	// the whole window was treated as free.
	Degraded bool
}

// Engine computes free blocks for a calendar source. The zero Loader and
// Expander are substituted with defaults by New.
type Engine struct {
	loader   *ics.Loader
	expander ics.Expander
}

// New creates an Engine. A nil loader gets the default bounded-timeout
// loader; a nil expander gets the full RRULE expander.
func New(loader *ics.Loader, expander ics.Expander) *Engine {
	if loader == nil {
		loader = ics.NewLoader()
	}
	if expander == nil {
		expander = ics.FullExpander{}
	}
	return &Engine{loader: loader, expander: expander}
}

// FreeBlocks computes today's free gaps and suggestions.
//
// The engine's contract is "always returns a usable schedule": loader and
// parse failures are caught here and converted into a whole-window-free
// result with Degraded set, logged as a warning. Only the interval math runs
// after the single blocking load.
func (e *Engine) FreeBlocks(ctx context.Context, req Request) Result {
	loc := resolveLocationOrLocal(req.Timezone)

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := now.In(loc)

	win := Interval{
		Start: time.Date(today.Year(), today.Month(), today.Day(), req.DayStartHour, 0, 0, 0, loc),
		End:   time.Date(today.Year(), today.Month(), today.Day(), req.DayEndHour, 0, 0, 0, loc),
	}

	body, err := e.loader.Load(ctx, req.Source)
	if err != nil {
		appLog.Warn("schedule: calendar unavailable, treating whole window as free",
			"source_err", err.Error())
		return e.wholeWindowFree(win, req)
	}

	events, err := ics.Parse(body)
	if err != nil {
		appLog.Warn("schedule: calendar unparsable, treating whole window as free",
			"parse_err", err.Error())
		return e.wholeWindowFree(win, req)
	}

	occs := e.expander.Expand(events, ics.Window{Start: win.Start, End: win.End})

	opts := NormalizeOptions{Location: loc, Naive: req.Naive}

	busy := make([]Interval, 0, len(occs))
	for _, occ := range occs {
		iv := Normalize(occ, opts)
		// Clipping also drops occurrences whose normalized interval does
		// not actually overlap the window; the expander's widened range
		// only compensated for pre-normalization zone skew.
		if clipped, ok := Clip(iv, win); ok {
			busy = append(busy, clipped)
		}
	}
	busySet := Merge(busy)

	gaps := DeriveGaps(busySet, win, req.MinBlockMinutes)
	suggestions := ClassifySuggestions(gaps, req.DeepBlockMinutes)

	appLog.Info("schedule: free blocks computed",
		"busy", len(busySet),
		"gaps", len(gaps),
		"suggestions", len(suggestions),
		"window_start", win.Start.Format(time.RFC3339),
		"window_end", win.End.Format(time.RFC3339),
	)

	return Result{
		Gaps:        stripGapZones(gaps),
		Suggestions: stripSuggestionZones(suggestions),
		WindowStart: stripZone(win.Start),
		WindowEnd:   stripZone(win.End),
	}
}

// wholeWindowFree is the safe fallback: the entire window as a single gap,
// still honoring the minimum and deep thresholds.
func (e *Engine) wholeWindowFree(win Interval, req Request) Result {
	gaps := DeriveGaps(nil, win, req.MinBlockMinutes)
	suggestions := ClassifySuggestions(gaps, req.DeepBlockMinutes)
	return Result{
		Gaps:        stripGapZones(gaps),
		Suggestions: stripSuggestionZones(suggestions),
		WindowStart: stripZone(win.Start),
		WindowEnd:   stripZone(win.End),
		Degraded:    true,
	}
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("schedule: failed to load timezone, falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

// stripZone drops the zone from a display-zone instant, keeping the wall
// clock. Output times are "naive local" for rendering.
func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func stripGapZones(gaps []FreeGap) []FreeGap {
	out := make([]FreeGap, len(gaps))
	for i, g := range gaps {
		out[i] = FreeGap{Start: stripZone(g.Start), End: stripZone(g.End), Minutes: g.Minutes}
	}
	return out
}

func stripSuggestionZones(suggs []Suggestion) []Suggestion {
	out := make([]Suggestion, len(suggs))
	for i, s := range suggs {
		out[i] = Suggestion{Kind: s.Kind, Start: stripZone(s.Start), End: stripZone(s.End), Minutes: s.Minutes}
	}
	return out
}
