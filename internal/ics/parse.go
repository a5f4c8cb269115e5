package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "morningbrief/internal/log"
)

// ParsedEvent is the normalized representation of a VEVENT as produced by the
// ICS parser. Recurrence expansion operates on this type.
type ParsedEvent struct {
	UID string

	Summary string

	Start  time.Time
	End    time.Time
	HasEnd bool
	AllDay bool

	// StartNaive / EndNaive are true when the corresponding value carried
	// neither a TZID parameter nor a UTC suffix (floating time). The wall
	// clock of such values is preserved; the schedule normalizer decides
	// which zone it belongs to.
	StartNaive bool
	EndNaive   bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present)
	IsOverride bool       // true if this VEVENT overrides a recurring instance
}

// Parse parses a single ICS payload into a list of ParsedEvent.
//
//   - All-day events are detected via VALUE=DATE or a date-only DTSTART.
//   - TZID parameters are resolved through the IANA database; unresolvable
//     zones degrade to floating time.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded but not expanded here;
//     expansion is done in expand.go.
func Parse(body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, &ParseError{Err: errors.New("empty ICS body")}
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	events := make([]ParsedEvent, 0)

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	// UID
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	// DTSTART is mandatory for interval math; events without one are
	// skipped upstream.
	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil || dtStartProp.Value == "" {
		return out, errors.New("missing DTSTART")
	}

	start, allDay, naive, err := parseDateTimeProp(dtStartProp)
	if err != nil {
		return out, err
	}
	out.Start = start
	out.AllDay = allDay
	out.StartNaive = naive

	if dtEndProp := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEndProp != nil && dtEndProp.Value != "" {
		end, _, endNaive, eerr := parseDateTimeProp(dtEndProp)
		if eerr != nil {
			return out, eerr
		}
		out.End = end
		out.HasEnd = true
		out.EndNaive = endNaive
	}

	// RRULE (kept raw; expansion happens in expand.go).
	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE (can appear multiple times, each possibly comma-separated).
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		if p.Value == "" {
			continue
		}
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, perr := parseICSTime(part, propLocation(p)); perr == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	// RECURRENCE-ID marks an overridden instance of a recurring event.
	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		if t, perr := parseICSTime(ridProp.Value, propLocation(ridProp)); perr == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseDateTimeProp parses a DTSTART/DTEND property honoring VALUE=DATE, a
// TZID parameter and the trailing-Z UTC form. Floating values (no TZID, no Z)
// are parsed into UTC as a wall-clock placeholder and reported as naive.
func parseDateTimeProp(p *ical.IANAProperty) (t time.Time, allDay, naive bool, err error) {
	val := strings.TrimSpace(p.Value)
	if val == "" {
		return time.Time{}, false, false, errors.New("empty date-time value")
	}

	// VALUE=DATE or no time component -> all-day.
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			allDay = true
		}
	}
	if !strings.Contains(val, "T") {
		allDay = true
	}

	if allDay {
		const layoutDate = "20060102"
		t, err = time.ParseInLocation(layoutDate, val, time.UTC)
		return t, true, false, err
	}

	// UTC form, e.g. 20250101T090000Z.
	if strings.HasSuffix(val, "Z") {
		const layout = "20060102T150405Z"
		t, err = time.Parse(layout, val)
		return t, false, false, err
	}

	const layout = "20060102T150405"
	if loc := propLocation(p); loc != nil {
		t, err = time.ParseInLocation(layout, val, loc)
		return t, false, false, err
	}

	// Floating time: keep the wall clock in a UTC placeholder and let the
	// normalizer apply the configured naive-datetime policy.
	t, err = time.ParseInLocation(layout, val, time.UTC)
	return t, false, true, err
}

// propLocation resolves a property's TZID parameter to a *time.Location, or
// nil when absent or unresolvable.
func propLocation(p *ical.IANAProperty) *time.Location {
	params := p.ICalParameters
	if params == nil {
		return nil
	}
	tzs, ok := params["TZID"]
	if !ok || len(tzs) == 0 {
		return nil
	}
	loc, err := time.LoadLocation(tzs[0])
	if err != nil {
		appLog.Warn("ics: unresolvable TZID, treating as floating", "tzid", tzs[0])
		return nil
	}
	return loc
}

// parseICSTime parses a basic ICS date/date-time string into time.Time using
// loc for floating values (falls back to UTC when loc is nil). Used for
// EXDATE and RECURRENCE-ID values.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.UTC
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Local date-time, e.g. 20250101T090000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, loc)
	}

	// Date-only (all-day), e.g. 20250101
	const layoutDate = "20060102"
	return time.ParseInLocation(layoutDate, v, loc)
}
