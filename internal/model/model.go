package model

import "time"

// Occurrence represents a single concrete instance of a calendar event after
// recurrence expansion. Start/End are the calendar-provided values: for
// all-day entries they carry only a date, and timed entries may or may not
// have zone information attached. Timezone normalization into the briefing's
// display zone happens later, in internal/schedule.
type Occurrence struct {
	UID string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the occurrence start time.
	InstanceKey string

	// Summary is a free-text label. It is diagnostic only and plays no
	// role in the interval math.
	Summary string

	AllDay bool

	// Start / End as provided by the calendar source. End is not
	// guaranteed to be after Start; malformed feeds exist and the
	// normalizer clamps non-positive durations.
	Start time.Time
	End   time.Time

	// NaiveStart / NaiveEnd report whether the source value carried no
	// zone information (floating time). The normalizer applies the
	// configured naive-datetime policy to these.
	NaiveStart bool
	NaiveEnd   bool
}
