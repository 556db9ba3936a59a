// Package availability computes bookable time slots for the scheduling
// platform: conflict detection, calendar loading, candidate generation,
// multi-resource aggregation, preference scoring, and cross-location search.
// The engine holds no state between requests and never writes to the booking
// store; committing a slot is the caller's job.
package availability

import (
	"fmt"
	"time"
)

// TimeInterval is a half-open interval [Start, End).
type TimeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeInterval constructs a validated interval. End must not precede Start.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if end.Before(start) {
		return TimeInterval{}, fmt.Errorf("%w: interval end %s before start %s",
			ErrInvalidRequest, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Duration returns the interval length.
func (iv TimeInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IsZeroLength reports whether the interval has no extent.
func (iv TimeInterval) IsZeroLength() bool {
	return !iv.End.After(iv.Start)
}

// ResourceKind identifies the dimension a schedulable resource occupies.
type ResourceKind string

const (
	KindProvider  ResourceKind = "provider"
	KindRoom      ResourceKind = "room"
	KindLocation  ResourceKind = "location"
	KindEquipment ResourceKind = "equipment"
)

// ResourceRef identifies a schedulable resource. The engine only holds
// references; the resources themselves live in the store.
type ResourceRef struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
}

func (r ResourceRef) String() string {
	return string(r.Kind) + "/" + r.ID
}

// BusyReason records why a resource is committed during an interval.
type BusyReason string

const (
	ReasonAppointment BusyReason = "appointment"
	ReasonBlock       BusyReason = "block"
)

// BusyInterval is a time range during which a resource is already committed.
type BusyInterval struct {
	TimeInterval
	Resource ResourceRef `json:"resource"`
	Reason   BusyReason  `json:"reason"`
}

// DayWindow holds local wall-clock open/close times in "15:04" form.
type DayWindow struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// DateException overrides the weekly template for a single calendar date.
// Available=false closes the date outright regardless of the template.
type DateException struct {
	Date          time.Time `json:"date"`
	Available     bool      `json:"available"`
	OverrideOpen  string    `json:"override_open,omitempty"`
	OverrideClose string    `json:"override_close,omitempty"`
}

// OpenHoursTemplate is the recurring weekly availability pattern for a
// resource, overridable per date. Days absent from Weekly are closed.
type OpenHoursTemplate struct {
	Weekly     map[time.Weekday]DayWindow `json:"weekly"`
	Exceptions []DateException            `json:"exceptions,omitempty"`
	Timezone   string                     `json:"timezone,omitempty"`
}

// Location resolves the template timezone, falling back to UTC.
func (t OpenHoursTemplate) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveDay returns the effective open interval for the calendar date of
// day (interpreted in the template timezone). ok is false when the date is
// closed, whether by template absence, an unavailable exception, or a
// malformed window.
func (t OpenHoursTemplate) ResolveDay(day time.Time) (open, close time.Time, ok bool) {
	loc := t.Location()
	local := day.In(loc)
	y, m, d := local.Date()

	window, found := t.Weekly[local.Weekday()]
	for _, exc := range t.Exceptions {
		ey, em, ed := exc.Date.In(loc).Date()
		if ey != y || em != m || ed != d {
			continue
		}
		if !exc.Available {
			return time.Time{}, time.Time{}, false
		}
		if exc.OverrideOpen != "" && exc.OverrideClose != "" {
			window = DayWindow{Open: exc.OverrideOpen, Close: exc.OverrideClose}
			found = true
		}
		break
	}
	if !found {
		return time.Time{}, time.Time{}, false
	}

	openClock, err := time.Parse("15:04", window.Open)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	closeClock, err := time.Parse("15:04", window.Close)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	open = time.Date(y, m, d, openClock.Hour(), openClock.Minute(), 0, 0, loc)
	close = time.Date(y, m, d, closeClock.Hour(), closeClock.Minute(), 0, 0, loc)
	if !close.After(open) {
		// Malformed window. Treated as closed; the loader logs the issue.
		return time.Time{}, time.Time{}, false
	}
	return open, close, true
}

// Issues reports data-quality problems in the template without failing.
// A close at or before open, or an unparsable clock value, renders that
// day closed; callers surface these as warnings.
func (t OpenHoursTemplate) Issues() []string {
	var issues []string
	check := func(label string, w DayWindow) {
		openClock, errO := time.Parse("15:04", w.Open)
		closeClock, errC := time.Parse("15:04", w.Close)
		switch {
		case errO != nil || errC != nil:
			issues = append(issues, fmt.Sprintf("%s: unparsable window %q-%q", label, w.Open, w.Close))
		case !closeClock.After(openClock):
			issues = append(issues, fmt.Sprintf("%s: close %q not after open %q", label, w.Close, w.Open))
		}
	}
	for wd, w := range t.Weekly {
		check(wd.String(), w)
	}
	for _, exc := range t.Exceptions {
		if exc.Available && exc.OverrideOpen != "" && exc.OverrideClose != "" {
			check(exc.Date.Format(time.DateOnly), DayWindow{Open: exc.OverrideOpen, Close: exc.OverrideClose})
		}
	}
	return issues
}

// TimeBand is a coarse time-of-day preference.
type TimeBand string

const (
	BandAny       TimeBand = ""
	BandMorning   TimeBand = "morning"
	BandAfternoon TimeBand = "afternoon"
	BandEvening   TimeBand = "evening"
)

// Band boundaries, local wall-clock hours. Half-open on the close side.
const (
	morningStartHour   = 9
	afternoonStartHour = 12
	eveningStartHour   = 17
	eveningEndHour     = 19
)

// Contains reports whether the local clock time of t falls in the band.
func (b TimeBand) Contains(t time.Time) bool {
	h := t.Hour()
	switch b {
	case BandMorning:
		return h >= morningStartHour && h < afternoonStartHour
	case BandAfternoon:
		return h >= afternoonStartHour && h < eveningStartHour
	case BandEvening:
		return h >= eveningStartHour && h < eveningEndHour
	case BandAny:
		return true
	}
	return false
}

// Valid reports whether the band is one of the known values.
func (b TimeBand) Valid() bool {
	switch b {
	case BandAny, BandMorning, BandAfternoon, BandEvening:
		return true
	}
	return false
}

// Preferences carries the requester's slot preferences. All fields are
// optional; an empty Preferences ranks slots by start time alone.
type Preferences struct {
	// AnchorDate is the date the requester would ideally like, e.g. the
	// follow-up target date. Matching slots score higher.
	AnchorDate *time.Time `json:"anchor_date,omitempty"`
	// TimeBand is the preferred time of day.
	TimeBand TimeBand `json:"time_band,omitempty"`
}

// SlotRequest describes one availability search. Now is injected explicitly
// so repeated calls with identical inputs are deterministic.
type SlotRequest struct {
	// Resources must all be simultaneously free. At least one is required,
	// normally the provider.
	Resources []ResourceRef `json:"resources"`
	// Days restricts candidate generation to the given weekdays when
	// non-empty (used by waitlist matching).
	Days []time.Weekday `json:"days,omitempty"`
	// Band restricts candidates to a time-of-day band when set. Unlike
	// Preferences.TimeBand, which only boosts the score, this is a hard
	// filter applied before the MaxResults cap.
	Band TimeBand `json:"band,omitempty"`

	Duration    time.Duration `json:"duration"`
	Window      TimeInterval  `json:"window"`
	Granularity time.Duration `json:"granularity,omitempty"`

	// Now and FutureOnly control exclusion of past candidates. The engine
	// never reads the wall clock itself.
	Now        time.Time `json:"now"`
	FutureOnly bool      `json:"future_only,omitempty"`

	// MaxResults caps the number of valid slots computed; generation stops
	// once the cap is reached.
	MaxResults int `json:"max_results,omitempty"`

	Preferences Preferences `json:"preferences,omitempty"`
}

// CandidateSlot is a computed, not-yet-booked interval proposed as
// available. Ephemeral; the engine never persists it.
type CandidateSlot struct {
	Interval           TimeInterval `json:"interval"`
	Score              int          `json:"score"`
	MatchedPreferences []string     `json:"matched_preferences,omitempty"`
}

// ResourceMetadata is the existence/tenancy record for a resource.
type ResourceMetadata struct {
	Exists bool
	Active bool
	OrgID  string
}

// ResourceCalendar bundles everything the generator needs for one resource.
type ResourceCalendar struct {
	Resource ResourceRef
	Busy     []BusyInterval
	Template OpenHoursTemplate
}
