package recurrence

import (
	"time"

	"github.com/noah-isme/eduportal-api/internal/temporal"
)

// DefaultMaxOccurrences bounds a single expansion.
const DefaultMaxOccurrences = 366

// Template is the session a rule is applied to.
type Template struct {
	Title     string
	ClassID   string
	OwnerID   string
	Location  *string
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the session length kept by every occurrence.
func (t Template) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// Occurrence is one concrete session produced by Expand. Sequence is its 0-based position
// in the series.
type Occurrence struct {
	Title     string
	ClassID   string
	OwnerID   string
	Location  *string
	StartTime time.Time
	EndTime   time.Time
	Sequence  int
}

// Expander turns a template and a rule into a series of occurrences in a fixed zone.
type Expander struct {
	loc            *time.Location
	maxOccurrences int
}

// NewExpander builds an expander. A nil zone means UTC; a non-positive cap uses the default.
func NewExpander(loc *time.Location, maxOccurrences int) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &Expander{loc: loc, maxOccurrences: maxOccurrences}
}

// CheckTemplate verifies a single session span: end after start, both on one civil day.
func (e *Expander) CheckTemplate(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	if !temporal.SameDay(start, end, e.loc) {
		return ErrMultiDaySession
	}
	return nil
}

// Expand walks civil days from the template's date through rule.EndDate and emits an
// occurrence on every selected weekday of every IntervalWeeks-th week, counting weeks from
// the Sunday on or before the template date. The template's own day is simply the first
// qualifying day of the walk.
func (e *Expander) Expand(tpl Template, rule Rule) ([]Occurrence, error) {
	start := tpl.StartTime.In(e.loc)
	if err := e.CheckTemplate(start, tpl.EndTime); err != nil {
		return nil, err
	}
	if err := Validate(rule, start); err != nil {
		return nil, err
	}

	duration := tpl.Duration()
	hour, minute, sec := start.Clock()
	nsec := start.Nanosecond()

	first := temporal.CivilDate(start, e.loc)
	last := temporal.DateOf(rule.EndDate)
	anchorWeek := weekStart(first)
	selected := rule.weekdaySet()

	occurrences := make([]Occurrence, 0)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !selected[day.Weekday()] {
			continue
		}
		if weeksBetween(anchorWeek, weekStart(day))%rule.IntervalWeeks != 0 {
			continue
		}
		if len(occurrences) == e.maxOccurrences {
			return nil, ErrTooManyOccurrences
		}

		y, m, d := day.Date()
		occStart := time.Date(y, m, d, hour, minute, sec, nsec, e.loc)
		occurrences = append(occurrences, Occurrence{
			Title:     tpl.Title,
			ClassID:   tpl.ClassID,
			OwnerID:   tpl.OwnerID,
			Location:  tpl.Location,
			StartTime: occStart,
			EndTime:   occStart.Add(duration),
			Sequence:  len(occurrences),
		})
	}

	if len(occurrences) == 0 {
		return nil, ErrNoOccurrences
	}
	return occurrences, nil
}

// weekStart returns the Sunday on or before a midnight-UTC civil date.
func weekStart(day time.Time) time.Time {
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func weeksBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours()/24) / 7
}
