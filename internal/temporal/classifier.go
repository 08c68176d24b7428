package temporal

import (
	"net/http"
	"sort"
	"time"

	appErrors "github.com/noah-isme/eduportal-api/pkg/errors"
)

// State is the position of a session relative to "now". It is derived on every read.
type State string

const (
	StatePast     State = "PAST"
	StateUpcoming State = "UPCOMING"
	StateFuture   State = "FUTURE"
)

// ErrInvalidSpan is returned when a session does not end after it starts.
var ErrInvalidSpan = appErrors.New("INVALID_SPAN", http.StatusPreconditionFailed, "session end must be after its start")

// Span is anything with a start and an end.
type Span interface {
	StartsAt() time.Time
	EndsAt() time.Time
}

// Classifier maps sessions to a State using civil days of a fixed zone.
type Classifier struct {
	loc *time.Location
}

// NewClassifier builds a classifier for the schedule zone. A nil zone means UTC.
func NewClassifier(loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{loc: loc}
}

// Location returns the schedule zone.
func (c *Classifier) Location() *time.Location {
	return c.loc
}

// Classify returns PAST once now is after end, UPCOMING when start falls on the same civil
// day as now, and FUTURE otherwise.
func (c *Classifier) Classify(start, end, now time.Time) (State, error) {
	if !end.After(start) {
		return "", ErrInvalidSpan
	}
	if now.After(end) {
		return StatePast, nil
	}
	if SameDay(start, now, c.loc) {
		return StateUpcoming, nil
	}
	return StateFuture, nil
}

// Groups holds items bucketed by State, each bucket ascending by start.
type Groups[T Span] struct {
	Past     []T
	Upcoming []T
	Future   []T
}

// Len returns the total number of grouped items.
func (g Groups[T]) Len() int {
	return len(g.Past) + len(g.Upcoming) + len(g.Future)
}

// GroupByState classifies every item against now. Items with an equal start keep their
// input order.
func GroupByState[T Span](c *Classifier, items []T, now time.Time) (Groups[T], error) {
	groups := Groups[T]{Past: []T{}, Upcoming: []T{}, Future: []T{}}
	for _, item := range items {
		state, err := c.Classify(item.StartsAt(), item.EndsAt(), now)
		if err != nil {
			return Groups[T]{}, err
		}
		switch state {
		case StatePast:
			groups.Past = append(groups.Past, item)
		case StateUpcoming:
			groups.Upcoming = append(groups.Upcoming, item)
		default:
			groups.Future = append(groups.Future, item)
		}
	}
	sortByStart(groups.Past)
	sortByStart(groups.Upcoming)
	sortByStart(groups.Future)
	return groups, nil
}

func sortByStart[T Span](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartsAt().Before(items[j].StartsAt())
	})
}

// CivilDate returns the calendar date of t in loc as midnight UTC. Values produced here
// can be compared with == and stepped with AddDate without DST effects.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateOf reads a date-only value (DATE column, parsed request date) in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b share a civil day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return CivilDate(a, loc).Equal(CivilDate(b, loc))
}
