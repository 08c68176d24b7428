package recurrence

import (
	"net/http"
	"time"

	"github.com/noah-isme/eduportal-api/internal/temporal"
	appErrors "github.com/noah-isme/eduportal-api/pkg/errors"
)

// Validation failures for rules and templates. All are 400s and match with errors.Is.
var (
	ErrEmptyWeekdaySet    = appErrors.New("EMPTY_WEEKDAY_SET", http.StatusBadRequest, "at least one weekday must be selected")
	ErrInvalidWeekday     = appErrors.New("INVALID_WEEKDAY", http.StatusBadRequest, "weekdays must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidInterval    = appErrors.New("INVALID_INTERVAL", http.StatusBadRequest, "interval must be at least 1 week")
	ErrEndDateBeforeStart = appErrors.New("END_DATE_BEFORE_START", http.StatusBadRequest, "end date must be after start date")
	ErrInvalidTimeRange   = appErrors.New("INVALID_TIME_RANGE", http.StatusBadRequest, "end time must be after start time")
	ErrMultiDaySession    = appErrors.New("MULTI_DAY_SESSION", http.StatusBadRequest, "start and end time must be on the same day")
	ErrNoOccurrences      = appErrors.New("NO_OCCURRENCES", http.StatusBadRequest, "recurrence rule does not produce any session")
	ErrTooManyOccurrences = appErrors.New("TOO_MANY_OCCURRENCES", http.StatusBadRequest, "recurrence rule produces too many sessions")
)

// Rule repeats a session on a set of weekdays every IntervalWeeks weeks until EndDate.
type Rule struct {
	IntervalWeeks int
	Weekdays      []time.Weekday
	// EndDate is inclusive and date-only; only its calendar date is read.
	EndDate time.Time
}

// Validate checks the rule against the start of the template it will expand. The civil
// date of templateStart is taken in its own location.
func Validate(rule Rule, templateStart time.Time) error {
	if len(rule.Weekdays) == 0 {
		return ErrEmptyWeekdaySet
	}
	for _, wd := range rule.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return ErrInvalidWeekday
		}
	}
	if rule.IntervalWeeks < 1 {
		return ErrInvalidInterval
	}
	if temporal.DateOf(rule.EndDate).Before(temporal.DateOf(templateStart)) {
		return ErrEndDateBeforeStart
	}
	return nil
}

func (r Rule) weekdaySet() [7]bool {
	var set [7]bool
	for _, wd := range r.Weekdays {
		set[wd] = true
	}
	return set
}
