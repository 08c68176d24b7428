package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduportal-api/internal/temporal"
)

var wib = time.FixedZone("WIB", 7*60*60)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func template(start time.Time, duration time.Duration) Template {
	room := "Lab 2"
	return Template{
		Title:     "Physics",
		ClassID:   "class-1",
		OwnerID:   "teacher-1",
		Location:  &room,
		StartTime: start,
		EndTime:   start.Add(duration),
	}
}

func TestExpandTwoWeekdaysWeekly(t *testing.T) {
	e := NewExpander(wib, 0)
	// Monday 2024-03-04 18:00-19:30, repeating Mon+Wed through the end of the second week.
	start := time.Date(2024, time.March, 4, 18, 0, 0, 0, wib)
	rule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Monday, time.Wednesday}, EndDate: date(2024, time.March, 17)}

	out, err := e.Expand(template(start, 90*time.Minute), rule)
	require.NoError(t, err)
	require.Len(t, out, 4)

	want := []time.Time{
		time.Date(2024, time.March, 4, 18, 0, 0, 0, wib),
		time.Date(2024, time.March, 6, 18, 0, 0, 0, wib),
		time.Date(2024, time.March, 11, 18, 0, 0, 0, wib),
		time.Date(2024, time.March, 13, 18, 0, 0, 0, wib),
	}
	for i, occ := range out {
		assert.True(t, want[i].Equal(occ.StartTime), "occurrence %d starts %s", i, occ.StartTime)
		assert.Equal(t, 90*time.Minute, occ.EndTime.Sub(occ.StartTime))
		assert.Equal(t, i, occ.Sequence)
		assert.Equal(t, "Physics", occ.Title)
		assert.Equal(t, "class-1", occ.ClassID)
		assert.Equal(t, "teacher-1", occ.OwnerID)
		require.NotNil(t, occ.Location)
		assert.Equal(t, "Lab 2", *occ.Location)
	}
}

func TestExpandEveryOtherWeek(t *testing.T) {
	e := NewExpander(wib, 0)
	start := time.Date(2024, time.March, 5, 7, 30, 0, 0, wib) // Tuesday
	rule := Rule{IntervalWeeks: 2, Weekdays: []time.Weekday{time.Tuesday}, EndDate: date(2024, time.March, 31)}

	out, err := e.Expand(template(start, time.Hour), rule)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, date(2024, time.March, 5), temporal.CivilDate(out[0].StartTime, wib))
	assert.Equal(t, date(2024, time.March, 19), temporal.CivilDate(out[1].StartTime, wib))
}

func TestExpandEndDateOffsetsAreInclusive(t *testing.T) {
	e := NewExpander(wib, 0)

	monday := time.Date(2024, time.March, 4, 18, 0, 0, 0, wib)
	weekly := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Monday, time.Wednesday}, EndDate: monday.AddDate(0, 0, 14)}
	out, err := e.Expand(template(monday, 90*time.Minute), weekly)
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.Equal(t, date(2024, time.March, 18), temporal.CivilDate(out[4].StartTime, wib))

	tuesday := time.Date(2024, time.March, 5, 7, 30, 0, 0, wib)
	biweekly := Rule{IntervalWeeks: 2, Weekdays: []time.Weekday{time.Tuesday}, EndDate: tuesday.AddDate(0, 0, 28)}
	out, err = e.Expand(template(tuesday, time.Hour), biweekly)
	require.NoError(t, err)
	var days []time.Time
	for _, occ := range out {
		days = append(days, temporal.CivilDate(occ.StartTime, wib))
	}
	assert.Equal(t, []time.Time{
		date(2024, time.March, 5),
		date(2024, time.March, 19),
		date(2024, time.April, 2),
	}, days)
}

func TestExpandIntervalCountsCalendarWeeks(t *testing.T) {
	e := NewExpander(wib, 0)
	// Friday template with Fri+Mon every other week: the Monday right after the template
	// belongs to the next (skipped) week.
	start := time.Date(2024, time.March, 8, 10, 0, 0, 0, wib)
	rule := Rule{IntervalWeeks: 2, Weekdays: []time.Weekday{time.Monday, time.Friday}, EndDate: date(2024, time.March, 31)}

	out, err := e.Expand(template(start, time.Hour), rule)
	require.NoError(t, err)

	var days []time.Time
	for _, occ := range out {
		days = append(days, temporal.CivilDate(occ.StartTime, wib))
	}
	assert.Equal(t, []time.Time{
		date(2024, time.March, 8),
		date(2024, time.March, 18),
		date(2024, time.March, 22),
	}, days)
}

func TestExpandTemplateDayIsFirstOccurrence(t *testing.T) {
	e := NewExpander(wib, 0)
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, wib)
	rule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Monday}, EndDate: date(2024, time.March, 4)}

	out, err := e.Expand(template(start, time.Hour), rule)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].StartTime.Equal(start))
}

func TestExpandTemplateDayNotSelected(t *testing.T) {
	e := NewExpander(wib, 0)
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, wib) // Monday
	rule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Thursday}, EndDate: date(2024, time.March, 14)}

	out, err := e.Expand(template(start, time.Hour), rule)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, time.Thursday, out[0].StartTime.Weekday())
	assert.Equal(t, date(2024, time.March, 7), temporal.CivilDate(out[0].StartTime, wib))
}

func TestExpandNoOccurrences(t *testing.T) {
	e := NewExpander(wib, 0)
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, wib) // Monday
	rule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Tuesday}, EndDate: date(2024, time.March, 4)}

	out, err := e.Expand(template(start, time.Hour), rule)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrNoOccurrences))
}

func TestExpandRejectsBadInput(t *testing.T) {
	e := NewExpander(wib, 0)
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, wib)
	okRule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Monday}, EndDate: date(2024, time.April, 1)}

	_, err := e.Expand(template(start, 0), okRule)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = e.Expand(template(start, -time.Hour), okRule)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = e.Expand(template(time.Date(2024, time.March, 4, 23, 0, 0, 0, wib), 2*time.Hour), okRule)
	assert.ErrorIs(t, err, ErrMultiDaySession)

	_, err = e.Expand(template(start, time.Hour), Rule{IntervalWeeks: 1, EndDate: okRule.EndDate})
	assert.ErrorIs(t, err, ErrEmptyWeekdaySet)

	_, err = e.Expand(template(start, time.Hour), Rule{Weekdays: okRule.Weekdays, EndDate: okRule.EndDate})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = e.Expand(template(start, time.Hour), Rule{IntervalWeeks: 1, Weekdays: okRule.Weekdays, EndDate: date(2024, time.March, 1)})
	assert.ErrorIs(t, err, ErrEndDateBeforeStart)
}

func TestExpandCap(t *testing.T) {
	e := NewExpander(wib, 5)
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, wib)
	rule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Monday, time.Tuesday}, EndDate: date(2024, time.March, 31)}

	_, err := e.Expand(template(start, time.Hour), rule)
	assert.ErrorIs(t, err, ErrTooManyOccurrences)

	rule.EndDate = date(2024, time.March, 18)
	out, err := e.Expand(template(start, time.Hour), rule)
	require.NoError(t, err)
	assert.Len(t, out, 5)
}

func TestExpandNormalisesTemplateZone(t *testing.T) {
	e := NewExpander(wib, 0)
	// 02:00 UTC is 09:00 WIB on the same Monday.
	start := time.Date(2024, time.March, 4, 2, 0, 0, 0, time.UTC)
	rule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Monday}, EndDate: date(2024, time.March, 11)}

	out, err := e.Expand(template(start, time.Hour), rule)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 9, out[1].StartTime.Hour())
	assert.Equal(t, wib, out[1].StartTime.Location())
}

func TestExpandAcrossDSTKeepsWallClockAndDuration(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	e := NewExpander(ny, 0)
	start := time.Date(2024, time.March, 4, 18, 0, 0, 0, ny)
	rule := Rule{IntervalWeeks: 1, Weekdays: []time.Weekday{time.Monday}, EndDate: date(2024, time.March, 18)}

	out, err := e.Expand(template(start, 90*time.Minute), rule)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, occ := range out {
		assert.Equal(t, 18, occ.StartTime.Hour())
		assert.Equal(t, 90*time.Minute, occ.EndTime.Sub(occ.StartTime))
	}
}

func TestExpandProperties(t *testing.T) {
	e := NewExpander(wib, 0)
	weekdaySets := [][]time.Weekday{
		{time.Monday},
		{time.Sunday, time.Saturday},
		{time.Monday, time.Wednesday, time.Friday},
		{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	}
	durations := []time.Duration{30 * time.Minute, 90 * time.Minute, 3 * time.Hour}

	for startDay := 1; startDay <= 7; startDay++ {
		start := time.Date(2024, time.September, startDay, 8, 15, 0, 0, wib)
		for interval := 1; interval <= 3; interval++ {
			for _, weekdays := range weekdaySets {
				for _, duration := range durations {
					rule := Rule{IntervalWeeks: interval, Weekdays: weekdays, EndDate: date(2024, time.October, 20)}
					tpl := template(start, duration)

					out, err := e.Expand(tpl, rule)
					if errors.Is(err, ErrNoOccurrences) {
						continue
					}
					require.NoError(t, err)

					again, err := e.Expand(tpl, rule)
					require.NoError(t, err)
					assert.Equal(t, out, again)

					allowed := rule.weekdaySet()
					for i, occ := range out {
						assert.Equal(t, duration, occ.EndTime.Sub(occ.StartTime))
						assert.True(t, allowed[occ.StartTime.Weekday()])
						assert.False(t, temporal.CivilDate(occ.StartTime, wib).After(rule.EndDate))
						assert.False(t, occ.StartTime.Before(start))
						if i > 0 {
							assert.True(t, occ.StartTime.After(out[i-1].StartTime))
						}
					}
				}
			}
		}
	}
}
