package models

import (
	"time"

	"github.com/lib/pq"
)

// RecurrenceGroup stores the rule a session series was generated from.
type RecurrenceGroup struct {
	ID            string        `db:"id" json:"id"`
	ClassID       string        `db:"class_id" json:"class_id"`
	IntervalWeeks int           `db:"interval_weeks" json:"interval_weeks"`
	Weekdays      pq.Int64Array `db:"weekdays" json:"weekdays"`
	EndDate       time.Time     `db:"end_date" json:"end_date"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
