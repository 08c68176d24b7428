package models

import "time"

// SessionStatus tracks the lifecycle of a single class session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "SCHEDULED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusCancelled, SessionStatusCompleted:
		return true
	default:
		return false
	}
}

// ClassSession is one concrete calendar session of a class. Sessions generated from the
// same recurrence rule share RecurrenceGroupID; Sequence is their canonical series order.
type ClassSession struct {
	ID                string        `db:"id" json:"id"`
	ClassID           string        `db:"class_id" json:"class_id"`
	OwnerID           string        `db:"owner_id" json:"owner_id"`
	Title             string        `db:"title" json:"title"`
	Location          *string       `db:"location" json:"location,omitempty"`
	StartTime         time.Time     `db:"start_time" json:"start_time"`
	EndTime           time.Time     `db:"end_time" json:"end_time"`
	Status            SessionStatus `db:"status" json:"status"`
	RecurrenceGroupID *string       `db:"recurrence_group_id" json:"recurrence_group_id,omitempty"`
	Sequence          int           `db:"sequence_no" json:"sequence"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// StartsAt returns the session start.
func (s ClassSession) StartsAt() time.Time { return s.StartTime }

// EndsAt returns the session end.
func (s ClassSession) EndsAt() time.Time { return s.EndTime }

// ClassSessionFilter scopes session range queries.
type ClassSessionFilter struct {
	ClassID string
	From    time.Time
	To      time.Time
}
