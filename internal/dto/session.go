package dto

import "time"

// RecurrenceRequest repeats a session on weekdays (0 = Sunday) every IntervalWeeks weeks
// through EndDate (YYYY-MM-DD, inclusive). IntervalWeeks defaults to 1.
type RecurrenceRequest struct {
	IntervalWeeks *int   `json:"intervalWeeks" validate:"omitempty,max=52"`
	Weekdays      []int  `json:"weekdays"`
	EndDate       string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// CreateSessionRequest creates one session, or a series when Recurrence is set.
type CreateSessionRequest struct {
	Title      string             `json:"title" validate:"required,max=200"`
	StartTime  time.Time          `json:"startTime" validate:"required"`
	EndTime    time.Time          `json:"endTime" validate:"required"`
	Location   *string            `json:"location" validate:"omitempty,max=200"`
	Recurrence *RecurrenceRequest `json:"recurrence"`
}

// UpdateSessionRequest edits a single occurrence. Nil fields are left untouched.
type UpdateSessionRequest struct {
	Title     *string    `json:"title" validate:"omitempty,min=1,max=200"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Location  *string    `json:"location" validate:"omitempty,max=200"`
	Status    *string    `json:"status" validate:"omitempty,oneof=SCHEDULED CANCELLED COMPLETED"`
}

// CalendarRequest captures query parameters for the class calendar.
type CalendarRequest struct {
	ClassID string
	From    *time.Time
	To      *time.Time
}

// SessionResponse is a session as returned by the API. State is only set on calendar reads.
type SessionResponse struct {
	ID                string    `json:"id"`
	ClassID           string    `json:"classId"`
	OwnerID           string    `json:"ownerId"`
	Title             string    `json:"title"`
	Location          *string   `json:"location,omitempty"`
	StartTime         time.Time `json:"startTime"`
	EndTime           time.Time `json:"endTime"`
	Status            string    `json:"status"`
	RecurrenceGroupID *string   `json:"recurrenceGroupId,omitempty"`
	Sequence          int       `json:"sequence"`
	State             string    `json:"state,omitempty"`
}

// CreateSessionsResponse reports what a create call generated.
type CreateSessionsResponse struct {
	RecurrenceGroupID *string           `json:"recurrenceGroupId,omitempty"`
	Count             int               `json:"count"`
	Sessions          []SessionResponse `json:"sessions"`
}

// CalendarResponse groups a class's sessions by temporal state.
type CalendarResponse struct {
	ClassID  string            `json:"classId"`
	From     string            `json:"from"`
	To       string            `json:"to"`
	Now      time.Time         `json:"now"`
	Past     []SessionResponse `json:"past"`
	Upcoming []SessionResponse `json:"upcoming"`
	Future   []SessionResponse `json:"future"`
}

// DeleteGroupResponse lists the sessions removed with their recurrence group.
type DeleteGroupResponse struct {
	RecurrenceGroupID string   `json:"recurrenceGroupId"`
	DeletedIDs        []string `json:"deletedIds"`
}
