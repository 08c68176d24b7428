package models

import "time"

// AttendanceStatus represents the value of a single attendance cell.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	// AttendanceStatusUnmarked fills cells without a stored record. It is never persisted.
	AttendanceStatusUnmarked AttendanceStatus = "UNMARKED"
)

// Persistable returns true for statuses that may be written to the store.
func (s AttendanceStatus) Persistable() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s.Persistable() || s == AttendanceStatusUnmarked
}

// AttendanceRecord is a stored attendance row, unique per (student, class, date).
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Note      *string          `db:"note" json:"note,omitempty"`
	MarkedBy  *string          `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}
