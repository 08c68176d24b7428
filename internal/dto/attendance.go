package dto

import "github.com/noah-isme/eduportal-api/internal/models"

// AttendanceWindowRequest selects the matrix window: a month (YYYY-MM) or an inclusive
// from/to date range (YYYY-MM-DD).
type AttendanceWindowRequest struct {
	ClassID string
	Month   string
	From    string
	To      string
}

// AttendanceEntryRequest sets one matrix cell.
type AttendanceEntryRequest struct {
	StudentID string  `json:"studentId" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Note      *string `json:"note" validate:"omitempty,max=500"`
}

// SaveAttendanceRequest is a batch of cell edits saved atomically.
type SaveAttendanceRequest struct {
	Entries []AttendanceEntryRequest `json:"entries" validate:"required,min=1,max=2000,dive"`
}

// SaveAttendanceResponse summarises a batch save.
type SaveAttendanceResponse struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// AttendanceCellResponse is one cell of the matrix.
type AttendanceCellResponse struct {
	Status   string  `json:"status"`
	Note     *string `json:"note,omitempty"`
	RecordID string  `json:"recordId,omitempty"`
}

// AttendanceMatrixSummary tallies the cells of a matrix.
type AttendanceMatrixSummary struct {
	Present  int `json:"present"`
	Absent   int `json:"absent"`
	Unmarked int `json:"unmarked"`
}

// AttendanceMatrixResponse is the dense student x date grid of a class.
type AttendanceMatrixResponse struct {
	ClassID  string                                       `json:"classId"`
	From     string                                       `json:"from"`
	To       string                                       `json:"to"`
	Students []models.RosterStudent                       `json:"students"`
	Dates    []string                                     `json:"dates"`
	Cells    map[string]map[string]AttendanceCellResponse `json:"cells"`
	Summary  AttendanceMatrixSummary                      `json:"summary"`
}

// AttendanceExportRequest selects the window and the document format (csv or pdf).
type AttendanceExportRequest struct {
	Window AttendanceWindowRequest
	Format string
}
