package attendance

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/eduportal-api/internal/models"
)

// DateLayout renders matrix columns.
const DateLayout = "2006-01-02"

// Cell is one student/date entry of the matrix.
type Cell struct {
	Status   models.AttendanceStatus `json:"status"`
	Note     *string                 `json:"note,omitempty"`
	RecordID string                  `json:"record_id,omitempty"`
}

// Matrix is a dense student x date grid. Every roster student has a cell for every date.
type Matrix struct {
	Students []models.RosterStudent    `json:"students"`
	Dates    []string                  `json:"dates"`
	Cells    map[string]map[string]Cell `json:"cells"`
}

// Cell returns the cell for a student and a YYYY-MM-DD date.
func (m *Matrix) Cell(studentID, date string) (Cell, bool) {
	row, ok := m.Cells[studentID]
	if !ok {
		return Cell{}, false
	}
	cell, ok := row[date]
	return cell, ok
}

// Size returns the number of cells.
func (m *Matrix) Size() int {
	total := 0
	for _, row := range m.Cells {
		total += len(row)
	}
	return total
}

// HasDate reports whether date is one of the matrix columns.
func (m *Matrix) HasDate(date string) bool {
	idx := sort.SearchStrings(m.Dates, date)
	return idx < len(m.Dates) && m.Dates[idx] == date
}

// HasStudent reports whether studentID is on the roster.
func (m *Matrix) HasStudent(studentID string) bool {
	_, ok := m.Cells[studentID]
	return ok
}

// Counts tallies cell statuses across the whole grid.
func (m *Matrix) Counts() map[models.AttendanceStatus]int {
	counts := map[models.AttendanceStatus]int{
		models.AttendanceStatusPresent:  0,
		models.AttendanceStatusAbsent:   0,
		models.AttendanceStatusUnmarked: 0,
	}
	for _, row := range m.Cells {
		for _, cell := range row {
			counts[cell.Status]++
		}
	}
	return counts
}

// Build joins a roster, the dates of scheduled sessions and the stored records into a
// dense matrix. Missing cells are UNMARKED; records outside the roster or the dates are
// ignored. Session dates are date-only values.
func Build(roster []models.RosterStudent, sessionDates []time.Time, records []models.AttendanceRecord) *Matrix {
	students := make([]models.RosterStudent, len(roster))
	copy(students, roster)
	sort.SliceStable(students, func(i, j int) bool {
		a, b := strings.ToLower(students[i].FullName), strings.ToLower(students[j].FullName)
		if a != b {
			return a < b
		}
		return students[i].ID < students[j].ID
	})

	dates := distinctDates(sessionDates)
	index := NewIndex(records)

	cells := make(map[string]map[string]Cell, len(students))
	for _, student := range students {
		row := make(map[string]Cell, len(dates))
		for _, date := range dates {
			record, ok := index[Key{StudentID: student.ID, Date: date}]
			if !ok {
				row[date] = Cell{Status: models.AttendanceStatusUnmarked}
				continue
			}
			row[date] = Cell{Status: record.Status, Note: record.Note, RecordID: record.ID}
		}
		cells[student.ID] = row
	}

	return &Matrix{Students: students, Dates: dates, Cells: cells}
}

func distinctDates(values []time.Time) []string {
	seen := make(map[string]struct{}, len(values))
	dates := make([]string, 0, len(values))
	for _, value := range values {
		date := FormatDate(value)
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// FormatDate renders the calendar date of a date-only value.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
