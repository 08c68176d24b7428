package attendance

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/internal/temporal"
	appErrors "github.com/noah-isme/eduportal-api/pkg/errors"
)

var (
	// ErrUnmarkNotSupported is returned for edits that try to reset a cell to UNMARKED.
	ErrUnmarkNotSupported = appErrors.New("UNMARK_NOT_SUPPORTED", http.StatusBadRequest, "attendance cannot be reset to UNMARKED")
	// ErrInvalidStatus is returned for unknown statuses.
	ErrInvalidStatus = appErrors.New("INVALID_ATTENDANCE_STATUS", http.StatusBadRequest, "status must be PRESENT or ABSENT")
	// ErrDuplicateEdit is returned when one batch edits the same student and date twice.
	ErrDuplicateEdit = appErrors.New("DUPLICATE_EDIT", http.StatusBadRequest, "each student and date may appear only once per batch")
)

// Key is the natural key of a record inside one class.
type Key struct {
	StudentID string
	Date      string
}

// KeyOf builds the key for a student and a date-only value.
func KeyOf(studentID string, date time.Time) Key {
	return Key{StudentID: studentID, Date: FormatDate(date)}
}

// Index maps natural keys to stored records.
type Index map[Key]models.AttendanceRecord

// NewIndex indexes records by (student, date).
func NewIndex(records []models.AttendanceRecord) Index {
	index := make(Index, len(records))
	for _, record := range records {
		index[KeyOf(record.StudentID, record.Date)] = record
	}
	return index
}

// Edit sets a cell to a new status and note.
type Edit struct {
	StudentID string
	Date      time.Time
	Status    models.AttendanceStatus
	Note      *string
}

// Plan is the outcome of applying a batch to the current records. Creates and Updates
// never share a key, so the plan is safe to run inside a single transaction.
type Plan struct {
	Creates   []models.AttendanceRecord
	Updates   []models.AttendanceRecord
	Unchanged int
}

// Writes returns the records that must be upserted.
func (p *Plan) Writes() []models.AttendanceRecord {
	writes := make([]models.AttendanceRecord, 0, len(p.Creates)+len(p.Updates))
	writes = append(writes, p.Creates...)
	return append(writes, p.Updates...)
}

// Empty reports whether the plan has nothing to write.
func (p *Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0
}

// PlanBatch resolves edits against existing records. An edit on a stored key updates that
// record and keeps its id; an edit identical to the stored value is counted as unchanged;
// any other edit creates a new record.
func PlanBatch(existing Index, classID string, edits []Edit) (*Plan, error) {
	plan := &Plan{}
	seen := make(map[Key]struct{}, len(edits))

	for _, edit := range edits {
		switch {
		case edit.Status == models.AttendanceStatusUnmarked:
			return nil, ErrUnmarkNotSupported
		case !edit.Status.Persistable():
			return nil, ErrInvalidStatus
		}

		key := KeyOf(edit.StudentID, edit.Date)
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(ErrDuplicateEdit, fmt.Sprintf("student %s has more than one edit for %s", key.StudentID, key.Date))
		}
		seen[key] = struct{}{}

		note := normaliseNote(edit.Note)
		if current, ok := existing[key]; ok {
			if current.Status == edit.Status && sameNote(normaliseNote(current.Note), note) {
				plan.Unchanged++
				continue
			}
			current.Status = edit.Status
			current.Note = note
			plan.Updates = append(plan.Updates, current)
			continue
		}

		plan.Creates = append(plan.Creates, models.AttendanceRecord{
			ID:        uuid.NewString(),
			StudentID: edit.StudentID,
			ClassID:   classID,
			Date:      temporal.DateOf(edit.Date),
			Status:    edit.Status,
			Note:      note,
		})
	}

	return plan, nil
}

func normaliseNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameNote(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
