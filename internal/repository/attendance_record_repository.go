package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/pkg/database"
)

// AttendanceRecordRepository persists attendance cells keyed by (student, class, date).
type AttendanceRecordRepository struct {
	db *sqlx.DB
}

// NewAttendanceRecordRepository constructs the repository.
func NewAttendanceRecordRepository(db *sqlx.DB) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{db: db}
}

// FindByClassAndRange returns stored records of a class between two dates, both inclusive.
func (r *AttendanceRecordRepository) FindByClassAndRange(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, class_id, date, status, note, marked_by, created_at, updated_at
FROM attendance_records
WHERE class_id = $1 AND date >= $2 AND date <= $3
ORDER BY date ASC, student_id ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// UpsertBatch writes all records in one transaction. Existing rows keep their id; the
// returned records carry the stored ids.
func (r *AttendanceRecordRepository) UpsertBatch(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	const query = `INSERT INTO attendance_records (id, student_id, class_id, date, status, note, marked_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (student_id, class_id, date) DO UPDATE
SET status = EXCLUDED.status,
    note = EXCLUDED.note,
    marked_by = EXCLUDED.marked_by,
    updated_at = EXCLUDED.updated_at
RETURNING id, created_at`

	now := time.Now().UTC()
	saved := make([]models.AttendanceRecord, len(records))
	copy(saved, records)

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range saved {
			rec := &saved[i]
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = now
			}
			rec.UpdatedAt = now
			row := tx.QueryRowxContext(ctx, query, rec.ID, rec.StudentID, rec.ClassID, rec.Date, rec.Status, rec.Note, rec.MarkedBy, rec.CreatedAt, rec.UpdatedAt)
			if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
				return fmt.Errorf("upsert attendance record %s/%s: %w", rec.StudentID, rec.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
