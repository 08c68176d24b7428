package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduportal-api/internal/models"
)

// EnrollmentRepository resolves class rosters from enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// EnrolledStudents returns the students with an active enrollment in the class, name-sorted.
func (r *EnrollmentRepository) EnrolledStudents(ctx context.Context, classID string) ([]models.RosterStudent, error) {
	const query = `SELECT DISTINCT s.id, s.nis, s.full_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
WHERE e.class_id = $1 AND e.status = $2
ORDER BY s.full_name ASC, s.id ASC`
	var students []models.RosterStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}
