package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduportal-api/internal/models"
)

func TestEnrollmentRepositoryEnrolledStudents(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "nis", "full_name"}).
		AddRow("stu-1", "1001", "Adi").
		AddRow("stu-2", "1002", "Budi")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN students s ON s.id = e.student_id WHERE e.class_id = $1 AND e.status = $2 ORDER BY s.full_name ASC, s.id ASC")).
		WithArgs("class-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	students, err := repo.EnrolledStudents(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, []models.RosterStudent{{ID: "stu-1", NIS: "1001", FullName: "Adi"}, {ID: "stu-2", NIS: "1002", FullName: "Budi"}}, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "name", "grade", "homeroom_teacher_id", "created_at", "updated_at"}).
		AddRow("class-1", "X IPA 1", "10", nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, grade, homeroom_teacher_id, created_at, updated_at FROM classes WHERE id = $1")).
		WithArgs("class-1").
		WillReturnRows(rows)

	class, err := NewClassRepository(db).FindByID(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, "X IPA 1", class.Name)
	assert.Nil(t, class.HomeroomTeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
