package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/pkg/database"
)

const classSessionColumns = `id, class_id, owner_id, title, location, start_time, end_time, status, recurrence_group_id, sequence_no, created_at, updated_at`

// ClassSessionRepository persists class sessions and their recurrence groups.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs the repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

// CreateSeries stores a recurrence group and all of its sessions in one transaction.
// A nil group stores standalone sessions.
func (r *ClassSessionRepository) CreateSeries(ctx context.Context, group *models.RecurrenceGroup, sessions []models.ClassSession) error {
	if len(sessions) == 0 {
		return nil
	}
	now := time.Now().UTC()

	const groupQuery = `INSERT INTO recurrence_groups (id, class_id, interval_weeks, weekdays, end_date, created_by, created_at)
VALUES (:id, :class_id, :interval_weeks, :weekdays, :end_date, :created_by, :created_at)`
	const sessionQuery = `INSERT INTO class_sessions (` + classSessionColumns + `)
VALUES (:id, :class_id, :owner_id, :title, :location, :start_time, :end_time, :status, :recurrence_group_id, :sequence_no, :created_at, :updated_at)`

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if group != nil {
			if group.ID == "" {
				group.ID = uuid.NewString()
			}
			if group.CreatedAt.IsZero() {
				group.CreatedAt = now
			}
			if _, err := tx.NamedExecContext(ctx, groupQuery, group); err != nil {
				return fmt.Errorf("insert recurrence group: %w", err)
			}
		}

		for i := range sessions {
			session := &sessions[i]
			if session.ID == "" {
				session.ID = uuid.NewString()
			}
			if session.Status == "" {
				session.Status = models.SessionStatusScheduled
			}
			session.CreatedAt = now
			session.UpdatedAt = now
			if group != nil {
				session.RecurrenceGroupID = &group.ID
			}
			if _, err := tx.NamedExecContext(ctx, sessionQuery, session); err != nil {
				return fmt.Errorf("insert class session %d: %w", session.Sequence, err)
			}
		}
		return nil
	})
}

// FindByClassAndRange returns sessions of a class starting in [From, To), in series order.
func (r *ClassSessionRepository) FindByClassAndRange(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSession, error) {
	query := `SELECT ` + classSessionColumns + ` FROM class_sessions
WHERE class_id = $1 AND start_time >= $2 AND start_time < $3
ORDER BY start_time ASC, sequence_no ASC, id ASC`
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, filter.ClassID, filter.From, filter.To); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a single session.
func (r *ClassSessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := `SELECT ` + classSessionColumns + ` FROM class_sessions WHERE id = $1`
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindGroupByID returns a recurrence group.
func (r *ClassSessionRepository) FindGroupByID(ctx context.Context, id string) (*models.RecurrenceGroup, error) {
	const query = `SELECT id, class_id, interval_weeks, weekdays, end_date, created_by, created_at FROM recurrence_groups WHERE id = $1`
	var group models.RecurrenceGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// Update writes the mutable fields of one occurrence.
func (r *ClassSessionRepository) Update(ctx context.Context, session *models.ClassSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_sessions
SET title = :title, location = :location, start_time = :start_time, end_time = :end_time, status = :status, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update class session: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a single occurrence.
func (r *ClassSessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class session: %w", err)
	}
	return expectAffected(res)
}

// DeleteByGroupID removes every session of a recurrence group and the group itself in one
// transaction, returning the deleted session ids.
func (r *ClassSessionRepository) DeleteByGroupID(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &ids, `DELETE FROM class_sessions WHERE recurrence_group_id = $1 RETURNING id`, groupID); err != nil {
			return fmt.Errorf("delete group sessions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recurrence_groups WHERE id = $1`, groupID); err != nil {
			return fmt.Errorf("delete recurrence group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
