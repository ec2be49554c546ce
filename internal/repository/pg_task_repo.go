package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/task-management/internal/domain"
)

type pgTaskRepository struct {
	pool *pgxpool.Pool
}

// NewPgTaskRepository returns a TaskRepository backed by PostgreSQL.
func NewPgTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &pgTaskRepository{pool: pool}
}

func (r *pgTaskRepository) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks
			(id, title, description, due_date, status, sort_order,
			 assigned_to_id, created_by_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.Title, t.Description, t.DueDate, t.Status, t.SortOrder,
		t.AssignedToID, t.CreatedByID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, due_date, status, sort_order,
		       assigned_to_id, created_by_id, created_at, updated_at
		FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *pgTaskRepository) List(ctx context.Context, assignedTo *uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT id, title, description, due_date, status, sort_order,
		       assigned_to_id, created_by_id, created_at, updated_at
		FROM tasks`
	args := []any{}
	if assignedTo != nil {
		query += ` WHERE assigned_to_id = $1`
		args = append(args, *assignedTo)
	}
	query += ` ORDER BY status, sort_order, created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *pgTaskRepository) Update(ctx context.Context, t *domain.Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, status = $4,
		    sort_order = $5, assigned_to_id = $6, updated_at = $7
		WHERE id = $8`,
		t.Title, t.Description, t.DueDate, t.Status,
		t.SortOrder, t.AssignedToID, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgTaskRepository) Reorder(ctx context.Context, status domain.TaskStatus, ids []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for position, id := range ids {
		_, err := tx.Exec(ctx, `
			UPDATE tasks SET sort_order = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3`,
			position, id, status,
		)
		if err != nil {
			return fmt.Errorf("reorder task %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// scanTask reads a single task row from any pgx row type.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Status, &t.SortOrder,
		&t.AssignedToID, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
