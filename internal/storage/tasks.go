package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/shopspring/decimal"
)

const taskColumns = `id, owner, title, description, category_id, subcategory_id, due_date, priority, status,
	task_type, value, flow, recurrence, installments, share_token, created_at, updated_at`

func scanTask(row rowScanner) (model.Task, error) {
	var (
		task                       model.Task
		subcategoryID, dueDate     sql.NullString
		shareToken                 sql.NullString
		priority, status, taskType string
		value, flow, recurrence    string
		createdAt, updatedAt       string
	)
	if err := row.Scan(&task.ID, &task.Owner, &task.Title, &task.Description, &task.CategoryID,
		&subcategoryID, &dueDate, &priority, &status, &taskType, &value, &flow, &recurrence,
		&task.Installments, &shareToken, &createdAt, &updatedAt); err != nil {
		return task, err
	}

	task.SubcategoryID = subcategoryID.String
	task.ShareToken = shareToken.String
	task.Priority = model.Priority(priority)
	task.Status = model.TaskStatus(status)
	task.Type = model.TaskType(taskType)
	task.Flow = model.FlowDirection(flow)
	task.Recurrence = model.Recurrence(recurrence)

	var err error
	if task.Value, err = decimal.NewFromString(value); err != nil {
		return task, fmt.Errorf("failed to parse task value %q: %w", value, err)
	}
	if dueDate.Valid {
		due, err := parseTime(dueDate.String)
		if err != nil {
			return task, err
		}
		task.DueDate = &due
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return task, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return task, err
	}
	return task, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *model.Task) sql.NullString {
	if t.DueDate == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t.DueDate), Valid: true}
}

// ListTasks returns all of an owner's tasks, newest first.
func (s *SQLiteStorage) ListTasks(ctx context.Context, owner string) ([]model.Task, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner = ? ORDER BY created_at DESC, id`, owner)
	if err != nil {
		return nil, common.Unavailable("failed to query tasks", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, common.Unavailable("failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Unavailable("error iterating tasks", err)
	}
	return tasks, nil
}

// GetTask returns a task by id.
func (s *SQLiteStorage) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getTaskWhere(ctx, "id", id)
}

// GetTaskByShareToken returns the task published under token.
func (s *SQLiteStorage) GetTaskByShareToken(ctx context.Context, token string) (*model.Task, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(token, "token"); err != nil {
		return nil, err
	}
	return s.getTaskWhere(ctx, "share_token", token)
}

func (s *SQLiteStorage) getTaskWhere(ctx context.Context, column, value string) (*model.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.Unavailable("failed to query task", err)
	}
	return &task, nil
}

// CreateTask stores a new task. The ID and timestamps are assigned here.
func (s *SQLiteStorage) CreateTask(ctx context.Context, task *model.Task) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateTask(task); err != nil {
		return err
	}
	NormalizeTask(task)

	now := s.now()
	if task.ID == "" {
		task.ID = s.newID()
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	err := s.write(ctx, "failed to create task", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.Owner, task.Title, task.Description, task.CategoryID,
			nullString(task.SubcategoryID), nullTime(task), string(task.Priority), string(task.Status),
			string(task.Type), task.Value.String(), string(task.Flow), string(task.Recurrence),
			task.Installments, nullString(task.ShareToken), formatTime(task.CreatedAt), formatTime(task.UpdatedAt))
		return err
	})
	if err != nil {
		return err
	}

	slog.Debug("created task", "owner", task.Owner, "id", task.ID, "category_id", task.CategoryID)
	return nil
}

// UpdateTask overwrites a task's editable fields.
func (s *SQLiteStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateTask(task); err != nil {
		return err
	}
	if err := validateString(task.ID, "id"); err != nil {
		return err
	}
	NormalizeTask(task)
	task.UpdatedAt = s.now()

	return s.write(ctx, "failed to update task", func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, description = ?, category_id = ?, subcategory_id = ?, due_date = ?,
			    priority = ?, status = ?, task_type = ?, value = ?, flow = ?, recurrence = ?,
			    installments = ?, updated_at = ?
			WHERE id = ?`,
			task.Title, task.Description, task.CategoryID, nullString(task.SubcategoryID), nullTime(task),
			string(task.Priority), string(task.Status), string(task.Type), task.Value.String(),
			string(task.Flow), string(task.Recurrence), task.Installments, formatTime(task.UpdatedAt), task.ID)
		return expectAffected(res, err, "task", task.ID)
	})
}

// UpdateTaskLinks rewrites only a task's category and subcategory references.
func (s *SQLiteStorage) UpdateTaskLinks(ctx context.Context, id, categoryID, subcategoryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to update task links", func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE tasks SET category_id = ?, subcategory_id = ?, updated_at = ? WHERE id = ?`,
			categoryID, nullString(subcategoryID), formatTime(s.now()), id)
		return expectAffected(res, err, "task", id)
	})
}

// SetTaskShareToken publishes or, with an empty token, unpublishes a task.
func (s *SQLiteStorage) SetTaskShareToken(ctx context.Context, id, token string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to set share token", func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE tasks SET share_token = ? WHERE id = ?`, nullString(token), id)
		return expectAffected(res, err, "task", id)
	})
}

// DeleteTask removes a task.
func (s *SQLiteStorage) DeleteTask(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to delete task", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		return expectAffected(res, err, "task", id)
	})
}

func expectAffected(res sql.Result, err error, what, id string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, common.ErrNotFound)
	}
	return nil
}
