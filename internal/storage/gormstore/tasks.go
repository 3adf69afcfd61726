package gormstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/storage"
	"gorm.io/gorm"
)

// ListTasks returns all of an owner's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, owner string) ([]model.Task, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(owner, "owner"); err != nil {
		return nil, err
	}

	var rows []TaskModel
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("created_at DESC, id").Find(&rows).Error; err != nil {
		return nil, common.Unavailable("failed to query tasks", err)
	}
	tasks := make([]model.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toModel())
	}
	return tasks, nil
}

// GetTask returns a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return nil, err
	}
	return s.firstTask(ctx, "id = ?", id)
}

// GetTaskByShareToken returns the task published under token.
func (s *Store) GetTaskByShareToken(ctx context.Context, token string) (*model.Task, error) {
	if err := storage.ValidateContext(ctx); err != nil {
		return nil, err
	}
	if err := storage.ValidateString(token, "token"); err != nil {
		return nil, err
	}
	return s.firstTask(ctx, "share_token = ?", token)
}

func (s *Store) firstTask(ctx context.Context, where, arg string) (*model.Task, error) {
	var row TaskModel
	if err := s.db.WithContext(ctx).Where(where, arg).First(&row).Error; err != nil {
		return nil, common.Unavailable("failed to query task", notFound(err, "task", arg))
	}
	t := row.toModel()
	return &t, nil
}

// CreateTask stores a new task, assigning its ID and timestamps.
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateTask(task); err != nil {
		return err
	}
	storage.NormalizeTask(task)

	now := s.now().UTC()
	if task.ID == "" {
		task.ID = s.newID()
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	err := s.write(ctx, "failed to create task", func(tx *gorm.DB) error {
		return tx.Create(taskFromModel(task)).Error
	})
	if err != nil {
		return err
	}

	slog.Debug("created task", "owner", task.Owner, "id", task.ID, "category_id", task.CategoryID)
	return nil
}

// UpdateTask overwrites a task's editable fields.
func (s *Store) UpdateTask(ctx context.Context, task *model.Task) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateTask(task); err != nil {
		return err
	}
	if err := storage.ValidateString(task.ID, "id"); err != nil {
		return err
	}
	storage.NormalizeTask(task)
	task.UpdatedAt = s.now().UTC()

	row := taskFromModel(task)
	return s.write(ctx, "failed to update task", func(tx *gorm.DB) error {
		res := tx.Model(&TaskModel{}).Where("id = ?", task.ID).Updates(map[string]any{
			"title":          row.Title,
			"description":    row.Description,
			"category_id":    row.CategoryID,
			"subcategory_id": row.SubcategoryID,
			"due_date":       row.DueDate,
			"priority":       row.Priority,
			"status":         row.Status,
			"task_type":      row.TaskType,
			"value":          row.Value,
			"flow":           row.Flow,
			"recurrence":     row.Recurrence,
			"installments":   row.Installments,
			"updated_at":     row.UpdatedAt,
		})
		return expectAffected(res, "task", task.ID)
	})
}

// UpdateTaskLinks rewrites only a task's category and subcategory references.
func (s *Store) UpdateTaskLinks(ctx context.Context, id, categoryID, subcategoryID string) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to update task links", func(tx *gorm.DB) error {
		res := tx.Model(&TaskModel{}).Where("id = ?", id).Updates(map[string]any{
			"category_id":    categoryID,
			"subcategory_id": optional(subcategoryID),
			"updated_at":     s.now().UTC(),
		})
		return expectAffected(res, "task", id)
	})
}

// SetTaskShareToken publishes or, with an empty token, unpublishes a task.
func (s *Store) SetTaskShareToken(ctx context.Context, id, token string) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to set share token", func(tx *gorm.DB) error {
		res := tx.Model(&TaskModel{}).Where("id = ?", id).UpdateColumn("share_token", optional(token))
		return expectAffected(res, "task", id)
	})
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := storage.ValidateContext(ctx); err != nil {
		return err
	}
	if err := storage.ValidateString(id, "id"); err != nil {
		return err
	}

	return s.write(ctx, "failed to delete task", func(tx *gorm.DB) error {
		return expectAffected(tx.Where("id = ?", id).Delete(&TaskModel{}), "task", id)
	})
}

func expectAffected(res *gorm.DB, what, id string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, common.ErrNotFound)
	}
	return nil
}
