// Package storage provides the data persistence layer for taskflow.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidTask     = errors.New("invalid task")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// ValidateContext and ValidateString expose the argument checks to other store implementations.
func ValidateContext(ctx context.Context) error { return validateContext(ctx) }

// ValidateString rejects blank parameters.
func ValidateString(s, paramName string) error { return validateString(s, paramName) }

// ValidateCategoryFields checks the values used to create a category.
func ValidateCategoryFields(owner string, fields model.CategoryFields) error {
	if err := validateString(owner, "owner"); err != nil {
		return err
	}
	if strings.TrimSpace(fields.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if fields.Kind != "" && !fields.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCategory, fields.Kind)
	}
	return nil
}

// ValidateSubcategoryFields checks the values used to create a subcategory.
func ValidateSubcategoryFields(owner, categoryID string, fields model.SubcategoryFields) error {
	if err := validateString(owner, "owner"); err != nil {
		return err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return err
	}
	if strings.TrimSpace(fields.Name) == "" {
		return fmt.Errorf("%w: missing subcategory name", ErrInvalidCategory)
	}
	return nil
}

// ValidateTask validates a single task.
func ValidateTask(task *model.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task", ErrNilParameter)
	}
	if strings.TrimSpace(task.Owner) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidTask)
	}
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidTask)
	}
	if task.Installments < 0 {
		return fmt.Errorf("%w: installments cannot be negative", ErrInvalidTask)
	}
	switch task.Flow {
	case model.FlowNone, model.FlowInflow, model.FlowOutflow:
	default:
		return fmt.Errorf("%w: unknown flow %q", ErrInvalidTask, task.Flow)
	}
	return nil
}

// NormalizeCategoryFields fills defaults for a new category.
func NormalizeCategoryFields(fields model.CategoryFields) model.CategoryFields {
	fields.Name = strings.TrimSpace(fields.Name)
	if fields.Kind == "" {
		fields.Kind = model.CategoryKindCustom
	}
	return fields
}

// NormalizeTask fills defaults for a task about to be stored.
func NormalizeTask(task *model.Task) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	if task.Type == "" {
		task.Type = model.TypeTask
		if !task.Value.IsZero() {
			task.Type = model.TypeFinancial
		}
	}
}

// CheckKindChange rejects a patch that would change a category's kind.
func CheckKindChange(current model.Category, patch model.CategoryPatch) error {
	if patch.Kind != nil && *patch.Kind != current.Kind {
		return fmt.Errorf("%w: category kind is immutable (%s -> %s)", common.ErrInvalidOperation, current.Kind, *patch.Kind)
	}
	return nil
}

// CheckCategoryUnpin rejects a patch that would unpin a pinned category.
// Only the reconciliation batch may lower protection.
func CheckCategoryUnpin(current model.Category, patch model.CategoryPatch) error {
	if current.Pinned && patch.Pinned != nil && !*patch.Pinned {
		return fmt.Errorf("%w: category %q is pinned", common.ErrInvalidOperation, current.Name)
	}
	return nil
}

// CheckSubcategoryUnpin rejects a patch that would unpin a pinned subcategory.
func CheckSubcategoryUnpin(current model.Subcategory, patch model.SubcategoryPatch) error {
	if current.Pinned && patch.Pinned != nil && !*patch.Pinned {
		return fmt.Errorf("%w: subcategory %q is pinned", common.ErrInvalidOperation, current.Name)
	}
	return nil
}

// CheckChildrenDeletable rejects deleting a category while it holds pinned
// subcategories, since the delete cascades to them.
func CheckChildrenDeletable(c model.Category, children []model.Subcategory) error {
	for _, s := range children {
		if s.IsProtected() {
			return fmt.Errorf("%w: category %q holds pinned subcategory %q", common.ErrProtectedRecord, c.Name, s.Name)
		}
	}
	return nil
}

// CheckCategoryDeletable rejects deletion of system categories.
func CheckCategoryDeletable(c model.Category) error {
	if c.IsProtected() {
		return fmt.Errorf("%w: category %q is a system category", common.ErrProtectedRecord, c.Name)
	}
	return nil
}

// CheckSubcategoryDeletable rejects deletion of pinned subcategories.
func CheckSubcategoryDeletable(s model.Subcategory) error {
	if s.IsProtected() {
		return fmt.Errorf("%w: subcategory %q is pinned", common.ErrProtectedRecord, s.Name)
	}
	return nil
}

// CheckCategoryNameFree rejects a name already used by another category of the owner.
func CheckCategoryNameFree(existing []model.Category, name, exceptID string) error {
	key := model.NormalizeName(name)
	for _, c := range existing {
		if c.ID != exceptID && model.NormalizeName(c.Name) == key {
			return fmt.Errorf("%w: category %q already exists", common.ErrDuplicateEntry, strings.TrimSpace(name))
		}
	}
	return nil
}

// CheckSubcategoryNameFree rejects a name already used within the same category.
func CheckSubcategoryNameFree(existing []model.Subcategory, name, exceptID string) error {
	key := model.NormalizeName(name)
	for _, s := range existing {
		if s.ID != exceptID && model.NormalizeName(s.Name) == key {
			return fmt.Errorf("%w: subcategory %q already exists", common.ErrDuplicateEntry, strings.TrimSpace(name))
		}
	}
	return nil
}
