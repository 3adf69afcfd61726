// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskStatus tracks the lifecycle of a task.
type TaskStatus string

// Task status constants.
const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// Priority ranks tasks for display and sorting.
type Priority string

// Priority constants.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns a sortable weight; higher means more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// TaskType distinguishes plain tasks from ones carrying a financial value.
type TaskType string

// Task type constants.
const (
	TypeTask      TaskType = "task"
	TypeFinancial TaskType = "financial"
)

// FlowDirection indicates whether money comes in or goes out.
type FlowDirection string

// Flow direction constants.
const (
	FlowNone    FlowDirection = ""
	FlowInflow  FlowDirection = "inflow"
	FlowOutflow FlowDirection = "outflow"
)

// Recurrence describes a payment schedule.
type Recurrence string

// Recurrence constants.
const (
	RecurrenceNone    Recurrence = ""
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// Task is a unit of work owned by a user. CategoryID must resolve to one of the
// owner's categories; SubcategoryID is empty when unset.
type Task struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DueDate       *time.Time
	Value         decimal.Decimal
	ID            string
	Owner         string
	Title         string
	Description   string
	CategoryID    string
	SubcategoryID string
	Priority      Priority
	Status        TaskStatus
	Type          TaskType
	Flow          FlowDirection
	Recurrence    Recurrence
	ShareToken    string
	Installments  int
}

// SignedValue returns the value with outflows negated.
func (t Task) SignedValue() decimal.Decimal {
	if t.Flow == FlowOutflow {
		return t.Value.Neg()
	}
	return t.Value
}

// CatalogSync records that a catalog version was applied to an owner.
type CatalogSync struct {
	AppliedAt            time.Time
	Owner                string
	CatalogVersion       string
	CategoriesCreated    int
	CategoriesUpdated    int
	SubcategoriesCreated int
	SubcategoriesUpdated int
}
