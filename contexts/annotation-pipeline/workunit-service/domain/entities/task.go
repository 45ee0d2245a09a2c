package entities

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusComplete   TaskStatus = "complete"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is the local unit of work that annotations are collected for.
// Rows are owned by the upstream task-authoring flow; this context only
// reads them when issuing work units and validating annotation writes.
type Task struct {
	TaskID            string
	ProjectID         string
	Kind              string
	DefinitionVersion string
	Status            TaskStatus
	Priority          int
	CreatedAt         time.Time
}
