package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus constants
const (
	TaskStatusOpen       = "OPEN"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// Task is a unit of department work. Task-help and extension requests point at a
// Task through their target id.
type Task struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	Department string         `gorm:"type:varchar(100);not null;index" json:"department"`
	AssigneeID *uuid.UUID     `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee   *User          `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Status     string         `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	DueDate    *time.Time     `json:"due_date"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
