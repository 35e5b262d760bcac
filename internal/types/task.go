package types

import (
	"github.com/google/uuid"
	"time"
)

type (
	TaskKind   string
	TaskStatus string

	// Task is one unit of asynchronous work. Its ID is the handle stored in
	// Backup.ResultID.
	Task struct {
		ID         uuid.UUID  `json:"id" gorm:"primaryKey"`
		Kind       TaskKind   `json:"kind" gorm:"not null;index"`
		Status     TaskStatus `json:"status" gorm:"not null;index"`
		Payload    string     `json:"payload" gorm:"type:text"`
		Output     string     `json:"output"`
		Error      string     `json:"error"`
		CreatedAt  time.Time  `json:"created_at"`
		StartedAt  *time.Time `json:"started_at"`
		FinishedAt *time.Time `json:"finished_at" gorm:"index"`
	}
)

const (
	TaskKindBackup      TaskKind = "backup"
	TaskKindRestoration TaskKind = "restoration"
	TaskKindDeletion    TaskKind = "deletion"

	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailure TaskStatus = "FAILURE"
)

func (k TaskKind) String() string {
	return string(k)
}

// IsFinished reports whether the task ran to completion, successfully or not.
func (t *Task) IsFinished() bool {
	return t.Status == TaskStatusSuccess || t.Status == TaskStatusFailure
}
