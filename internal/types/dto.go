package types

import (
	"github.com/google/uuid"
)

type (
	CreateSourceParams struct {
		Kind string `json:"kind" yaml:"kind" validate:"required,oneof=instance volume database"`
		Name string `json:"name" yaml:"name" validate:"required"`
		Path string `json:"path" yaml:"path" validate:"required"`
	}

	CreateScheduleParams struct {
		BackupSourceID         uuid.UUID `json:"backup_source_id" validate:"required"`
		Schedule               string    `json:"schedule" validate:"required,cron"`
		Description            string    `json:"description"`
		IsActive               bool      `json:"is_active"`
		RetentionTime          int       `json:"retention_time" validate:"gte=0"`
		MaximalNumberOfBackups int       `json:"maximal_number_of_backups" validate:"gte=0"`
	}

	// UpdateScheduleParams changes only the fields that are set.
	UpdateScheduleParams struct {
		Schedule               *string `json:"schedule" validate:"omitempty,cron"`
		Description            *string `json:"description"`
		IsActive               *bool   `json:"is_active"`
		RetentionTime          *int    `json:"retention_time" validate:"omitempty,gte=0"`
		MaximalNumberOfBackups *int    `json:"maximal_number_of_backups" validate:"omitempty,gte=0"`
	}

	BackupFilter struct {
		BackupScheduleID *uuid.UUID
		BackupSourceID   *uuid.UUID
		States           []BackupState
	}
)
