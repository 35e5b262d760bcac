package types

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"nodeconductor/internal/trigger"
	"time"
)

type (
	StorageCredentials struct {
		Endpoint    string
		AccessKeyID string
		SecretKey   string
		Region      string
		Bucket      string
		Secure      bool
	}

	// BackupSource is any resource that can be copied into and restored from a backup.
	BackupSource struct {
		ID        uuid.UUID `json:"id" gorm:"primaryKey"`
		Kind      string    `json:"kind" gorm:"not null"`
		Name      string    `json:"name" gorm:"not null"`
		Path      string    `json:"path"`
		CreatedAt time.Time `json:"created_at"`
	}

	BackupSchedule struct {
		ID                     uuid.UUID     `json:"id" gorm:"primaryKey"`
		BackupSourceID         uuid.UUID     `json:"backup_source_id" gorm:"not null;index"`
		BackupSource           *BackupSource `json:"-" gorm:"foreignKey:BackupSourceID"`
		Schedule               string        `json:"schedule" gorm:"not null"`
		Description            string        `json:"description"`
		NextTriggerAt          *time.Time    `json:"next_trigger_at" gorm:"index"`
		IsActive               bool          `json:"is_active"`
		RetentionTime          int           `json:"retention_time"`
		MaximalNumberOfBackups int           `json:"maximal_number_of_backups"`
		CreatedAt              time.Time     `json:"created_at"`
		UpdatedAt              time.Time     `json:"updated_at"`

		// values as last read from or written to the database
		loaded         bool
		loadedSchedule string
		loadedActive   bool
	}

	Backup struct {
		ID               uuid.UUID     `json:"id" gorm:"primaryKey"`
		BackupScheduleID *uuid.UUID    `json:"backup_schedule_id" gorm:"index"`
		BackupSourceID   *uuid.UUID    `json:"backup_source_id" gorm:"not null;index"`
		BackupSource     *BackupSource `json:"backup_source,omitempty" gorm:"foreignKey:BackupSourceID"`
		State            BackupState   `json:"state" gorm:"not null;index"`
		ResultID         string        `json:"result_id"`
		KeptUntil        *time.Time    `json:"kept_until"`
		Location         string        `json:"location"`
		Message          string        `json:"message"`
		CreatedAt        time.Time     `json:"created_at"`
		UpdatedAt        time.Time     `json:"updated_at"`
	}

	BackupState string
)

const (
	BackupStateReady     BackupState = "READY"
	BackupStateBackingUp BackupState = "BACKING_UP"
	BackupStateRestoring BackupState = "RESTORING"
	BackupStateDeleting  BackupState = "DELETING"
	BackupStateErred     BackupState = "ERRED"
	BackupStateDeleted   BackupState = "DELETED"
)

var (
	InFlightBackupStates = []BackupState{BackupStateBackingUp, BackupStateRestoring, BackupStateDeleting}

	// RetiredBackupStates never count against a schedule's retention cap.
	RetiredBackupStates = []BackupState{BackupStateDeleting, BackupStateDeleted, BackupStateErred}
)

func (s BackupState) String() string {
	return string(s)
}

func (s BackupState) IsInFlight() bool {
	for _, next := range InFlightBackupStates {
		if s == next {
			return true
		}
	}
	return false
}

// CountsAsReady reports whether a backup in this state counts against the
// maximal number of backups of its schedule.
func (s BackupState) CountsAsReady() bool {
	for _, next := range RetiredBackupStates {
		if s == next {
			return false
		}
	}
	return true
}

// NewBackup returns a backup of source in the initial READY state.
func NewBackup(source *BackupSource, schedule *BackupSchedule, now time.Time) *Backup {
	bk := &Backup{
		ID:        uuid.New(),
		State:     BackupStateReady,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if source != nil {
		bk.BackupSourceID = &source.ID
		bk.BackupSource = source
	}
	if schedule != nil {
		bk.BackupScheduleID = &schedule.ID
	}
	return bk
}

// IsExpired reports whether the backup is complete and past its kept_until time.
func (b *Backup) IsExpired(now time.Time) bool {
	return b.State == BackupStateReady && b.KeptUntil != nil && !b.KeptUntil.After(now)
}

// KeptUntil returns the time a backup created at now must be kept, or nil when
// the schedule keeps backups regardless of age.
func (s *BackupSchedule) KeptUntil(now time.Time) *time.Time {
	if s.RetentionTime <= 0 {
		return nil
	}
	until := now.AddDate(0, 0, s.RetentionTime)
	return &until
}

// RecomputeNextTrigger sets NextTriggerAt to the first cron match after now.
func (s *BackupSchedule) RecomputeNextTrigger(now time.Time) error {
	next, err := trigger.Next(s.Schedule, now)
	if err != nil {
		return err
	}
	s.NextTriggerAt = &next
	return nil
}

// ShouldRecompute reports whether saving the schedule must recompute
// NextTriggerAt: it is active and either has no trigger time, changed its cron
// expression or was reactivated since it was loaded.
func (s *BackupSchedule) ShouldRecompute() bool {
	if !s.IsActive {
		return false
	}
	if s.NextTriggerAt == nil {
		return true
	}
	if !s.loaded {
		return false
	}
	return s.Schedule != s.loadedSchedule || !s.loadedActive
}

// Prepare validates the cron expression and recomputes the trigger time when needed.
func (s *BackupSchedule) Prepare(now time.Time) error {
	if err := trigger.Validate(s.Schedule); err != nil {
		return err
	}
	if !s.ShouldRecompute() {
		return nil
	}
	return s.RecomputeNextTrigger(now)
}

// IsDue reports whether an active schedule should run at now.
func (s *BackupSchedule) IsDue(now time.Time) bool {
	return s.IsActive && s.NextTriggerAt != nil && !s.NextTriggerAt.After(now)
}

func (s *BackupSchedule) BeforeSave(tx *gorm.DB) error {
	return s.Prepare(tx.NowFunc())
}

func (s *BackupSchedule) AfterSave(tx *gorm.DB) error {
	s.markLoaded()
	return nil
}

func (s *BackupSchedule) AfterFind(tx *gorm.DB) error {
	s.markLoaded()
	return nil
}

func (s *BackupSchedule) markLoaded() {
	s.loaded = true
	s.loadedSchedule = s.Schedule
	s.loadedActive = s.IsActive
}
