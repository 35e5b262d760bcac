package service

import (
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"nodeconductor/internal/backup"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/types"
	"time"
)

type (
	ScheduleService interface {
		Create(ctx context.Context, params types.CreateScheduleParams, actor string) (*types.BackupSchedule, error)
		Update(ctx context.Context, id uuid.UUID, params types.UpdateScheduleParams, actor string) (*types.BackupSchedule, error)
		Activate(ctx context.Context, id uuid.UUID, actor string) (*types.BackupSchedule, error)
		Deactivate(ctx context.Context, id uuid.UUID, actor string) (*types.BackupSchedule, error)
		// Delete removes the schedule. Its backups are kept.
		Delete(ctx context.Context, id uuid.UUID, actor string) error
		Get(ctx context.Context, id uuid.UUID) (*types.BackupSchedule, error)
		List(ctx context.Context) ([]*types.BackupSchedule, error)
		// RunDue fires every schedule due at now and returns how many fired.
		RunDue(ctx context.Context, now time.Time) (int, error)
	}

	scheduleService struct {
		sourceRepository   database.BackupSourceRepository
		scheduleRepository database.BackupScheduleRepository
		executor           *backup.Executor
		bus                eventbus.Bus
		validator          *validator.Validate
	}
)

func NewScheduleService(sources database.BackupSourceRepository, schedules database.BackupScheduleRepository,
	executor *backup.Executor, bus eventbus.Bus) ScheduleService {
	return &scheduleService{
		sourceRepository:   sources,
		scheduleRepository: schedules,
		executor:           executor,
		bus:                bus,
		validator:          newValidator(),
	}
}

func (s *scheduleService) Create(ctx context.Context, params types.CreateScheduleParams, actor string) (*types.BackupSchedule, error) {
	if err := runValidator(s.validator, params); err != nil {
		return nil, err
	}

	source, err := s.sourceRepository.FindByID(ctx, params.BackupSourceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find backup source")
	}

	schedule := &types.BackupSchedule{
		ID:                     uuid.New(),
		BackupSourceID:         source.ID,
		Schedule:               params.Schedule,
		Description:            params.Description,
		IsActive:               params.IsActive,
		RetentionTime:          params.RetentionTime,
		MaximalNumberOfBackups: params.MaximalNumberOfBackups,
	}
	if err := s.scheduleRepository.Save(ctx, schedule); err != nil {
		return nil, errors.Wrap(err, "failed to save backup schedule")
	}
	schedule.BackupSource = source

	s.publish(schedule, eventbus.ScheduleCreated, actor, "Backup schedule has been created")
	return schedule, nil
}

func (s *scheduleService) Update(ctx context.Context, id uuid.UUID, params types.UpdateScheduleParams, actor string) (*types.BackupSchedule, error) {
	if err := runValidator(s.validator, params); err != nil {
		return nil, err
	}

	return s.update(ctx, id, actor, func(schedule *types.BackupSchedule) {
		if params.Schedule != nil {
			schedule.Schedule = *params.Schedule
		}
		if params.Description != nil {
			schedule.Description = *params.Description
		}
		if params.IsActive != nil {
			schedule.IsActive = *params.IsActive
		}
		if params.RetentionTime != nil {
			schedule.RetentionTime = *params.RetentionTime
		}
		if params.MaximalNumberOfBackups != nil {
			schedule.MaximalNumberOfBackups = *params.MaximalNumberOfBackups
		}
	})
}

func (s *scheduleService) Activate(ctx context.Context, id uuid.UUID, actor string) (*types.BackupSchedule, error) {
	return s.update(ctx, id, actor, func(schedule *types.BackupSchedule) {
		schedule.IsActive = true
	})
}

func (s *scheduleService) Deactivate(ctx context.Context, id uuid.UUID, actor string) (*types.BackupSchedule, error) {
	return s.update(ctx, id, actor, func(schedule *types.BackupSchedule) {
		schedule.IsActive = false
	})
}

// update applies the change under the schedule lock so that a trigger time
// advanced by a concurrent execution is never written back.
func (s *scheduleService) update(ctx context.Context, id uuid.UUID, actor string, apply func(schedule *types.BackupSchedule)) (*types.BackupSchedule, error) {
	var schedule *types.BackupSchedule
	err := s.scheduleRepository.WithLock(ctx, id, func(l database.Locked) error {
		apply(l.Schedule)
		if err := l.Schedules.Save(ctx, l.Schedule); err != nil {
			return errors.Wrap(err, "failed to save backup schedule")
		}
		schedule = l.Schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(schedule, eventbus.ScheduleUpdated, actor, "Backup schedule has been updated")
	return schedule, nil
}

func (s *scheduleService) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	schedule, err := s.scheduleRepository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.scheduleRepository.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(schedule, eventbus.ScheduleDeleted, actor, "Backup schedule has been deleted")
	return nil
}

func (s *scheduleService) Get(ctx context.Context, id uuid.UUID) (*types.BackupSchedule, error) {
	return s.scheduleRepository.FindByID(ctx, id)
}

func (s *scheduleService) List(ctx context.Context) ([]*types.BackupSchedule, error) {
	return s.scheduleRepository.FindAll(ctx)
}

func (s *scheduleService) RunDue(ctx context.Context, now time.Time) (int, error) {
	return s.executor.RunDue(ctx, now)
}

func (s *scheduleService) publish(schedule *types.BackupSchedule, typ eventbus.Type, actor, message string) {
	s.bus.Publish(eventbus.Event{
		Type:       typ,
		Message:    fmt.Sprintf("%s: %s", message, schedule.ID),
		Actor:      actor,
		ScheduleID: &schedule.ID,
		SourceID:   &schedule.BackupSourceID,
	})
}
