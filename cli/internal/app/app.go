package app

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"nodeconductor/internal/backup"
	"nodeconductor/internal/config"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/service"
	"nodeconductor/internal/tasks"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// App holds everything a command needs, wired once per process.
type App struct {
	Config config.Config
	DB     *gorm.DB
	Bus    eventbus.Bus

	Queue     *tasks.Queue
	Lifecycle *backup.Lifecycle
	Executor  *backup.Executor

	Backups   database.BackupRepository
	Sources   service.SourceService
	Schedules service.ScheduleService
	Records   service.BackupService
}

func New(cfg config.Config) (*App, error) {
	if cfg.DatabaseDriver == database.DriverSQLite {
		if err := ensureDir(cfg.DatabaseDSN); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	sourceRepo := database.NewBackupSourceRepository(db)
	scheduleRepo := database.NewBackupScheduleRepository(db)
	backupRepo := database.NewBackupRepository(db)

	bus := eventbus.New()
	queue := tasks.NewQueue(database.NewTaskRepository(db))
	lifecycle := backup.NewLifecycle(backupRepo, queue, bus)
	executor := backup.NewExecutor(scheduleRepo, backupRepo, lifecycle, bus)

	return &App{
		Config:    cfg,
		DB:        db,
		Bus:       bus,
		Queue:     queue,
		Lifecycle: lifecycle,
		Executor:  executor,
		Backups:   backupRepo,
		Sources:   service.NewSourceService(sourceRepo),
		Schedules: service.NewScheduleService(sourceRepo, scheduleRepo, executor, bus),
		Records:   service.NewBackupService(sourceRepo, backupRepo, lifecycle),
	}, nil
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Loader opens the App on first use so that help and flag errors never touch the database.
type Loader struct {
	cfg  config.Config
	once sync.Once
	app  *App
	err  error
}

func NewLoader(cfg config.Config) *Loader {
	return &Loader{cfg: cfg}
}

func (l *Loader) Get() (*App, error) {
	l.once.Do(func() {
		l.app, l.err = New(l.cfg)
	})
	return l.app, l.err
}

// Close closes the App if it was opened.
func (l *Loader) Close() error {
	if l.app == nil {
		return nil
	}
	return l.app.Close()
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:")
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}
	return nil
}
