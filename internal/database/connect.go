package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"nodeconductor/internal/types"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned by repository lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Open connects to the database and migrates the schema. Foreign keys are not
// created: a backup keeps its schedule id after the schedule is deleted.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.New("unsupported database driver: " + driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open DB: "+driver)
	}

	if err := db.AutoMigrate(
		&types.BackupSource{},
		&types.BackupSchedule{},
		&types.Backup{},
		&types.Task{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate DB")
	}

	return db, nil
}

// SQLiteDSN returns a DSN for the sqlite file at path. Transactions begin
// immediately so that a transaction holds the write lock from its first read.
func SQLiteDSN(path string) string {
	params := "_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
