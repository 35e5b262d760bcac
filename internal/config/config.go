package config

import (
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"nodeconductor/internal/database"
	"nodeconductor/internal/storage"
	"nodeconductor/internal/types"
	"nodeconductor/logger"
	"os"
	"strconv"
	"time"
)

const envPrefix = "NODECONDUCTOR_"

const (
	DefaultTriggerInterval = time.Minute
	DefaultPollInterval    = 10 * time.Second
	DefaultResultTTL       = 24 * time.Hour
	DefaultWorkers         = 4
)

type Config struct {
	// Mode selects the logger: production, development or test.
	Mode string

	DatabaseDriver string
	DatabaseDSN    string

	// TriggerInterval is how often due schedules are looked up.
	TriggerInterval time.Duration
	// PollInterval is how often in-flight backups are checked.
	PollInterval time.Duration
	// ResultTTL is how long finished task results are kept. Backups polled
	// after that are marked erred.
	ResultTTL time.Duration
	Workers   int

	BackupDir string
	Storage   types.StorageCredentials

	// MetricsAddr enables the metrics server when set.
	MetricsAddr string
}

// Load reads an env file, when one exists, into the environment and returns
// the resulting configuration. An explicitly named env file must exist.
func Load() (Config, error) {
	file, explicit := os.LookupEnv(envPrefix + "ENV_FILE")
	if !explicit {
		file = ".env"
	}

	if _, err := os.Stat(file); err == nil {
		if err := godotenv.Load(file); err != nil {
			return Config{}, errors.Wrapf(err, "failed to load %s", file)
		}
	} else if explicit {
		return Config{}, errors.Wrapf(err, "env file %s", file)
	}

	return New(), nil
}

func New() Config {
	driver := env("DATABASE_DRIVER", database.DriverSQLite)
	dsn := env("DATABASE_DSN", "")
	if dsn == "" && driver == database.DriverSQLite {
		dsn = database.SQLiteDSN(storage.DBPath)
	}

	return Config{
		Mode:            env("MODE", "development"),
		DatabaseDriver:  driver,
		DatabaseDSN:     dsn,
		TriggerInterval: duration("TRIGGER_INTERVAL", DefaultTriggerInterval),
		PollInterval:    duration("POLL_INTERVAL", DefaultPollInterval),
		ResultTTL:       duration("RESULT_TTL", DefaultResultTTL),
		Workers:         integer("WORKERS", DefaultWorkers),
		BackupDir:       env("BACKUP_DIR", storage.BackupDir),
		Storage: types.StorageCredentials{
			Endpoint:    env("S3_ENDPOINT", ""),
			AccessKeyID: env("S3_ACCESS_KEY", ""),
			SecretKey:   env("S3_SECRET_KEY", ""),
			Region:      env("S3_REGION", ""),
			Bucket:      env("S3_BUCKET", ""),
			Secure:      env("S3_SECURE", "true") != "false",
		},
		MetricsAddr: env("METRICS_ADDR", ""),
	}
}

func (c Config) HasObjectStorage() bool {
	return c.Storage.Endpoint != ""
}

func env(key, fallback string) string {
	if value, ok := os.LookupEnv(envPrefix + key); ok && value != "" {
		return value
	}
	return fallback
}

func duration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Warn("invalid duration, using default",
			zap.String("key", envPrefix+key),
			zap.String("value", value),
			zap.Duration("default", fallback))
		return fallback
	}
	return d
}

func integer(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		logger.Warn("invalid number, using default",
			zap.String("key", envPrefix+key),
			zap.String("value", value),
			zap.Int("default", fallback))
		return fallback
	}
	return n
}
