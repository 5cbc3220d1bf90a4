package metrics

import (
	"path/filepath"

	"codeberg.org/mutker/turbinemon/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/turbinemon/metrics.db"

	defaultBatchSize    = 10
	defaultBatchTimeout = 5
	maxBufferedReports  = 1000

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Enabled bool
	Driver  string
	// DBPath is the SQLite database file.
	DBPath string
	// DSN is the PostgreSQL connection string.
	DSN string
	// BatchSize is the number of reports buffered before a write. 1 writes through.
	BatchSize int
	// BatchTimeout flushes a partial batch after this many seconds.
	BatchTimeout    int
	BackupOnMigrate bool
}

func DefaultConfig() Config {
	return Config{
		Enabled:         false, // Disabled by default
		Driver:          DriverSQLite,
		DBPath:          defaultDBPath,
		BatchSize:       defaultBatchSize,
		BatchTimeout:    defaultBatchTimeout,
		BackupOnMigrate: true,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}

	switch c.Driver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errFactory.New(ErrInvalidDBPath)
		}
	case DriverPostgres:
		if c.DSN == "" {
			return errFactory.New(ErrInvalidDSN)
		}
	default:
		return errFactory.WithData(errors.ErrInvalidDriver, c.Driver)
	}

	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "batch_size",
			Value: c.BatchSize,
		})
	}

	return nil
}

// BackupDir is where schema migrations leave copies of the old database.
func (c Config) BackupDir() string {
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
