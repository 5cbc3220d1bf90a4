package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/logger"
)

func backupDatabase(db *sql.DB, dir string, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup_dir",
			Path:  dir,
			Error: err.Error(),
		})
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	backupPath := filepath.Join(dir, fmt.Sprintf("metrics_v%d_%s.db", version, timestamp))

	// VACUUM INTO requires no active transaction
	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", errFactory.WithData(ErrSchemaMigrationFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup",
			Path:  backupPath,
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Database backup created")

	return backupPath, nil
}

// migrateSchema brings db to SchemaVersion. Reports are derived data, so a
// version change recreates the table; the old file is kept as a backup when
// cfg.BackupOnMigrate is set.
func migrateSchema(db *sql.DB, cfg Config, log logger.Logger) error {
	version, err := schemaVersion(db)
	if err != nil {
		return err
	}

	switch {
	case version == SchemaVersion:
		log.Debug().Int("version", version).Msg("Metrics schema is current")
		return nil
	case version == 0:
		return createSchema(db, log)
	}

	log.Warn().
		Int("found", version).
		Int("expected", SchemaVersion).
		Msg("Metrics schema version mismatch, recreating")

	if cfg.BackupOnMigrate {
		if _, err := backupDatabase(db, cfg.BackupDir(), version, log); err != nil {
			return err
		}
	}

	err = inTx(db, log, ErrSchemaMigrationFailed, func(tx *sql.Tx) error {
		_, err := tx.Exec("DROP TABLE IF EXISTS reports")
		return err
	})
	if err != nil {
		return err
	}

	return createSchema(db, log)
}
