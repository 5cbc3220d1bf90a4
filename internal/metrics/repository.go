package metrics

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	batch  *batcher
}

// NewRepository opens the SQLite report store at cfg.DBPath.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := migrateSchema(db, cfg, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("Metrics repository initialized")

	repo := &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}
	repo.batch = newBatcher(cfg.BatchSize, cfg.BatchTimeout, repo.write, log)

	return repo, nil
}

func (r *repository) Record(snapshot *Snapshot) error {
	return r.batch.add(snapshot)
}

// Recent returns up to limit reports, newest first. Buffered reports are
// flushed first so they are included.
func (r *repository) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	errFactory := errors.New()

	if err := r.batch.flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, selectRecentSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			s      Snapshot
			ns     int64
			seeded int
		)
		if err := rows.Scan(append(s.scanTargets(&ns), &seeded)...); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		s.Timestamp = time.Unix(0, ns).UTC()
		s.Seeded = seeded == 1
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return snapshots, nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	if err := r.batch.close(); err != nil {
		r.logger.Error().Err(err).Msg("Final metrics flush failed")
	}

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Metrics repository closed gracefully")

	return nil
}

func (r *repository) write(batch []*Snapshot) error {
	return inTx(r.db, r.logger, ErrTransactionFailed, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertReportSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, snapshot := range batch {
			if _, err := stmt.Exec(append(snapshot.values(), boolToInt(snapshot.Seeded))...); err != nil {
				return err
			}
		}
		return nil
	})
}
