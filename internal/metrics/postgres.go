package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgWriteTimeout = 10 * time.Second

	pgCreateTableSQL = `
CREATE TABLE IF NOT EXISTS efficiency_reports (
    id              BIGSERIAL PRIMARY KEY,
    timestamp_ns    BIGINT NOT NULL,
    p1              DOUBLE PRECISION NOT NULL,
    p2              DOUBLE PRECISION NOT NULL,
    t1              DOUBLE PRECISION NOT NULL,
    t2              DOUBLE PRECISION NOT NULL,
    h1              DOUBLE PRECISION NOT NULL,
    h2s             DOUBLE PRECISION NOT NULL,
    h2              DOUBLE PRECISION NOT NULL,
    eff             DOUBLE PRECISION NOT NULL,
    eff_ref         DOUBLE PRECISION NOT NULL,
    eff_avg         DOUBLE PRECISION NOT NULL,
    eff_ref_avg     DOUBLE PRECISION NOT NULL,
    unit_energy     DOUBLE PRECISION NOT NULL,
    unit_energy_ref DOUBLE PRECISION NOT NULL,
    ref_t1          DOUBLE PRECISION NOT NULL,
    ref_p1          DOUBLE PRECISION NOT NULL,
    ref_t2          DOUBLE PRECISION NOT NULL,
    ref_p2          DOUBLE PRECISION NOT NULL,
    seeded          BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS efficiency_reports_timestamp_idx ON efficiency_reports (timestamp_ns);`
)

var (
	pgInsertSQL = "INSERT INTO efficiency_reports (" + strings.Join(reportColumns, ", ") +
		") VALUES (" + pgPlaceholders(len(reportColumns)) + ")"

	pgSelectRecentSQL = "SELECT " + strings.Join(reportColumns, ", ") +
		" FROM efficiency_reports ORDER BY id DESC LIMIT $1"
)

type postgresRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
	batch  *batcher
}

// NewPostgresRepository connects to cfg.DSN and ensures the reports table.
func NewPostgresRepository(ctx context.Context, cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DSN == "" {
		return nil, errFactory.New(ErrInvalidDSN)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if _, err := pool.Exec(ctx, pgCreateTableSQL); err != nil {
		pool.Close()
		return nil, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	log.Info().
		Int("batch_size", cfg.BatchSize).
		Int("batch_timeout", cfg.BatchTimeout).
		Msg("PostgreSQL metrics repository initialized")

	repo := &postgresRepository{
		pool:   pool,
		logger: log,
	}
	repo.batch = newBatcher(cfg.BatchSize, cfg.BatchTimeout, repo.write, log)

	return repo, nil
}

func (r *postgresRepository) Record(snapshot *Snapshot) error {
	return r.batch.add(snapshot)
}

func (r *postgresRepository) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	errFactory := errors.New()

	if err := r.batch.flush(); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, pgSelectRecentSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			s  Snapshot
			ns int64
		)
		if err := rows.Scan(append(s.scanTargets(&ns), &s.Seeded)...); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		s.Timestamp = time.Unix(0, ns).UTC()
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return snapshots, nil
}

func (r *postgresRepository) Close() error {
	err := r.batch.close()
	r.pool.Close()

	if err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	r.logger.Info().Msg("Metrics repository closed gracefully")

	return nil
}

func (r *postgresRepository) write(snapshots []*Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgWriteTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(pgInsertSQL, append(s.values(), s.Seeded)...)
	}

	res := r.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range snapshots {
		if _, err := res.Exec(); err != nil {
			return errors.New().Wrap(ErrTransactionFailed, err)
		}
	}

	return nil
}

func pgPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}
