package metrics

import (
	"database/sql"
	"fmt"
	"strings"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/logger"
)

// Shared by the SQLite and PostgreSQL repositories, in Snapshot.values order
// followed by seeded.
var reportColumns = []string{
	"timestamp_ns",
	"p1", "p2", "t1", "t2",
	"h1", "h2s", "h2",
	"eff", "eff_ref", "eff_avg", "eff_ref_avg",
	"unit_energy", "unit_energy_ref",
	"ref_t1", "ref_p1", "ref_t2", "ref_p2",
	"seeded",
}

// SchemaVersion is stored in PRAGMA user_version. A fresh database reads 0.
const SchemaVersion = 1

const createReportsSQL = `
	CREATE TABLE IF NOT EXISTS reports (
	    id              INTEGER PRIMARY KEY AUTOINCREMENT,
	    timestamp_ns    INTEGER NOT NULL,
	    p1              REAL NOT NULL,
	    p2              REAL NOT NULL,
	    t1              REAL NOT NULL,
	    t2              REAL NOT NULL,
	    h1              REAL NOT NULL,
	    h2s             REAL NOT NULL,
	    h2              REAL NOT NULL,
	    eff             REAL NOT NULL,
	    eff_ref         REAL NOT NULL,
	    eff_avg         REAL NOT NULL,
	    eff_ref_avg     REAL NOT NULL,
	    unit_energy     REAL NOT NULL,
	    unit_energy_ref REAL NOT NULL,
	    ref_t1          REAL NOT NULL,
	    ref_p1          REAL NOT NULL,
	    ref_t2          REAL NOT NULL,
	    ref_p2          REAL NOT NULL,
	    seeded          INTEGER NOT NULL CHECK (seeded IN (0, 1))
	);
	CREATE INDEX IF NOT EXISTS reports_timestamp_idx ON reports (timestamp_ns);`

var (
	insertReportSQL = "INSERT INTO reports (" + strings.Join(reportColumns, ", ") +
		") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(reportColumns)), ", ") + ")"

	selectRecentSQL = "SELECT " + strings.Join(reportColumns, ", ") +
		" FROM reports ORDER BY id DESC LIMIT ?"
)

// createSchema creates the report table and stamps the schema version.
func createSchema(db *sql.DB, log logger.Logger) error {
	err := inTx(db, log, ErrSchemaInitFailed, func(tx *sql.Tx) error {
		if _, err := tx.Exec(createReportsSQL); err != nil {
			return err
		}
		// PRAGMA does not take bind parameters
		_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion))
		return err
	})
	if err != nil {
		return err
	}

	log.Info().Int("version", SchemaVersion).Msg("Metrics schema created")
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	return version, nil
}

// inTx runs fn in a transaction, committing only if fn succeeds. Failures
// carry code.
func inTx(db *sql.DB, log logger.Logger, code errors.ErrorCode, fn func(*sql.Tx) error) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(code, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(code, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(code, err)
	}

	return nil
}
