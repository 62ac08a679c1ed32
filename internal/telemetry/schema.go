package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
)

const (
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS snapshots (
	       id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp          INTEGER NOT NULL,
	       url                TEXT NOT NULL,
	       score              REAL NOT NULL,
	       cls                REAL NOT NULL,
	       fid                REAL NOT NULL,
	       inp                REAL NOT NULL,
	       lcp                REAL NOT NULL,
	       fcp                REAL NOT NULL,
	       ttfb               REAL NOT NULL,
	       dom_content_loaded REAL NOT NULL,
	       load_complete      REAL NOT NULL,
	       first_paint        REAL NOT NULL,
	       payload            TEXT NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots (timestamp);`

	insertSnapshotSQL = `
    INSERT INTO snapshots (
        timestamp, url, score,
        cls, fid, inp, lcp, fcp, ttfb,
        dom_content_loaded, load_complete, first_paint,
        payload
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecentSQL = `
    SELECT payload FROM snapshots
    ORDER BY timestamp DESC, id DESC
    LIMIT ?`
)

// InitSchema creates the snapshots table if it does not exist.
func InitSchema(db *sql.DB, log logger.Logger) error {
	log.Debug().Msg("Ensuring telemetry schema...")

	if _, err := db.Exec(createTablesSQL); err != nil {
		return errors.New().WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}
	return nil
}
