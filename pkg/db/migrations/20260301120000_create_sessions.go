package migrations

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/toolbelt-labs/toolbelt/pkg/db"
)

// Migration20260301120000CreateSessions creates the sessions and
// session_events tables backing the session journal.
func Migration20260301120000CreateSessions() db.Migration {
	return db.Migration{
		Version:     20260301120000,
		Description: "Create sessions and session_events tables",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS sessions (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					ended_at DATETIME,
					end_reason TEXT,
					source TEXT NOT NULL,
					cwd TEXT NOT NULL,
					package_manager TEXT,
					pm_source TEXT
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create sessions table")
			}

			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS session_events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT NOT NULL,
					event TEXT NOT NULL,
					detail TEXT,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create session_events table")
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS session_events"); err != nil {
				return errors.Wrap(err, "failed to drop session_events table")
			}
			_, err := tx.Exec("DROP TABLE IF EXISTS sessions")
			return errors.Wrap(err, "failed to drop sessions table")
		},
	}
}
