package migrations

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/toolbelt-labs/toolbelt/pkg/db"
)

// Migration20260301120001AddSessionIndexes adds the indexes used by session
// listing and event lookup.
func Migration20260301120001AddSessionIndexes() db.Migration {
	return db.Migration{
		Version:     20260301120001,
		Description: "Add session listing and event lookup indexes",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_sessions_started_at
				ON sessions(started_at DESC)
			`); err != nil {
				return errors.Wrap(err, "failed to create started_at index")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_session_events_session_id
				ON session_events(session_id, created_at)
			`); err != nil {
				return errors.Wrap(err, "failed to create session_events index")
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP INDEX IF EXISTS idx_sessions_started_at"); err != nil {
				return errors.Wrap(err, "failed to drop started_at index")
			}
			_, err := tx.Exec("DROP INDEX IF EXISTS idx_session_events_session_id")
			return errors.Wrap(err, "failed to drop session_events index")
		},
	}
}
