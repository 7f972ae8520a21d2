package sessions

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/toolbelt-labs/toolbelt/pkg/db"
	"github.com/toolbelt-labs/toolbelt/pkg/db/migrations"
)

// Store reads and writes the session journal
type Store struct {
	db *sqlx.DB
}

// Open opens the journal database at dbPath, running any pending migrations.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(sqlDB)
	if err := runner.Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return &Store{db: sqlDB}, nil
}

// OpenDefault opens the journal at its default location,
// honoring the TOOLBELT_BASE_PATH override.
func OpenDefault(ctx context.Context) (*Store, error) {
	dbPath, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return Open(ctx, dbPath)
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession records the beginning of a session. Starting an already
// recorded session (a resume or clear) updates its fields and reopens it.
func (s *Store) StartSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, started_at, source, cwd, package_manager, pm_source)
		VALUES (:id, :started_at, :source, :cwd, :package_manager, :pm_source)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			cwd = excluded.cwd,
			package_manager = excluded.package_manager,
			pm_source = excluded.pm_source,
			ended_at = NULL,
			end_reason = NULL
	`, sess)
	return errors.Wrap(err, "failed to record session start")
}

// EndSession closes a session with the given reason. Ending a session the
// journal never saw fails with ErrNotFound.
func (s *Store) EndSession(ctx context.Context, id, reason string, endedAt time.Time) error {
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ?, end_reason = ? WHERE id = ?
	`, endedAt, reason, id)
	if err != nil {
		return errors.Wrap(err, "failed to record session end")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check affected rows")
	}
	if affected == 0 {
		return errors.Wrapf(ErrNotFound, "%q", id)
	}
	return nil
}

// LogEvent appends a journal entry for a session
func (s *Store) LogEvent(ctx context.Context, event Event) error {
	if event.SessionID == "" {
		return errors.New("session id is required")
	}
	if event.Name == "" {
		return errors.New("event name is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO session_events (session_id, event, detail, created_at)
		VALUES (:session_id, :event, :detail, :created_at)
	`, event)
	return errors.Wrap(err, "failed to record session event")
}

// Get returns a single session by id
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.GetContext(ctx, &sess, `
		SELECT id, started_at, ended_at, end_reason, source, cwd, package_manager, pm_source
		FROM sessions WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "%q", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	return &sess, nil
}

// Events returns a session's journal entries in the order they were recorded
func (s *Store) Events(ctx context.Context, sessionID string) ([]Event, error) {
	var events []Event
	err := s.db.SelectContext(ctx, &events, `
		SELECT id, session_id, event, detail, created_at
		FROM session_events
		WHERE session_id = ?
		ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session events")
	}
	return events, nil
}

// List returns the most recently started sessions, newest first. A limit of
// zero or less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}

	var list []Session
	err := s.db.SelectContext(ctx, &list, `
		SELECT id, started_at, ended_at, end_reason, source, cwd, package_manager, pm_source
		FROM sessions
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	return list, nil
}
