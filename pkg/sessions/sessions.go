// Package sessions persists the host session journal in SQLite. Hook
// handlers record session starts, ends, and lifecycle events; the sessions
// command reads them back.
package sessions

import (
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound indicates the requested session is not in the journal
var ErrNotFound = errors.New("session not found")

// Session is one host session as recorded by the lifecycle hooks
type Session struct {
	ID             string     `db:"id" json:"id"`
	StartedAt      time.Time  `db:"started_at" json:"startedAt"`
	EndedAt        *time.Time `db:"ended_at" json:"endedAt,omitempty"`
	EndReason      *string    `db:"end_reason" json:"endReason,omitempty"`
	Source         string     `db:"source" json:"source"`
	CWD            string     `db:"cwd" json:"cwd"`
	PackageManager *string    `db:"package_manager" json:"packageManager,omitempty"`
	PMSource       *string    `db:"pm_source" json:"pmSource,omitempty"`
}

// Active reports whether the session has not been closed yet
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// Event is a single journal entry within a session
type Event struct {
	ID        int64     `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"sessionId"`
	Name      string    `db:"event" json:"event"`
	Detail    *string   `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
