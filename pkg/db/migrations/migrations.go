// Package migrations contains all database migrations for toolbelt.
// Migrations use timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/toolbelt-labs/toolbelt/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20260301120000CreateSessions(),
		Migration20260301120001AddSessionIndexes(),
	}
}
