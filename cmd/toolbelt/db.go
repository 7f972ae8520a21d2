package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/toolbelt-labs/toolbelt/pkg/db"
	"github.com/toolbelt-labs/toolbelt/pkg/db/migrations"
	"github.com/toolbelt-labs/toolbelt/pkg/presenter"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance commands",
	Long:  `Commands for maintaining the session journal database (migration status, rollback).`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows which schema migrations have been applied to the session journal.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applied, err := db.GetMigrationStatus(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s\n\n", databasePath())

		all := migrations.All()
		appliedCount := renderMigrationStatus(out, all, applied)
		fmt.Fprintf(out, "\nApplied: %d/%d migrations\n", appliedCount, len(all))

		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last database migration",
	Long:  `Rolls back the most recently applied schema migration. Useful when downgrading toolbelt.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applied, err := db.GetMigrationStatus(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}
		if len(applied) == 0 {
			presenter.Warning("No migrations to roll back")
			return nil
		}

		lastVersion := applied[len(applied)-1]
		presenter.Info(fmt.Sprintf("Rolling back migration %d: %s", lastVersion, migrationDescription(lastVersion)))

		if err := db.RollbackMigration(ctx, migrations.All()); err != nil {
			return errors.Wrap(err, "failed to roll back migration")
		}

		presenter.Success(fmt.Sprintf("Rolled back migration %d", lastVersion))
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}

// renderMigrationStatus writes one checklist line per known migration and
// returns how many of them are applied.
func renderMigrationStatus(w io.Writer, all []db.Migration, applied []int64) int {
	appliedMap := make(map[int64]bool, len(applied))
	for _, v := range applied {
		appliedMap[v] = true
	}

	count := 0
	for _, m := range all {
		status := "[ ]"
		if appliedMap[m.Version] {
			status = "[✓]"
			count++
		}
		fmt.Fprintf(w, "%s %d - %s\n", status, m.Version, m.Description)
	}
	return count
}

func migrationDescription(version int64) string {
	for _, m := range migrations.All() {
		if m.Version == version {
			return m.Description
		}
	}
	return "unknown migration"
}

func databasePath() string {
	path, err := db.DefaultDBPath()
	if err != nil {
		return "unknown"
	}
	return path
}
