// Package pm resolves which Node.js package manager a project uses.
// Resolution walks a fixed precedence chain: environment override, project
// preference file, package.json hint, lock files, global preference file,
// and finally PATH probing. The winning manager is exposed to hook handlers
// and the pm command for generating manager-specific commands.
package pm

import (
	"strings"

	"github.com/pkg/errors"
)

// Manager identifies a supported package manager
type Manager string

// The supported package managers
const (
	Npm  Manager = "npm"
	Pnpm Manager = "pnpm"
	Yarn Manager = "yarn"
	Bun  Manager = "bun"
)

// Managers lists the supported package managers in resolution order.
// The order is the tiebreaker for lock-file detection and PATH probing:
// the first manager with a lock file or resolvable executable wins.
var Managers = []Manager{Npm, Pnpm, Yarn, Bun}

var (
	// ErrUnknownManager indicates a name outside the supported manager set
	ErrUnknownManager = errors.New("unknown package manager")

	// ErrNoPackageManager indicates resolution exhausted every source and
	// no manager executable is resolvable on PATH
	ErrNoPackageManager = errors.New("no package manager available")
)

// lockFiles maps each manager to the lock file it writes at the project root
var lockFiles = map[Manager]string{
	Npm:  "package-lock.json",
	Pnpm: "pnpm-lock.yaml",
	Yarn: "yarn.lock",
	Bun:  "bun.lockb",
}

// Parse normalizes s (trimming and lowercasing) and returns the matching
// manager. Names outside the supported set fail with ErrUnknownManager.
func Parse(s string) (Manager, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Managers {
		if string(m) == name {
			return m, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownManager, "%q", s)
}

// LockFile returns the lock filename generated by m.
func (m Manager) LockFile() string {
	return lockFiles[m]
}

// InstallCommand returns the argv that installs all project dependencies with m.
func (m Manager) InstallCommand() []string {
	return []string{string(m), "install"}
}

// RunCommand returns the argv that runs a package.json script with m.
func (m Manager) RunCommand(script string) []string {
	return []string{string(m), "run", script}
}

// ExecCommand returns the argv that runs a package-provided binary with m.
func (m Manager) ExecCommand(binary string) []string {
	switch m {
	case Npm:
		return []string{"npx", binary}
	case Pnpm:
		return []string{"pnpm", "dlx", binary}
	case Yarn:
		return []string{"yarn", "dlx", binary}
	case Bun:
		return []string{"bunx", binary}
	}
	return nil
}
