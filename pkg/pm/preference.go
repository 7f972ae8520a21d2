package pm

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ConfigDirName is the toolbelt config directory name, used under the
// project root and under the user's home directory
const ConfigDirName = ".toolbelt"

// PreferenceFile is the JSON preference filename used at both scopes
const PreferenceFile = "package-manager.json"

// preferenceKey is the only field of the preference file toolbelt owns.
// Anything else in the file belongs to other tooling and survives writes.
const preferenceKey = "packageManager"

// Scope selects which preference file SetPreference writes
type Scope string

// The preference scopes
const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// PreferencePath returns the preference file path for scope. cwd is only
// consulted for the project scope.
func PreferencePath(scope Scope, cwd string) (string, error) {
	switch scope {
	case ScopeProject:
		return filepath.Join(cwd, ConfigDirName, PreferenceFile), nil
	case ScopeGlobal:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get user home directory")
		}
		return filepath.Join(home, ConfigDirName, PreferenceFile), nil
	}
	return "", errors.Errorf("unknown preference scope %q", scope)
}

// readPreferenceValue returns the raw packageManager value from the JSON
// file at path. A missing, unreadable, or malformed file reads as not found:
// a corrupt preference file must never block resolution.
func readPreferenceValue(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", false
	}
	raw, exists := fields[preferenceKey]
	if !exists {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// SetPreference records m in the preference file at path, creating parent
// directories as needed and preserving any other fields the file already
// holds. The content lands in a temp file in the same directory which is
// renamed over the target, so readers never observe a partial write.
func SetPreference(path string, m Manager) error {
	parsed, err := Parse(string(m))
	if err != nil {
		return err
	}

	fields := map[string]json.RawMessage{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &fields); err != nil {
			// An unparseable file carries nothing worth preserving
			fields = map[string]json.RawMessage{}
		}
	}

	name, err := json.Marshal(string(parsed))
	if err != nil {
		return errors.Wrap(err, "failed to encode manager name")
	}
	fields[preferenceKey] = name

	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode preference file")
	}
	data = append(data, '\n')

	return writeFileAtomic(path, data, 0o644)
}

// writeFileAtomic writes data to path via a temp file in the same directory
// plus a rename. The rename keeps concurrent writers from interleaving and
// concurrent readers from seeing truncated content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to set permissions on temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to replace preference file")
	}
	return nil
}
