package lifecycle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/toolbelt-labs/toolbelt/pkg/pm"
)

// stateFile is the per-project session state snapshot filename
const stateFile = "session-state.json"

// SessionState is what toolbelt remembers about a session across
// compactions of the host transcript.
type SessionState struct {
	LastCompaction time.Time `json:"last_compaction"`
	Trigger        string    `json:"trigger"`
	Compactions    int       `json:"compactions"`
}

// StateStore persists per-session state under <project>/.toolbelt. Updates
// run inside lockedfile.Transform with a single file lock held across the
// whole read-modify-write, so concurrent hook invocations from separate
// processes cannot drop each other's updates.
type StateStore struct {
	path string
	mu   sync.Mutex
}

// NewStateStore creates a state store for the project rooted at cwd
func NewStateStore(cwd string) *StateStore {
	return &StateStore{
		path: filepath.Join(cwd, pm.ConfigDirName, stateFile),
	}
}

// Path returns the snapshot file location
func (s *StateStore) Path() string {
	return s.path
}

// RecordCompaction bumps the compaction counter for sessionID and returns
// the updated state.
func (s *StateStore) RecordCompaction(sessionID, trigger string, at time.Time) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return SessionState{}, errors.Wrap(err, "failed to create state directory")
	}

	var state SessionState
	err := lockedfile.Transform(s.path, func(data []byte) ([]byte, error) {
		states := decodeStates(data)
		state = states[sessionID]
		state.LastCompaction = at
		state.Trigger = trigger
		state.Compactions++
		states[sessionID] = state

		out, err := json.MarshalIndent(states, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal session state")
		}
		return out, nil
	})
	if err != nil {
		return SessionState{}, errors.Wrap(err, "failed to update session state file")
	}
	return state, nil
}

// Get returns the recorded state for sessionID, if any
func (s *StateStore) Get(sessionID string) (SessionState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := lockedfile.Read(s.path)
	if os.IsNotExist(err) {
		return SessionState{}, false, nil
	}
	if err != nil {
		return SessionState{}, false, errors.Wrap(err, "failed to read session state file")
	}
	state, exists := decodeStates(data)[sessionID]
	return state, exists, nil
}

// decodeStates tolerates an empty or corrupt snapshot: a bad state file is
// not worth failing a hook over.
func decodeStates(data []byte) map[string]SessionState {
	var states map[string]SessionState
	if err := json.Unmarshal(data, &states); err != nil || states == nil {
		return map[string]SessionState{}
	}
	return states
}
