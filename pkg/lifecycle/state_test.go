package lifecycle

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_RecordCompaction(t *testing.T) {
	store := NewStateStore(t.TempDir())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	state, err := store.RecordCompaction("sess-1", TriggerManual, at)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Compactions)
	assert.Equal(t, TriggerManual, state.Trigger)
	assert.True(t, at.Equal(state.LastCompaction))

	state, err = store.RecordCompaction("sess-1", TriggerAuto, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, state.Compactions)
	assert.Equal(t, TriggerAuto, state.Trigger)
}

func TestStateStore_SessionsTrackedSeparately(t *testing.T) {
	store := NewStateStore(t.TempDir())
	now := time.Now().UTC()

	_, err := store.RecordCompaction("sess-1", TriggerAuto, now)
	require.NoError(t, err)
	_, err = store.RecordCompaction("sess-1", TriggerAuto, now)
	require.NoError(t, err)
	_, err = store.RecordCompaction("sess-2", TriggerManual, now)
	require.NoError(t, err)

	first, exists, err := store.Get("sess-1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 2, first.Compactions)

	second, exists, err := store.Get("sess-2")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 1, second.Compactions)
}

func TestStateStore_GetUnknownSession(t *testing.T) {
	store := NewStateStore(t.TempDir())

	_, exists, err := store.Get("ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStateStore_CorruptFileStartsFresh(t *testing.T) {
	cwd := t.TempDir()
	store := NewStateStore(cwd)

	require.NoError(t, os.MkdirAll(filepath.Join(cwd, ".toolbelt"), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	state, err := store.RecordCompaction("sess-1", TriggerAuto, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, state.Compactions)
}

func TestStateStore_ConcurrentRecording(t *testing.T) {
	store := NewStateStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RecordCompaction("sess-1", TriggerAuto, time.Now().UTC())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, exists, err := store.Get("sess-1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 16, state.Compactions)
}

func TestStateStore_ConcurrentStoreInstances(t *testing.T) {
	cwd := t.TempDir()

	// Separate stores share nothing but the file, like hook invocations
	// running in separate processes. Only the file lock serializes them.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store := NewStateStore(cwd)
			for j := 0; j < 4; j++ {
				_, err := store.RecordCompaction("sess-1", TriggerAuto, time.Now().UTC())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	state, exists, err := NewStateStore(cwd).Get("sess-1")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, 64, state.Compactions, "no update may be lost between stores that do not share a mutex")
}
