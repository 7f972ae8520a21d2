package sessions

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string {
	return &s
}

func TestStartSession_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.StartSession(ctx, Session{
		ID:             "sess-1",
		StartedAt:      started,
		Source:         "startup",
		CWD:            "/work/app",
		PackageManager: strPtr("pnpm"),
		PMSource:       strPtr("lockfile"),
	}))

	sess, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.True(t, started.Equal(sess.StartedAt), "expected %s, got %s", started, sess.StartedAt)
	assert.Equal(t, "startup", sess.Source)
	assert.Equal(t, "/work/app", sess.CWD)
	require.NotNil(t, sess.PackageManager)
	assert.Equal(t, "pnpm", *sess.PackageManager)
	require.NotNil(t, sess.PMSource)
	assert.Equal(t, "lockfile", *sess.PMSource)
	assert.True(t, sess.Active())
}

func TestStartSession_RequiresID(t *testing.T) {
	store := openTestStore(t)

	err := store.StartSession(context.Background(), Session{Source: "startup", CWD: "/work"})
	assert.Error(t, err)
}

func TestStartSession_ResumeReopensSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StartSession(ctx, Session{ID: "sess-1", Source: "startup", CWD: "/work/app"}))
	require.NoError(t, store.EndSession(ctx, "sess-1", "exit", time.Now()))

	sess, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.False(t, sess.Active())

	require.NoError(t, store.StartSession(ctx, Session{
		ID:             "sess-1",
		Source:         "resume",
		CWD:            "/work/app",
		PackageManager: strPtr("yarn"),
	}))

	sess, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, sess.Active(), "resuming must clear the end marker")
	assert.Equal(t, "resume", sess.Source)
	require.NotNil(t, sess.PackageManager)
	assert.Equal(t, "yarn", *sess.PackageManager)
	assert.Nil(t, sess.EndReason)
}

func TestEndSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StartSession(ctx, Session{ID: "sess-1", Source: "startup", CWD: "/work"}))

	ended := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	require.NoError(t, store.EndSession(ctx, "sess-1", "prompt_input_exit", ended))

	sess, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, sess.EndedAt)
	assert.True(t, ended.Equal(*sess.EndedAt))
	require.NotNil(t, sess.EndReason)
	assert.Equal(t, "prompt_input_exit", *sess.EndReason)
	assert.False(t, sess.Active())
}

func TestEndSession_UnknownSession(t *testing.T) {
	store := openTestStore(t)

	err := store.EndSession(context.Background(), "ghost", "exit", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_UnknownSession(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogEvent_OrderPreserved(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StartSession(ctx, Session{ID: "sess-1", Source: "startup", CWD: "/work"}))

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"session_start", "pre_compact", "session_end"} {
		require.NoError(t, store.LogEvent(ctx, Event{
			SessionID: "sess-1",
			Name:      name,
			Detail:    strPtr(fmt.Sprintf(`{"seq":%d}`, i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := store.Events(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "session_start", events[0].Name)
	assert.Equal(t, "pre_compact", events[1].Name)
	assert.Equal(t, "session_end", events[2].Name)
	require.NotNil(t, events[1].Detail)
	assert.Contains(t, *events[1].Detail, "seq")
}

func TestLogEvent_Validation(t *testing.T) {
	store := openTestStore(t)

	assert.Error(t, store.LogEvent(context.Background(), Event{Name: "session_start"}))
	assert.Error(t, store.LogEvent(context.Background(), Event{SessionID: "sess-1"}))
}

func TestList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, store.StartSession(ctx, Session{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Source:    "startup",
			CWD:       "/work",
		}))
	}

	t.Run("newest first", func(t *testing.T) {
		list, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "newest", list[0].ID)
		assert.Equal(t, "middle", list[1].ID)
		assert.Equal(t, "oldest", list[2].ID)
	})

	t.Run("limit applies", func(t *testing.T) {
		list, err := store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "newest", list[0].ID)
	})
}

func TestOpenDefault_HonorsBasePath(t *testing.T) {
	base := t.TempDir()
	t.Setenv("TOOLBELT_BASE_PATH", base)

	store, err := OpenDefault(context.Background())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.StartSession(context.Background(), Session{ID: "sess-1", Source: "startup", CWD: "/work"}))

	_, err = store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
}
