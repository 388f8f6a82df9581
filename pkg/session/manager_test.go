package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Dir: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	return m
}

func TestAppendAndLoad(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, "chat", Message{Role: "user", Content: "hello"}))
	require.NoError(t, m.Append(ctx, "chat", Message{Role: "assistant", Content: "hi there"}))

	entries, err := m.Load(ctx, "chat")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Message.Role)
	assert.Equal(t, "hello", entries[0].Message.Content)
	assert.Equal(t, "chat", entries[0].SessionKey)
	assert.False(t, entries[0].Message.Timestamp.IsZero())
}

func TestLoadMissingSession(t *testing.T) {
	m := newTestManager(t)

	entries, err := m.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	assert.Error(t, m.Append(ctx, "chat", Message{Role: "", Content: "x"}))
	assert.Error(t, m.Append(ctx, "chat", Message{Role: "user", Content: ""}))
}

func TestSessionKeyValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", "a\\b", "nul\x00"} {
		err := m.Append(ctx, key, Message{Role: "user", Content: "x"})
		assert.Error(t, err, "key %q should be rejected", key)
	}
}

func TestLoadSkipsCorruptedLines(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(Config{Dir: dir, Logger: zerolog.Nop()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, "chat", Message{Role: "user", Content: "first"}))

	f, err := os.OpenFile(filepath.Join(dir, "chat.jsonl"), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, m.Append(ctx, "chat", Message{Role: "assistant", Content: "second"}))

	entries, err := m.Load(ctx, "chat")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, m.Repair(ctx, "chat"))
	data, err := os.ReadFile(filepath.Join(dir, "chat.jsonl"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "{not json")
}

func TestDeleteAndList(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, "one", Message{Role: "user", Content: "a"}))
	require.NoError(t, m.Append(ctx, "two", Message{Role: "user", Content: "b"}))

	sessions, err := m.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two"}, sessions)

	require.NoError(t, m.Delete(ctx, "one"))
	require.NoError(t, m.Delete(ctx, "one"))

	sessions, err = m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, sessions)
}

func TestReplace(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Append(ctx, "chat", Message{Role: "user", Content: "msg"}))
	}

	entries, err := m.Load(ctx, "chat")
	require.NoError(t, err)
	require.NoError(t, m.Replace(ctx, "chat", entries[3:]))

	entries, err = m.Load(ctx, "chat")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGetInfo(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, "chat", Message{Role: "user", Content: "hello"}))

	info, err := m.GetInfo(ctx, "chat")
	require.NoError(t, err)
	assert.Equal(t, "chat", info.SessionKey)
	assert.Equal(t, 1, info.MessageCount)
	assert.Positive(t, info.Size)

	_, err = m.GetInfo(ctx, "missing")
	assert.ErrorContains(t, err, "does not exist")
}

func TestCleanupPrunesLongSessions(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Append(ctx, "chat", Message{Role: "user", Content: "msg"}))
	}

	c := NewCleanup(m, time.Hour, zerolog.Nop())
	c.SetMaxEntries(4)
	require.NoError(t, c.RunNow(ctx))

	entries, err := m.Load(ctx, "chat")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestCleanupDeletesExpiredSessions(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(Config{Dir: dir, Logger: zerolog.Nop()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, "old", Message{Role: "user", Content: "x"}))
	require.NoError(t, m.Append(ctx, "fresh", Message{Role: "user", Content: "y"}))

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.jsonl"), stale, stale))

	c := NewCleanup(m, 24*time.Hour, zerolog.Nop())
	require.NoError(t, c.RunNow(ctx))

	sessions, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, sessions)
}

func TestCleanupStartStop(t *testing.T) {
	m := newTestManager(t)
	c := NewCleanup(m, time.Hour, zerolog.Nop())

	require.NoError(t, c.Start())
	assert.True(t, c.IsRunning())
	assert.Error(t, c.Start())
	require.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
	assert.Error(t, c.Stop())
}
