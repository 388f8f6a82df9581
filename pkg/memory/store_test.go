package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{
		DBPath: filepath.Join(t.TempDir(), "memory.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRememberAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry, err := s.Remember(ctx, TypeFact, "User has two children", 0.8)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, TypeFact, entry.Type)
	assert.Equal(t, 0.8, entry.Importance)

	_, err = s.Remember(ctx, TypePreference, "Prefers email reminders", 0.6)
	require.NoError(t, err)

	facts, err := s.List(ctx, TypeFact, 10, 0)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "User has two children", facts[0].Content)

	all, err := s.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRememberValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Remember(ctx, TypeFact, "", 0.5)
	assert.Error(t, err)

	// Importance clamped to [0, 1]
	entry, err := s.Remember(ctx, TypeFact, "clamped high", 7)
	require.NoError(t, err)
	assert.Equal(t, 1.0, entry.Importance)

	entry, err = s.Remember(ctx, TypeFact, "clamped low", -3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, entry.Importance)

	// Unknown type defaults to fact
	entry, err = s.Remember(ctx, "rumor", "unknown type", 0.5)
	require.NoError(t, err)
	assert.Equal(t, TypeFact, entry.Type)
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Remember(ctx, TypeFact, "minor", 0.2)
	require.NoError(t, err)
	_, err = s.Remember(ctx, TypeFact, "major", 0.9)
	require.NoError(t, err)

	entries, err := s.List(ctx, TypeFact, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "major", entries[0].Content)

	important, err := s.List(ctx, TypeFact, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, important, 1)
	assert.Equal(t, "major", important[0].Content)
}

func TestListBumpsAccessCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Remember(ctx, TypeFact, "tracked", 0.5)
	require.NoError(t, err)

	_, err = s.List(ctx, TypeFact, 10, 0)
	require.NoError(t, err)

	entries, err := s.List(ctx, TypeFact, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].AccessCount)
}

func TestUserScoping(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")

	alice, err := NewStore(Config{DBPath: path, UserID: "alice", Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { alice.Close() })
	bob, err := NewStore(Config{DBPath: path, UserID: "bob", Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { bob.Close() })

	entry, err := alice.Remember(ctx, TypeFact, "Alice lives in Berlin", 0.8)
	require.NoError(t, err)
	assert.Equal(t, "alice", entry.UserID)
	_, err = bob.Remember(ctx, TypeFact, "Bob lives in Oslo", 0.8)
	require.NoError(t, err)

	entries, err := alice.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Alice lives in Berlin", entries[0].Content)

	// One user cannot reach into another's memories
	assert.Error(t, bob.Forget(ctx, entry.ID))
	assert.Error(t, bob.UpdateImportance(ctx, entry.ID, 0.1))

	count, err := bob.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := bob.Recall(ctx, "lives", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Bob lives in Oslo", results[0].Content)
}

func TestKeywordRecall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Remember(ctx, TypeFact, "User's passport expires in March", 0.7)
	require.NoError(t, err)
	_, err = s.Remember(ctx, TypeFact, "User drives a Honda", 0.5)
	require.NoError(t, err)

	results, err := s.Recall(ctx, "passport expiry", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "User's passport expires in March", results[0].Content)
	assert.Greater(t, results[0].Score, 0.0)

	none, err := s.Recall(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRelevantContext(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	block, err := s.RelevantContext(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, block)

	_, err = s.Remember(ctx, TypeFact, "Lives in Berlin", 0.8)
	require.NoError(t, err)
	_, err = s.Remember(ctx, TypePreference, "Prefers short answers", 0.9)
	require.NoError(t, err)
	_, err = s.Remember(ctx, TypeSummary, "Discussed passport renewal", 0.5)
	require.NoError(t, err)
	// Below the fact importance floor, should not appear
	_, err = s.Remember(ctx, TypeFact, "Trivial detail", 0.1)
	require.NoError(t, err)

	block, err = s.RelevantContext(ctx, 5)
	require.NoError(t, err)
	assert.Contains(t, block, "Lives in Berlin")
	assert.Contains(t, block, "Prefers short answers")
	assert.Contains(t, block, "Discussed passport renewal")
	assert.NotContains(t, block, "Trivial detail")
}

func TestForgetAndUpdateImportance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry, err := s.Remember(ctx, TypeFact, "temporary", 0.5)
	require.NoError(t, err)

	require.NoError(t, s.UpdateImportance(ctx, entry.ID, 0.9))
	entries, err := s.List(ctx, TypeFact, 10, 0.8)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Forget(ctx, entry.ID))
	assert.Error(t, s.Forget(ctx, entry.ID))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCleanupKeepsImportant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Remember(ctx, TypeFact, "disposable", 0.3)
	require.NoError(t, err)
	_, err = s.Remember(ctx, TypeFact, "keeper", 0.9)
	require.NoError(t, err)

	// Nothing is old enough yet
	removed, err := s.Cleanup(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// With a negative age everything is past the cutoff, but high
	// importance memories survive
	removed, err = s.Cleanup(ctx, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	entries, err := s.List(ctx, TypeFact, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keeper", entries[0].Content)
}
