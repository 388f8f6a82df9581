// Package memory persists long-term user memories across chat sessions.
// Memories carry a type, an importance weight, and optionally a vector
// embedding used for semantic recall.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// Memory types.
const (
	TypeFact       = "fact"
	TypePreference = "preference"
	TypeContext    = "context"
	TypeSummary    = "summary"
)

// DefaultUserID scopes memories when no user is configured.
const DefaultUserID = "default"

// Entry is a single stored memory.
type Entry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	Importance   float64   `json:"importance"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`
}

// RecallResult is a memory with its retrieval score.
type RecallResult struct {
	Entry
	Score float64 `json:"score"`
}

// Store handles memory persistence and recall. All operations are
// scoped to the configured user.
type Store struct {
	db                *sql.DB
	userID            string
	logger            zerolog.Logger
	embeddingProvider EmbeddingProvider
	mu                sync.Mutex
}

// Config holds memory store configuration.
type Config struct {
	DBPath            string
	UserID            string // Defaults to DefaultUserID
	Logger            zerolog.Logger
	EmbeddingProvider EmbeddingProvider // Optional, if nil recall falls back to keyword matching
}

// NewStore opens the memory database and creates the schema.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	userID := cfg.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	s := &Store{
		db:                db,
		userID:            userID,
		logger:            cfg.Logger,
		embeddingProvider: cfg.EmbeddingProvider,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", cfg.DBPath).Msg("Memory store initialized")
	return s, nil
}

// initSchema creates database tables
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT 'default',
			memory_type TEXT NOT NULL,
			content TEXT NOT NULL,
			importance REAL NOT NULL DEFAULT 0.5,
			created_at INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
		CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
		CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Create vector table if embedding provider is available
	if s.embeddingProvider != nil {
		dimension := s.embeddingProvider.Dimension()
		vectorSchema := fmt.Sprintf(`
			CREATE VIRTUAL TABLE IF NOT EXISTS memory_embeddings USING vec0(
				memory_id TEXT PRIMARY KEY,
				embedding float[%d] distance_metric=cosine
			);
		`, dimension)

		if _, err := s.db.Exec(vectorSchema); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
	}

	return nil
}

func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Remember stores a new memory, embedding it when a provider is configured.
func (s *Store) Remember(ctx context.Context, memType, content string, importance float64) (Entry, error) {
	if content == "" {
		return Entry{}, errors.New("memory content is required")
	}
	switch memType {
	case TypeFact, TypePreference, TypeContext, TypeSummary:
	default:
		memType = TypeFact
	}

	now := time.Now()
	entry := Entry{
		ID:           uuid.NewString(),
		UserID:       s.userID,
		Type:         memType,
		Content:      content,
		Importance:   clampImportance(importance),
		CreatedAt:    now,
		LastAccessed: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, memory_type, content, importance, created_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		entry.ID, entry.UserID, entry.Type, entry.Content, entry.Importance, now.Unix(), now.Unix(),
	); err != nil {
		return Entry{}, fmt.Errorf("failed to store memory: %w", err)
	}

	if s.embeddingProvider != nil {
		if err := s.storeEmbedding(ctx, entry.ID, content); err != nil {
			// Keyword recall still works without the vector
			s.logger.Warn().Err(err).Str("memory_id", entry.ID).Msg("Failed to store embedding")
		}
	}

	s.logger.Debug().Str("id", entry.ID).Str("type", memType).Msg("Memory stored")
	return entry, nil
}

func (s *Store) storeEmbedding(ctx context.Context, memoryID, content string) error {
	embedding, err := s.embeddingProvider.GenerateEmbedding(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO memory_embeddings (memory_id, embedding) VALUES (?, ?)",
		memoryID, string(embeddingJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding in vector table: %w", err)
	}

	return nil
}

// List returns memories of the given type (or all types when empty),
// ordered by importance then recency. Returned memories have their access
// stats bumped.
func (s *Store) List(ctx context.Context, memType string, limit int, minImportance float64) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, user_id, memory_type, content, importance, created_at, last_accessed, access_count
		FROM memories WHERE user_id = ? AND importance >= ?`
	args := []interface{}{s.userID, minImportance}
	if memType != "" {
		query += " AND memory_type = ?"
		args = append(args, memType)
	}
	query += " ORDER BY importance DESC, last_accessed DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.touch(ctx, entries)
	return entries, nil
}

// touch bumps last_accessed and access_count for the given entries.
func (s *Store) touch(ctx context.Context, entries []Entry) {
	if len(entries) == 0 {
		return
	}

	ids := make([]interface{}, 0, len(entries)+1)
	ids = append(ids, time.Now().Unix())
	placeholders := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf(
		"UPDATE memories SET last_accessed = ?, access_count = access_count + 1 WHERE id IN (%s)",
		strings.Join(placeholders, ","),
	)
	if _, err := s.db.ExecContext(ctx, query, ids...); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to update memory access stats")
	}
}

// Recall finds memories relevant to a query. With an embedding provider it
// runs a vector similarity search and falls back to keyword matching when
// that fails or is unavailable.
func (s *Store) Recall(ctx context.Context, query string, limit int) ([]RecallResult, error) {
	if query == "" {
		return []RecallResult{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	if s.embeddingProvider != nil {
		results, err := s.vectorRecall(ctx, query, limit)
		if err == nil {
			return results, nil
		}
		s.logger.Warn().Err(err).Msg("Vector recall failed, using keyword matching")
	}

	return s.keywordRecall(ctx, query, limit)
}

func (s *Store) vectorRecall(ctx context.Context, query string, limit int) ([]RecallResult, error) {
	embedding, err := s.embeddingProvider.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, m.memory_type, m.content, m.importance, m.created_at, m.last_accessed, m.access_count,
			vec_distance_cosine(e.embedding, ?) as distance
		FROM memory_embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE m.user_id = ?
		ORDER BY distance ASC
		LIMIT ?
	`, string(embeddingJSON), s.userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RecallResult
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var distance float64
		var created, accessed int64
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Content, &entry.Importance, &created, &accessed, &entry.AccessCount, &distance); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(created, 0)
		entry.LastAccessed = time.Unix(accessed, 0)

		// cosine distance is [0, 2], map to similarity [0, 1]
		results = append(results, RecallResult{Entry: entry, Score: 1.0 - distance/2})
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.touch(ctx, entries)
	return results, nil
}

func (s *Store) keywordRecall(ctx context.Context, query string, limit int) ([]RecallResult, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []RecallResult{}, nil
	}

	entries, err := s.List(ctx, "", 200, 0)
	if err != nil {
		return nil, err
	}

	var results []RecallResult
	for _, entry := range entries {
		content := strings.ToLower(entry.Content)
		matched := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(terms))
		results = append(results, RecallResult{Entry: entry, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Importance > results[j].Importance
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// RelevantContext formats high-importance facts, preferences, and the most
// recent summary into a block for the system prompt. Returns "" when there
// is nothing worth injecting.
func (s *Store) RelevantContext(ctx context.Context, limit int) (string, error) {
	if limit <= 0 {
		limit = 5
	}

	facts, err := s.List(ctx, TypeFact, limit, 0.3)
	if err != nil {
		return "", err
	}
	prefs, err := s.List(ctx, TypePreference, 3, 0.5)
	if err != nil {
		return "", err
	}
	summaries, err := s.List(ctx, TypeSummary, 1, 0)
	if err != nil {
		return "", err
	}

	var parts []string
	if len(facts) > 0 {
		parts = append(parts, "**Known facts about user:**")
		for _, f := range facts {
			parts = append(parts, "- "+f.Content)
		}
	}
	if len(prefs) > 0 {
		parts = append(parts, "\n**User preferences:**")
		for _, p := range prefs {
			parts = append(parts, "- "+p.Content)
		}
	}
	if len(summaries) > 0 {
		parts = append(parts, "\n**Last session summary:** "+summaries[0].Content)
	}

	return strings.Join(parts, "\n"), nil
}

// UpdateImportance changes a memory's importance weight.
func (s *Store) UpdateImportance(ctx context.Context, id string, importance float64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE memories SET importance = ? WHERE id = ? AND user_id = ?",
		clampImportance(importance), id, s.userID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("memory %s not found", id)
	}
	return nil
}

// Forget deletes a memory and its embedding.
func (s *Store) Forget(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ? AND user_id = ?", id, s.userID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("memory %s not found", id)
	}

	if s.embeddingProvider != nil {
		s.db.ExecContext(ctx, "DELETE FROM memory_embeddings WHERE memory_id = ?", id)
	}

	s.logger.Debug().Str("id", id).Msg("Memory forgotten")
	return nil
}

// Cleanup removes memories not accessed within maxAge. Memories with
// importance 0.7 or higher are kept. Returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM memories WHERE user_id = ? AND last_accessed < ? AND importance < 0.7", s.userID, cutoff)
	if err != nil {
		return 0, err
	}

	n, _ := result.RowsAffected()
	if n > 0 {
		s.logger.Info().Int64("removed", n).Msg("Old memories cleaned up")
	}
	return n, nil
}

// Count reports how many memories are stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE user_id = ?", s.userID).Scan(&n)
	return n, err
}

// Close closes the memory store.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var entry Entry
	var created, accessed int64
	if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Content, &entry.Importance, &created, &accessed, &entry.AccessCount); err != nil {
		return Entry{}, err
	}
	entry.CreatedAt = time.Unix(created, 0)
	entry.LastAccessed = time.Unix(accessed, 0)
	return entry, nil
}
