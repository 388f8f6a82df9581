package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Message represents a single conversation turn.
type Message struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Entry is a message with its session key, as stored on disk.
type Entry struct {
	SessionKey string  `json:"session_key"`
	Message    Message `json:"message"`
}

// Manager persists conversations under a sessions directory, one JSONL
// file per session key.
type Manager struct {
	dir        string
	logger     zerolog.Logger
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

// Config holds manager configuration.
type Config struct {
	Dir    string
	Logger zerolog.Logger
}

// NewManager creates a Manager, creating the sessions directory if needed.
// An empty Dir defaults to ~/.lifeadmin/sessions.
func NewManager(cfg Config) (*Manager, error) {
	dir := cfg.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, ".lifeadmin", "sessions")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}

	m := &Manager{
		dir:        dir,
		logger:     cfg.Logger,
		writeLocks: make(map[string]*sync.Mutex),
	}
	m.logger.Info().Str("dir", dir).Msg("session manager initialized")
	return m, nil
}

// validateKey rejects keys that could escape the sessions directory.
func validateKey(sessionKey string) error {
	if sessionKey == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	if strings.Contains(sessionKey, "..") {
		return fmt.Errorf("session key cannot contain '..'")
	}
	if strings.ContainsAny(sessionKey, "/\\") {
		return fmt.Errorf("session key cannot contain path separators")
	}
	if strings.Contains(sessionKey, "\x00") {
		return fmt.Errorf("session key cannot contain null bytes")
	}
	return nil
}

func (m *Manager) path(sessionKey string) string {
	return filepath.Join(m.dir, sessionKey+".jsonl")
}

func (m *Manager) lock(sessionKey string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	if l, ok := m.writeLocks[sessionKey]; ok {
		return l
	}
	l := &sync.Mutex{}
	m.writeLocks[sessionKey] = l
	return l
}

// Append adds a message to a session, creating the session file on first
// write.
func (m *Manager) Append(ctx context.Context, sessionKey string, msg Message) error {
	if err := validateKey(sessionKey); err != nil {
		return err
	}
	if msg.Role == "" {
		return fmt.Errorf("message role cannot be empty")
	}
	if msg.Content == "" {
		return fmt.Errorf("message content cannot be empty")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l := m.lock(sessionKey)
	l.Lock()
	defer l.Unlock()

	file, err := os.OpenFile(m.path(sessionKey), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening session file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(Entry{SessionKey: sessionKey, Message: msg})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing session file: %w", err)
	}

	m.logger.Debug().Str("session_key", sessionKey).Str("role", msg.Role).Msg("message appended")
	return nil
}

// Load reads all messages from a session. A missing session yields an
// empty slice. Unparseable lines are skipped with a warning.
func (m *Manager) Load(ctx context.Context, sessionKey string) ([]Entry, error) {
	if err := validateKey(sessionKey); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(m.path(sessionKey))
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			m.logger.Warn().Str("session_key", sessionKey).Int("line", lineNum).Err(err).
				Msg("skipping unparseable session line")
			continue
		}
		if entry.Message.Role == "" || entry.Message.Content == "" {
			m.logger.Warn().Str("session_key", sessionKey).Int("line", lineNum).
				Msg("skipping invalid session entry")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return entries, nil
}

// Replace atomically rewrites a session with the given entries.
func (m *Manager) Replace(ctx context.Context, sessionKey string, entries []Entry) error {
	if err := validateKey(sessionKey); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l := m.lock(sessionKey)
	l.Lock()
	defer l.Unlock()

	path := m.path(sessionKey)
	tmp := path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	for _, entry := range entries {
		entry.SessionKey = sessionKey
		data, err := json.Marshal(entry)
		if err != nil {
			file.Close()
			os.Remove(tmp)
			return fmt.Errorf("marshaling entry: %w", err)
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			file.Close()
			os.Remove(tmp)
			return fmt.Errorf("writing entry: %w", err)
		}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// Delete removes a session file. Deleting a missing session is a no-op.
func (m *Manager) Delete(ctx context.Context, sessionKey string) error {
	if err := validateKey(sessionKey); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l := m.lock(sessionKey)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(m.path(sessionKey)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting session file: %w", err)
	}

	m.locksMu.Lock()
	delete(m.writeLocks, sessionKey)
	m.locksMu.Unlock()

	m.logger.Info().Str("session_key", sessionKey).Msg("session deleted")
	return nil
}

// List returns the keys of all stored sessions.
func (m *Manager) List() ([]string, error) {
	dirEntries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var sessions []string
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".jsonl") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(de.Name(), ".jsonl"))
	}
	return sessions, nil
}

// Repair rewrites a session file dropping corrupted lines.
func (m *Manager) Repair(ctx context.Context, sessionKey string) error {
	entries, err := m.Load(ctx, sessionKey)
	if err != nil {
		return err
	}
	if err := m.Replace(ctx, sessionKey, entries); err != nil {
		return err
	}
	m.logger.Info().Str("session_key", sessionKey).Int("entries", len(entries)).Msg("session repaired")
	return nil
}

// Info describes a stored session.
type Info struct {
	SessionKey   string    `json:"session_key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	MessageCount int       `json:"message_count"`
}

// GetInfo returns metadata about a session.
func (m *Manager) GetInfo(ctx context.Context, sessionKey string) (Info, error) {
	if err := validateKey(sessionKey); err != nil {
		return Info{}, err
	}

	stat, err := os.Stat(m.path(sessionKey))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, fmt.Errorf("session %q does not exist", sessionKey)
		}
		return Info{}, fmt.Errorf("stat session file: %w", err)
	}

	entries, err := m.Load(ctx, sessionKey)
	if err != nil {
		return Info{}, err
	}

	return Info{
		SessionKey:   sessionKey,
		Size:         stat.Size(),
		LastModified: stat.ModTime(),
		MessageCount: len(entries),
	}, nil
}
