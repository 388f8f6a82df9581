package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// normalizeUsername makes logins case-insensitive: usernames are stored
// and matched lowercase.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SessionTTL is how long a web login stays valid.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidCredentials is returned when a login fails.
var ErrInvalidCredentials = errors.New("invalid username or password")

// User is a web interface account.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// HashPassword returns the hex sha256 digest used for stored passwords.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CreateUser registers a new account.
func (s *Store) CreateUser(ctx context.Context, username, password string) (User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return User{}, errors.New("username is required")
	}
	if len(password) < 4 {
		return User{}, errors.New("password must be at least 4 characters")
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, HashPassword(password), now.Unix(),
	)
	if err != nil {
		return User{}, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	id, _ := result.LastInsertId()
	s.logger.Info().Str("username", username).Msg("User registered")
	return User{ID: id, Username: username, CreatedAt: now}, nil
}

// Authenticate checks credentials and issues a session token.
func (s *Store) Authenticate(ctx context.Context, username, password string) (string, error) {
	username = normalizeUsername(username)
	var userID int64
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, password_hash FROM users WHERE username = ?", username).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if hash != HashPassword(password) {
		return "", ErrInvalidCredentials
	}

	token, err := gonanoid.New(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	expires := time.Now().Add(SessionTTL)
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expires.Unix(),
	); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info().Str("username", username).Msg("User logged in")
	return token, nil
}

// ValidateSession resolves a session token to its user. Expired sessions
// are removed as a side effect.
func (s *Store) ValidateSession(ctx context.Context, token string) (User, error) {
	var user User
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.created_at, se.expires_at
		FROM sessions se
		JOIN users u ON se.user_id = u.id
		WHERE se.token = ?
	`, token).Scan(&user.ID, &user.Username, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if time.Now().Unix() >= expiresAt {
		s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
		return User{}, ErrInvalidCredentials
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return user, nil
}

// Logout deletes a session token.
func (s *Store) Logout(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// PruneSessions removes expired sessions, returning how many were deleted.
func (s *Store) PruneSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// CountUsers reports how many accounts exist.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}
