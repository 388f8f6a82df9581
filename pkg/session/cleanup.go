package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultRetentionAge = 90 * 24 * time.Hour
	DefaultMaxEntries   = 500
)

// Cleanup enforces chat history retention: sessions idle longer than the
// retention age are deleted, and long sessions are pruned to the most
// recent entries.
type Cleanup struct {
	manager      *Manager
	logger       zerolog.Logger
	retentionAge time.Duration
	maxEntries   int
	stopCh       chan struct{}
	running      bool
}

// NewCleanup creates a cleanup handler. A zero retentionAge defaults to
// 90 days.
func NewCleanup(manager *Manager, retentionAge time.Duration, logger zerolog.Logger) *Cleanup {
	if retentionAge == 0 {
		retentionAge = DefaultRetentionAge
	}
	return &Cleanup{
		manager:      manager,
		logger:       logger,
		retentionAge: retentionAge,
		maxEntries:   DefaultMaxEntries,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the daily cleanup loop.
func (c *Cleanup) Start() error {
	if c.running {
		return fmt.Errorf("cleanup is already running")
	}
	c.running = true
	go c.run()

	c.logger.Info().Dur("retention_age", c.retentionAge).Msg("session cleanup started")
	return nil
}

// Stop stops the cleanup loop.
func (c *Cleanup) Stop() error {
	if !c.running {
		return fmt.Errorf("cleanup is not running")
	}
	close(c.stopCh)
	c.running = false

	c.logger.Info().Msg("session cleanup stopped")
	return nil
}

// IsRunning reports whether the cleanup loop is active.
func (c *Cleanup) IsRunning() bool {
	return c.running
}

// SetMaxEntries sets how many entries a session keeps after pruning.
// Zero disables pruning.
func (c *Cleanup) SetMaxEntries(maxEntries int) {
	c.maxEntries = maxEntries
}

func (c *Cleanup) run() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	if err := c.RunNow(context.Background()); err != nil {
		c.logger.Error().Err(err).Msg("session cleanup failed")
	}

	for {
		select {
		case <-ticker.C:
			if err := c.RunNow(context.Background()); err != nil {
				c.logger.Error().Err(err).Msg("session cleanup failed")
			}
		case <-c.stopCh:
			return
		}
	}
}

// RunNow applies retention immediately.
func (c *Cleanup) RunNow(ctx context.Context) error {
	sessions, err := c.manager.List()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	now := time.Now()
	deleted := 0
	for _, sessionKey := range sessions {
		info, err := c.manager.GetInfo(ctx, sessionKey)
		if err != nil {
			c.logger.Warn().Str("session_key", sessionKey).Err(err).Msg("failed to stat session")
			continue
		}

		if now.Sub(info.LastModified) >= c.retentionAge {
			if err := c.manager.Delete(ctx, sessionKey); err != nil {
				c.logger.Error().Str("session_key", sessionKey).Err(err).Msg("failed to delete session")
				continue
			}
			deleted++
			continue
		}

		if err := c.prune(ctx, sessionKey); err != nil {
			c.logger.Warn().Str("session_key", sessionKey).Err(err).Msg("failed to prune session")
		}
	}

	if deleted > 0 {
		c.logger.Info().Int("deleted", deleted).Msg("expired sessions removed")
	}
	return nil
}

func (c *Cleanup) prune(ctx context.Context, sessionKey string) error {
	if c.maxEntries <= 0 {
		return nil
	}

	entries, err := c.manager.Load(ctx, sessionKey)
	if err != nil {
		return err
	}
	if len(entries) <= c.maxEntries {
		return nil
	}

	pruned := entries[len(entries)-c.maxEntries:]
	if err := c.manager.Replace(ctx, sessionKey, pruned); err != nil {
		return err
	}

	c.logger.Debug().Str("session_key", sessionKey).
		Int("from", len(entries)).Int("to", len(pruned)).Msg("session pruned")
	return nil
}
