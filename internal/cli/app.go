package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"lifeadmin/internal/config"
	"lifeadmin/internal/logger"
	"lifeadmin/pkg/agent"
	"lifeadmin/pkg/memory"
	"lifeadmin/pkg/notify"
	"lifeadmin/pkg/prompt"
	"lifeadmin/pkg/session"
	"lifeadmin/pkg/store"
	"lifeadmin/pkg/toolexecutor"
	"lifeadmin/pkg/tools"
)

// memoryRetention is how long unused low-importance memories are kept.
const memoryRetention = 180 * 24 * time.Hour

// app wires the shared components used by the chat, serve, and digest
// commands. Close releases them in reverse order of construction.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *store.Store
	memory   *memory.Store
	sessions *session.Manager
	executor *toolexecutor.ToolExecutor
	digest   *notify.Digest
	mailer   *notify.Mailer
	prompt   *prompt.Loader
	runner   *agent.Runner
}

// appOptions controls which optional components get wired.
type appOptions struct {
	// needModel requires a usable API token and builds the agent runner.
	needModel bool
	// console mirrors log output to stdout.
	console bool
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logger.New(logger.Config{
		Level:     level,
		File:      cfg.Logging.File,
		Console:   opts.console,
		Pretty:    opts.console,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	a.store, err = store.New(store.Config{
		DBPath: cfg.DatabasePath,
		Logger: log.GetZerolog(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if cfg.Memory.Enabled {
		var embeddings memory.EmbeddingProvider
		if cfg.Model.APIKey != "" {
			embeddings = memory.NewOpenAIProvider(cfg.Model.APIKey, cfg.Memory.EmbeddingModel, cfg.Model.BaseURL)
		}
		a.memory, err = memory.NewStore(memory.Config{
			DBPath:            cfg.Memory.DBPath,
			UserID:            cfg.Memory.UserID,
			Logger:            log.GetZerolog(),
			EmbeddingProvider: embeddings,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open memory store: %w", err)
		}
	}

	a.sessions, err = session.NewManager(session.Config{
		Dir:    filepath.Join(cfg.DataDir, "sessions"),
		Logger: log.GetZerolog(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	a.digest = notify.NewDigest(a.store)
	a.mailer = notify.NewMailer(cfg.SMTP, log.GetZerolog())

	a.executor = toolexecutor.New()
	if err := a.executor.RegisterAll(tools.All(tools.Deps{
		Store:  a.store,
		Memory: a.memory,
		Digest: a.digest,
		Mailer: a.mailer,
		SMTP:   cfg.SMTP,
	})); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	a.prompt, err = prompt.NewLoader(cfg.Agent.SystemPromptPath, log.GetZerolog())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load system prompt: %w", err)
	}

	if opts.needModel {
		if err := cfg.Validate(); err != nil {
			a.Close()
			return nil, err
		}
		a.runner, err = agent.NewRunner(agent.Config{
			Sessions:     a.sessions,
			ToolExecutor: a.executor,
			Memory:       a.memory,
			Logger:       log.GetZerolog(),
			AuthProfiles: []agent.AuthProfile{{
				ID:       cfg.Model.Provider,
				Provider: cfg.Model.Provider,
				APIKey:   cfg.Model.APIKey,
				BaseURL:  cfg.Model.BaseURL,
			}},
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create agent runner: %w", err)
		}
	}

	return a, nil
}

// agentConfig builds the per-run agent settings with the current system
// prompt. The prompt file may have changed on disk since startup.
func (a *app) agentConfig() agent.AgentConfig {
	return agent.AgentConfig{
		Model:        a.cfg.Model.Name,
		Temperature:  a.cfg.Model.Temperature,
		MaxTokens:    a.cfg.Model.MaxTokens,
		MaxRetries:   a.cfg.Model.MaxRetries,
		MaxHistory:   a.cfg.Agent.MaxHistory,
		SystemPrompt: a.prompt.Current(),
		UseMemory:    a.memory != nil,
	}
}

// runMaintenance prunes expired web sessions and stale low-importance
// memories. Errors are logged, startup continues regardless.
func (a *app) runMaintenance(ctx context.Context) {
	if n, err := a.store.PruneSessions(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to prune web sessions")
	} else if n > 0 {
		a.log.Info().Int64("count", n).Msg("pruned expired web sessions")
	}

	if a.memory != nil {
		if n, err := a.memory.Cleanup(ctx, memoryRetention); err != nil {
			a.log.Warn().Err(err).Msg("failed to clean up memories")
		} else if n > 0 {
			a.log.Info().Int64("count", n).Msg("cleaned up stale memories")
		}
	}
}

func (a *app) Close() {
	if a.prompt != nil {
		a.prompt.Close()
	}
	if a.memory != nil {
		a.memory.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.log != nil {
		a.log.Close()
	}
}
