package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lifeadmin/internal/tracing"
	"lifeadmin/pkg/memory"
	"lifeadmin/pkg/session"
	"lifeadmin/pkg/toolexecutor"
)

// defaultMaxHistory is the number of recent conversation messages sent
// to the model when the config does not set a window. Older messages
// are replaced by a short summary marker in the system prompt.
const defaultMaxHistory = 20

// maxToolTurns caps the tool execution loop per run.
const maxToolTurns = 10

// Runner orchestrates agent execution.
type Runner struct {
	sessions        *session.Manager
	toolExecutor    *toolexecutor.ToolExecutor
	memory          *memory.Store
	logger          zerolog.Logger
	providerFactory ProviderCreator

	authProfiles []AuthProfile
	authMu       sync.RWMutex

	// Per-session serialization and abort support.
	sessionLocks map[string]*sync.Mutex
	activeRuns   map[string]context.CancelFunc
	runsMu       sync.Mutex
}

// Config holds runner configuration. Memory is optional.
type Config struct {
	Sessions        *session.Manager
	ToolExecutor    *toolexecutor.ToolExecutor
	Memory          *memory.Store
	Logger          zerolog.Logger
	AuthProfiles    []AuthProfile
	ProviderFactory ProviderCreator
}

// NewRunner creates an agent runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.ToolExecutor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if len(cfg.AuthProfiles) == 0 {
		return nil, fmt.Errorf("at least one auth profile is required")
	}

	factory := cfg.ProviderFactory
	if factory == nil {
		factory = &ProviderFactory{}
	}

	return &Runner{
		sessions:        cfg.Sessions,
		toolExecutor:    cfg.ToolExecutor,
		memory:          cfg.Memory,
		logger:          cfg.Logger,
		providerFactory: factory,
		authProfiles:    cfg.AuthProfiles,
		sessionLocks:    make(map[string]*sync.Mutex),
		activeRuns:      make(map[string]context.CancelFunc),
	}, nil
}

// Run executes an agent turn with the given parameters.
func (r *Runner) Run(ctx context.Context, params RunParams) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	ctx = tracing.WithSessionKey(ctx, params.SessionKey)
	logger := tracing.LoggerFromContext(ctx, r.logger).With().Str("session_key", params.SessionKey).Logger()

	if err := r.validateConfig(params.Config); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}

	lock := r.sessionLock(params.SessionKey)
	lock.Lock()
	defer lock.Unlock()

	result, err := r.execute(ctx, logger, params)
	if err != nil {
		logger.Error().Err(err).Msg("agent run failed")
		return Result{}, err
	}
	return result, nil
}

// Abort cancels a running agent execution for a session.
func (r *Runner) Abort(sessionKey string) error {
	r.runsMu.Lock()
	defer r.runsMu.Unlock()

	cancel, exists := r.activeRuns[sessionKey]
	if !exists {
		r.logger.Debug().Str("session_key", sessionKey).Msg("no active run to abort")
		return nil
	}

	r.logger.Info().Str("session_key", sessionKey).Msg("aborting agent run")
	cancel()
	delete(r.activeRuns, sessionKey)
	return nil
}

// IsRunning reports whether an agent is currently running for a session.
func (r *Runner) IsRunning(sessionKey string) bool {
	r.runsMu.Lock()
	defer r.runsMu.Unlock()

	_, exists := r.activeRuns[sessionKey]
	return exists
}

func (r *Runner) sessionLock(sessionKey string) *sync.Mutex {
	r.runsMu.Lock()
	defer r.runsMu.Unlock()

	if l, ok := r.sessionLocks[sessionKey]; ok {
		return l
	}
	l := &sync.Mutex{}
	r.sessionLocks[sessionKey] = l
	return l
}

func (r *Runner) execute(ctx context.Context, logger zerolog.Logger, params RunParams) (Result, error) {
	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.runsMu.Lock()
	r.activeRuns[params.SessionKey] = cancel
	r.runsMu.Unlock()
	defer func() {
		r.runsMu.Lock()
		delete(r.activeRuns, params.SessionKey)
		r.runsMu.Unlock()
	}()

	history, err := r.sessions.Load(execCtx, params.SessionKey)
	if err != nil {
		return Result{}, fmt.Errorf("loading session history: %w", err)
	}

	messages := r.buildMessages(execCtx, history, params)
	tools := r.buildTools()

	if err := r.sessions.Append(execCtx, params.SessionKey, session.Message{
		Role:    "user",
		Content: params.Prompt,
	}); err != nil {
		return Result{}, fmt.Errorf("saving user message: %w", err)
	}

	result, err := r.executeWithFailover(execCtx, logger, messages, tools, params)
	if err != nil {
		return Result{}, err
	}
	if result.Aborted {
		result.SessionKey = params.SessionKey
		return result, nil
	}

	if err := r.sessions.Append(execCtx, params.SessionKey, session.Message{
		Role:    "assistant",
		Content: result.Response,
		Metadata: map[string]interface{}{
			"model": params.Config.Model,
			"usage": result.Usage,
		},
	}); err != nil {
		return Result{}, fmt.Errorf("saving assistant message: %w", err)
	}

	result.SessionKey = params.SessionKey
	return result, nil
}

func (r *Runner) validateConfig(config AgentConfig) error {
	if config.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if config.MaxHistory < 0 {
		return fmt.Errorf("max history cannot be negative")
	}
	return nil
}

// buildMessages assembles the model conversation: system prompt with
// optional memory context, a windowed history, and the new user prompt.
func (r *Runner) buildMessages(ctx context.Context, history []session.Entry, params RunParams) []Message {
	systemPrompt := params.Config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are a helpful assistant."
	}

	if params.Config.UseMemory && r.memory != nil {
		memoryContext, err := r.memory.RelevantContext(ctx, 5)
		if err != nil {
			logger := tracing.LoggerFromContext(ctx, r.logger)
			logger.Warn().Err(err).Msg("failed to load memory context")
		} else if memoryContext != "" {
			systemPrompt = fmt.Sprintf("%s\n\n# What you know about the user\n\n%s", systemPrompt, memoryContext)
		}
	}

	window := params.Config.MaxHistory
	if window <= 0 {
		window = defaultMaxHistory
	}
	if len(history) > window {
		dropped := len(history) - window
		// The trim marker rides on the system prompt so both provider
		// APIs actually deliver it.
		systemPrompt = fmt.Sprintf("%s\n\n[Earlier conversation trimmed: %d messages]", systemPrompt, dropped)
		history = history[dropped:]
	}

	messages := []Message{{Role: "system", Content: systemPrompt}}
	for _, entry := range history {
		messages = append(messages, Message{
			Role:    entry.Message.Role,
			Content: entry.Message.Content,
		})
	}

	return append(messages, Message{Role: "user", Content: params.Prompt})
}

// buildTools exposes every registered tool to the model.
func (r *Runner) buildTools() []map[string]interface{} {
	defs := r.toolExecutor.Definitions()
	tools := make([]map[string]interface{}, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, map[string]interface{}{
			"name":         def.Name,
			"description":  def.Description,
			"input_schema": toolexecutor.SchemaMap(def),
		})
	}
	return tools
}

// executeWithFailover tries auth profiles in priority order, skipping
// profiles in cooldown.
func (r *Runner) executeWithFailover(ctx context.Context, logger zerolog.Logger, messages []Message, tools []map[string]interface{}, params RunParams) (Result, error) {
	r.authMu.RLock()
	profiles := make([]AuthProfile, len(r.authProfiles))
	copy(profiles, r.authProfiles)
	r.authMu.RUnlock()

	sort.SliceStable(profiles, func(i, j int) bool { return profiles[i].Priority < profiles[j].Priority })

	var lastErr error
	for _, profile := range profiles {
		if profile.CooldownUntil != nil && time.Now().UnixMilli() < *profile.CooldownUntil {
			logger.Debug().Str("profile_id", profile.ID).Msg("skipping profile in cooldown")
			continue
		}

		provider, err := r.providerFactory.NewProvider(profile)
		if err != nil {
			logger.Warn().Str("profile_id", profile.ID).Err(err).Msg("failed to create provider")
			continue
		}

		logger.Debug().Str("profile_id", profile.ID).Str("provider", provider.Provider()).Msg("trying auth profile")

		result, err := r.executeWithTools(ctx, logger, provider, messages, tools, params)
		if err == nil {
			r.updateProfileSuccess(profile.ID)
			return result, nil
		}

		lastErr = err
		logger.Warn().Str("profile_id", profile.ID).Err(err).Msg("auth profile failed")
		r.updateProfileFailure(profile.ID)

		if !IsRetryableError(err) {
			return Result{}, err
		}
	}

	if lastErr == nil {
		return Result{}, fmt.Errorf("no usable auth profiles")
	}
	return Result{}, fmt.Errorf("all auth profiles failed: %w", lastErr)
}

// executeWithTools drives the tool loop until the model answers without
// requesting tools.
func (r *Runner) executeWithTools(ctx context.Context, logger zerolog.Logger, provider LLMProvider, messages []Message, tools []map[string]interface{}, params RunParams) (Result, error) {
	currentMessages := messages
	allToolCalls := []ToolCall{}

	systemPrompt := ""
	for _, msg := range messages {
		if msg.Role == "system" {
			systemPrompt = msg.Content
			break
		}
	}

	for turn := 0; turn < maxToolTurns; turn++ {
		select {
		case <-ctx.Done():
			return Result{Aborted: true}, nil
		default:
		}

		response, err := r.callWithRetry(ctx, logger, provider, currentMessages, tools, systemPrompt, params)
		if err != nil {
			return Result{}, err
		}

		if len(response.ToolCalls) == 0 {
			return Result{
				Response:  response.Content,
				ToolCalls: allToolCalls,
				Usage:     response.Usage,
			}, nil
		}

		replies := make([]ToolReply, 0, len(response.ToolCalls))
		for _, toolCall := range response.ToolCalls {
			logger.Debug().Str("tool", toolCall.Name).Msg("executing tool call")
			result := r.toolExecutor.Execute(ctx, toolCall.Name, toolCall.Parameters)
			replies = append(replies, ToolReply{
				ToolCallID: toolCall.ID,
				Output:     fmt.Sprintf("%v", result.Output),
				Error:      result.Error,
			})
		}

		currentMessages = append(currentMessages, Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		for _, reply := range replies {
			content := reply.Output
			if reply.Error != "" {
				content = reply.Error
			}
			currentMessages = append(currentMessages, Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: reply.ToolCallID,
			})
		}

		allToolCalls = append(allToolCalls, response.ToolCalls...)
	}

	return Result{}, fmt.Errorf("maximum tool execution turns exceeded")
}

// callWithRetry calls the model with exponential backoff, 1s then 2s
// then 4s.
func (r *Runner) callWithRetry(ctx context.Context, logger zerolog.Logger, provider LLMProvider, messages []Message, tools []map[string]interface{}, systemPrompt string, params RunParams) (*LLMResponse, error) {
	maxRetries := params.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	request := LLMRequest{
		Model:        params.Config.Model,
		Messages:     messages,
		Tools:        tools,
		Temperature:  params.Config.Temperature,
		MaxTokens:    params.Config.MaxTokens,
		SystemPrompt: systemPrompt,
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		response, err := provider.Call(ctx, request)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			return nil, err
		}
		if attempt == maxRetries-1 {
			break
		}

		delay := time.Duration(1000*(1<<attempt)) * time.Millisecond
		logger.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

func (r *Runner) updateProfileSuccess(profileID string) {
	r.authMu.Lock()
	defer r.authMu.Unlock()

	for i := range r.authProfiles {
		if r.authProfiles[i].ID == profileID {
			r.authProfiles[i].FailureCount = 0
			r.authProfiles[i].CooldownUntil = nil
			break
		}
	}
}

// updateProfileFailure puts a profile in cooldown, one minute per
// consecutive failure.
func (r *Runner) updateProfileFailure(profileID string) {
	r.authMu.Lock()
	defer r.authMu.Unlock()

	for i := range r.authProfiles {
		if r.authProfiles[i].ID == profileID {
			r.authProfiles[i].FailureCount++
			cooldown := time.Now().UnixMilli() + int64(60000*r.authProfiles[i].FailureCount)
			r.authProfiles[i].CooldownUntil = &cooldown
			break
		}
	}
}
