package agent

import (
	"context"
	"fmt"
)

// GitHubModelsBaseURL is the OpenAI-compatible endpoint for GitHub Models.
const GitHubModelsBaseURL = "https://models.github.ai/inference"

// LLMProvider is an interface for LLM API providers.
type LLMProvider interface {
	// Call makes a single LLM API call.
	Call(ctx context.Context, request LLMRequest) (*LLMResponse, error)

	// Provider returns the provider name.
	Provider() string
}

// LLMRequest contains the parameters for an LLM call. Tools carry
// {name, description, input_schema} maps.
type LLMRequest struct {
	Model        string
	Messages     []Message
	Tools        []map[string]interface{}
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// LLMResponse contains the model's reply.
type LLMResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ProviderCreator creates LLM providers from auth profiles.
type ProviderCreator interface {
	NewProvider(profile AuthProfile) (LLMProvider, error)
}

// ProviderFactory creates providers for the supported backends. GitHub
// Models profiles use the OpenAI-compatible chat completions API.
type ProviderFactory struct{}

// NewProvider creates an LLM provider for an auth profile.
func (f *ProviderFactory) NewProvider(profile AuthProfile) (LLMProvider, error) {
	switch profile.Provider {
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey, profile.BaseURL), nil
	case "github":
		baseURL := profile.BaseURL
		if baseURL == "" {
			baseURL = GitHubModelsBaseURL
		}
		return NewOpenAIProvider(profile.APIKey, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}
