package tools

import (
	"context"
	"fmt"
	"strings"

	"lifeadmin/pkg/memory"
	"lifeadmin/pkg/toolexecutor"
)

// MemoryTools returns the long-term memory tools.
func MemoryTools(mem *memory.Store) []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		{
			Name:        "remember_user_fact",
			Description: "Store a fact about the user for future conversations (e.g., 'passport expires March 2027', 'has two kids').",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "fact", Type: "string", Description: "The fact to remember", Required: true},
				{Name: "importance", Type: "number", Description: "How important this fact is, 0.0 to 1.0", Required: false, Default: 0.5},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				fact := strParam(params, "fact")
				if fact == "" {
					return "❌ Nothing to remember. Provide a fact.", nil
				}
				if _, err := mem.Remember(ctx, memory.TypeFact, fact, floatParam(params, "importance", 0.5)); err != nil {
					return nil, err
				}
				return fmt.Sprintf("🧠 Got it, I'll remember: %s", fact), nil
			},
		},
		{
			Name:        "remember_user_preference",
			Description: "Store a user preference (e.g., 'prefers yearly billing', 'wants reminders a week early').",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "preference", Type: "string", Description: "The preference to remember", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				pref := strParam(params, "preference")
				if pref == "" {
					return "❌ Nothing to remember. Provide a preference.", nil
				}
				if _, err := mem.Remember(ctx, memory.TypePreference, pref, 0.7); err != nil {
					return nil, err
				}
				return fmt.Sprintf("🧠 Noted your preference: %s", pref), nil
			},
		},
		{
			Name:        "recall_user_context",
			Description: "Search stored memories about the user. Use when you need background the current conversation doesn't have.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "query", Type: "string", Description: "What to search for (e.g., 'passport', 'streaming services')", Required: true},
				{Name: "limit", Type: "integer", Description: "Maximum results to return", Required: false, Default: 5},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				results, err := mem.Recall(ctx, strParam(params, "query"), intParam(params, "limit", 5))
				if err != nil {
					return nil, err
				}
				if len(results) == 0 {
					return "🤷 I don't have any memories matching that.", nil
				}
				lines := []string{"🧠 **What I remember:**"}
				for _, r := range results {
					lines = append(lines, fmt.Sprintf("• [%s] %s", r.Entry.Type, r.Entry.Content))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "forget_memory",
			Description: "Delete a stored memory the user no longer wants kept.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "query", Type: "string", Description: "Text identifying the memory to forget", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				results, err := mem.Recall(ctx, strParam(params, "query"), 1)
				if err != nil {
					return nil, err
				}
				if len(results) == 0 {
					return "🤷 No matching memory found to forget.", nil
				}
				entry := results[0].Entry
				if err := mem.Forget(ctx, entry.ID); err != nil {
					return nil, err
				}
				return fmt.Sprintf("🗑️ Forgotten: %s", entry.Content), nil
			},
		},
	}
}
