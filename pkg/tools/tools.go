// Package tools defines the assistant's tool surface: document tracking,
// subscription tracking, life event checklists, long-term memory, and
// email notifications.
package tools

import (
	"fmt"
	"strings"
	"time"

	"lifeadmin/internal/config"
	"lifeadmin/pkg/memory"
	"lifeadmin/pkg/notify"
	"lifeadmin/pkg/store"
	"lifeadmin/pkg/toolexecutor"
)

// Deps are the services tool handlers operate on.
type Deps struct {
	Store  *store.Store
	Memory *memory.Store
	Digest *notify.Digest
	Mailer notify.Sender
	SMTP   config.SMTPConfig
}

// All returns every tool definition. Memory tools are omitted when no
// memory store is configured, notification tools when no mailer is.
func All(deps Deps) []toolexecutor.ToolDefinition {
	defs := DocumentTools(deps.Store)
	defs = append(defs, SubscriptionTools(deps.Store)...)
	defs = append(defs, ChecklistTools(deps.Store)...)
	if deps.Memory != nil {
		defs = append(defs, MemoryTools(deps.Memory)...)
	}
	if deps.Digest != nil {
		defs = append(defs, NotificationTools(deps.Digest, deps.Mailer, deps.SMTP)...)
	}
	return defs
}

// Parameter accessors. LLM tool calls arrive as loosely typed JSON, so
// numbers may be float64 even for integer parameters.

func strParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func floatParam(params map[string]interface{}, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func boolParam(params map[string]interface{}, key string) bool {
	v, _ := params[key].(bool)
	return v
}

func formatDate(date string) string {
	t, err := time.Parse(store.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
