package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifeadmin/pkg/store"
	"lifeadmin/pkg/templates"
	"lifeadmin/pkg/toolexecutor"
)

// ChecklistTools returns the life event and checklist tools.
func ChecklistTools(st *store.Store) []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		{
			Name:        "get_available_events",
			Description: "List the life event types that have ready-made checklists (moving, new job, buying a car, etc.).",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				lines := []string{"📋 **Available Life Event Checklists**\n"}
				for _, eventType := range templates.Types() {
					tpl, _ := templates.Get(eventType)
					if eventType == "custom" {
						lines = append(lines, fmt.Sprintf("• **%s** - %s", tpl.Title, tpl.Description))
						continue
					}
					lines = append(lines, fmt.Sprintf("• **%s** (%s) - %s", tpl.Title, plural(len(tpl.Tasks), "task"), eventType))
				}
				lines = append(lines, "\nStart one with start_life_event!")
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "start_life_event",
			Description: "Start tracking a life event with a checklist. Use a built-in event type for a ready-made checklist, or 'custom' with your own tasks.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "event_type", Type: "string", Description: "Type of life event (see get_available_events), or 'custom'", Required: true},
				{Name: "title", Type: "string", Description: "A title for this event (e.g., 'Moving to Berlin')", Required: false},
				{Name: "target_date", Type: "string", Description: "Target completion date in YYYY-MM-DD format", Required: false},
				{Name: "custom_tasks", Type: "array", Description: "Task descriptions for a custom event", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				eventType := strings.ToLower(strParam(params, "event_type"))
				tasks, err := templates.Tasks(eventType)
				if err != nil {
					return fmt.Sprintf("❌ %s", err), nil
				}
				if eventType == "custom" {
					tasks = customTasks(params)
					if len(tasks) == 0 {
						return "❌ A custom event needs at least one task in custom_tasks.", nil
					}
				}

				title := strParam(params, "title")
				if title == "" {
					tpl, _ := templates.Get(eventType)
					title = tpl.Title
				}

				event, err := st.CreateLifeEvent(ctx, store.LifeEvent{
					Title:      title,
					EventType:  eventType,
					TargetDate: strParam(params, "target_date"),
					Checklist:  tasks,
				})
				if err != nil {
					return nil, err
				}

				lines := []string{
					fmt.Sprintf("🎯 **%s** checklist started!", event.Title),
					fmt.Sprintf("📋 %s to complete", plural(len(event.Checklist), "task")),
				}
				if event.TargetDate != "" {
					if days, ok := event.DaysUntilTarget(time.Now()); ok {
						lines = append(lines, fmt.Sprintf("📅 Target: %s (%d days away)", formatDate(event.TargetDate), days))
					}
				}
				lines = append(lines, "\nAsk for the checklist anytime to see your progress!")
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "get_checklist",
			Description: "Show the checklist for an active life event, grouped by category with progress. Omit event_type to see every active event.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "event_type", Type: "string", Description: "The event type to show (omit to show all active events)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				eventType := strParam(params, "event_type")
				if eventType == "" {
					events, err := st.ListLifeEvents(ctx, true)
					if err != nil {
						return nil, err
					}
					if len(events) == 0 {
						return "📭 No active life events. Start one with start_life_event!", nil
					}
					blocks := make([]string, 0, len(events))
					for _, event := range events {
						blocks = append(blocks, formatChecklist(event))
					}
					return strings.Join(blocks, "\n\n"), nil
				}
				event, errMsg, err := findLifeEvent(ctx, st, eventType)
				if err != nil {
					return nil, err
				}
				if errMsg != "" {
					return errMsg, nil
				}
				return formatChecklist(event), nil
			},
		},
		{
			Name:        "mark_task_complete",
			Description: "Mark a checklist task as complete. Matches the task by a distinctive part of its description.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "task_description", Type: "string", Description: "Part of the task text to match (e.g., 'utilities' matches 'Set up utilities')", Required: true},
				{Name: "event_type", Type: "string", Description: "The event type the task belongs to (omit if only one event is active)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				event, errMsg, err := findLifeEvent(ctx, st, strParam(params, "event_type"))
				if err != nil {
					return nil, err
				}
				if errMsg != "" {
					return errMsg, nil
				}

				needle := strings.ToLower(strParam(params, "task_description"))
				idx := -1
				for i, task := range event.Checklist {
					if strings.Contains(strings.ToLower(task.Text), needle) {
						idx = i
						break
					}
				}
				if idx < 0 {
					return fmt.Sprintf("❌ No task matching '%s' found in %s. Ask for the checklist to see all tasks.",
						strParam(params, "task_description"), event.Title), nil
				}
				if event.Checklist[idx].Done {
					return fmt.Sprintf("✅ '%s' is already marked complete!", event.Checklist[idx].Text), nil
				}

				updated, err := st.SetTaskDone(ctx, event.ID, idx, true)
				if err != nil {
					return nil, err
				}

				done, total, percent := updated.Progress()
				if done == total {
					if _, err := st.CompleteLifeEvent(ctx, updated.ID); err != nil {
						return nil, err
					}
					return fmt.Sprintf(
						"🎉 **Congratulations!** You completed '%s' and with it the entire **%s** checklist! All %d tasks done!",
						updated.Checklist[idx].Text, updated.Title, total,
					), nil
				}
				return fmt.Sprintf(
					"✅ Done: '%s'\n📊 Progress: %d/%d tasks (%.1f%%)",
					updated.Checklist[idx].Text, done, total, percent,
				), nil
			},
		},
		{
			Name:        "list_life_events",
			Description: "List all life events being tracked with their progress.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "include_completed", Type: "boolean", Description: "Include completed events", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				events, err := st.ListLifeEvents(ctx, !boolParam(params, "include_completed"))
				if err != nil {
					return nil, err
				}
				if len(events) == 0 {
					return "📭 No life events being tracked. Start one with start_life_event!", nil
				}

				now := time.Now()
				lines := []string{fmt.Sprintf("🎯 **Your Life Events** (%d)\n", len(events))}
				for _, event := range events {
					done, total, percent := event.Progress()
					marker := "🔵"
					if event.Completed {
						marker = "✅"
					}
					lines = append(lines, fmt.Sprintf("%s **%s** - %d/%d tasks (%.1f%%)", marker, event.Title, done, total, percent))
					if days, ok := event.DaysUntilTarget(now); ok && !event.Completed {
						if days < 0 {
							lines = append(lines, fmt.Sprintf("     📅 Target date passed %d days ago", -days))
						} else {
							lines = append(lines, fmt.Sprintf("     📅 %d days until %s", days, formatDate(event.TargetDate)))
						}
					}
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "add_task_to_checklist",
			Description: "Add a new task to an active life event's checklist.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "task_description", Type: "string", Description: "The task to add", Required: true},
				{Name: "category", Type: "string", Description: "Checklist category/phase for the task", Required: false},
				{Name: "event_type", Type: "string", Description: "The event type (omit if only one event is active)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				event, errMsg, err := findLifeEvent(ctx, st, strParam(params, "event_type"))
				if err != nil {
					return nil, err
				}
				if errMsg != "" {
					return errMsg, nil
				}
				text := strParam(params, "task_description")
				if text == "" {
					return "❌ Task description cannot be empty.", nil
				}
				category := strParam(params, "category")
				if category == "" {
					category = "Other"
				}
				updated, err := st.AddTask(ctx, event.ID, store.ChecklistTask{Text: text, Category: category})
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Added '%s' to %s (%d tasks now).", text, updated.Title, len(updated.Checklist)), nil
			},
		},
		{
			Name:        "remove_task_from_checklist",
			Description: "Remove a task from an active life event's checklist.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "task_description", Type: "string", Description: "Part of the task text to match", Required: true},
				{Name: "event_type", Type: "string", Description: "The event type (omit if only one event is active)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				event, errMsg, err := findLifeEvent(ctx, st, strParam(params, "event_type"))
				if err != nil {
					return nil, err
				}
				if errMsg != "" {
					return errMsg, nil
				}
				idx, removed := matchTask(event, strParam(params, "task_description"))
				if idx < 0 {
					return fmt.Sprintf("❌ No task matching '%s' found in %s.", strParam(params, "task_description"), event.Title), nil
				}
				updated, err := st.RemoveTask(ctx, event.ID, idx)
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Removed '%s' from %s (%d tasks remain).", removed, updated.Title, len(updated.Checklist)), nil
			},
		},
		{
			Name:        "update_task_in_checklist",
			Description: "Reword a task in an active life event's checklist.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "task_description", Type: "string", Description: "Part of the current task text to match", Required: true},
				{Name: "new_description", Type: "string", Description: "The new task text", Required: true},
				{Name: "event_type", Type: "string", Description: "The event type (omit if only one event is active)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				event, errMsg, err := findLifeEvent(ctx, st, strParam(params, "event_type"))
				if err != nil {
					return nil, err
				}
				if errMsg != "" {
					return errMsg, nil
				}
				newText := strParam(params, "new_description")
				if newText == "" {
					return "❌ New task description cannot be empty.", nil
				}
				idx, old := matchTask(event, strParam(params, "task_description"))
				if idx < 0 {
					return fmt.Sprintf("❌ No task matching '%s' found in %s.", strParam(params, "task_description"), event.Title), nil
				}
				if _, err := st.UpdateTaskText(ctx, event.ID, idx, newText); err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Updated task in %s:\n  Before: %s\n  After: %s", event.Title, old, newText), nil
			},
		},
		{
			Name:        "replace_entire_checklist",
			Description: "Replace a life event's checklist with a completely new set of tasks. All existing progress is discarded.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "tasks", Type: "array", Description: "The new task descriptions", Required: true},
				{Name: "event_type", Type: "string", Description: "The event type (omit if only one event is active)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				event, errMsg, err := findLifeEvent(ctx, st, strParam(params, "event_type"))
				if err != nil {
					return nil, err
				}
				if errMsg != "" {
					return errMsg, nil
				}
				tasks := customTasks(params)
				if len(tasks) == 0 {
					return "❌ The new checklist needs at least one task.", nil
				}
				updated, err := st.ReplaceChecklist(ctx, event.ID, tasks)
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Replaced the %s checklist with %s.", updated.Title, plural(len(tasks), "new task")), nil
			},
		},
		{
			Name:        "update_life_event_title",
			Description: "Rename a life event.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "new_title", Type: "string", Description: "The new title", Required: true},
				{Name: "event_type", Type: "string", Description: "The event type (omit if only one event is active)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				event, errMsg, err := findLifeEvent(ctx, st, strParam(params, "event_type"))
				if err != nil {
					return nil, err
				}
				if errMsg != "" {
					return errMsg, nil
				}
				newTitle := strParam(params, "new_title")
				if newTitle == "" {
					return "❌ New title cannot be empty.", nil
				}
				if _, err := st.RenameLifeEvent(ctx, event.ID, newTitle); err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Renamed '%s' to '%s'.", event.Title, newTitle), nil
			},
		},
		{
			Name:        "delete_life_event",
			Description: "Delete every life event of a given type, along with their checklists.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "event_type", Type: "string", Description: "The event type to delete", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				eventType := strings.ToLower(strParam(params, "event_type"))
				events, err := st.ListLifeEvents(ctx, false)
				if err != nil {
					return nil, err
				}
				var deleted []string
				for _, event := range events {
					if strings.ToLower(event.EventType) != eventType {
						continue
					}
					if err := st.DeleteLifeEvent(ctx, event.ID); err != nil {
						return nil, err
					}
					deleted = append(deleted, event.Title)
				}
				if len(deleted) == 0 {
					return fmt.Sprintf("❌ No event of type '%s' found.", eventType), nil
				}
				if len(deleted) == 1 {
					return fmt.Sprintf("✅ Deleted '%s'.", deleted[0]), nil
				}
				return fmt.Sprintf("✅ Deleted %s of type '%s': %s.",
					plural(len(deleted), "event"), eventType, strings.Join(deleted, ", ")), nil
			},
		},
	}
}

// findLifeEvent resolves an event type to a single active event. An empty
// eventType works when exactly one event is active. The string return is a
// user-facing message for ambiguous or missing events.
func findLifeEvent(ctx context.Context, st *store.Store, eventType string) (store.LifeEvent, string, error) {
	events, err := st.ListLifeEvents(ctx, true)
	if err != nil {
		return store.LifeEvent{}, "", err
	}
	if len(events) == 0 {
		return store.LifeEvent{}, "📭 No active life events. Start one with start_life_event!", nil
	}
	if eventType == "" {
		if len(events) == 1 {
			return events[0], "", nil
		}
		names := make([]string, 0, len(events))
		for _, e := range events {
			names = append(names, e.EventType)
		}
		return store.LifeEvent{}, fmt.Sprintf("❓ You have %d active events (%s). Which one do you mean?",
			len(events), strings.Join(names, ", ")), nil
	}
	eventType = strings.ToLower(eventType)
	for _, e := range events {
		if strings.ToLower(e.EventType) == eventType {
			return e, "", nil
		}
	}
	return store.LifeEvent{}, fmt.Sprintf("❌ No active event of type '%s' found.", eventType), nil
}

// prettyCategory turns a template phase key like "before_trip" into
// "Before Trip" for display.
func prettyCategory(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func matchTask(event store.LifeEvent, needle string) (int, string) {
	needle = strings.ToLower(needle)
	for i, task := range event.Checklist {
		if strings.Contains(strings.ToLower(task.Text), needle) {
			return i, task.Text
		}
	}
	return -1, ""
}

// customTasks extracts task descriptions from an array parameter. Items may
// be plain strings or {text, category} objects.
func customTasks(params map[string]interface{}) []store.ChecklistTask {
	raw, ok := params["custom_tasks"].([]interface{})
	if !ok {
		raw, ok = params["tasks"].([]interface{})
		if !ok {
			return nil
		}
	}
	tasks := make([]store.ChecklistTask, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if text := strings.TrimSpace(v); text != "" {
				tasks = append(tasks, store.ChecklistTask{Text: text, Category: "Tasks"})
			}
		case map[string]interface{}:
			text, _ := v["text"].(string)
			if text = strings.TrimSpace(text); text == "" {
				continue
			}
			category, _ := v["category"].(string)
			if category == "" {
				category = "Tasks"
			}
			tasks = append(tasks, store.ChecklistTask{Text: text, Category: category})
		}
	}
	return tasks
}

func formatChecklist(event store.LifeEvent) string {
	done, total, percent := event.Progress()
	lines := []string{
		fmt.Sprintf("📋 **%s**", event.Title),
		fmt.Sprintf("📊 Progress: %d/%d tasks (%.1f%%)", done, total, percent),
	}
	if event.TargetDate != "" {
		if days, ok := event.DaysUntilTarget(time.Now()); ok && days >= 0 {
			lines = append(lines, fmt.Sprintf("📅 %d days until %s", days, formatDate(event.TargetDate)))
		}
	}
	lines = append(lines, "")

	var order []string
	grouped := make(map[string][]store.ChecklistTask)
	for _, task := range event.Checklist {
		category := task.Category
		if category == "" {
			category = "Tasks"
		}
		if _, seen := grouped[category]; !seen {
			order = append(order, category)
		}
		grouped[category] = append(grouped[category], task)
	}
	for _, category := range order {
		lines = append(lines, fmt.Sprintf("**%s:**", prettyCategory(category)))
		for _, task := range grouped[category] {
			box := "⬜"
			if task.Done {
				box = "✅"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", box, task.Text))
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
