package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateLifeEvent inserts a new life event with its checklist.
func (s *Store) CreateLifeEvent(ctx context.Context, event LifeEvent) (LifeEvent, error) {
	if event.Title == "" {
		return LifeEvent{}, errors.New("life event title is required")
	}
	if event.EventType == "" {
		event.EventType = "custom"
	}
	if err := validateDate(event.TargetDate); err != nil {
		return LifeEvent{}, err
	}

	checklist, err := marshalChecklist(event.Checklist)
	if err != nil {
		return LifeEvent{}, fmt.Errorf("failed to encode checklist: %w", err)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO life_events (title, event_type, target_date, completed, checklist, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?, ?)",
		event.Title, event.EventType, nullable(event.TargetDate), checklist, now.Unix(), now.Unix(),
	)
	if err != nil {
		return LifeEvent{}, fmt.Errorf("failed to create life event: %w", err)
	}

	event.ID, _ = result.LastInsertId()
	event.Completed = false
	if event.Checklist == nil {
		event.Checklist = []ChecklistTask{}
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	s.logger.Debug().Int64("id", event.ID).Str("title", event.Title).Msg("Life event created")
	return event, nil
}

// GetLifeEvent fetches a single life event by ID.
func (s *Store) GetLifeEvent(ctx context.Context, id int64) (LifeEvent, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, event_type, target_date, completed, checklist, created_at, updated_at FROM life_events WHERE id = ?", id)
	return scanLifeEvent(row)
}

// ListLifeEvents returns life events, newest first. When activeOnly is true,
// completed events are excluded.
func (s *Store) ListLifeEvents(ctx context.Context, activeOnly bool) ([]LifeEvent, error) {
	query := "SELECT id, title, event_type, target_date, completed, checklist, created_at, updated_at FROM life_events"
	if activeOnly {
		query += " WHERE completed = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []LifeEvent
	for rows.Next() {
		event, err := scanLifeEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// SetTaskDone marks one checklist task done or not done by its position.
func (s *Store) SetTaskDone(ctx context.Context, eventID int64, taskIndex int, done bool) (LifeEvent, error) {
	event, err := s.GetLifeEvent(ctx, eventID)
	if err != nil {
		return LifeEvent{}, err
	}
	if taskIndex < 0 || taskIndex >= len(event.Checklist) {
		return LifeEvent{}, fmt.Errorf("task index %d out of range, checklist has %d tasks", taskIndex, len(event.Checklist))
	}

	event.Checklist[taskIndex].Done = done
	return s.saveChecklist(ctx, event)
}

// AddTask appends a task to the checklist.
func (s *Store) AddTask(ctx context.Context, eventID int64, task ChecklistTask) (LifeEvent, error) {
	if task.Text == "" {
		return LifeEvent{}, errors.New("task text is required")
	}

	event, err := s.GetLifeEvent(ctx, eventID)
	if err != nil {
		return LifeEvent{}, err
	}

	task.Done = false
	event.Checklist = append(event.Checklist, task)
	return s.saveChecklist(ctx, event)
}

// RemoveTask deletes a task from the checklist by its position.
func (s *Store) RemoveTask(ctx context.Context, eventID int64, taskIndex int) (LifeEvent, error) {
	event, err := s.GetLifeEvent(ctx, eventID)
	if err != nil {
		return LifeEvent{}, err
	}
	if taskIndex < 0 || taskIndex >= len(event.Checklist) {
		return LifeEvent{}, fmt.Errorf("task index %d out of range, checklist has %d tasks", taskIndex, len(event.Checklist))
	}

	event.Checklist = append(event.Checklist[:taskIndex], event.Checklist[taskIndex+1:]...)
	return s.saveChecklist(ctx, event)
}

// UpdateTaskText changes the text of one checklist task.
func (s *Store) UpdateTaskText(ctx context.Context, eventID int64, taskIndex int, text string) (LifeEvent, error) {
	if text == "" {
		return LifeEvent{}, errors.New("task text is required")
	}

	event, err := s.GetLifeEvent(ctx, eventID)
	if err != nil {
		return LifeEvent{}, err
	}
	if taskIndex < 0 || taskIndex >= len(event.Checklist) {
		return LifeEvent{}, fmt.Errorf("task index %d out of range, checklist has %d tasks", taskIndex, len(event.Checklist))
	}

	event.Checklist[taskIndex].Text = text
	return s.saveChecklist(ctx, event)
}

// ReplaceChecklist swaps the entire checklist. Done flags on the new tasks
// are preserved as given.
func (s *Store) ReplaceChecklist(ctx context.Context, eventID int64, tasks []ChecklistTask) (LifeEvent, error) {
	event, err := s.GetLifeEvent(ctx, eventID)
	if err != nil {
		return LifeEvent{}, err
	}

	event.Checklist = tasks
	return s.saveChecklist(ctx, event)
}

// RenameLifeEvent changes the event title.
func (s *Store) RenameLifeEvent(ctx context.Context, eventID int64, title string) (LifeEvent, error) {
	if title == "" {
		return LifeEvent{}, errors.New("life event title is required")
	}

	event, err := s.GetLifeEvent(ctx, eventID)
	if err != nil {
		return LifeEvent{}, err
	}

	event.Title = title
	event.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE life_events SET title = ?, updated_at = ? WHERE id = ?",
		title, event.UpdatedAt.Unix(), eventID,
	)
	if err != nil {
		return LifeEvent{}, fmt.Errorf("failed to rename life event: %w", err)
	}
	return event, nil
}

// CompleteLifeEvent marks the event finished regardless of checklist state.
func (s *Store) CompleteLifeEvent(ctx context.Context, eventID int64) (LifeEvent, error) {
	event, err := s.GetLifeEvent(ctx, eventID)
	if err != nil {
		return LifeEvent{}, err
	}

	event.Completed = true
	event.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE life_events SET completed = 1, updated_at = ? WHERE id = ?",
		event.UpdatedAt.Unix(), eventID,
	)
	if err != nil {
		return LifeEvent{}, fmt.Errorf("failed to complete life event: %w", err)
	}

	s.logger.Debug().Int64("id", eventID).Msg("Life event completed")
	return event, nil
}

// DeleteLifeEvent removes an event and its checklist.
func (s *Store) DeleteLifeEvent(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM life_events WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logger.Debug().Int64("id", id).Msg("Life event deleted")
	return nil
}

func (s *Store) saveChecklist(ctx context.Context, event LifeEvent) (LifeEvent, error) {
	checklist, err := marshalChecklist(event.Checklist)
	if err != nil {
		return LifeEvent{}, fmt.Errorf("failed to encode checklist: %w", err)
	}

	event.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE life_events SET checklist = ?, updated_at = ? WHERE id = ?",
		checklist, event.UpdatedAt.Unix(), event.ID,
	)
	if err != nil {
		return LifeEvent{}, fmt.Errorf("failed to update checklist: %w", err)
	}
	return event, nil
}

func scanLifeEvent(row rowScanner) (LifeEvent, error) {
	var event LifeEvent
	var completed int
	var target sql.NullString
	var checklist string
	var created, updated int64
	err := row.Scan(&event.ID, &event.Title, &event.EventType, &target, &completed, &checklist, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return LifeEvent{}, ErrNotFound
	}
	if err != nil {
		return LifeEvent{}, err
	}

	event.TargetDate = target.String
	event.Completed = completed != 0
	event.Checklist, err = unmarshalChecklist(checklist)
	if err != nil {
		return LifeEvent{}, fmt.Errorf("failed to decode checklist: %w", err)
	}
	event.CreatedAt = time.Unix(created, 0)
	event.UpdatedAt = time.Unix(updated, 0)
	return event, nil
}
