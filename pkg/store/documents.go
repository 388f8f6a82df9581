package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateDocument inserts a new document and returns it with its assigned ID.
func (s *Store) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	if doc.Name == "" {
		return Document{}, errors.New("document name is required")
	}
	if doc.Category == "" {
		doc.Category = "other"
	}
	if doc.FamilyMember == "" {
		doc.FamilyMember = "self"
	}
	if err := validateDate(doc.ExpiryDate); err != nil {
		return Document{}, err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (name, category, expiry_date, family_member, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		doc.Name, doc.Category, nullable(doc.ExpiryDate), doc.FamilyMember, doc.Notes, now.Unix(), now.Unix(),
	)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create document: %w", err)
	}

	doc.ID, _ = result.LastInsertId()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	s.logger.Debug().Int64("id", doc.ID).Str("name", doc.Name).Msg("Document created")
	return doc, nil
}

// GetDocument fetches a single document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, category, expiry_date, family_member, notes, created_at, updated_at FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// ListDocuments returns documents, optionally filtered by category,
// ordered with the soonest expiry first and undated documents last.
func (s *Store) ListDocuments(ctx context.Context, category string) ([]Document, error) {
	query := `SELECT id, name, category, expiry_date, family_member, notes, created_at, updated_at
		FROM documents`
	var args []interface{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY expiry_date IS NULL, expiry_date ASC, name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ExpiringDocuments returns documents whose expiry date falls within the
// given number of days from now, including already expired ones.
func (s *Store) ExpiringDocuments(ctx context.Context, withinDays int) ([]Document, error) {
	docs, err := s.ListDocuments(ctx, "")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var expiring []Document
	for _, doc := range docs {
		if days, ok := doc.DaysUntilExpiry(now); ok && days <= withinDays {
			expiring = append(expiring, doc)
		}
	}
	return expiring, nil
}

// DocumentPatch holds optional field updates. Nil fields are left unchanged.
type DocumentPatch struct {
	Name         *string
	Category     *string
	ExpiryDate   *string
	FamilyMember *string
	Notes        *string
}

// UpdateDocument applies a patch and returns the updated document.
func (s *Store) UpdateDocument(ctx context.Context, id int64, patch DocumentPatch) (Document, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}

	if patch.Name != nil {
		doc.Name = *patch.Name
	}
	if patch.Category != nil {
		doc.Category = *patch.Category
	}
	if patch.ExpiryDate != nil {
		if err := validateDate(*patch.ExpiryDate); err != nil {
			return Document{}, err
		}
		doc.ExpiryDate = *patch.ExpiryDate
	}
	if patch.FamilyMember != nil {
		doc.FamilyMember = *patch.FamilyMember
	}
	if patch.Notes != nil {
		doc.Notes = *patch.Notes
	}

	doc.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE documents SET name = ?, category = ?, expiry_date = ?, family_member = ?, notes = ?, updated_at = ? WHERE id = ?",
		doc.Name, doc.Category, nullable(doc.ExpiryDate), doc.FamilyMember, doc.Notes, doc.UpdatedAt.Unix(), id,
	)
	if err != nil {
		return Document{}, fmt.Errorf("failed to update document: %w", err)
	}

	s.logger.Debug().Int64("id", id).Msg("Document updated")
	return doc, nil
}

// DeleteDocument removes a document by ID.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logger.Debug().Int64("id", id).Msg("Document deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var expiry, notes sql.NullString
	var created, updated int64
	err := row.Scan(&doc.ID, &doc.Name, &doc.Category, &expiry, &doc.FamilyMember, &notes, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.ExpiryDate = expiry.String
	doc.Notes = notes.String
	doc.CreatedAt = time.Unix(created, 0)
	doc.UpdatedAt = time.Unix(updated, 0)
	return doc, nil
}

func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
