package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifeadmin/pkg/store"
	"lifeadmin/pkg/toolexecutor"
)

var documentCategories = []string{
	"identification", "insurance", "warranty",
	"medical", "financial", "vehicle", "property", "other",
}

func normalizeDocCategory(category string) string {
	category = strings.ToLower(category)
	for _, c := range documentCategories {
		if c == category {
			return c
		}
	}
	return "other"
}

// DocumentTools returns the document tracking tools.
func DocumentTools(st *store.Store) []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		{
			Name:        "add_document",
			Description: "Add a new document to track its expiry date. The assistant will remind the user before the document expires.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "name", Type: "string", Description: "Name of the document (e.g., 'Passport', 'Driver's License')", Required: true},
				{Name: "category", Type: "string", Description: "Category of the document", Required: false, Enum: documentCategories},
				{Name: "expiry_date", Type: "string", Description: "Expiry date in YYYY-MM-DD format", Required: true},
				{Name: "family_member", Type: "string", Description: "Family member the document belongs to, or 'self'", Required: false},
				{Name: "notes", Type: "string", Description: "Additional notes about the document", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				doc, err := st.CreateDocument(ctx, store.Document{
					Name:         strParam(params, "name"),
					Category:     normalizeDocCategory(strParam(params, "category")),
					ExpiryDate:   strParam(params, "expiry_date"),
					FamilyMember: strParam(params, "family_member"),
					Notes:        strParam(params, "notes"),
				})
				if err != nil {
					return nil, err
				}

				days, _ := doc.DaysUntilExpiry(time.Now())
				return fmt.Sprintf(
					"✅ Document saved successfully!\n"+
						"📄 %s (%s)\n"+
						"📅 Expires: %s\n"+
						"⏰ %d days remaining\n"+
						"🔔 Reminders set for: 90, 30, and 7 days before expiry",
					doc.Name, doc.Category, formatDate(doc.ExpiryDate), days,
				), nil
			},
		},
		{
			Name:        "list_documents",
			Description: "List all tracked documents, optionally filtered by category.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "category", Type: "string", Description: "Filter by category (optional)", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				docs, err := st.ListDocuments(ctx, strParam(params, "category"))
				if err != nil {
					return nil, err
				}
				if len(docs) == 0 {
					return "📭 No documents found. Add some documents to track!", nil
				}

				now := time.Now()
				lines := []string{fmt.Sprintf("📄 **Your Documents** (%d total)\n", len(docs))}
				for _, doc := range docs {
					lines = append(lines, fmt.Sprintf("• %s (%s) - %s", doc.Name, doc.Category, describeStatus(doc, now)))
					if doc.Notes != "" {
						lines = append(lines, "  📝 "+doc.Notes)
					}
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "get_expiring_documents",
			Description: "Get documents expiring within the specified number of days, grouped by urgency. Useful for checking what needs attention soon.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "days_ahead", Type: "integer", Description: "Number of days to look ahead (default: 30)", Required: false, Default: 30},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				daysAhead := intParam(params, "days_ahead", 30)
				docs, err := st.ExpiringDocuments(ctx, daysAhead)
				if err != nil {
					return nil, err
				}
				if len(docs) == 0 {
					return fmt.Sprintf("✅ No documents expiring in the next %d days. You're all set!", daysAhead), nil
				}
				return formatExpiringDocs(docs, daysAhead), nil
			},
		},
		{
			Name:        "update_document",
			Description: "Update a tracked document's details. Only the provided fields are changed.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "document_name", Type: "string", Description: "Name of the document to update", Required: true},
				{Name: "new_name", Type: "string", Description: "New name for the document", Required: false},
				{Name: "category", Type: "string", Description: "New category", Required: false},
				{Name: "expiry_date", Type: "string", Description: "New expiry date in YYYY-MM-DD format", Required: false},
				{Name: "notes", Type: "string", Description: "New notes", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				doc, err := findDocumentByName(ctx, st, strParam(params, "document_name"))
				if err != nil {
					return err.Error(), nil
				}

				patch := store.DocumentPatch{}
				if v := strParam(params, "new_name"); v != "" {
					patch.Name = &v
				}
				if v := strParam(params, "category"); v != "" {
					c := normalizeDocCategory(v)
					patch.Category = &c
				}
				if v := strParam(params, "expiry_date"); v != "" {
					patch.ExpiryDate = &v
				}
				if v, ok := params["notes"].(string); ok {
					patch.Notes = &v
				}

				updated, err := st.UpdateDocument(ctx, doc.ID, patch)
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Updated '%s' (%s), expires %s.",
					updated.Name, updated.Category, formatDate(updated.ExpiryDate)), nil
			},
		},
		{
			Name:        "delete_document",
			Description: "Delete a document from tracking.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "document_name", Type: "string", Description: "Name of the document to delete", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				doc, err := findDocumentByName(ctx, st, strParam(params, "document_name"))
				if err != nil {
					return err.Error(), nil
				}
				if err := st.DeleteDocument(ctx, doc.ID); err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Deleted '%s' from tracking.", doc.Name), nil
			},
		},
	}
}

func findDocumentByName(ctx context.Context, st *store.Store, name string) (store.Document, error) {
	docs, err := st.ListDocuments(ctx, "")
	if err != nil {
		return store.Document{}, err
	}
	for _, doc := range docs {
		if strings.EqualFold(doc.Name, name) {
			return doc, nil
		}
	}
	return store.Document{}, fmt.Errorf("❌ Document '%s' not found. Use 'list documents' to see all tracked documents.", name)
}

func describeStatus(doc store.Document, now time.Time) string {
	days, ok := doc.DaysUntilExpiry(now)
	if !ok {
		return "no expiry date"
	}
	switch doc.Status(now) {
	case store.StatusExpired:
		return fmt.Sprintf("⚠️ EXPIRED %d days ago", -days)
	case store.StatusUrgent:
		return fmt.Sprintf("🔴 expires in %d days", days)
	case store.StatusWarning:
		return fmt.Sprintf("🟠 expires in %d days", days)
	case store.StatusUpcoming:
		return fmt.Sprintf("🟡 expires in %d days", days)
	default:
		return fmt.Sprintf("✅ expires in %d days", days)
	}
}

func formatExpiringDocs(docs []store.Document, daysAhead int) string {
	now := time.Now()
	var expired, urgent, warning, upcoming []string

	for _, doc := range docs {
		days, _ := doc.DaysUntilExpiry(now)
		switch {
		case days < 0:
			expired = append(expired, fmt.Sprintf("  🔴 %s - expired %d days ago!", doc.Name, -days))
		case days <= 7:
			urgent = append(urgent, fmt.Sprintf("  🔴 %s - %d days left", doc.Name, days))
		case days <= 30:
			warning = append(warning, fmt.Sprintf("  🟠 %s - %d days left", doc.Name, days))
		default:
			upcoming = append(upcoming, fmt.Sprintf("  🟡 %s - %d days left", doc.Name, days))
		}
	}

	lines := []string{fmt.Sprintf("📋 **Documents Expiring Soon** (next %d days)\n", daysAhead)}
	if len(expired) > 0 {
		lines = append(lines, "⚠️ **EXPIRED:**")
		lines = append(lines, expired...)
		lines = append(lines, "")
	}
	if len(urgent) > 0 {
		lines = append(lines, "🚨 **URGENT (≤7 days):**")
		lines = append(lines, urgent...)
		lines = append(lines, "")
	}
	if len(warning) > 0 {
		lines = append(lines, "⚠️ **WARNING (≤30 days):**")
		lines = append(lines, warning...)
		lines = append(lines, "")
	}
	if len(upcoming) > 0 {
		lines = append(lines, "📅 **UPCOMING:**")
		lines = append(lines, upcoming...)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
