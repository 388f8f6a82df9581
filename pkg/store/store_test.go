package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, Document{
		Name:       "Passport",
		Category:   "identity",
		ExpiryDate: "2030-01-15",
		Notes:      "renew at embassy",
	})
	require.NoError(t, err)
	assert.NotZero(t, doc.ID)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Passport", got.Name)
	assert.Equal(t, "identity", got.Category)
	assert.Equal(t, "2030-01-15", got.ExpiryDate)
	assert.Equal(t, "renew at embassy", got.Notes)

	newName := "US Passport"
	newDate := "2031-03-01"
	updated, err := s.UpdateDocument(ctx, doc.ID, DocumentPatch{Name: &newName, ExpiryDate: &newDate})
	require.NoError(t, err)
	assert.Equal(t, "US Passport", updated.Name)
	assert.Equal(t, "2031-03-01", updated.ExpiryDate)
	assert.Equal(t, "identity", updated.Category)

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))
	_, err = s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID), ErrNotFound)
}

func TestCreateDocumentValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateDocument(ctx, Document{})
	assert.Error(t, err)

	_, err = s.CreateDocument(ctx, Document{Name: "x", ExpiryDate: "15/01/2030"})
	assert.ErrorContains(t, err, "YYYY-MM-DD")

	doc, err := s.CreateDocument(ctx, Document{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "other", doc.Category)
	assert.Equal(t, "self", doc.FamilyMember)
	assert.Empty(t, doc.ExpiryDate)
}

func TestListDocumentsFilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateDocument(ctx, Document{Name: "Later", Category: "identity", ExpiryDate: "2030-01-01"})
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, Document{Name: "Sooner", Category: "identity", ExpiryDate: "2026-01-01"})
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, Document{Name: "Undated", Category: "insurance"})
	require.NoError(t, err)

	all, err := s.ListDocuments(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Sooner", all[0].Name)
	assert.Equal(t, "Later", all[1].Name)
	assert.Equal(t, "Undated", all[2].Name)

	identity, err := s.ListDocuments(ctx, "identity")
	require.NoError(t, err)
	assert.Len(t, identity, 2)
}

func TestExpiringDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	soon := time.Now().AddDate(0, 0, 10).Format(DateLayout)
	far := time.Now().AddDate(0, 0, 200).Format(DateLayout)
	past := time.Now().AddDate(0, 0, -3).Format(DateLayout)

	_, err := s.CreateDocument(ctx, Document{Name: "Soon", ExpiryDate: soon})
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, Document{Name: "Far", ExpiryDate: far})
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, Document{Name: "Past", ExpiryDate: past})
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, Document{Name: "Undated"})
	require.NoError(t, err)

	expiring, err := s.ExpiringDocuments(ctx, 30)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	names := []string{expiring[0].Name, expiring[1].Name}
	assert.Contains(t, names, "Soon")
	assert.Contains(t, names, "Past")
}

func TestSubscriptionCRUDAndSpending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	netflix, err := s.CreateSubscription(ctx, Subscription{
		Name: "Netflix", Category: "streaming", Cost: 15.99, BillingCycle: CycleMonthly,
	})
	require.NoError(t, err)
	assert.True(t, netflix.Active)

	_, err = s.CreateSubscription(ctx, Subscription{
		Name: "Domain", Category: "software", Cost: 120, BillingCycle: CycleYearly,
	})
	require.NoError(t, err)

	spending, err := s.Spending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, spending.ActiveCount)
	assert.InDelta(t, 25.99, spending.MonthlyTotal, 0.001)
	assert.InDelta(t, 311.88, spending.YearlyTotal, 0.001)
	assert.InDelta(t, 15.99, spending.ByCategory["streaming"], 0.001)
	assert.InDelta(t, 10, spending.ByCategory["software"], 0.001)

	cancelled, err := s.CancelSubscription(ctx, netflix.ID)
	require.NoError(t, err)
	assert.False(t, cancelled.Active)

	spending, err = s.Spending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, spending.ActiveCount)
	assert.InDelta(t, 10, spending.MonthlyTotal, 0.001)

	active, err := s.ListSubscriptions(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := s.ListSubscriptions(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSubscriptionValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSubscription(ctx, Subscription{Cost: 5})
	assert.Error(t, err)

	_, err = s.CreateSubscription(ctx, Subscription{Name: "x", Cost: -1})
	assert.ErrorContains(t, err, "negative")

	_, err = s.CreateSubscription(ctx, Subscription{Name: "x", Cost: 5, BillingCycle: "daily"})
	assert.ErrorContains(t, err, "billing cycle")
}

func TestFreeTrialsExcludedFromSpending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trialEnd := time.Now().AddDate(0, 0, 14).Format(DateLayout)
	_, err := s.CreateSubscription(ctx, Subscription{
		Name: "Disney+", Category: "streaming", Cost: 9.99,
		IsFreeTrial: true, TrialEndDate: trialEnd,
	})
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, Subscription{Name: "Spotify", Category: "streaming", Cost: 10.99})
	require.NoError(t, err)

	spending, err := s.Spending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, spending.ActiveCount)
	assert.Equal(t, 1, spending.FreeTrialCount)
	assert.InDelta(t, 10.99, spending.MonthlyTotal, 0.001)

	trials, err := s.FreeTrials(ctx)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, "Disney+", trials[0].Name)

	days, ok := trials[0].TrialDaysLeft(time.Now())
	assert.True(t, ok)
	assert.Equal(t, 14, days)
}

func TestUpcomingRenewals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	soon := time.Now().AddDate(0, 0, 5).Format(DateLayout)
	far := time.Now().AddDate(0, 0, 60).Format(DateLayout)

	_, err := s.CreateSubscription(ctx, Subscription{Name: "Soon", Cost: 5, RenewalDate: soon})
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, Subscription{Name: "Far", Cost: 5, RenewalDate: far})
	require.NoError(t, err)

	upcoming, err := s.UpcomingRenewals(ctx, 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Soon", upcoming[0].Name)
}

func TestLifeEventChecklist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	event, err := s.CreateLifeEvent(ctx, LifeEvent{
		Title:     "Moving to Berlin",
		EventType: "moving",
		Checklist: []ChecklistTask{{Text: "Book movers"}, {Text: "Change address"}},
	})
	require.NoError(t, err)

	toggled, err := s.SetTaskDone(ctx, event.ID, 0, true)
	require.NoError(t, err)
	assert.True(t, toggled.Checklist[0].Done)
	assert.False(t, toggled.Checklist[1].Done)

	done, total, percent := toggled.Progress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)
	assert.InDelta(t, 50.0, percent, 0.01)

	toggled, err = s.SetTaskDone(ctx, event.ID, 0, false)
	require.NoError(t, err)
	assert.False(t, toggled.Checklist[0].Done)

	_, err = s.SetTaskDone(ctx, event.ID, 5, true)
	assert.ErrorContains(t, err, "out of range")

	added, err := s.AddTask(ctx, event.ID, ChecklistTask{Text: "Register with city", Category: "Admin"})
	require.NoError(t, err)
	assert.Len(t, added.Checklist, 3)

	removed, err := s.RemoveTask(ctx, event.ID, 1)
	require.NoError(t, err)
	require.Len(t, removed.Checklist, 2)
	assert.Equal(t, "Book movers", removed.Checklist[0].Text)
	assert.Equal(t, "Register with city", removed.Checklist[1].Text)

	renamed, err := s.RenameLifeEvent(ctx, event.ID, "Relocation")
	require.NoError(t, err)
	assert.Equal(t, "Relocation", renamed.Title)

	completed, err := s.CompleteLifeEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)

	activeOnly, err := s.ListLifeEvents(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, activeOnly)

	all, err := s.ListLifeEvents(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserAuth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "secret123")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "alice", "other456")
	assert.Error(t, err)

	_, err = s.CreateUser(ctx, "bob", "abc")
	assert.ErrorContains(t, err, "at least 4")

	token, err := s.Authenticate(ctx, "alice", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := s.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = s.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, s.Logout(ctx, token))
	_, err = s.ValidateSession(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	count, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUserAuthCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "  Alice ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = s.CreateUser(ctx, "ALICE", "other456")
	assert.Error(t, err)

	token, err := s.Authenticate(ctx, "ALICE", "secret123")
	require.NoError(t, err)

	resolved, err := s.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Username)
}
