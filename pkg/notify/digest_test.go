package notify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeadmin/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedStore(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	_, err := s.CreateDocument(ctx, store.Document{
		Name: "Passport", Category: "identification",
		ExpiryDate: now.AddDate(0, 0, 5).Format(store.DateLayout),
	})
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, store.Document{
		Name: "Car Insurance", Category: "insurance",
		ExpiryDate: now.AddDate(0, 0, 20).Format(store.DateLayout),
	})
	require.NoError(t, err)

	_, err = s.CreateSubscription(ctx, store.Subscription{
		Name: "Netflix", Category: "streaming", Cost: 15.99,
	})
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, store.Subscription{
		Name: "Disney+", Category: "streaming", Cost: 9.99,
		IsFreeTrial:  true,
		TrialEndDate: now.AddDate(0, 0, 3).Format(store.DateLayout),
	})
	require.NoError(t, err)

	_, err = s.CreateLifeEvent(ctx, store.LifeEvent{
		Title: "Moving to Berlin", EventType: "moving",
		TargetDate: now.AddDate(0, 0, 25).Format(store.DateLayout),
		Checklist:  []store.ChecklistTask{{Text: "Book movers", Done: true}, {Text: "Pack"}},
	})
	require.NoError(t, err)
}

func TestBuildText(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)

	digest := NewDigest(s)
	text, err := digest.BuildText(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Contains(t, text, "Daily Digest")
	assert.Contains(t, text, "Passport")
	assert.Contains(t, text, "Disney+")
	assert.Contains(t, text, "Car Insurance")
	assert.Contains(t, text, "Moving to Berlin")
	assert.Contains(t, text, "50% complete")
	assert.Contains(t, text, "$15.99")
}

func TestBuildTextEmptyStore(t *testing.T) {
	s := newTestStore(t)

	digest := NewDigest(s)
	text, err := digest.BuildText(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Contains(t, text, "No urgent items!")
	assert.Contains(t, text, "Nothing in this period")
	assert.Contains(t, text, "No active events")
	assert.Contains(t, text, "$0.00")
}

func TestBuildReminderEmail(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)

	digest := NewDigest(s)
	subject, html, counts, err := digest.BuildReminderEmail(context.Background(), 30, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, counts.Documents)
	assert.Equal(t, 1, counts.Trials)
	assert.Equal(t, 1, counts.Events)
	assert.Contains(t, subject, "4 items")
	assert.Contains(t, html, "Passport")
	assert.Contains(t, html, "Disney+")
	assert.Contains(t, html, "Moving to Berlin")
}

func TestBuildReminderEmailNothingDue(t *testing.T) {
	s := newTestStore(t)

	digest := NewDigest(s)
	subject, html, counts, err := digest.BuildReminderEmail(context.Background(), 30, time.Now())
	require.NoError(t, err)

	assert.Zero(t, counts.Total())
	assert.Empty(t, subject)
	assert.Empty(t, html)
}

type fakeSender struct {
	sent []struct{ to, subject, body string }
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.sent = append(f.sent, struct{ to, subject, body string }{to, subject, body})
	return nil
}

func (f *fakeSender) Configured() bool { return true }

func TestSendReminder(t *testing.T) {
	s := newTestStore(t)
	seedStore(t, s)

	sender := &fakeSender{}
	sched := NewScheduler(NewDigest(s), sender, zerolog.Nop())

	require.NoError(t, sched.SendReminder(context.Background(), 30, "me@example.com"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "me@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].subject, "need attention")
}

func TestSendReminderSkipsWhenEmpty(t *testing.T) {
	s := newTestStore(t)

	sender := &fakeSender{}
	sched := NewScheduler(NewDigest(s), sender, zerolog.Nop())

	require.NoError(t, sched.SendReminder(context.Background(), 30, ""))
	assert.Empty(t, sender.sent)
}

func TestValidateSpec(t *testing.T) {
	assert.NoError(t, ValidateSpec("0 8 * * *"))
	assert.Error(t, ValidateSpec("not a cron"))
	assert.Error(t, ValidateSpec("99 99 * * *"))
}
