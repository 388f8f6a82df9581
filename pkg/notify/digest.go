package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifeadmin/pkg/store"
)

// Digest assembles attention summaries from the store.
type Digest struct {
	store *store.Store
}

// NewDigest creates a digest builder.
func NewDigest(st *store.Store) *Digest {
	return &Digest{store: st}
}

// ReminderCounts summarize what a reminder email covered.
type ReminderCounts struct {
	Documents int
	Trials    int
	Events    int
}

// Total is the number of items across all sections.
func (c ReminderCounts) Total() int {
	return c.Documents + c.Trials + c.Events
}

// BuildText renders the daily digest as chat-friendly markdown.
func (d *Digest) BuildText(ctx context.Context, now time.Time) (string, error) {
	lines := []string{fmt.Sprintf("📬 **Daily Digest** - %s\n", now.Format("January 2, 2006"))}

	lines = append(lines, "### 🚨 Urgent (Next 7 Days)")
	urgentCount := 0

	urgentDocs, err := d.store.ExpiringDocuments(ctx, 7)
	if err != nil {
		return "", err
	}
	for _, doc := range urgentDocs {
		days, _ := doc.DaysUntilExpiry(now)
		if days < 0 {
			lines = append(lines, fmt.Sprintf("• ⚠️ **%s** - EXPIRED %d days ago!", doc.Name, -days))
		} else {
			lines = append(lines, fmt.Sprintf("• 🔴 **%s** - %d days left", doc.Name, days))
		}
		urgentCount++
	}

	trials, err := d.store.FreeTrials(ctx)
	if err != nil {
		return "", err
	}
	for _, trial := range trials {
		if days, ok := trial.TrialDaysLeft(now); ok && days <= 7 {
			lines = append(lines, fmt.Sprintf("• 🆓 **%s** trial ends in %d days", trial.Name, days))
			urgentCount++
		}
	}

	if urgentCount == 0 {
		lines = append(lines, "• ✅ No urgent items!")
	}

	lines = append(lines, "\n### 📅 Coming Up (8-30 Days)")
	upcomingCount := 0
	upcomingDocs, err := d.store.ExpiringDocuments(ctx, 30)
	if err != nil {
		return "", err
	}
	for _, doc := range upcomingDocs {
		if days, _ := doc.DaysUntilExpiry(now); days > 7 {
			lines = append(lines, fmt.Sprintf("• 🟠 **%s** - %d days", doc.Name, days))
			upcomingCount++
		}
	}
	if upcomingCount == 0 {
		lines = append(lines, "• ✅ Nothing in this period")
	}

	lines = append(lines, "\n### 🎯 Active Life Events")
	events, err := d.store.ListLifeEvents(ctx, true)
	if err != nil {
		return "", err
	}
	if len(events) > 5 {
		events = events[:5]
	}
	if len(events) == 0 {
		lines = append(lines, "• No active events")
	}
	for _, event := range events {
		_, _, pct := event.Progress()
		if days, ok := event.DaysUntilTarget(now); ok {
			lines = append(lines, fmt.Sprintf("• **%s** - %d days, %.0f%% complete", event.Title, days, pct))
		} else {
			lines = append(lines, fmt.Sprintf("• **%s** - %.0f%% complete", event.Title, pct))
		}
	}

	spending, err := d.store.Spending(ctx)
	if err != nil {
		return "", err
	}
	lines = append(lines, fmt.Sprintf("\n### 💰 Monthly Spending: $%.2f", spending.MonthlyTotal))

	return strings.Join(lines, "\n"), nil
}

// BuildReminderEmail builds the HTML reminder covering items due within
// daysAhead. Counts are zero when nothing needs attention.
func (d *Digest) BuildReminderEmail(ctx context.Context, daysAhead int, now time.Time) (subject, html string, counts ReminderCounts, err error) {
	docs, err := d.store.ExpiringDocuments(ctx, daysAhead)
	if err != nil {
		return "", "", counts, err
	}
	counts.Documents = len(docs)

	trials, err := d.store.FreeTrials(ctx)
	if err != nil {
		return "", "", counts, err
	}
	type endingTrial struct {
		sub  store.Subscription
		days int
	}
	var ending []endingTrial
	for _, trial := range trials {
		if days, ok := trial.TrialDaysLeft(now); ok && days <= daysAhead {
			ending = append(ending, endingTrial{trial, days})
		}
	}
	counts.Trials = len(ending)

	events, err := d.store.ListLifeEvents(ctx, true)
	if err != nil {
		return "", "", counts, err
	}
	type upcomingEvent struct {
		event store.LifeEvent
		days  int
	}
	var upcoming []upcomingEvent
	for _, event := range events {
		if days, ok := event.DaysUntilTarget(now); ok && days >= 0 && days <= daysAhead {
			upcoming = append(upcoming, upcomingEvent{event, days})
		}
	}
	counts.Events = len(upcoming)

	if counts.Total() == 0 {
		return "", "", counts, nil
	}

	subject = fmt.Sprintf("🔔 Life Admin Alert: %d items need attention", counts.Total())

	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	b.WriteString(`<h2 style="color: #333;">🏠 Life Admin Assistant</h2>`)
	fmt.Fprintf(&b, `<p>Here's your summary of items needing attention in the next %d days:</p>`, daysAhead)

	if len(docs) > 0 {
		b.WriteString(`<h3 style="color: #d63031;">📄 Expiring Documents</h3><ul>`)
		for _, doc := range docs {
			days, _ := doc.DaysUntilExpiry(now)
			urgency := "🟡"
			if days <= 7 {
				urgency = "🔴"
			} else if days <= 30 {
				urgency = "🟠"
			}
			fmt.Fprintf(&b, "<li>%s <strong>%s</strong> - %d days left</li>", urgency, doc.Name, days)
		}
		b.WriteString("</ul>")
	}

	if len(ending) > 0 {
		b.WriteString(`<h3 style="color: #e17055;">💳 Free Trials Ending</h3><ul>`)
		for _, t := range ending {
			fmt.Fprintf(&b, "<li>🆓 <strong>%s</strong> - %d days left ($%.2f/%s after)</li>",
				t.sub.Name, t.days, t.sub.Cost, t.sub.BillingCycle)
		}
		b.WriteString("</ul>")
	}

	if len(upcoming) > 0 {
		b.WriteString(`<h3 style="color: #0984e3;">🎯 Upcoming Life Events</h3><ul>`)
		for _, u := range upcoming {
			_, _, pct := u.event.Progress()
			fmt.Fprintf(&b, "<li>📋 <strong>%s</strong> - %d days away (%.0f%% complete)</li>",
				u.event.Title, u.days, pct)
		}
		b.WriteString("</ul>")
	}

	b.WriteString(`<hr style="border: 1px solid #ddd;">`)
	b.WriteString(`<p style="color: #666; font-size: 12px;">Sent by Life Admin Assistant 🤖</p>`)
	b.WriteString("</body></html>")

	return subject, b.String(), counts, nil
}

// TestEmailBody is the HTML sent by the test notification tool.
func TestEmailBody() (subject, html string) {
	subject = "🧪 Life Admin Assistant - Test Notification"
	html = `<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #00b894;">✅ Test Successful!</h2>
<p>Your Life Admin Assistant email notifications are working correctly.</p>
<p>You'll receive alerts for:</p>
<ul>
<li>📄 Expiring documents</li>
<li>💳 Free trials ending</li>
<li>🎯 Upcoming life events</li>
</ul>
<hr style="border: 1px solid #ddd;">
<p style="color: #666; font-size: 12px;">Sent by Life Admin Assistant 🤖</p>
</body></html>`
	return subject, html
}
