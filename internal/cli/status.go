package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the assistant is tracking",
	Long:  `Show counts of tracked documents, subscriptions, and life events, plus notification settings.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.trackingSummary(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}

// trackingSummary builds the status overview shared by the status
// command and the chat /status command.
func (a *app) trackingSummary(ctx context.Context) (string, error) {
	now := time.Now()
	var b strings.Builder

	b.WriteString("📊 **Life Admin Status**\n\n")

	docs, err := a.store.ListDocuments(ctx, "")
	if err != nil {
		return "", err
	}
	expiring := 0
	for _, doc := range docs {
		if days, ok := doc.DaysUntilExpiry(now); ok && days <= 30 {
			expiring++
		}
	}
	b.WriteString(fmt.Sprintf("📄 Documents: %d tracked", len(docs)))
	if expiring > 0 {
		b.WriteString(fmt.Sprintf(" (⚠️ %d expiring within 30 days)", expiring))
	}
	b.WriteString("\n")

	spending, err := a.store.Spending(ctx)
	if err != nil {
		return "", err
	}
	b.WriteString(fmt.Sprintf("💳 Subscriptions: %d active, $%.2f/month", spending.ActiveCount, spending.MonthlyTotal))
	if spending.FreeTrialCount > 0 {
		b.WriteString(fmt.Sprintf(" (🆓 %d free trials)", spending.FreeTrialCount))
	}
	b.WriteString("\n")

	events, err := a.store.ListLifeEvents(ctx, true)
	if err != nil {
		return "", err
	}
	b.WriteString(fmt.Sprintf("🎯 Life events: %d active\n", len(events)))
	for _, event := range events {
		done, total, _ := event.Progress()
		b.WriteString(fmt.Sprintf("  • %s: %d/%d tasks\n", event.Title, done, total))
	}

	if a.memory != nil {
		count, err := a.memory.Count(ctx)
		if err == nil {
			b.WriteString(fmt.Sprintf("🧠 Memories: %d\n", count))
		}
	}

	b.WriteString("\n")
	if a.cfg.SMTP.Configured() {
		b.WriteString("📬 Email reminders: configured\n")
	} else {
		b.WriteString("📪 Email reminders: not configured\n")
	}
	b.WriteString(fmt.Sprintf("🤖 Model: %s", a.cfg.ModelDisplayName()))

	return b.String(), nil
}
