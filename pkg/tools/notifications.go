package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifeadmin/internal/config"
	"lifeadmin/pkg/notify"
	"lifeadmin/pkg/toolexecutor"
)

// NotificationTools returns the email notification and digest tools.
func NotificationTools(digest *notify.Digest, mailer notify.Sender, smtp config.SMTPConfig) []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		{
			Name:        "check_notification_status",
			Description: "Check whether email notifications are configured and where they would be sent.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				if mailer == nil || !mailer.Configured() {
					return "📪 Email notifications are **not configured**.\n" +
						"Set SMTP_SERVER, SENDER_EMAIL, SENDER_PASSWORD and NOTIFICATION_EMAIL to enable them.", nil
				}
				recipient := smtp.Recipient
				if recipient == "" {
					recipient = smtp.Sender
				}
				return fmt.Sprintf(
					"📬 Email notifications are **configured**.\n"+
						"• Server: %s:%d\n"+
						"• From: %s\n"+
						"• To: %s",
					smtp.Host, smtp.Port, maskEmail(smtp.Sender), maskEmail(recipient),
				), nil
			},
		},
		{
			Name:        "send_expiry_reminder",
			Description: "Send an email reminder covering expiring documents, ending free trials and upcoming life events.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "days_ahead", Type: "integer", Description: "How many days ahead to look for items needing attention", Required: false, Default: 30},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				if mailer == nil || !mailer.Configured() {
					return "📪 Email is not configured, so I can't send reminders. Use check_notification_status for setup details.", nil
				}
				daysAhead := intParam(params, "days_ahead", 30)
				subject, body, counts, err := digest.BuildReminderEmail(ctx, daysAhead, time.Now())
				if err != nil {
					return nil, err
				}
				if counts.Total() == 0 {
					return fmt.Sprintf("✅ Nothing needs attention in the next %d days, no email sent.", daysAhead), nil
				}
				if err := mailer.Send("", subject, body); err != nil {
					return nil, fmt.Errorf("sending reminder email: %w", err)
				}
				return fmt.Sprintf("📧 Reminder sent! Covered %s needing attention.", plural(counts.Total(), "item")), nil
			},
		},
		{
			Name:        "send_test_notification",
			Description: "Send a test email to verify the notification setup works.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				if mailer == nil || !mailer.Configured() {
					return "📪 Email is not configured. Use check_notification_status for setup details.", nil
				}
				subject, body := notify.TestEmailBody()
				if err := mailer.Send("", subject, body); err != nil {
					return nil, fmt.Errorf("sending test email: %w", err)
				}
				return "📧 Test email sent! Check your inbox.", nil
			},
		},
		{
			Name:        "get_daily_digest",
			Description: "Get a digest of everything needing attention: urgent items, upcoming renewals, active life events and monthly spending.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				text, err := digest.BuildText(ctx, time.Now())
				if err != nil {
					return nil, err
				}
				return text, nil
			},
		},
	}
}

// maskEmail hides most of the local part, e.g. "alice@example.com" becomes
// "a***e@example.com".
func maskEmail(addr string) string {
	at := strings.Index(addr, "@")
	if at <= 2 {
		return addr
	}
	local := addr[:at]
	return fmt.Sprintf("%c***%c%s", local[0], local[len(local)-1], addr[at:])
}
