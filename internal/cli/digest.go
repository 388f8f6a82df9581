package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lifeadmin/pkg/notify"
)

var (
	digestSend bool
	digestDays int
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Show or email the daily digest",
	Long: `Print the daily digest of expiring documents, upcoming renewals, trial
deadlines, and checklist progress. With --send, email it instead using
the configured SMTP settings.`,
	RunE: runDigest,
}

func init() {
	digestCmd.Flags().BoolVar(&digestSend, "send", false, "email the digest instead of printing it")
	digestCmd.Flags().IntVar(&digestDays, "days", 30, "look-ahead window in days for the emailed reminder")
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	if !digestSend {
		text, err := a.digest.BuildText(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("failed to build digest: %w", err)
		}
		fmt.Println(text)
		return nil
	}

	if !a.cfg.SMTP.Configured() {
		return fmt.Errorf("email is not configured: set SMTP_SERVER, SENDER_EMAIL, SENDER_PASSWORD, and NOTIFICATION_EMAIL")
	}

	scheduler := notify.NewScheduler(a.digest, a.mailer, a.log.GetZerolog())
	if err := scheduler.SendReminder(ctx, digestDays, a.cfg.SMTP.Recipient); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	fmt.Printf("📧 Digest sent to %s\n", a.cfg.SMTP.Recipient)
	return nil
}
