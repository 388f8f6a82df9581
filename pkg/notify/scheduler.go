package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the digest email on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	digest *Digest
	sender Sender
	logger zerolog.Logger
}

// NewScheduler creates a scheduler. The digest is built and mailed every
// time the schedule fires.
func NewScheduler(digest *Digest, sender Sender, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		digest: digest,
		sender: sender,
		logger: logger,
	}
}

// ValidateSpec checks a cron expression without scheduling it.
func ValidateSpec(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Start schedules the digest job and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if err := ValidateSpec(spec); err != nil {
		return err
	}

	_, err := s.cron.AddFunc(spec, s.runDigest)
	if err != nil {
		return fmt.Errorf("failed to schedule digest: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", spec).Msg("Digest scheduler started")
	return nil
}

// runDigest sends the reminder email if anything needs attention.
func (s *Scheduler) runDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.SendReminder(ctx, 30, ""); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled digest failed")
	}
}

// SendReminder builds and sends the reminder email covering daysAhead.
// A nil error with nothing to report means no email was sent.
func (s *Scheduler) SendReminder(ctx context.Context, daysAhead int, to string) error {
	subject, html, counts, err := s.digest.BuildReminderEmail(ctx, daysAhead, time.Now())
	if err != nil {
		return fmt.Errorf("failed to build reminder: %w", err)
	}

	if counts.Total() == 0 {
		s.logger.Debug().Msg("Nothing to report, skipping reminder email")
		return nil
	}

	if err := s.sender.Send(to, subject, html); err != nil {
		return err
	}

	s.logger.Info().
		Int("documents", counts.Documents).
		Int("trials", counts.Trials).
		Int("events", counts.Events).
		Msg("Reminder email sent")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Digest scheduler stopped")
}
