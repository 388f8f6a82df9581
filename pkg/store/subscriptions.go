package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func validateCycle(cycle string) error {
	switch cycle {
	case CycleMonthly, CycleYearly, CycleWeekly:
		return nil
	default:
		return fmt.Errorf("invalid billing cycle %q, expected monthly, yearly, or weekly", cycle)
	}
}

// CreateSubscription inserts a new subscription and returns it with its ID.
func (s *Store) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	if sub.Name == "" {
		return Subscription{}, errors.New("subscription name is required")
	}
	if sub.Cost < 0 {
		return Subscription{}, errors.New("subscription cost cannot be negative")
	}
	if sub.Category == "" {
		sub.Category = "other"
	}
	if sub.BillingCycle == "" {
		sub.BillingCycle = CycleMonthly
	}
	if err := validateCycle(sub.BillingCycle); err != nil {
		return Subscription{}, err
	}
	if err := validateDate(sub.RenewalDate); err != nil {
		return Subscription{}, err
	}
	if err := validateDate(sub.TrialEndDate); err != nil {
		return Subscription{}, err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (name, category, cost, billing_cycle, renewal_date, active, is_free_trial, trial_end_date, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)`,
		sub.Name, sub.Category, sub.Cost, sub.BillingCycle, nullable(sub.RenewalDate), sub.IsFreeTrial, nullable(sub.TrialEndDate), sub.Notes, now.Unix(), now.Unix(),
	)
	if err != nil {
		return Subscription{}, fmt.Errorf("failed to create subscription: %w", err)
	}

	sub.ID, _ = result.LastInsertId()
	sub.Active = true
	sub.CreatedAt = now
	sub.UpdatedAt = now

	s.logger.Debug().Int64("id", sub.ID).Str("name", sub.Name).Msg("Subscription created")
	return sub, nil
}

// GetSubscription fetches a single subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, id int64) (Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, category, cost, billing_cycle, renewal_date, active, is_free_trial, trial_end_date, notes, created_at, updated_at
		FROM subscriptions WHERE id = ?`, id)
	return scanSubscription(row)
}

// ListSubscriptions returns subscriptions ordered by name. When activeOnly
// is true, cancelled subscriptions are excluded.
func (s *Store) ListSubscriptions(ctx context.Context, activeOnly bool) ([]Subscription, error) {
	query := `SELECT id, name, category, cost, billing_cycle, renewal_date, active, is_free_trial, trial_end_date, notes, created_at, updated_at
		FROM subscriptions`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SubscriptionPatch holds optional field updates. Nil fields are left unchanged.
type SubscriptionPatch struct {
	Name         *string
	Category     *string
	Cost         *float64
	BillingCycle *string
	RenewalDate  *string
	IsFreeTrial  *bool
	TrialEndDate *string
	Notes        *string
}

// UpdateSubscription applies a patch and returns the updated subscription.
func (s *Store) UpdateSubscription(ctx context.Context, id int64, patch SubscriptionPatch) (Subscription, error) {
	sub, err := s.GetSubscription(ctx, id)
	if err != nil {
		return Subscription{}, err
	}

	if patch.Name != nil {
		sub.Name = *patch.Name
	}
	if patch.Category != nil {
		sub.Category = *patch.Category
	}
	if patch.Cost != nil {
		if *patch.Cost < 0 {
			return Subscription{}, errors.New("subscription cost cannot be negative")
		}
		sub.Cost = *patch.Cost
	}
	if patch.BillingCycle != nil {
		if err := validateCycle(*patch.BillingCycle); err != nil {
			return Subscription{}, err
		}
		sub.BillingCycle = *patch.BillingCycle
	}
	if patch.RenewalDate != nil {
		if err := validateDate(*patch.RenewalDate); err != nil {
			return Subscription{}, err
		}
		sub.RenewalDate = *patch.RenewalDate
	}
	if patch.IsFreeTrial != nil {
		sub.IsFreeTrial = *patch.IsFreeTrial
	}
	if patch.TrialEndDate != nil {
		if err := validateDate(*patch.TrialEndDate); err != nil {
			return Subscription{}, err
		}
		sub.TrialEndDate = *patch.TrialEndDate
	}
	if patch.Notes != nil {
		sub.Notes = *patch.Notes
	}

	sub.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		`UPDATE subscriptions SET name = ?, category = ?, cost = ?, billing_cycle = ?, renewal_date = ?, is_free_trial = ?, trial_end_date = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		sub.Name, sub.Category, sub.Cost, sub.BillingCycle, nullable(sub.RenewalDate), sub.IsFreeTrial, nullable(sub.TrialEndDate), sub.Notes, sub.UpdatedAt.Unix(), id,
	)
	if err != nil {
		return Subscription{}, fmt.Errorf("failed to update subscription: %w", err)
	}

	s.logger.Debug().Int64("id", id).Msg("Subscription updated")
	return sub, nil
}

// CancelSubscription marks a subscription inactive without deleting history.
func (s *Store) CancelSubscription(ctx context.Context, id int64) (Subscription, error) {
	sub, err := s.GetSubscription(ctx, id)
	if err != nil {
		return Subscription{}, err
	}
	if !sub.Active {
		return sub, nil
	}

	sub.Active = false
	sub.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		"UPDATE subscriptions SET active = 0, updated_at = ? WHERE id = ?",
		sub.UpdatedAt.Unix(), id,
	)
	if err != nil {
		return Subscription{}, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	s.logger.Debug().Int64("id", id).Msg("Subscription cancelled")
	return sub, nil
}

// DeleteSubscription removes a subscription entirely.
func (s *Store) DeleteSubscription(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logger.Debug().Int64("id", id).Msg("Subscription deleted")
	return nil
}

// Spending aggregates active subscription costs, normalized per month and
// per year, with a per-category monthly breakdown.
func (s *Store) Spending(ctx context.Context) (SpendingSummary, error) {
	subs, err := s.ListSubscriptions(ctx, true)
	if err != nil {
		return SpendingSummary{}, err
	}

	summary := SpendingSummary{ByCategory: make(map[string]float64)}
	for _, sub := range subs {
		if sub.IsFreeTrial {
			summary.FreeTrialCount++
			continue
		}
		monthly := sub.MonthlyCost()
		summary.MonthlyTotal += monthly
		summary.YearlyTotal += sub.YearlyCost()
		summary.ActiveCount++
		summary.ByCategory[sub.Category] += monthly
	}
	return summary, nil
}

// FreeTrials returns active subscriptions marked as free trials.
func (s *Store) FreeTrials(ctx context.Context) ([]Subscription, error) {
	subs, err := s.ListSubscriptions(ctx, true)
	if err != nil {
		return nil, err
	}

	var trials []Subscription
	for _, sub := range subs {
		if sub.IsFreeTrial {
			trials = append(trials, sub)
		}
	}
	return trials, nil
}

// UpcomingRenewals returns active subscriptions renewing within the given
// number of days.
func (s *Store) UpcomingRenewals(ctx context.Context, withinDays int) ([]Subscription, error) {
	subs, err := s.ListSubscriptions(ctx, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var upcoming []Subscription
	for _, sub := range subs {
		if days, ok := sub.DaysUntilRenewal(now); ok && days >= 0 && days <= withinDays {
			upcoming = append(upcoming, sub)
		}
	}
	return upcoming, nil
}

func scanSubscription(row rowScanner) (Subscription, error) {
	var sub Subscription
	var renewal, trialEnd, notes sql.NullString
	var active, freeTrial int
	var created, updated int64
	err := row.Scan(&sub.ID, &sub.Name, &sub.Category, &sub.Cost, &sub.BillingCycle, &renewal, &active, &freeTrial, &trialEnd, &notes, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	if err != nil {
		return Subscription{}, err
	}
	sub.RenewalDate = renewal.String
	sub.TrialEndDate = trialEnd.String
	sub.Notes = notes.String
	sub.Active = active != 0
	sub.IsFreeTrial = freeTrial != 0
	sub.CreatedAt = time.Unix(created, 0)
	sub.UpdatedAt = time.Unix(updated, 0)
	return sub, nil
}
