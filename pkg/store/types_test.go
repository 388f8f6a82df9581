package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)

func TestDocumentStatus(t *testing.T) {
	tests := []struct {
		name   string
		expiry string
		want   ExpiryStatus
	}{
		{"no expiry", "", StatusNone},
		{"yesterday", "2025-06-14", StatusExpired},
		{"today", "2025-06-15", StatusUrgent},
		{"in 7 days", "2025-06-22", StatusUrgent},
		{"in 8 days", "2025-06-23", StatusWarning},
		{"in 30 days", "2025-07-15", StatusWarning},
		{"in 31 days", "2025-07-16", StatusUpcoming},
		{"in 90 days", "2025-09-13", StatusUpcoming},
		{"in 91 days", "2025-09-14", StatusOK},
		{"next year", "2026-06-15", StatusOK},
		{"garbage date", "not-a-date", StatusNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Document{Name: "passport", ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, doc.Status(testNow))
		})
	}
}

func TestDocumentDaysUntilExpiry(t *testing.T) {
	doc := Document{ExpiryDate: "2025-06-25"}
	days, ok := doc.DaysUntilExpiry(testNow)
	assert.True(t, ok)
	assert.Equal(t, 10, days)

	expired := Document{ExpiryDate: "2025-06-10"}
	days, ok = expired.DaysUntilExpiry(testNow)
	assert.True(t, ok)
	assert.Equal(t, -5, days)

	undated := Document{}
	_, ok = undated.DaysUntilExpiry(testNow)
	assert.False(t, ok)
}

func TestDaysUntilAcrossDaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// March 9, 2025 is only 23 hours long in New York; the count still
	// comes out in whole calendar days.
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, loc)
	doc := Document{ExpiryDate: "2025-03-12"}
	days, ok := doc.DaysUntilExpiry(now)
	assert.True(t, ok)
	assert.Equal(t, 4, days)

	sub := Subscription{IsFreeTrial: true, TrialEndDate: "2025-03-12"}
	days, ok = sub.TrialDaysLeft(now)
	assert.True(t, ok)
	assert.Equal(t, 4, days)

	sub.RenewalDate = "2025-03-12"
	days, ok = sub.DaysUntilRenewal(now)
	assert.True(t, ok)
	assert.Equal(t, 4, days)

	event := LifeEvent{TargetDate: "2025-03-12"}
	days, ok = event.DaysUntilTarget(now)
	assert.True(t, ok)
	assert.Equal(t, 4, days)

	// Fall-back day (25 hours) in the other direction
	autumn := time.Date(2025, 11, 1, 12, 0, 0, 0, loc)
	doc = Document{ExpiryDate: "2025-11-05"}
	days, ok = doc.DaysUntilExpiry(autumn)
	assert.True(t, ok)
	assert.Equal(t, 4, days)
}

func TestSubscriptionMonthlyCost(t *testing.T) {
	tests := []struct {
		name  string
		cost  float64
		cycle string
		want  float64
	}{
		{"monthly passthrough", 15.99, CycleMonthly, 15.99},
		{"yearly divided by 12", 120, CycleYearly, 10},
		{"weekly times 4.33", 10, CycleWeekly, 43.3},
		{"unknown cycle treated as monthly", 5, "", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{Cost: tt.cost, BillingCycle: tt.cycle}
			assert.InDelta(t, tt.want, sub.MonthlyCost(), 0.001)
			assert.InDelta(t, tt.want*12, sub.YearlyCost(), 0.001)
		})
	}
}

func TestLifeEventProgress(t *testing.T) {
	event := LifeEvent{Checklist: []ChecklistTask{
		{Text: "a", Done: true},
		{Text: "b", Done: true},
		{Text: "c"},
	}}

	done, total, percent := event.Progress()
	assert.Equal(t, 2, done)
	assert.Equal(t, 3, total)
	assert.InDelta(t, 66.7, percent, 0.01)

	empty := LifeEvent{}
	done, total, percent = empty.Progress()
	assert.Zero(t, done)
	assert.Zero(t, total)
	assert.Zero(t, percent)
}
