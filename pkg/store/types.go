package store

import (
	"encoding/json"
	"math"
	"time"
)

// DateLayout is the canonical date format stored in the database.
const DateLayout = "2006-01-02"

// ReminderDays are the expiry thresholds a digest warns about.
var ReminderDays = []int{90, 30, 7}

// daysUntil returns the whole calendar days from now's date to the stored
// date, negative when the date has passed. Both sides are taken as UTC
// midnights so daylight saving shifts never skew the count.
func daysUntil(date string, now time.Time) (int, bool) {
	target, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(target.Sub(today) / (24 * time.Hour)), true
}

// ExpiryStatus classifies how close a document is to its expiry date.
type ExpiryStatus string

const (
	StatusExpired  ExpiryStatus = "expired"
	StatusUrgent   ExpiryStatus = "urgent"
	StatusWarning  ExpiryStatus = "warning"
	StatusUpcoming ExpiryStatus = "upcoming"
	StatusOK       ExpiryStatus = "ok"
	StatusNone     ExpiryStatus = "none"
)

// Document is a tracked personal document such as a passport or insurance policy.
type Document struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	ExpiryDate   string    `json:"expiry_date,omitempty"`
	FamilyMember string    `json:"family_member,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DaysUntilExpiry returns the number of whole days from now until the expiry
// date, negative if already expired. The second return is false when the
// document has no expiry date or it cannot be parsed.
func (d *Document) DaysUntilExpiry(now time.Time) (int, bool) {
	if d.ExpiryDate == "" {
		return 0, false
	}
	return daysUntil(d.ExpiryDate, now)
}

// Status classifies the document against the reminder thresholds.
func (d *Document) Status(now time.Time) ExpiryStatus {
	days, ok := d.DaysUntilExpiry(now)
	if !ok {
		return StatusNone
	}
	switch {
	case days < 0:
		return StatusExpired
	case days <= 7:
		return StatusUrgent
	case days <= 30:
		return StatusWarning
	case days <= 90:
		return StatusUpcoming
	default:
		return StatusOK
	}
}

// Billing cycles accepted for subscriptions.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
	CycleWeekly  = "weekly"
)

// Subscription is a recurring paid service.
type Subscription struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Cost         float64   `json:"cost"`
	BillingCycle string    `json:"billing_cycle"`
	RenewalDate  string    `json:"renewal_date,omitempty"`
	Active       bool      `json:"active"`
	IsFreeTrial  bool      `json:"is_free_trial,omitempty"`
	TrialEndDate string    `json:"trial_end_date,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MonthlyCost normalizes the subscription cost to a per-month figure.
// Weekly subscriptions use 4.33 weeks per month.
func (s *Subscription) MonthlyCost() float64 {
	switch s.BillingCycle {
	case CycleYearly:
		return s.Cost / 12
	case CycleWeekly:
		return s.Cost * 4.33
	default:
		return s.Cost
	}
}

// YearlyCost is the normalized annual spend.
func (s *Subscription) YearlyCost() float64 {
	return s.MonthlyCost() * 12
}

// TrialDaysLeft returns days until the free trial ends, negative when it
// already ended, false when this is not a trial or the date is unknown.
func (s *Subscription) TrialDaysLeft(now time.Time) (int, bool) {
	if !s.IsFreeTrial || s.TrialEndDate == "" {
		return 0, false
	}
	return daysUntil(s.TrialEndDate, now)
}

// DaysUntilRenewal returns days until the next renewal, false when unknown.
func (s *Subscription) DaysUntilRenewal(now time.Time) (int, bool) {
	if s.RenewalDate == "" {
		return 0, false
	}
	return daysUntil(s.RenewalDate, now)
}

// SpendingSummary aggregates subscription costs. Free trials are counted
// separately and excluded from the totals.
type SpendingSummary struct {
	MonthlyTotal   float64            `json:"monthly_total"`
	YearlyTotal    float64            `json:"yearly_total"`
	ActiveCount    int                `json:"active_count"`
	FreeTrialCount int                `json:"free_trial_count"`
	ByCategory     map[string]float64 `json:"by_category"`
}

// ChecklistTask is one step in a life event checklist. Category groups
// tasks into phases such as "2_weeks_before" or "closing".
type ChecklistTask struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Done     bool   `json:"done"`
}

// LifeEvent is a major life change tracked with a checklist.
type LifeEvent struct {
	ID         int64           `json:"id"`
	Title      string          `json:"title"`
	EventType  string          `json:"event_type"`
	TargetDate string          `json:"target_date,omitempty"`
	Completed  bool            `json:"completed"`
	Checklist  []ChecklistTask `json:"checklist"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DaysUntilTarget returns days until the event's target date, false when
// no target is set.
func (e *LifeEvent) DaysUntilTarget(now time.Time) (int, bool) {
	if e.TargetDate == "" {
		return 0, false
	}
	return daysUntil(e.TargetDate, now)
}

// Progress returns done and total task counts plus a completion percentage.
func (e *LifeEvent) Progress() (done, total int, percent float64) {
	total = len(e.Checklist)
	for _, t := range e.Checklist {
		if t.Done {
			done++
		}
	}
	if total > 0 {
		percent = math.Round(float64(done)/float64(total)*1000) / 10
	}
	return done, total, percent
}

func marshalChecklist(tasks []ChecklistTask) (string, error) {
	if tasks == nil {
		tasks = []ChecklistTask{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalChecklist(raw string) ([]ChecklistTask, error) {
	if raw == "" {
		return []ChecklistTask{}, nil
	}
	var tasks []ChecklistTask
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
