package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"lifeadmin/pkg/store"
	"lifeadmin/pkg/toolexecutor"
)

var subscriptionCategories = []string{
	"streaming", "software", "fitness", "gaming",
	"news", "storage", "education", "utilities", "other",
}

func normalizeSubCategory(category string) string {
	category = strings.ToLower(category)
	for _, c := range subscriptionCategories {
		if c == category {
			return c
		}
	}
	return "other"
}

func normalizeCycle(cycle string) string {
	switch strings.ToLower(cycle) {
	case store.CycleWeekly:
		return store.CycleWeekly
	case store.CycleYearly:
		return store.CycleYearly
	default:
		return store.CycleMonthly
	}
}

// SubscriptionTools returns the subscription tracking tools.
func SubscriptionTools(st *store.Store) []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		{
			Name:        "add_subscription",
			Description: "Add a new subscription to track recurring payments. Helps monitor spending and avoid surprise charges.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "service_name", Type: "string", Description: "Name of the service (e.g., 'Netflix', 'Spotify', 'Gym')", Required: true},
				{Name: "cost", Type: "number", Description: "Cost per billing cycle (e.g., 15.99)", Required: true},
				{Name: "renewal_date", Type: "string", Description: "Next billing/renewal date in YYYY-MM-DD format", Required: false},
				{Name: "billing_cycle", Type: "string", Description: "Billing frequency", Required: false, Enum: []string{"monthly", "yearly", "weekly"}, Default: "monthly"},
				{Name: "category", Type: "string", Description: "Subscription category", Required: false, Enum: subscriptionCategories, Default: "other"},
				{Name: "is_free_trial", Type: "boolean", Description: "Whether this is a free trial", Required: false},
				{Name: "trial_end_date", Type: "string", Description: "When the free trial ends (YYYY-MM-DD), if applicable", Required: false},
				{Name: "notes", Type: "string", Description: "Any additional notes", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				sub, err := st.CreateSubscription(ctx, store.Subscription{
					Name:         strParam(params, "service_name"),
					Cost:         floatParam(params, "cost", 0),
					RenewalDate:  strParam(params, "renewal_date"),
					BillingCycle: normalizeCycle(strParam(params, "billing_cycle")),
					Category:     normalizeSubCategory(strParam(params, "category")),
					IsFreeTrial:  boolParam(params, "is_free_trial"),
					TrialEndDate: strParam(params, "trial_end_date"),
					Notes:        strParam(params, "notes"),
				})
				if err != nil {
					return nil, err
				}

				if sub.IsFreeTrial && sub.TrialEndDate != "" {
					days, _ := sub.TrialDaysLeft(time.Now())
					return fmt.Sprintf(
						"✅ Free trial tracked!\n"+
							"💳 %s (%s)\n"+
							"🆓 Trial ends: %s (%d days left)\n"+
							"💰 After trial: $%.2f/%s\n"+
							"🔔 I'll remind you before the trial ends!",
						sub.Name, sub.Category, formatDate(sub.TrialEndDate), days, sub.Cost, sub.BillingCycle,
					), nil
				}

				return fmt.Sprintf(
					"✅ Subscription saved!\n"+
						"💳 %s (%s)\n"+
						"💰 $%.2f/%s ($%.2f/month, $%.2f/year)\n"+
						"📅 Next billing: %s",
					sub.Name, sub.Category, sub.Cost, sub.BillingCycle,
					sub.MonthlyCost(), sub.YearlyCost(), formatDate(sub.RenewalDate),
				), nil
			},
		},
		{
			Name:        "list_subscriptions",
			Description: "List all tracked subscriptions with their costs and status.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "include_inactive", Type: "boolean", Description: "Include cancelled/inactive subscriptions", Required: false},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				subs, err := st.ListSubscriptions(ctx, !boolParam(params, "include_inactive"))
				if err != nil {
					return nil, err
				}
				if len(subs) == 0 {
					return "📭 No subscriptions found. Add some to start tracking your spending!", nil
				}

				now := time.Now()
				lines := []string{fmt.Sprintf("💳 **Your Subscriptions** (%d total)\n", len(subs))}
				var totalMonthly float64
				trialCount := 0
				for _, sub := range subs {
					if sub.IsFreeTrial {
						trialCount++
						lines = append(lines, fmt.Sprintf("• 🆓 %s - FREE TRIAL", sub.Name))
						if days, ok := sub.TrialDaysLeft(now); ok {
							lines = append(lines, fmt.Sprintf("     Trial ends in %d days ($%.2f/%s after)", days, sub.Cost, sub.BillingCycle))
						}
						continue
					}
					totalMonthly += sub.MonthlyCost()
					status := ""
					if !sub.Active {
						status = " [cancelled]"
					}
					lines = append(lines, fmt.Sprintf("• %s (%s) - $%.2f/%s%s", sub.Name, sub.Category, sub.Cost, sub.BillingCycle, status))
				}

				lines = append(lines, fmt.Sprintf("\n💰 **Total: $%.2f/month** ($%.2f/year)", totalMonthly, totalMonthly*12))
				if trialCount > 0 {
					lines = append(lines, fmt.Sprintf("⚠️ %s to watch!", plural(trialCount, "free trial")))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "get_spending_summary",
			Description: "Get a detailed breakdown of subscription spending by category. Shows monthly and yearly totals.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				summary, err := st.Spending(ctx)
				if err != nil {
					return nil, err
				}
				if summary.ActiveCount == 0 && summary.FreeTrialCount == 0 {
					return "📭 No active subscriptions to summarize. Add some to track your spending!", nil
				}

				lines := []string{
					"📊 **Subscription Spending Summary**\n",
					fmt.Sprintf("💰 **Monthly Total: $%.2f**", summary.MonthlyTotal),
					fmt.Sprintf("📅 **Yearly Total: $%.2f**", summary.YearlyTotal),
					fmt.Sprintf("📋 Active subscriptions: %d", summary.ActiveCount),
				}
				if summary.FreeTrialCount > 0 {
					lines = append(lines, fmt.Sprintf("🆓 Free trials: %d", summary.FreeTrialCount))
				}

				if len(summary.ByCategory) > 0 {
					lines = append(lines, "\n📂 **By Category:**")
					type catCost struct {
						name string
						cost float64
					}
					cats := make([]catCost, 0, len(summary.ByCategory))
					for name, cost := range summary.ByCategory {
						cats = append(cats, catCost{name, cost})
					}
					sort.Slice(cats, func(i, j int) bool { return cats[i].cost > cats[j].cost })
					for _, c := range cats {
						pct := 0.0
						if summary.MonthlyTotal > 0 {
							pct = c.cost / summary.MonthlyTotal * 100
						}
						lines = append(lines, fmt.Sprintf("  • %s: $%.2f/month (%.0f%%)", prettyCategory(c.name), c.cost, pct))
					}
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "get_trial_alerts",
			Description: "Get alerts for free trials ending soon. Helps avoid unexpected charges.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "days_ahead", Type: "integer", Description: "Days to look ahead for ending trials", Required: false, Default: 7},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				trials, err := st.FreeTrials(ctx)
				if err != nil {
					return nil, err
				}
				if len(trials) == 0 {
					return "✅ No active free trials to monitor.", nil
				}
				return formatTrialAlerts(trials, intParam(params, "days_ahead", 7)), nil
			},
		},
		{
			Name:        "cancel_subscription",
			Description: "Mark a subscription as cancelled, keeping its history for reference.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "service_name", Type: "string", Description: "Name of the subscription to cancel", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				sub, err := findSubscriptionByName(ctx, st, strParam(params, "service_name"))
				if err != nil {
					return err.Error(), nil
				}
				if _, err := st.CancelSubscription(ctx, sub.ID); err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Marked '%s' as cancelled. That frees up $%.2f/month!", sub.Name, sub.MonthlyCost()), nil
			},
		},
		{
			Name:        "delete_subscription",
			Description: "Delete a subscription from tracking entirely (e.g., after cancelling).",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "service_name", Type: "string", Description: "Name of the subscription to delete", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				sub, err := findSubscriptionByName(ctx, st, strParam(params, "service_name"))
				if err != nil {
					return err.Error(), nil
				}
				if err := st.DeleteSubscription(ctx, sub.ID); err != nil {
					return nil, err
				}
				return fmt.Sprintf("✅ Removed '%s' from tracking.", sub.Name), nil
			},
		},
	}
}

func findSubscriptionByName(ctx context.Context, st *store.Store, name string) (store.Subscription, error) {
	subs, err := st.ListSubscriptions(ctx, false)
	if err != nil {
		return store.Subscription{}, err
	}
	for _, sub := range subs {
		if strings.EqualFold(sub.Name, name) {
			return sub, nil
		}
	}
	return store.Subscription{}, fmt.Errorf("❌ Subscription '%s' not found.", name)
}

func formatTrialAlerts(trials []store.Subscription, daysAhead int) string {
	now := time.Now()
	type trialDays struct {
		sub  store.Subscription
		days int
	}
	var endingSoon, active []trialDays

	for _, trial := range trials {
		days, ok := trial.TrialDaysLeft(now)
		if !ok {
			continue
		}
		if days <= daysAhead {
			endingSoon = append(endingSoon, trialDays{trial, days})
		} else {
			active = append(active, trialDays{trial, days})
		}
	}

	if len(endingSoon) == 0 && len(active) == 0 {
		return "✅ No free trials currently active."
	}

	lines := []string{"🆓 **Free Trial Status**\n"}
	if len(endingSoon) > 0 {
		sort.Slice(endingSoon, func(i, j int) bool { return endingSoon[i].days < endingSoon[j].days })
		lines = append(lines, "🚨 **ENDING SOON:**")
		for _, t := range endingSoon {
			switch {
			case t.days < 0:
				lines = append(lines, fmt.Sprintf("  ⚠️ %s - ENDED %d days ago!", t.sub.Name, -t.days))
			case t.days == 0:
				lines = append(lines, fmt.Sprintf("  🔴 %s - ENDS TODAY! ($%.2f/%s)", t.sub.Name, t.sub.Cost, t.sub.BillingCycle))
			default:
				lines = append(lines, fmt.Sprintf("  🟠 %s - %d days left ($%.2f/%s after)", t.sub.Name, t.days, t.sub.Cost, t.sub.BillingCycle))
			}
		}
		lines = append(lines, "")
	}
	if len(active) > 0 {
		lines = append(lines, "✅ **Active Trials:**")
		for _, t := range active {
			lines = append(lines, fmt.Sprintf("  🟢 %s - %d days remaining", t.sub.Name, t.days))
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
