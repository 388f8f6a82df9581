// Package templates provides the built-in checklists for common life events.
package templates

import (
	"fmt"
	"sort"
	"strings"

	"lifeadmin/pkg/store"
)

// Template is a predefined checklist for one kind of life event.
type Template struct {
	Title       string
	Description string
	Tasks       []store.ChecklistTask
}

// Custom is the event type for user-defined checklists.
const Custom = "custom"

var registry = map[string]Template{
	"moving": {
		Title:       "Moving Checklist",
		Description: "Moving to a new place",
		Tasks: []store.ChecklistTask{
			{Text: "Give notice to current landlord", Category: "4_weeks_before"},
			{Text: "Research moving companies or rent truck", Category: "4_weeks_before"},
			{Text: "Start packing non-essentials", Category: "4_weeks_before"},
			{Text: "Change address with post office", Category: "2_weeks_before"},
			{Text: "Transfer utilities (electric, gas, internet)", Category: "2_weeks_before"},
			{Text: "Update address with bank and employer", Category: "2_weeks_before"},
			{Text: "Notify insurance companies", Category: "2_weeks_before"},
			{Text: "Pack remaining items", Category: "1_week_before"},
			{Text: "Confirm moving day details", Category: "1_week_before"},
			{Text: "Prepare essentials box (toiletries, snacks, chargers)", Category: "1_week_before"},
			{Text: "Do final walkthrough of old place", Category: "moving_day"},
			{Text: "Take photos before leaving old place", Category: "moving_day"},
			{Text: "Hand over keys", Category: "moving_day"},
			{Text: "Update driver's license address", Category: "after_move"},
			{Text: "Register to vote at new address", Category: "after_move"},
			{Text: "Find new local services (doctor, dentist)", Category: "after_move"},
		},
	},
	"new_job": {
		Title:       "New Job Checklist",
		Description: "Starting a new job",
		Tasks: []store.ChecklistTask{
			{Text: "Give notice to current employer", Category: "before_start"},
			{Text: "Gather required documents (ID, SSN, bank info)", Category: "before_start"},
			{Text: "Complete any background check paperwork", Category: "before_start"},
			{Text: "Plan commute and parking", Category: "before_start"},
			{Text: "Prepare professional wardrobe", Category: "before_start"},
			{Text: "Review company handbook and policies", Category: "first_week"},
			{Text: "Complete HR onboarding paperwork", Category: "first_week"},
			{Text: "Set up direct deposit", Category: "first_week"},
			{Text: "Enroll in benefits (health, 401k)", Category: "first_week"},
			{Text: "Meet team members and key contacts", Category: "first_week"},
			{Text: "Set up workstation and tools", Category: "first_week"},
			{Text: "Schedule 1:1 with manager", Category: "first_month"},
			{Text: "Learn team processes and workflows", Category: "first_month"},
			{Text: "Complete required training", Category: "first_month"},
		},
	},
	"buying_car": {
		Title:       "Buying a Car Checklist",
		Description: "Purchasing a vehicle",
		Tasks: []store.ChecklistTask{
			{Text: "Determine budget", Category: "research"},
			{Text: "Research car models and reviews", Category: "research"},
			{Text: "Check credit score", Category: "research"},
			{Text: "Get pre-approved for auto loan", Category: "financing"},
			{Text: "Compare dealer vs bank financing", Category: "financing"},
			{Text: "Visit dealerships and test drive", Category: "shopping"},
			{Text: "Negotiate price", Category: "shopping"},
			{Text: "Review all paperwork carefully", Category: "purchase"},
			{Text: "Verify VIN and title", Category: "purchase"},
			{Text: "Get car insurance", Category: "purchase"},
			{Text: "Register vehicle and get plates", Category: "after_purchase"},
			{Text: "Schedule first service appointment", Category: "after_purchase"},
		},
	},
	"buying_home": {
		Title:       "Buying a Home Checklist",
		Description: "Buying a house/property",
		Tasks: []store.ChecklistTask{
			{Text: "Check credit score and improve if needed", Category: "preparation"},
			{Text: "Save for down payment and closing costs", Category: "preparation"},
			{Text: "Get pre-approved for mortgage", Category: "preparation"},
			{Text: "Hire a real estate agent", Category: "preparation"},
			{Text: "Define must-haves and nice-to-haves", Category: "house_hunting"},
			{Text: "Tour homes and attend open houses", Category: "house_hunting"},
			{Text: "Research neighborhoods", Category: "house_hunting"},
			{Text: "Make an offer", Category: "offer"},
			{Text: "Negotiate terms", Category: "offer"},
			{Text: "Get home inspection", Category: "due_diligence"},
			{Text: "Review inspection report", Category: "due_diligence"},
			{Text: "Get home appraisal", Category: "due_diligence"},
			{Text: "Finalize mortgage", Category: "closing"},
			{Text: "Get homeowner's insurance", Category: "closing"},
			{Text: "Do final walkthrough", Category: "closing"},
			{Text: "Sign closing documents", Category: "closing"},
			{Text: "Get keys!", Category: "closing"},
		},
	},
	"getting_married": {
		Title:       "Getting Married Checklist",
		Description: "Wedding planning",
		Tasks: []store.ChecklistTask{
			{Text: "Set a budget", Category: "planning"},
			{Text: "Choose a date", Category: "planning"},
			{Text: "Create guest list", Category: "planning"},
			{Text: "Book venue", Category: "booking"},
			{Text: "Hire photographer", Category: "booking"},
			{Text: "Book caterer", Category: "booking"},
			{Text: "Send save-the-dates", Category: "invitations"},
			{Text: "Send invitations", Category: "invitations"},
			{Text: "Get marriage license", Category: "legal"},
			{Text: "Plan honeymoon", Category: "planning"},
			{Text: "Arrange transportation", Category: "logistics"},
			{Text: "Confirm all vendors", Category: "final_week"},
			{Text: "Update name on documents (if changing)", Category: "after_wedding"},
			{Text: "Update beneficiaries", Category: "after_wedding"},
		},
	},
	"travel": {
		Title:       "Travel Planning Checklist",
		Description: "Planning a major trip",
		Tasks: []store.ChecklistTask{
			{Text: "Set travel budget", Category: "planning"},
			{Text: "Research destination", Category: "planning"},
			{Text: "Check passport expiry (6+ months)", Category: "documents"},
			{Text: "Apply for visa if needed", Category: "documents"},
			{Text: "Book flights", Category: "booking"},
			{Text: "Book accommodation", Category: "booking"},
			{Text: "Get travel insurance", Category: "booking"},
			{Text: "Create itinerary", Category: "planning"},
			{Text: "Notify bank of travel dates", Category: "before_trip"},
			{Text: "Arrange pet/house sitter", Category: "before_trip"},
			{Text: "Pack luggage", Category: "before_trip"},
			{Text: "Check in online", Category: "day_before"},
			{Text: "Confirm reservations", Category: "day_before"},
		},
	},
	Custom: {
		Title:       "Custom Checklist",
		Description: "Your own checklist, built task by task",
		Tasks:       []store.ChecklistTask{},
	},
}

// Get returns the template for an event type. The lookup is case
// insensitive.
func Get(eventType string) (Template, bool) {
	tpl, ok := registry[strings.ToLower(eventType)]
	return tpl, ok
}

// Types returns the known event type keys sorted alphabetically, with
// "custom" always last.
func Types() []string {
	var types []string
	for key := range registry {
		if key != Custom {
			types = append(types, key)
		}
	}
	sort.Strings(types)
	return append(types, Custom)
}

// Tasks returns a fresh copy of the template's tasks so callers can
// mutate done flags without touching the registry.
func Tasks(eventType string) ([]store.ChecklistTask, error) {
	tpl, ok := Get(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type %q, available: %s", eventType, strings.Join(Types(), ", "))
	}
	tasks := make([]store.ChecklistTask, len(tpl.Tasks))
	copy(tasks, tpl.Tasks)
	return tasks, nil
}
