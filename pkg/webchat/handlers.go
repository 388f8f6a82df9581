package webchat

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lifeadmin/pkg/agent"
	"lifeadmin/pkg/store"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string `json:"response"`
	ToolCalls int    `json:"tool_calls,omitempty"`
}

// handleChat runs one agent turn for the authenticated user.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, user store.User) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	result, err := s.runner.Run(r.Context(), agent.RunParams{
		Prompt:     req.Message,
		SessionKey: sessionKeyFor(user),
		Config:     s.config,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("username", user.Username).Msg("chat run failed")
		writeError(w, http.StatusBadGateway, "assistant is unavailable, try again shortly")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Response,
		ToolCalls: len(result.ToolCalls),
	})
}

// overviewResponse mirrors the dashboard sidebar: counts plus the items
// most in need of attention.
type overviewResponse struct {
	Documents struct {
		Total     int              `json:"total"`
		Expiring  int              `json:"expiring"`
		Attention []documentStatus `json:"attention,omitempty"`
	} `json:"documents"`
	Subscriptions struct {
		Active       int           `json:"active"`
		MonthlyTotal float64       `json:"monthly_total"`
		YearlyTotal  float64       `json:"yearly_total"`
		EndingTrials []trialStatus `json:"ending_trials,omitempty"`
	} `json:"subscriptions"`
	LifeEvents struct {
		Active int           `json:"active"`
		Events []eventStatus `json:"events,omitempty"`
	} `json:"life_events"`
}

type documentStatus struct {
	Name       string `json:"name"`
	ExpiryDate string `json:"expiry_date"`
	Days       int    `json:"days_until_expiry"`
	Status     string `json:"status"`
}

type trialStatus struct {
	Name     string `json:"name"`
	DaysLeft int    `json:"days_left"`
}

type eventStatus struct {
	Title    string  `json:"title"`
	Done     int     `json:"done"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
	DaysLeft *int    `json:"days_left,omitempty"`
}

// handleOverview returns the dashboard summary.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request, _ store.User) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	now := time.Now()
	var resp overviewResponse

	docs, err := s.store.ListDocuments(ctx, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load documents")
		return
	}
	resp.Documents.Total = len(docs)
	for _, doc := range docs {
		days, ok := doc.DaysUntilExpiry(now)
		if !ok || days > 30 {
			continue
		}
		resp.Documents.Expiring++
		if len(resp.Documents.Attention) < 3 {
			resp.Documents.Attention = append(resp.Documents.Attention, documentStatus{
				Name:       doc.Name,
				ExpiryDate: doc.ExpiryDate,
				Days:       days,
				Status:     string(doc.Status(now)),
			})
		}
	}

	summary, err := s.store.Spending(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load subscriptions")
		return
	}
	resp.Subscriptions.Active = summary.ActiveCount
	resp.Subscriptions.MonthlyTotal = summary.MonthlyTotal
	resp.Subscriptions.YearlyTotal = summary.YearlyTotal

	trials, err := s.store.FreeTrials(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load trials")
		return
	}
	for _, trial := range trials {
		days, ok := trial.TrialDaysLeft(now)
		if !ok || days > 7 {
			continue
		}
		if len(resp.Subscriptions.EndingTrials) < 2 {
			resp.Subscriptions.EndingTrials = append(resp.Subscriptions.EndingTrials, trialStatus{
				Name:     trial.Name,
				DaysLeft: days,
			})
		}
	}

	events, err := s.store.ListLifeEvents(ctx, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load life events")
		return
	}
	resp.LifeEvents.Active = len(events)
	for i, event := range events {
		if i >= 3 {
			break
		}
		done, total, percent := event.Progress()
		status := eventStatus{
			Title:   event.Title,
			Done:    done,
			Total:   total,
			Percent: percent,
		}
		if days, ok := event.DaysUntilTarget(now); ok {
			status.DaysLeft = &days
		}
		resp.LifeEvents.Events = append(resp.LifeEvents.Events, status)
	}

	writeJSON(w, http.StatusOK, resp)
}

func sessionKeyFor(user store.User) string {
	return fmt.Sprintf("web-%s", user.Username)
}
