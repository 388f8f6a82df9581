package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeadmin/pkg/agent"
	"lifeadmin/pkg/session"
	"lifeadmin/pkg/store"
	"lifeadmin/pkg/toolexecutor"
)

// echoProvider replies with a fixed prefix plus the last user message.
type echoProvider struct{}

func (p *echoProvider) Call(_ context.Context, req agent.LLMRequest) (*agent.LLMResponse, error) {
	last := ""
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			last = msg.Content
		}
	}
	return &agent.LLMResponse{Content: "echo: " + last}, nil
}

func (p *echoProvider) Provider() string { return "echo" }

type echoFactory struct{}

func (f *echoFactory) NewProvider(agent.AuthProfile) (agent.LLMProvider, error) {
	return &echoProvider{}, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.New(store.Config{
		DBPath: t.TempDir() + "/lifeadmin.db",
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessions, err := session.NewManager(session.Config{
		Dir:    t.TempDir(),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	runner, err := agent.NewRunner(agent.Config{
		Sessions:        sessions,
		ToolExecutor:    toolexecutor.New(),
		Logger:          zerolog.Nop(),
		AuthProfiles:    []agent.AuthProfile{{ID: "test", Provider: "openai", APIKey: "k"}},
		ProviderFactory: &echoFactory{},
	})
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Port:        8080,
		Store:       st,
		AgentRunner: runner,
		AgentConfig: agent.DefaultConfig(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)

	return srv, st
}

func postJSON(t *testing.T, ts *httptest.Server, path, token string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func getJSON(t *testing.T, ts *httptest.Server, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func registerUser(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, body := postJSON(t, ts, "/api/auth/register", "", credentials{Username: "alice", Password: "hunter22"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, body := getJSON(t, ts, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestServesChatUI(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Life Admin Assistant")
	assert.Contains(t, string(page), "/ws/chat")
}

func TestRegisterAndLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	registerUser(t, ts)

	resp, body := postJSON(t, ts, "/api/auth/login", "", credentials{Username: "alice", Password: "hunter22"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.NotEmpty(t, body["token"])

	resp, _ = postJSON(t, ts, "/api/auth/login", "", credentials{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, _ := postJSON(t, ts, "/api/chat", "", chatRequest{Message: "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, ts, "/api/chat", "bogus-token", chatRequest{Message: "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	token := registerUser(t, ts)

	resp, _ := postJSON(t, ts, "/api/auth/logout", token, struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, ts, "/api/chat", token, chatRequest{Message: "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChat(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	token := registerUser(t, ts)

	resp, body := postJSON(t, ts, "/api/chat", token, chatRequest{Message: "when does my passport expire?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "echo: when does my passport expire?", body["response"])

	resp, _ = postJSON(t, ts, "/api/chat", token, chatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOverview(t *testing.T) {
	srv, st := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	token := registerUser(t, ts)
	ctx := context.Background()
	soon := time.Now().AddDate(0, 0, 10).Format(store.DateLayout)

	_, err := st.CreateDocument(ctx, store.Document{Name: "Passport", Category: "travel", ExpiryDate: soon})
	require.NoError(t, err)
	_, err = st.CreateSubscription(ctx, store.Subscription{
		Name: "Netflix", Category: "streaming", Cost: 15.99, BillingCycle: store.CycleMonthly, Active: true,
	})
	require.NoError(t, err)
	_, err = st.CreateSubscription(ctx, store.Subscription{
		Name: "Notion", Category: "software", BillingCycle: store.CycleMonthly,
		Active: true, IsFreeTrial: true, TrialEndDate: time.Now().AddDate(0, 0, 3).Format(store.DateLayout),
	})
	require.NoError(t, err)
	_, err = st.CreateLifeEvent(ctx, store.LifeEvent{
		Title: "Moving Checklist", EventType: "moving",
		Checklist: []store.ChecklistTask{{Text: "Book movers"}, {Text: "Pack", Done: true}},
	})
	require.NoError(t, err)

	resp, body := getJSON(t, ts, "/api/overview", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	docs := body["documents"].(map[string]interface{})
	assert.Equal(t, float64(1), docs["total"])
	assert.Equal(t, float64(1), docs["expiring"])

	subs := body["subscriptions"].(map[string]interface{})
	assert.Equal(t, float64(1), subs["active"])
	assert.InDelta(t, 15.99, subs["monthly_total"].(float64), 0.01)
	trials := subs["ending_trials"].([]interface{})
	require.Len(t, trials, 1)
	assert.Equal(t, "Notion", trials[0].(map[string]interface{})["name"])

	events := body["life_events"].(map[string]interface{})
	assert.Equal(t, float64(1), events["active"])
	list := events["events"].([]interface{})
	require.Len(t, list, 1)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "Moving Checklist", first["title"])
	assert.Equal(t, float64(1), first["done"])
	assert.Equal(t, float64(2), first["total"])
}

func TestWebSocketChat(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	token := registerUser(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var ready wsOutbound
	require.NoError(t, conn.ReadJSON(&ready))
	assert.Equal(t, "ready", ready.Event)

	require.NoError(t, conn.WriteJSON(wsInbound{Message: "hello"}))

	var out wsOutbound
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "response", out.Event)
	assert.Equal(t, "echo: hello", out.Response)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?token=bogus"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")

	_, err = NewServer(Config{Port: 8080})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is required")
}
