package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeadmin/internal/config"
	"lifeadmin/pkg/store"
)

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--version"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		assert.Contains(t, output.String(), "lifeadmin version")
		assert.Contains(t, output.String(), GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)

		helpText := output.String()
		assert.Contains(t, helpText, "Life Admin")
		assert.Contains(t, helpText, "chat")
		assert.Contains(t, helpText, "serve")
		assert.Contains(t, helpText, "digest")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()

		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
		require.NotNil(t, logLevelFlag)
		assert.Equal(t, "info", logLevelFlag.DefValue)
	})
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}

func TestTrackingSummary(t *testing.T) {
	st, err := store.New(store.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	soon := time.Now().AddDate(0, 0, 14).Format(store.DateLayout)

	_, err = st.CreateDocument(ctx, store.Document{Name: "Passport", Category: "travel", ExpiryDate: soon})
	require.NoError(t, err)
	_, err = st.CreateSubscription(ctx, store.Subscription{
		Name: "Netflix", Category: "streaming", Cost: 15.99, BillingCycle: store.CycleMonthly,
	})
	require.NoError(t, err)
	_, err = st.CreateLifeEvent(ctx, store.LifeEvent{
		Title: "Moving Checklist", EventType: "moving",
		Checklist: []store.ChecklistTask{{Text: "Book movers"}, {Text: "Pack", Done: true}},
	})
	require.NoError(t, err)

	a := &app{cfg: config.DefaultConfig(), store: st}

	summary, err := a.trackingSummary(ctx)
	require.NoError(t, err)

	assert.Contains(t, summary, "Documents: 1 tracked")
	assert.Contains(t, summary, "1 expiring within 30 days")
	assert.Contains(t, summary, "Subscriptions: 1 active, $15.99/month")
	assert.Contains(t, summary, "Moving Checklist: 1/2 tasks")
	assert.Contains(t, summary, "Email reminders: not configured")
}
