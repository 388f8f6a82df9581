package prompt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptWhenNoPath(t *testing.T) {
	l, err := NewLoader("", zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	current := l.Current()
	assert.Contains(t, current, "Life Admin Assistant")
	assert.NotContains(t, current, "{current_date}")
	assert.Contains(t, current, time.Now().Format("2006-01-02"))
}

func TestLoadsPromptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system_prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("Custom prompt for {current_date}."), 0600))

	l, err := NewLoader(path, zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	current := l.Current()
	assert.Contains(t, current, "Custom prompt for")
	assert.Contains(t, current, time.Now().Format("2006-01-02"))
}

func TestMissingFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.txt")

	l, err := NewLoader(path, zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	assert.Contains(t, l.Current(), "Life Admin Assistant")
}

func TestReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system_prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("version one"), 0600))

	l, err := NewLoader(path, zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()
	l.debounce = 10 * time.Millisecond

	assert.Contains(t, l.Current(), "version one")

	require.NoError(t, os.WriteFile(path, []byte("version two"), 0600))

	require.Eventually(t, func() bool {
		return l.Current() == "version two"
	}, 2*time.Second, 20*time.Millisecond)
}
