// Package prompt loads the assistant's system prompt, substituting the
// {current_date} placeholder and reloading the prompt file when it
// changes on disk.
package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultPrompt is used when no prompt file exists.
const DefaultPrompt = `You are the Life Admin Assistant, a friendly personal assistant that helps users manage their life admin:

- Track important documents (passports, licenses, insurance) and their expiry dates
- Track subscriptions, free trials and recurring spending
- Guide users through life events (moving, new job, getting married) with checklists
- Remember facts and preferences the user shares

Today's date is {current_date}.

Be concise and warm. Use the available tools to answer questions about the user's documents, subscriptions and checklists instead of guessing. When a date is mentioned without a year, assume the next occurrence. Surface anything urgent (expiring documents, ending free trials) proactively when relevant.`

// Loader serves the current system prompt. When a prompt file is
// configured it is watched for changes and reloaded with a debounce.
type Loader struct {
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	mu   sync.RWMutex
	text string

	debounce time.Duration
	timer    *time.Timer
	timerMu  sync.Mutex
	stopCh   chan struct{}
}

// NewLoader creates a prompt loader. An empty path serves the built-in
// default prompt. A configured path that does not exist yet also falls
// back to the default until the file appears.
func NewLoader(path string, logger zerolog.Logger) (*Loader, error) {
	l := &Loader{
		path:     path,
		logger:   logger,
		text:     DefaultPrompt,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}
	l.reload()

	if path != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		l.watcher = watcher

		// Watch the directory so create/rename of the file is seen too.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			watcher.Close()
			return nil, err
		}
		go l.run()
	}

	return l, nil
}

// Current returns the system prompt with {current_date} replaced by
// today's date.
func (l *Loader) Current() string {
	l.mu.RLock()
	text := l.text
	l.mu.RUnlock()

	return strings.ReplaceAll(text, "{current_date}", time.Now().Format("2006-01-02"))
}

// Close stops watching the prompt file.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	close(l.stopCh)
	return l.watcher.Close()
}

func (l *Loader) reload() {
	if l.path == "" {
		return
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn().Err(err).Str("path", l.path).Msg("failed to read prompt file")
		}
		l.mu.Lock()
		l.text = DefaultPrompt
		l.mu.Unlock()
		return
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		text = DefaultPrompt
	}

	l.mu.Lock()
	l.text = text
	l.mu.Unlock()
	l.logger.Debug().Str("path", l.path).Msg("system prompt loaded")
}

func (l *Loader) run() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(l.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				l.logger.Debug().Str("op", event.Op.String()).Msg("prompt file changed")
				l.scheduleReload()
			}

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("prompt watcher error")

		case <-l.stopCh:
			return
		}
	}
}

// scheduleReload debounces bursts of file events into one reload.
func (l *Loader) scheduleReload() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, l.reload)
}
