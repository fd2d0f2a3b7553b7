package debug

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool
	base    *charmlog.Logger
	loggers = make(map[string]*charmlog.Logger)
)

// Enable starts debug logging to ~/.config/go-smfplay/debug.log
func Enable() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return EnableFile(filepath.Join(homeDir, ".config", "go-smfplay", "debug.log"))
}

// EnableFile starts debug logging to path, truncating it.
func EnableFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	file = f
	start(f)
	return nil
}

// EnableWriter starts debug logging to w. Used for headless runs that log
// to stderr.
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		return
	}
	start(w)
}

// start must be called with mu held.
func start(w io.Writer) {
	base = charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           charmlog.DebugLevel,
	})
	loggers = make(map[string]*charmlog.Logger)
	enabled = true
	base.Info("=== Debug logging started ===")
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	base = nil
	enabled = false
}

// Enabled reports whether Log writes anywhere.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a message to the debug log. Never call it from the real-time
// playback goroutine.
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || base == nil {
		return
	}
	logger(category).Debugf(format, args...)
}

// Error writes an error-level message to the debug log.
func Error(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || base == nil {
		return
	}
	logger(category).Errorf(format, args...)
}

// logger must be called with mu held.
func logger(category string) *charmlog.Logger {
	l, ok := loggers[category]
	if !ok {
		l = base.WithPrefix(category)
		loggers[category] = l
	}
	return l
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 1 || n == 1 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
