// Package logger provides namespaced debug loggers gated by the HK_LOG
// environment variable plus a leveled file sink configured by HK_LOG_FILE.
package logger

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level is a log severity for the file sink and the global stderr gate.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// ParseLevel parses a level name, defaulting to info on unknown input.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

// Logger is a debug logger for a specific namespace
type Logger struct {
	namespace string
	enabled   bool
	lastLog   time.Time
	mu        sync.Mutex
	color     string
}

var (
	// HK_LOG namespace patterns, read once at initialization
	logEnv = os.Getenv("HK_LOG")

	// Check if stderr is a terminal (for color support)
	isTTY = isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("NO_COLOR") == ""

	// Color palette - chosen to be readable on both light and dark backgrounds
	// Using ANSI 256-color codes for better compatibility
	colorPalette = []string{
		"\033[38;5;33m",  // Blue
		"\033[38;5;35m",  // Green
		"\033[38;5;166m", // Orange
		"\033[38;5;125m", // Purple
		"\033[38;5;37m",  // Cyan
		"\033[38;5;161m", // Magenta
		"\033[38;5;136m", // Yellow
		"\033[38;5;124m", // Red
	}

	colorReset = "\033[0m"

	fileMu    sync.Mutex
	fileSink  *os.File
	fileLevel Level = LevelInfo
)

func init() {
	path := os.Getenv("HK_LOG_FILE")
	if path == "" {
		return
	}
	if lv := os.Getenv("HK_LOG_FILE_LEVEL"); lv != "" {
		fileLevel = ParseLevel(lv)
	} else if lv := os.Getenv("HK_LOG_LEVEL"); lv != "" {
		fileLevel = ParseLevel(lv)
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hk: cannot open log file %s: %v\n", path, err)
		return
	}
	fileSink = f
}

// New creates a new Logger for the given namespace.
// The enabled state is computed at construction time from HK_LOG:
//
//	HK_LOG=*                - enables all loggers
//	HK_LOG=engine:*         - enables all loggers in a namespace
//	HK_LOG=ns1,ns2          - enables specific namespaces
//	HK_LOG=ns:*,-ns:locks   - enables a namespace but excludes patterns
//
// Colors are assigned per namespace when stderr is a TTY and NO_COLOR is
// unset.
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   computeEnabled(namespace),
		lastLog:   time.Now(),
		color:     selectColor(namespace),
	}
}

// selectColor selects a color for the namespace based on its hash
func selectColor(namespace string) string {
	if !isTTY {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(namespace))
	return colorPalette[h.Sum32()%uint32(len(colorPalette))]
}

// Enabled returns whether this logger writes to stderr
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Printf logs a formatted debug message. A newline is always added, together
// with the time elapsed since this logger last printed.
func (l *Logger) Printf(format string, args ...any) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}

// Print logs a debug message.
func (l *Logger) Print(args ...any) {
	l.log(LevelDebug, fmt.Sprint(args...))
}

// Warnf logs at warn level; it reaches the file sink unless the file level
// is error.
func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}

func (l *Logger) log(level Level, message string) {
	if fileSink != nil && level <= fileLevel {
		fileMu.Lock()
		fmt.Fprintf(fileSink, "%s %s %s %s\n",
			time.Now().Format(time.RFC3339), level, l.namespace, message)
		fileMu.Unlock()
	}
	if !l.enabled && level >= LevelDebug {
		return
	}
	if !l.enabled && level < LevelDebug && level > ParseLevel(os.Getenv("HK_LOG_LEVEL")) {
		return
	}

	l.mu.Lock()
	now := time.Now()
	diff := now.Sub(l.lastLog)
	l.lastLog = now
	l.mu.Unlock()

	if l.color != "" {
		fmt.Fprintf(os.Stderr, "%s%s%s %s +%s\n", l.color, l.namespace, colorReset, message, formatDuration(diff))
	} else {
		fmt.Fprintf(os.Stderr, "%s %s +%s\n", l.namespace, message, formatDuration(diff))
	}
}

// formatDuration formats a duration like the debug npm package
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}

// computeEnabled computes whether a namespace matches the HK_LOG patterns
func computeEnabled(namespace string) bool {
	patterns := strings.Split(logEnv, ",")

	enabled := false

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)

		// Exclusions (starting with -) take precedence
		if strings.HasPrefix(pattern, "-") {
			if matchPattern(namespace, strings.TrimPrefix(pattern, "-")) {
				return false
			}
			continue
		}

		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}

	return enabled
}

// matchPattern checks if a namespace matches a pattern.
// Supports a single * wildcard at either end or in the middle.
func matchPattern(namespace, pattern string) bool {
	if pattern == "*" || pattern == namespace {
		return true
	}

	if strings.Contains(pattern, "*") {
		if strings.HasSuffix(pattern, "*") {
			return strings.HasPrefix(namespace, strings.TrimSuffix(pattern, "*"))
		}
		if strings.HasPrefix(pattern, "*") {
			return strings.HasSuffix(namespace, strings.TrimPrefix(pattern, "*"))
		}
		parts := strings.SplitN(pattern, "*", 2)
		return strings.HasPrefix(namespace, parts[0]) && strings.HasSuffix(namespace, parts[1])
	}

	return false
}
