package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	OFF
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case OFF:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel accepts the level names case-insensitively; anything else maps
// to fallback.
func ParseLevel(s string, fallback Level) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "OFF", "NONE":
		return OFF
	default:
		return fallback
	}
}

type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	level      Level
	prefix     string
	timeFormat string
	closer     io.Closer
}

var (
	defaultLogger *Logger
	once          sync.Once
)

func New(out io.Writer, level Level, prefix string) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{
		out:        out,
		level:      level,
		prefix:     prefix,
		timeFormat: "15:04:05.000",
	}
}

// Default discards everything until Init or SetOutput points it somewhere;
// the terminal belongs to the UI.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(io.Discard, INFO, "")
	})
	return defaultLogger
}

// Init opens path for appending through bubbletea's log file helper and
// routes the default logger there. An empty path leaves logging disabled.
func Init(path string, level Level) error {
	l := Default()
	if path == "" {
		l.SetLevel(OFF)
		return nil
	}

	f, err := tea.LogToFile(path, "syllecho")
	if err != nil {
		return fmt.Errorf("failed to open log file %q: %w", path, err)
	}

	l.mu.Lock()
	l.out = f
	l.closer = f
	l.level = level
	l.mu.Unlock()

	return nil
}

func Close() error {
	l := Default()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.out = io.Discard
	return err
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	l.out = w
}

func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level && l.level != OFF
}

func (l *Logger) log(level Level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || l.level == OFF {
		return
	}

	parts := []string{time.Now().Format(l.timeFormat), "[" + level.String() + "]"}
	if l.prefix != "" {
		parts = append(parts, l.prefix)
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	parts = append(parts, msg)

	fmt.Fprintln(l.out, strings.Join(parts, " "))
}

func (l *Logger) Debug(msg string, args ...any) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(ERROR, msg, args...) }

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

func SetLevel(level Level)  { Default().SetLevel(level) }
func SetOutput(w io.Writer) { Default().SetOutput(w) }
