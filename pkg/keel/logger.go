package keel

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger is the framework's logging contract. All wiring and pipeline
// diagnostics go through it. Each method takes a printf-style format string.
type Logger interface {
	Trace(format string, args ...any)
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Level gates console logger output.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ConsoleLogger writes leveled, colored lines to the process streams.
// Trace through info go to stdout, warn and error to stderr.
type ConsoleLogger struct {
	level Level
	out   io.Writer
	err   io.Writer
}

var levelColors = map[Level]*color.Color{
	LevelTrace: color.New(color.FgHiBlack),
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow, color.Bold),
	LevelError: color.New(color.FgRed, color.Bold),
}

// NewConsoleLogger creates a console logger with the given minimum level.
func NewConsoleLogger(level Level) *ConsoleLogger {
	return &ConsoleLogger{level: level, out: os.Stdout, err: os.Stderr}
}

func (l *ConsoleLogger) write(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	w := l.out
	if level >= LevelWarn {
		w = l.err
	}
	levelColors[level].Fprintf(w, "%-5s ", level)
	fmt.Fprintf(w, format+"\n", args...)
}

func (l *ConsoleLogger) Trace(format string, args ...any) { l.write(LevelTrace, format, args...) }
func (l *ConsoleLogger) Debug(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *ConsoleLogger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *ConsoleLogger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *ConsoleLogger) Error(format string, args ...any) { l.write(LevelError, format, args...) }

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) Trace(string, ...any) {}
func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
