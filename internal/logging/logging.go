// Package logging provides a tiny opt-in logger used across internal
// packages. When Writer is nil, logging is disabled.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Level is a coarse verbosity level, ordered least to most verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel parses a level string (case-insensitive). Unknown values
// default to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Logger writes leveled, prefixed lines to an io.Writer. The zero value is
// a disabled logger (every call becomes a no-op).
//
// Output format: "<RFC3339 UTC timestamp> <prefix> job=<jobID> <formattedMessage>\n"
// (the job field is left out when OmitJob is set).
type Logger struct {
	Writer io.Writer
	Level  Level

	// OmitJob controls whether the job ID field is written.
	OmitJob bool
}

// New builds a Logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{Writer: w, Level: level}
}

func (l *Logger) Enabled() bool { return l != nil && l.Writer != nil }

func (l *Logger) logf(level Level, prefix, jobID, format string, args ...any) {
	if l == nil || l.Writer == nil || level > l.Level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	ts := time.Now().UTC().Format(time.RFC3339)
	if l.OmitJob {
		fmt.Fprintf(l.Writer, "%s %s %s\n", ts, prefix, msg)
		return
	}
	j := strings.TrimSpace(jobID)
	if j == "" {
		j = "(none)"
	}
	fmt.Fprintf(l.Writer, "%s %s job=%s %s\n", ts, prefix, j, msg)
}

func (l *Logger) Errorf(jobID, format string, args ...any) { l.logf(LevelError, "ERROR", jobID, format, args...) }
func (l *Logger) Warnf(jobID, format string, args ...any)  { l.logf(LevelWarn, "WARN", jobID, format, args...) }
func (l *Logger) Infof(jobID, format string, args ...any)  { l.logf(LevelInfo, "INFO", jobID, format, args...) }
func (l *Logger) Debugf(jobID, format string, args ...any) { l.logf(LevelDebug, "DEBUG", jobID, format, args...) }
