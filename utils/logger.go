package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Logger provides leveled logging throughout the importer.
type Logger struct {
	level Level
	out   *log.Logger
	err   *log.Logger
}

// NewLogger creates a Logger writing info and below to stdout and errors to stderr.
func NewLogger(level Level) *Logger {
	return &Logger{
		level: level,
		out:   log.New(os.Stdout, "", 0),
		err:   log.New(os.Stderr, "", 0),
	}
}

// NewDiscardLogger returns a Logger that drops everything. Used by tests.
func NewDiscardLogger() *Logger {
	return &Logger{
		level: LevelError + 1,
		out:   log.New(io.Discard, "", 0),
		err:   log.New(io.Discard, "", 0),
	}
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) printf(lvl Level, dst *log.Logger, tag, format string, args ...any) {
	if l == nil || lvl < l.level {
		return
	}
	dst.Printf("[%s] %s %s", l.timestamp(), tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.printf(LevelDebug, l.out, "\033[36mDEBUG\033[0m", format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.printf(LevelInfo, l.out, "\033[32mINFO\033[0m ", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.printf(LevelWarn, l.out, "\033[33mWARN\033[0m ", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.printf(LevelError, l.err, "\033[31mERROR\033[0m", format, args...)
}
