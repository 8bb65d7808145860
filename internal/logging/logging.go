// Package logging implements the process-global, level-filtered logger:
// a zerolog.Logger wrapped with a custom ConsoleWriter that emits exactly
// "[LEVEL] [HH:MM:SS.mmm] message" per record. Grounded on the teacher's
// pkg/logger.Log singleton, generalized with explicit level gating and a
// mutex the teacher's simpler global never needed.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the logger's filtering threshold. Thresholds are inclusive:
// setting Warning logs Warning and Error, not Info or Debug.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Silent
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "SILENT"
	}
}

var levelNames = map[string]Level{
	"debug":   Debug,
	"info":    Info,
	"warning": Warning,
	"error":   Error,
	"silent":  Silent,
}

// ParseLevel parses a case-insensitive level name (debug/info/warning/error/silent).
func ParseLevel(s string) (Level, error) {
	l, ok := levelNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
	return l, nil
}

// Logger is a level-gated, mutex-guarded sink. The zero value is not usable;
// construct with New.
type Logger struct {
	mu     sync.RWMutex
	level  Level
	sink   io.Writer
	logger zerolog.Logger
}

// New builds a Logger at the given level writing to sink.
func New(level Level, sink io.Writer) *Logger {
	l := &Logger{level: level, sink: sink}
	l.logger = zerolog.New(consoleWriter(sink)).With().Timestamp().Logger()
	return l
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-global Logger, created on first use at Info
// level writing to stderr. Every call returns the same instance.
func Default() *Logger {
	defaultOnce.Do(func() { defaultLogger = New(Info, os.Stderr) })
	return defaultLogger
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: "15:04:05.000",
		FormatLevel: func(i any) string {
			s, _ := i.(string)
			return fmt.Sprintf("[%s]", strings.ToUpper(s))
		},
		FormatTimestamp: func(any) string {
			// The event's own time field has whole-second RFC3339 precision;
			// records are written synchronously, so the write time is used.
			return fmt.Sprintf("[%s]", time.Now().Format("15:04:05.000"))
		},
		FormatMessage: func(i any) string {
			s, _ := i.(string)
			return s
		},
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.TimestampFieldName, zerolog.MessageFieldName},
	}
}

// SetLevel changes the filtering threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the current filtering threshold.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetSink redirects output to a new writer.
func (l *Logger) SetSink(sink io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
	l.logger = zerolog.New(consoleWriter(sink)).With().Timestamp().Logger()
}

func (l *Logger) log(level Level, msg string) {
	l.mu.RLock()
	threshold := l.level
	logger := l.logger
	l.mu.RUnlock()
	if level < threshold {
		return
	}
	eventFor(&logger, level)().Msg(msg)
}

func eventFor(logger *zerolog.Logger, level Level) func() *zerolog.Event {
	switch level {
	case Debug:
		return logger.Debug
	case Info:
		return logger.Info
	case Warning:
		return logger.Warn
	case Error:
		return logger.Error
	default:
		return logger.Info
	}
}

// Debugf logs at Debug level. The message is formatted only if Debug passes
// the current threshold.
func (l *Logger) Debugf(format string, args ...any) { l.logf(Debug, format, args...) }

// Infof logs at Info level.
func (l *Logger) Infof(format string, args ...any) { l.logf(Info, format, args...) }

// Warningf logs at Warning level.
func (l *Logger) Warningf(format string, args ...any) { l.logf(Warning, format, args...) }

// Errorf logs at Error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(Error, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	l.mu.RLock()
	threshold := l.level
	l.mu.RUnlock()
	if level < threshold {
		return
	}
	l.log(level, fmt.Sprintf(format, args...))
}
