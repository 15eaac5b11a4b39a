// Package platform holds the cross-cutting plumbing shared by every emulated
// service: structured logging, operation metrics, trace spans and the clock.
package platform

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger accepted by every component. Arguments after
// msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}

// LogrusLogger adapts a logrus logger to Logger.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l. A nil l uses logrus.StandardLogger().
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// With returns a logger that always carries the supplied key/value pairs.
func (l *LogrusLogger) With(args ...any) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithFields(fields(args))}
}

func (l *LogrusLogger) Debug(msg string, args ...any) { l.entry.WithFields(fields(args)).Debug(msg) }
func (l *LogrusLogger) Info(msg string, args ...any)  { l.entry.WithFields(fields(args)).Info(msg) }
func (l *LogrusLogger) Warn(msg string, args ...any)  { l.entry.WithFields(fields(args)).Warn(msg) }
func (l *LogrusLogger) Error(msg string, args ...any) { l.entry.WithFields(fields(args)).Error(msg) }

// NewLogrus builds a text logrus logger at the named level ("" means info).
func NewLogrus(level string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level == "" {
		return l, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)
	return l, nil
}

func fields(args []any) logrus.Fields {
	if len(args) == 0 {
		return nil
	}
	out := make(logrus.Fields, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			out[key] = "(MISSING)"
			break
		}
		out[key] = args[i+1]
	}
	return out
}
