package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/log"
)

// New builds the process logger from the configured level and format ("text" or "json").
func New(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

// TemporalLogger adapts logrus to the Temporal SDK so workflow.GetLogger and
// activity.GetLogger write through the same logger as the rest of the process.
type TemporalLogger struct {
	entry *logrus.Entry
}

var (
	_ log.Logger          = (*TemporalLogger)(nil)
	_ log.WithLogger      = (*TemporalLogger)(nil)
	_ log.WithSkipCallers = (*TemporalLogger)(nil)
)

func NewTemporalLogger(logger *logrus.Logger) *TemporalLogger {
	return &TemporalLogger{entry: logrus.NewEntry(logger)}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Debug(msg)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Info(msg)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Warn(msg)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Error(msg)
}

func (l *TemporalLogger) With(keyvals ...interface{}) log.Logger {
	return &TemporalLogger{entry: l.entry.WithFields(fields(keyvals))}
}

// WithCallerSkip is a no-op; logrus reports callers only when ReportCaller is set.
func (l *TemporalLogger) WithCallerSkip(int) log.Logger {
	return l
}

func fields(keyvals []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 >= len(keyvals) {
			f[key] = "MISSING"
			break
		}
		f[key] = keyvals[i+1]
	}
	return f
}
