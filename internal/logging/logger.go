// Package logging provides structured logging for the kiosk backend.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a set of contextual key/value pairs attached to a log entry.
type Fields = logrus.Fields

var (
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. level accepts the usual logrus
// level names ("debug", "info", "warn", "error"); anything else falls
// back to info.
func Init(out io.Writer, level string) {
	once.Do(func() {
		global = logrus.New()
		global.SetOutput(out)
		global.SetFormatter(&logrus.JSONFormatter{})

		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			parsed = logrus.InfoLevel
		}
		global.SetLevel(parsed)
	})
}

// Get returns the global logger instance.
func Get() *logrus.Logger {
	if global == nil {
		Init(os.Stdout, "info")
	}
	return global
}

// Convenience functions using the global logger.

func Debug(message string, fields ...Fields) {
	entry(fields...).Debug(message)
}

func Info(message string, fields ...Fields) {
	entry(fields...).Info(message)
}

func Warn(message string, fields ...Fields) {
	entry(fields...).Warn(message)
}

func Error(message string, err error, fields ...Fields) {
	e := entry(fields...)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(message)
}

func entry(fields ...Fields) *logrus.Entry {
	e := logrus.NewEntry(Get())
	for _, f := range fields {
		e = e.WithFields(f)
	}
	return e
}
