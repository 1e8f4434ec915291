// Package logging provides structured logging for the collector.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// global logger instance
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. Output is JSON so log lines stay
// machine-readable when the collector runs unattended.
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

// mergeFields merges multiple field maps into one.
func mergeFields(fields ...logrus.Fields) logrus.Fields {
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 {
		return fields[0]
	}
	merged := make(logrus.Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}

// Convenience functions using the global logger

func Debug(message string, fields ...logrus.Fields) {
	Get().WithFields(mergeFields(fields...)).Debug(message)
}

func Info(message string, fields ...logrus.Fields) {
	Get().WithFields(mergeFields(fields...)).Info(message)
}

func Warn(message string, fields ...logrus.Fields) {
	Get().WithFields(mergeFields(fields...)).Warn(message)
}

func Error(message string, err error, fields ...logrus.Fields) {
	entry := Get().WithFields(mergeFields(fields...))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}
