// Package logging builds the process logger.
//
// LOG_LEVEL picks the level (default info). LOG_FORMAT=json switches to JSON output for log
// collectors; anything else prints text with full timestamps.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func New(component string) *logrus.Entry {
	return NewWithOutput(component, os.Stdout)
}

func NewWithOutput(component string, out io.Writer) *logrus.Entry {
	l := logrus.New()

	level, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetOutput(out)
	return l.WithField("component", component)
}

// Nop discards everything. Used when a caller passes no logger.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
