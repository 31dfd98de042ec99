// Package logutils holds the process-wide logger.
package logutils

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the logger used across the engine, store and API.
var Log = logrus.New()

// Fields is the type of logrus.Fields.
type Fields = logrus.Fields

//nolint:gochecknoinits // This is the only place where the default formatter is set.
func init() {
	Log.SetLevel(logrus.InfoLevel)
	Log.SetFormatter(textFormatter())
}

func textFormatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	}
}

// Configure applies level ("debug", "info", "warn", "error") and format
// ("text" or "json"). Unknown levels fall back to info.
func Configure(level, format string, out io.Writer) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		Log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
	} else {
		Log.SetFormatter(textFormatter())
	}
	if out != nil {
		Log.SetOutput(out)
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
