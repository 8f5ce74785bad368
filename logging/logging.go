/*
Package logging configures the service logger.

PURPOSE:
  One JSON logger on stdout, shared by the HTTP layer and the session
  manager. Each request gets its own LogData that collects fields and
  timings and is written once when the handler finishes.

FORMAT:
  {"loglevel":"info","msg":"Handler.Scan.Complete","duration":3,"wallet":"Dex...","status":200,...}

SEE ALSO:
  - log_data.go: Per-request fields and timings
  - middleware.go: chi middleware writing one line per request
*/
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup builds the service logger at the given level ("debug", "info", ...).
func Setup(level string) (*logrus.Logger, error) {
	return New(os.Stdout, level)
}

// New builds a JSON logger writing to out.
func New(out io.Writer, level string) (*logrus.Logger, error) {
	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	logger := &logrus.Logger{
		Formatter: &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyLevel: "loglevel",
			},
		},
		Out:   out,
		Hooks: make(logrus.LevelHooks),
		Level: lvl,
	}
	return logger, nil
}

// Discard returns a logger that writes nothing. Used by tests.
func Discard() *logrus.Logger {
	logger, _ := New(io.Discard, "panic")
	return logger
}
