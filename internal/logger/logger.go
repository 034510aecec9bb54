// Package logger configures the process-wide charmbracelet logger.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// Setup points the default logger at file (stderr when empty) with the given
// level. The returned closer releases the log file and is safe to call when
// logging goes to stderr.
func Setup(level, file string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", file)
		}
		w, closer = f, f
	}

	log.SetDefault(log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: file != "",
		Prefix:          "shards",
	}))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
