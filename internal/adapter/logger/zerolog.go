// Package logger adapts zerolog to the domain Logger port.
// Diagnostics go to stderr so stdout stays reserved for measurement
// output.
package logger

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Zerolog is a structured stderr logger. On a terminal it uses the
// human console format, otherwise JSON lines.
type Zerolog struct {
	log zerolog.Logger
}

// New creates the stderr logger.
func New() *Zerolog {
	var lg zerolog.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		lg = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		lg = zerolog.New(os.Stderr)
	}
	return &Zerolog{log: lg.With().Timestamp().Logger()}
}

// Info logs an informational message with key/value pairs.
func (l *Zerolog) Info(msg string, args ...any) {
	ev := l.log.Info()
	for i := 0; i+1 < len(args); i += 2 {
		ev = ev.Interface(key(args[i]), args[i+1])
	}
	ev.Msg(msg)
}

// Error logs an error message with key/value pairs.
func (l *Zerolog) Error(msg string, args ...any) {
	ev := l.log.Error()
	for i := 0; i+1 < len(args); i += 2 {
		ev = ev.Interface(key(args[i]), args[i+1])
	}
	ev.Msg(msg)
}

func key(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "arg"
}
