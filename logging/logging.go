// Package logging is the logrus-backed logger shared across this module,
// adapted from the command-line client's own logger package: a global level
// plus two opt-in toggles for the chattiest traffic (sent/received frames),
// so that a session can be run quietly or with full wire tracing.
package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Options controls which categories of debug-level logging are emitted.
type Options struct {
	LogSent     bool
	LogReceived bool
}

var opts Options

// Setup parses level (any logrus.Level string, e.g. "info", "debug",
// "trace") and records whether sent/received frames should be logged.
func Setup(level string, logSent, logReceived bool) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level %q: %w", level, err)
	}
	logrus.SetLevel(parsed)
	opts = Options{LogSent: logSent, LogReceived: logReceived}
	return nil
}

// Sent logs an outbound-frame event, gated behind the --log-sent flag.
func Sent(format string, args ...any) {
	if !opts.LogSent {
		return
	}
	logrus.Debugf(format, args...)
}

// Received logs an inbound-frame or reader-lifecycle event, gated behind the
// --log-recv flag.
func Received(format string, args ...any) {
	if !opts.LogReceived {
		return
	}
	logrus.Debugf(format, args...)
}

// Actor logs actor-runtime events that are always worth surfacing
// regardless of the sent/received toggles: an unhandled action error that
// is about to terminate a worker goroutine.
func Actor(format string, args ...any) {
	logrus.Errorf(format, args...)
}
