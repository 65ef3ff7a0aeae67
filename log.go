package codplayer

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the transport's logging facade. It wraps charmbracelet/log
// so every component logs with consistent leveling and timestamps
// instead of each reaching for the standard library's bare *log.Logger.
type Logger struct {
	*log.Logger
}

// NewLogger returns a Logger writing to stderr at the given debug
// setting. The daemon's --debug flag maps directly to debug.
func NewLogger(debug bool) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}
	return &Logger{Logger: l}
}

// WithComponent returns a Logger tagged with a "component" field,
// matching the original daemon's practice of prefixing log lines with
// the subsystem name (source/sink/transport/rip).
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}
