package logging

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger is a wrapper around the log.Logger from the charmbracelet/log package.
type Logger struct {
	*log.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New builds a logger writing to stderr. Setting DEBUG=1 enables debug level
// with caller and timestamp reporting.
func New() *Logger {
	baseLogger := log.New(os.Stderr)

	if os.Getenv("DEBUG") == "1" {
		baseLogger = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "lifelong",
		})
		baseLogger.SetLevel(log.DebugLevel)
	} else {
		baseLogger.SetLevel(log.InfoLevel)
	}

	return &Logger{Logger: baseLogger}
}

// NewQuiet builds a logger that discards all output, for use in tests.
func NewQuiet() *Logger {
	quiet := log.New(io.Discard)
	quiet.SetLevel(log.FatalLevel)
	return &Logger{Logger: quiet}
}

// Default returns the process-wide logger, creating it on first use.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New()
	})
	return defaultLogger
}

// BaseLogger returns the underlying *log.Logger.
func (l *Logger) BaseLogger() *log.Logger {
	return l.Logger
}
