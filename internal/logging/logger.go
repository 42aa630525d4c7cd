package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Interface describes the minimal logging interface the analyzers rely on.
type Interface interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

var (
	globalLogger Interface
	mu           sync.Mutex
)

// Logger returns the process logger, building a stderr logger at info level
// on first use. Standard output is reserved for report lines.
func Logger() Interface {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil {
		globalLogger = New(os.Stderr, zerolog.InfoLevel)
	}
	return globalLogger
}

// Configure replaces the process logger with one writing to w at the named
// level (debug, info, warn, error).
func Configure(level string, w io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	globalLogger = New(w, lvl)
	mu.Unlock()
	return nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// New builds a zerolog-backed logger writing JSON lines to w.
func New(w io.Writer, level zerolog.Level) Interface {
	base := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zerologAdapter{log: base}
}

// Nop returns a logger that discards everything.
func Nop() Interface {
	return &zerologAdapter{log: zerolog.Nop()}
}

type zerologAdapter struct {
	log zerolog.Logger
}

func (l *zerologAdapter) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *zerologAdapter) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *zerologAdapter) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *zerologAdapter) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}
