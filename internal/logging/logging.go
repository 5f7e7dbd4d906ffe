// ABOUTME: Subsystem loggers on a shared decred/slog backend
// ABOUTME: Parses level names and routes log lines to a writer or callback
package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/decred/slog"
)

// Subsystem tags
const (
	Main    = "MAIN"
	Session = "SESS"
	Loop    = "LOOP"
	Output  = "OUTP"
)

// DefaultLevel is used when no level is configured
const DefaultLevel = "info"

// Logging hands out one logger per subsystem, all writing to the same
// backend at the same level
type Logging struct {
	backend *slog.Backend

	mu      sync.Mutex
	level   slog.Level
	loggers map[string]slog.Logger
}

// New creates loggers writing to w at the named level
func New(w io.Writer, level string) (*Logging, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &Logging{
		backend: slog.NewBackend(w),
		level:   lvl,
		loggers: make(map[string]slog.Logger),
	}, nil
}

// Logger returns the logger for a subsystem, creating it on first use
func (l *Logging) Logger(subsystem string) slog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if logger, ok := l.loggers[subsystem]; ok {
		return logger
	}
	logger := l.backend.Logger(subsystem)
	logger.SetLevel(l.level)
	l.loggers[subsystem] = logger
	return logger
}

// SetLevel changes the level of every subsystem
func (l *Logging) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = lvl
	for _, logger := range l.loggers {
		logger.SetLevel(lvl)
	}
	return nil
}

// Level returns the current level
func (l *Logging) Level() slog.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Subsystems returns the tags handed out so far
func (l *Logging) Subsystems() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	tags := make([]string, 0, len(l.loggers))
	for tag := range l.loggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ParseLevel accepts trace, debug, info, warn, error, critical and off in
// any case. An empty string is the default level.
func ParseLevel(level string) (slog.Level, error) {
	if level == "" {
		level = DefaultLevel
	}
	lvl, ok := slog.LevelFromString(strings.ToLower(level))
	if !ok {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (use trace, debug, info, warn, error, critical or off)", level)
	}
	return lvl, nil
}

// LineWriter calls fn once per complete line written to it. Partial lines
// are held until their newline arrives.
type LineWriter struct {
	fn  func(string)
	mu  sync.Mutex
	buf []byte
}

// NewLineWriter creates a writer that forwards lines to fn
func NewLineWriter(fn func(string)) *LineWriter {
	return &LineWriter{fn: fn}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.fn(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}
