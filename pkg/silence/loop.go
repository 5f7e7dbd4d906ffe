// ABOUTME: Playback loop that keeps a stream fed with silence
// ABOUTME: Classifies write results and re-primes the stream after underruns
package silence

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/gwwtests/play-silence/pkg/audio"
	"github.com/gwwtests/play-silence/pkg/audio/output"
)

// MaxRecoveryAttempts is how many consecutive failed re-primes abort the loop
const MaxRecoveryAttempts = 3

// Default pauses between iterations
const (
	DefaultIdleDelay  = time.Millisecond
	DefaultRetryDelay = 100 * time.Millisecond
)

// ErrTooManyRecoveries aborts the loop once the stream cannot be re-primed
var ErrTooManyRecoveries = errors.New("too many recovery attempts")

// WriteError is a write failure the loop cannot recover from
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("PCM write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// State is the loop's position in its lifecycle
type State int

const (
	StateWriting State = iota
	StateRecovering
	StateStopped
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateWriting:
		return "writing"
	case StateRecovering:
		return "recovering"
	case StateStopped:
		return "stopped"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats is a snapshot of loop counters
type Stats struct {
	Frames           int64
	Writes           int64
	PartialWrites    int64
	Underruns        int64
	Recoveries       int64
	FailedRecoveries int64
}

// LoopConfig configures a playback loop
type LoopConfig struct {
	// BufferFrames is the number of frames per write (default: 1024)
	BufferFrames int

	// Channels is the interleaved channel count (default: 2)
	Channels int

	// IdleDelay is the pause after every completed iteration
	IdleDelay time.Duration

	// RetryDelay is the pause after a failed re-prime
	RetryDelay time.Duration

	// Sleep replaces time.Sleep in tests
	Sleep func(time.Duration)

	// OnState is called on every state transition
	OnState func(State)

	// Log receives loop messages (default: disabled)
	Log slog.Logger
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.BufferFrames <= 0 {
		c.BufferFrames = audio.DefaultBufferFrames
	}
	if c.Channels <= 0 {
		c.Channels = audio.DefaultChannels
	}
	if c.IdleDelay <= 0 {
		c.IdleDelay = DefaultIdleDelay
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	return c
}

// Loop writes silence to a stream until its run flag drops or the stream
// faults beyond recovery
type Loop struct {
	stream  output.Stream
	flag    *RunFlag
	config  LoopConfig
	silence *audio.Silence
	log     slog.Logger

	stateMu sync.Mutex
	state   State

	frames           atomic.Int64
	writes           atomic.Int64
	partialWrites    atomic.Int64
	underruns        atomic.Int64
	recoveries       atomic.Int64
	failedRecoveries atomic.Int64
}

// NewLoop creates a loop over an already configured stream. The silence
// buffer is allocated here once.
func NewLoop(stream output.Stream, flag *RunFlag, config LoopConfig) *Loop {
	config = config.withDefaults()
	return &Loop{
		stream:  stream,
		flag:    flag,
		config:  config,
		silence: audio.NewSilence(config.BufferFrames, config.Channels),
		log:     config.Log,
		state:   StateWriting,
	}
}

// State returns the current state
func (l *Loop) State() State {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.stateMu.Lock()
	changed := l.state != s
	l.state = s
	l.stateMu.Unlock()

	if changed && l.config.OnState != nil {
		l.config.OnState(s)
	}
}

// Stats returns a snapshot of the loop counters
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:           l.frames.Load(),
		Writes:           l.writes.Load(),
		PartialWrites:    l.partialWrites.Load(),
		Underruns:        l.underruns.Load(),
		Recoveries:       l.recoveries.Load(),
		FailedRecoveries: l.failedRecoveries.Load(),
	}
}

// Run writes until stopped. It returns nil when the run flag dropped and
// the abort cause otherwise.
func (l *Loop) Run() error {
	want := l.silence.Frames()
	samples := l.silence.Samples()
	attempts := 0

	l.log.Infof("Playing silence... Press Ctrl+C to stop.")

	for l.flag.Running() {
		n, err := l.stream.Write(samples)
		l.writes.Add(1)
		if n > 0 {
			l.frames.Add(int64(n))
		}

		switch {
		case err == nil && n == want:
			attempts = 0
			l.setState(StateWriting)

		case err == nil:
			l.partialWrites.Add(1)
			l.log.Warnf("Partial write (%d/%d frames)", n, want)

		case errors.Is(err, output.ErrUnderrun):
			l.underruns.Add(1)
			l.setState(StateRecovering)
			l.log.Warnf("PCM underrun occurred")

			if perr := l.stream.Prepare(); perr != nil {
				l.failedRecoveries.Add(1)
				attempts++
				l.log.Errorf("Cannot recover from underrun: %v", perr)
				if attempts >= MaxRecoveryAttempts {
					l.log.Errorf("Too many recovery attempts, exiting")
					l.setState(StateAborted)
					return fmt.Errorf("%w: %w", ErrTooManyRecoveries, perr)
				}
				l.config.Sleep(l.config.RetryDelay)
				continue
			}

			l.recoveries.Add(1)
			attempts = 0
			l.setState(StateWriting)

		default:
			l.log.Errorf("PCM write failed: %v", err)
			l.setState(StateAborted)
			return &WriteError{Err: err}
		}

		l.config.Sleep(l.config.IdleDelay)
	}

	l.setState(StateStopped)
	l.log.Infof("Silence playback stopped.")
	return nil
}
