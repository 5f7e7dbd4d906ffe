// ABOUTME: Playback driver interfaces shared by all output backends
// ABOUTME: Defines Driver, Device, HwParams, Stream and the stream sentinels
package output

import (
	"errors"

	"github.com/decred/slog"
	"github.com/gwwtests/play-silence/pkg/audio"
)

var (
	// ErrUnderrun is returned by Stream.Write when the device ran dry before
	// the data arrived. The stream must be re-primed with Prepare.
	ErrUnderrun = errors.New("buffer underrun")

	// ErrUnknownDevice is returned when a device identifier names no driver
	ErrUnknownDevice = errors.New("unknown device identifier")

	// ErrClosed is returned by operations on a closed stream
	ErrClosed = errors.New("stream closed")

	// ErrNotSupported is returned when a device rejects a parameter
	ErrNotSupported = errors.New("not supported by device")
)

// DefaultPeriods is the number of periods of buffering requested from a device
const DefaultPeriods = 4

// OpenOptions carries settings that apply to every driver
type OpenOptions struct {
	// PeriodFrames is the size of one write in frames
	PeriodFrames int

	// AppName is reported to sound servers that track clients
	AppName string

	// Log receives driver diagnostics (default: disabled)
	Log slog.Logger
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.PeriodFrames <= 0 {
		o.PeriodFrames = audio.DefaultBufferFrames
	}
	if o.AppName == "" {
		o.AppName = "play-silence"
	}
	if o.Log == nil {
		o.Log = slog.Disabled
	}
	return o
}

// Driver opens playback devices of one backend
type Driver interface {
	// Name returns the backend name used in device identifiers
	Name() string

	// Open opens the named device for playback. An empty name selects
	// the backend's default output.
	Open(name string, opts OpenOptions) (Device, error)
}

// Device is an opened but not yet configured playback device
type Device interface {
	// Name returns a human-readable name for the device
	Name() string

	// HwParams returns the device's mutable parameter space
	HwParams() (HwParams, error)

	// Close releases the device. Streams committed from it must be
	// closed first.
	Close() error
}

// HwParams negotiates a stream configuration one parameter at a time
type HwParams interface {
	SetAccess(access audio.Access) error
	SetFormat(format audio.SampleFormat) error
	SetChannels(channels int) error

	// SetRateNear requests the supported rate closest to rate and
	// returns the rate the device will actually run at.
	SetRateNear(rate int) (int, error)

	// Commit applies the configuration and returns a writable stream
	Commit() (Stream, error)
}

// Stream is a configured playback stream. Write blocks until the device
// accepts the samples or faults.
type Stream interface {
	// Write queues interleaved samples and returns the number of frames
	// the device accepted.
	Write(samples []int16) (int, error)

	// Prepare re-primes the stream after an underrun
	Prepare() error

	// Drain blocks until queued frames have been played
	Drain() error

	// Close releases the stream without draining
	Close() error
}
