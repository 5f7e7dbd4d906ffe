// ABOUTME: Device session that opens and configures a playback stream
// ABOUTME: Walks the staged hw-params negotiation and guarantees drain and close
package silence

import (
	"errors"
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gwwtests/play-silence/pkg/audio"
	"github.com/gwwtests/play-silence/pkg/audio/output"
)

// Stage identifies a step of device configuration
type Stage int

const (
	StageOpen Stage = iota
	StageParams
	StageAccess
	StageFormat
	StageChannels
	StageRate
	StageCommit
)

func (s Stage) String() string {
	switch s {
	case StageOpen:
		return "open"
	case StageParams:
		return "params"
	case StageAccess:
		return "access"
	case StageFormat:
		return "format"
	case StageChannels:
		return "channels"
	case StageRate:
		return "rate"
	case StageCommit:
		return "commit"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

func (s Stage) message() string {
	switch s {
	case StageOpen:
		return "Cannot open PCM device"
	case StageParams:
		return "Cannot initialize hw params"
	case StageAccess:
		return "Cannot set access type"
	case StageFormat:
		return "Cannot set format"
	case StageChannels:
		return "Cannot set channels"
	case StageRate:
		return "Cannot set sample rate"
	case StageCommit:
		return "Cannot apply hw params"
	default:
		return "Cannot configure device"
	}
}

// StageError reports which configuration stage failed
type StageError struct {
	Stage  Stage
	Device string
	Err    error
}

func (e *StageError) Error() string {
	if e.Stage == StageOpen {
		return fmt.Sprintf("%s %s: %v", e.Stage.message(), e.Device, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage.message(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// HardwareConfig is the committed stream configuration
type HardwareConfig struct {
	Access     audio.Access
	Format     audio.SampleFormat
	Channels   int
	SampleRate int
}

// DefaultHardwareConfig is what every session asks for. The rate is a
// request; devices answer with the nearest one they support.
func DefaultHardwareConfig() HardwareConfig {
	return HardwareConfig{
		Access:     audio.AccessRWInterleaved,
		Format:     audio.FormatS16LE,
		Channels:   audio.DefaultChannels,
		SampleRate: audio.DefaultSampleRate,
	}
}

// AudioFormat returns the PCM format description
func (c HardwareConfig) AudioFormat() audio.Format {
	return audio.Format{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BitDepth:   c.Format.Bits(),
	}
}

// Options control how a session is opened
type Options struct {
	// Backend picks the driver for "default" (default: auto)
	Backend string

	// BufferFrames is the write size in frames, used as the device period
	BufferFrames int

	// Registry maps identifiers to drivers (default: output.DefaultRegistry)
	Registry *output.Registry

	// Log receives session messages (default: disabled)
	Log slog.Logger

	// DriverLog receives backend diagnostics (default: Log)
	DriverLog slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = output.BackendAuto
	}
	if o.BufferFrames <= 0 {
		o.BufferFrames = audio.DefaultBufferFrames
	}
	if o.Registry == nil {
		o.Registry = output.DefaultRegistry()
	}
	if o.Log == nil {
		o.Log = slog.Disabled
	}
	if o.DriverLog == nil {
		o.DriverLog = o.Log
	}
	return o
}

// Session owns an open, configured playback stream
type Session struct {
	ID uuid.UUID

	identifier string
	backend    string
	device     output.Device
	stream     output.Stream
	config     HardwareConfig
	log        slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open resolves the identifier, opens the device and negotiates
// interleaved S16_LE stereo at the rate nearest 44100 Hz. When several
// drivers can serve the identifier, only a failure to open moves on to
// the next one.
func Open(identifier string, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	if identifier == "" {
		identifier = output.DefaultDevice
	}

	targets, err := opts.Registry.Resolve(identifier, opts.Backend)
	if err != nil {
		return nil, &StageError{Stage: StageOpen, Device: identifier, Err: err}
	}

	var openErrs []error
	for _, target := range targets {
		s, err := openTarget(identifier, target, opts)
		if err == nil {
			return s, nil
		}

		var se *StageError
		if !errors.As(err, &se) || se.Stage != StageOpen || len(targets) == 1 {
			return nil, err
		}
		opts.Log.Debugf("%s unavailable: %v", target, se.Err)
		openErrs = append(openErrs, fmt.Errorf("%s: %w", target, se.Err))
	}

	return nil, &StageError{Stage: StageOpen, Device: identifier, Err: errors.Join(openErrs...)}
}

func openTarget(identifier string, target output.Target, opts Options) (*Session, error) {
	want := DefaultHardwareConfig()
	fail := func(stage Stage, err error) error {
		return &StageError{Stage: stage, Device: identifier, Err: err}
	}

	dev, err := target.Driver.Open(target.Name, output.OpenOptions{
		PeriodFrames: opts.BufferFrames,
		Log:          opts.DriverLog,
	})
	if err != nil {
		return nil, fail(StageOpen, err)
	}

	// Anything after this point releases the device on failure
	release := func(stage Stage, err error) error {
		if cerr := dev.Close(); cerr != nil {
			opts.Log.Debugf("Closing %s after failed %s stage: %v", dev.Name(), stage, cerr)
		}
		return fail(stage, err)
	}

	hw, err := dev.HwParams()
	if err != nil {
		return nil, release(StageParams, err)
	}
	if err := hw.SetAccess(want.Access); err != nil {
		return nil, release(StageAccess, err)
	}
	if err := hw.SetFormat(want.Format); err != nil {
		return nil, release(StageFormat, err)
	}
	if err := hw.SetChannels(want.Channels); err != nil {
		return nil, release(StageChannels, err)
	}
	rate, err := hw.SetRateNear(want.SampleRate)
	if err != nil {
		return nil, release(StageRate, err)
	}
	if rate <= 0 {
		return nil, release(StageRate, fmt.Errorf("device returned rate %d", rate))
	}
	stream, err := hw.Commit()
	if err != nil {
		return nil, release(StageCommit, err)
	}

	config := want
	config.SampleRate = rate

	s := &Session{
		ID:         uuid.New(),
		identifier: identifier,
		backend:    target.Driver.Name(),
		device:     dev,
		stream:     stream,
		config:     config,
		log:        opts.Log,
	}

	s.log.Infof("Device: %s (%s)", dev.Name(), s.backend)
	s.log.Infof("Sample rate: %d Hz", rate)
	s.log.Infof("Format: %d-bit %s", config.Format.Bits(), audio.ChannelName(config.Channels))
	s.log.Debugf("Session %s opened on %s", s.ID, target)
	if rate != want.SampleRate {
		s.log.Debugf("Requested %d Hz, device granted %d Hz", want.SampleRate, rate)
	}

	return s, nil
}

// Stream returns the configured playback stream
func (s *Session) Stream() output.Stream {
	return s.stream
}

// Config returns the negotiated hardware configuration
func (s *Session) Config() HardwareConfig {
	return s.config
}

// Backend returns the name of the driver serving the session
func (s *Session) Backend() string {
	return s.backend
}

// DeviceName returns the driver's name for the opened device
func (s *Session) DeviceName() string {
	return s.device.Name()
}

// Identifier returns the identifier the session was opened with
func (s *Session) Identifier() string {
	return s.identifier
}

// Close drains queued frames and releases the stream and device. It is
// safe on a nil or already closed session. Every step runs even if an
// earlier one fails.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.stream.Drain(); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	}
	if err := s.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stream: %w", err))
	}
	if err := s.device.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		s.log.Warnf("Session %s cleanup: %v", s.ID, err)
	} else {
		s.log.Infof("Audio resources cleaned up.")
	}
	return err
}
