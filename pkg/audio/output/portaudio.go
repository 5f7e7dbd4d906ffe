//go:build portaudio

// ABOUTME: PortAudio output using blocking stream writes
// ABOUTME: Cross-platform playback through the system PortAudio library
package output

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/gordonklaus/portaudio"
	"github.com/gwwtests/play-silence/pkg/audio"
)

// PortAudio plays through the PortAudio host APIs
type PortAudio struct{}

// NewPortAudio creates the PortAudio driver
func NewPortAudio() Driver {
	return PortAudio{}
}

func (PortAudio) Name() string { return "portaudio" }

// Open initializes PortAudio and finds the output device. An empty name
// selects the default output; otherwise the first output device whose
// name contains it is used.
func (PortAudio) Open(name string, opts OpenOptions) (Device, error) {
	opts = opts.withDefaults()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	info, err := findPortAudioDevice(name)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	return &paDevice{info: info, opts: opts, log: opts.Log}, nil
}

func findPortAudioDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		info, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to find default output: %w", err)
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, info := range devices {
		if info.MaxOutputChannels > 0 && strings.Contains(info.Name, name) {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: no portaudio output device matches %q", ErrUnknownDevice, name)
}

type paDevice struct {
	info *portaudio.DeviceInfo
	opts OpenOptions
	log  slog.Logger

	mu     sync.Mutex
	closed bool
}

func (d *paDevice) Name() string {
	return d.info.Name
}

func (d *paDevice) HwParams() (HwParams, error) {
	maxChannels := d.info.MaxOutputChannels
	if maxChannels < 1 {
		return nil, fmt.Errorf("%s has no output channels", d.info.Name)
	}
	return &paramSpace{
		accesses:    []audio.Access{audio.AccessRWInterleaved},
		formats:     []audio.SampleFormat{audio.FormatS16LE},
		minChannels: 1,
		maxChannels: maxChannels,
		minRate:     8000,
		maxRate:     192000,
		commit:      d.commit,
	}, nil
}

func (d *paDevice) commit(c streamConfig) (Stream, error) {
	params := portaudio.HighLatencyParameters(nil, d.info)
	params.Output.Channels = c.Channels
	params.SampleRate = float64(c.Rate)
	params.FramesPerBuffer = d.opts.PeriodFrames

	buf := make([]int16, d.opts.PeriodFrames*c.Channels)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	if info := stream.Info(); info != nil && int(info.SampleRate) != c.Rate {
		d.log.Debugf("%s runs at %.0f Hz", d.info.Name, info.SampleRate)
	}

	return &paStream{stream: stream, buf: buf, channels: c.Channels}, nil
}

// Close terminates PortAudio
func (d *paDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return portaudio.Terminate()
}

type paStream struct {
	stream   *portaudio.Stream
	buf      []int16
	channels int
	stopped  bool
	closed   bool
}

// Write copies the samples through the stream buffer one period at a
// time. A short tail is padded with silence.
func (s *paStream) Write(samples []int16) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.stopped {
		if err := s.Prepare(); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(samples) {
		n := copy(s.buf, samples[written:])
		clear(s.buf[n:])

		if err := s.stream.Write(); err != nil {
			if errors.Is(err, portaudio.OutputUnderflowed) {
				return written / s.channels, fmt.Errorf("%w: %w", ErrUnderrun, err)
			}
			return written / s.channels, err
		}
		written += n
	}
	return written / s.channels, nil
}

// Prepare restarts a stream stopped by Drain. An underflowed stream keeps
// running and needs nothing.
func (s *paStream) Prepare() error {
	if s.closed {
		return ErrClosed
	}
	if !s.stopped {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.stopped = false
	return nil
}

// Drain stops the stream after queued buffers have played
func (s *paStream) Drain() error {
	if s.closed {
		return ErrClosed
	}
	if s.stopped {
		return nil
	}
	s.stopped = true
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}
