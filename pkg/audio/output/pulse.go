// ABOUTME: PulseAudio output using the pure Go jfreymuth/pulse client
// ABOUTME: Feeds a playback stream from the shared ring buffer
package output

import (
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/gwwtests/play-silence/pkg/audio"
	"github.com/jfreymuth/pulse"
)

const (
	// pulseMaxRate is PA_RATE_MAX
	pulseMaxRate = 384000

	// pulseIdlePoll paces the feeder once a drained ring has nothing left
	pulseIdlePoll = time.Millisecond
)

// Pulse plays to a PulseAudio (or PipeWire-pulse) sink
type Pulse struct{}

// NewPulse creates the PulseAudio driver
func NewPulse() Driver {
	return Pulse{}
}

func (Pulse) Name() string { return "pulse" }

// Open connects to the sound server and looks up the sink. An empty name
// selects the server's default sink.
func (Pulse) Open(name string, opts OpenOptions) (Device, error) {
	opts = opts.withDefaults()

	client, err := pulse.NewClient(pulse.ClientApplicationName(opts.AppName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sound server: %w", err)
	}

	var sink *pulse.Sink
	if name == "" {
		sink, err = client.DefaultSink()
	} else {
		sink, err = client.SinkByID(name)
	}
	if err != nil {
		client.Close()
		if name == "" {
			return nil, fmt.Errorf("failed to find default sink: %w", err)
		}
		return nil, fmt.Errorf("failed to find sink %q: %w", name, err)
	}

	return &pulseDevice{
		client: client,
		sink:   sink,
		opts:   opts,
		log:    opts.Log,
	}, nil
}

type pulseDevice struct {
	client *pulse.Client
	sink   *pulse.Sink
	opts   OpenOptions
	log    slog.Logger
}

func (d *pulseDevice) Name() string {
	return d.sink.Name()
}

// HwParams describes what a pulse stream accepts. The server resamples, so
// any rate up to PA_RATE_MAX is granted as requested.
func (d *pulseDevice) HwParams() (HwParams, error) {
	return &paramSpace{
		accesses:    []audio.Access{audio.AccessRWInterleaved},
		formats:     []audio.SampleFormat{audio.FormatS16LE},
		minChannels: 1,
		maxChannels: 2,
		minRate:     1,
		maxRate:     pulseMaxRate,
		commit:      d.commit,
	}, nil
}

func (d *pulseDevice) commit(c streamConfig) (Stream, error) {
	rs := newRingStream(c.Channels, d.opts.PeriodFrames, c.Rate)

	layout := pulse.PlaybackStereo
	if c.Channels == 1 {
		layout = pulse.PlaybackMono
	}

	latency := float64(d.opts.PeriodFrames*DefaultPeriods) / float64(c.Rate)

	src := &pulseSource{ring: rs.ring, idle: pulseIdlePoll}
	stream, err := d.client.NewPlayback(pulse.Int16Reader(src.Read),
		layout,
		pulse.PlaybackSampleRate(c.Rate),
		pulse.PlaybackSink(d.sink),
		pulse.PlaybackLatency(latency),
	)
	if err != nil {
		return nil, err
	}

	stream.Start()

	if got := stream.SampleRate(); got != c.Rate {
		d.log.Debugf("Sink %s runs the stream at %d Hz", d.sink.ID(), got)
	}

	rs.health = stream.Error
	rs.drain = func() error {
		return waitDone(stream.Drain, rs.drainTimeout)
	}
	rs.stop = func() error {
		stream.Close()
		return nil
	}

	return rs, nil
}

// pulseSource feeds a playback stream from the ring. Once the ring is
// drained it sends only queued samples, letting the server buffer run dry,
// and it reports EndOfData only after the ring is closed. The stream must
// still be running when PlaybackStream.Drain is called or the server drain
// is skipped.
type pulseSource struct {
	ring *RingBuffer
	idle time.Duration
}

func (s *pulseSource) Read(buf []int16) (int, error) {
	n, done := s.ring.Read(buf)
	if !done {
		return len(buf), nil
	}
	if s.ring.Closed() {
		return n, pulse.EndOfData
	}
	if n == 0 {
		time.Sleep(s.idle)
	}
	return n, nil
}

func (d *pulseDevice) Close() error {
	d.client.Close()
	return nil
}

// waitDone runs a blocking call and gives up waiting after timeout
func waitDone(fn func(), timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %v", timeout)
	}
}
