// ABOUTME: Oto output for the platform's default audio device
// ABOUTME: A persistent oto player reads S16 bytes from the shared ring buffer
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/ebitengine/oto/v3"
	"github.com/gwwtests/play-silence/pkg/audio"
)

// Oto plays through the platform default device. oto allows one context
// per process, so the first committed format sticks.
type Oto struct{}

// NewOto creates the oto driver
func NewOto() Driver {
	return Oto{}
}

func (Oto) Name() string { return "oto" }

// Open accepts only the default device; oto cannot address others
func (Oto) Open(name string, opts OpenOptions) (Device, error) {
	if name != "" {
		return nil, fmt.Errorf("%w: oto only plays to the default device, not %q", ErrUnknownDevice, name)
	}
	opts = opts.withDefaults()
	return &otoDevice{opts: opts, log: opts.Log}, nil
}

var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// sharedOtoContext returns the process-wide context, creating it on the
// first call.
func sharedOtoContext(rate, channels, periodFrames int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if rate != otoRate || channels != otoChannels {
			return nil, fmt.Errorf("%w: oto context already runs at %d Hz with %d channels",
				ErrNotSupported, otoRate, otoChannels)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(periodFrames) * time.Second / time.Duration(rate),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	otoRate = rate
	otoChannels = channels
	return ctx, nil
}

type otoDevice struct {
	opts OpenOptions
	log  slog.Logger
}

func (d *otoDevice) Name() string {
	return DefaultDevice
}

// HwParams offers mono or stereo S16. oto resamples nothing, so the rate
// is handed to the platform as is.
func (d *otoDevice) HwParams() (HwParams, error) {
	return &paramSpace{
		accesses:    []audio.Access{audio.AccessRWInterleaved},
		formats:     []audio.SampleFormat{audio.FormatS16LE},
		minChannels: 1,
		maxChannels: 2,
		minRate:     8000,
		maxRate:     192000,
		commit:      d.commit,
	}, nil
}

func (d *otoDevice) commit(c streamConfig) (Stream, error) {
	ctx, err := sharedOtoContext(c.Rate, c.Channels, d.opts.PeriodFrames)
	if err != nil {
		return nil, err
	}

	rs := newRingStream(c.Channels, d.opts.PeriodFrames, c.Rate)
	player := ctx.NewPlayer(&ringReader{ring: rs.ring})
	player.Play()

	d.log.Debugf("oto player started: %d Hz, %d channels", c.Rate, c.Channels)

	rs.health = ctx.Err
	rs.drain = func() error {
		deadline := time.Now().Add(rs.drainTimeout)
		for player.IsPlaying() && player.BufferedSize() > 0 {
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out after %v", rs.drainTimeout)
			}
			time.Sleep(10 * time.Millisecond)
		}
		return nil
	}
	rs.stop = func() error {
		err := player.Close()
		if serr := ctx.Suspend(); err == nil {
			err = serr
		}
		return err
	}

	return rs, nil
}

func (d *otoDevice) Close() error {
	return nil
}
