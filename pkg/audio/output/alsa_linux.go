//go:build linux

// ABOUTME: ALSA kernel PCM output using the pure Go gen2brain/alsa bindings
// ABOUTME: Negotiates against the device's hw params and writes with blocking I/O
package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/decred/slog"
	"github.com/gen2brain/alsa"
	"github.com/gwwtests/play-silence/pkg/audio"
	"golang.org/x/sys/unix"
)

var alsaFormats = map[audio.SampleFormat]alsa.PcmFormat{
	audio.FormatS16LE:     alsa.SNDRV_PCM_FORMAT_S16_LE,
	audio.FormatS24LE:     alsa.SNDRV_PCM_FORMAT_S24_LE,
	audio.FormatS32LE:     alsa.SNDRV_PCM_FORMAT_S32_LE,
	audio.FormatFloat32LE: alsa.SNDRV_PCM_FORMAT_FLOAT_LE,
}

// ALSA drives kernel PCM devices directly (hw:CARD,DEVICE)
type ALSA struct{}

// NewALSA creates the ALSA driver
func NewALSA() Driver {
	return ALSA{}
}

func (ALSA) Name() string { return "alsa" }

// Open checks that the playback node for the device exists
func (ALSA) Open(name string, opts OpenOptions) (Device, error) {
	opts = opts.withDefaults()

	card, device, err := parseHwName(name)
	if err != nil {
		return nil, err
	}

	node := fmt.Sprintf("/dev/snd/pcmC%dD%dp", card, device)
	if _, err := os.Stat(node); err != nil {
		return nil, fmt.Errorf("no playback device at %s: %w", node, err)
	}

	return &alsaDevice{
		card:   card,
		device: device,
		opts:   opts,
		log:    opts.Log,
	}, nil
}

type alsaDevice struct {
	card   uint
	device uint
	opts   OpenOptions
	log    slog.Logger
}

func (d *alsaDevice) Name() string {
	return fmt.Sprintf("hw:%d,%d", d.card, d.device)
}

// HwParams reads the device's parameter space
func (d *alsaDevice) HwParams() (HwParams, error) {
	params, err := alsa.PcmParamsGet(d.card, d.device, alsa.PCM_OUT)
	if err != nil {
		return nil, fmt.Errorf("failed to read hw params of %s: %w", d.Name(), err)
	}

	space := &paramSpace{}

	accessMask, err := params.Mask(alsa.SNDRV_PCM_HW_PARAM_ACCESS)
	if err != nil {
		return nil, fmt.Errorf("failed to read access mask: %w", err)
	}
	if accessMask.Test(uint(alsa.SNDRV_PCM_ACCESS_RW_INTERLEAVED)) {
		space.accesses = append(space.accesses, audio.AccessRWInterleaved)
	}
	if accessMask.Test(uint(alsa.SNDRV_PCM_ACCESS_MMAP_INTERLEAVED)) {
		space.accesses = append(space.accesses, audio.AccessMMapInterleaved)
	}

	for _, f := range []audio.SampleFormat{audio.FormatS16LE, audio.FormatS24LE, audio.FormatS32LE, audio.FormatFloat32LE} {
		if params.FormatIsSupported(alsaFormats[f]) {
			space.formats = append(space.formats, f)
		}
	}

	minCh, err := params.RangeMin(alsa.SNDRV_PCM_HW_PARAM_CHANNELS)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel range: %w", err)
	}
	maxCh, err := params.RangeMax(alsa.SNDRV_PCM_HW_PARAM_CHANNELS)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel range: %w", err)
	}
	minRate, err := params.RangeMin(alsa.SNDRV_PCM_HW_PARAM_RATE)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate range: %w", err)
	}
	maxRate, err := params.RangeMax(alsa.SNDRV_PCM_HW_PARAM_RATE)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate range: %w", err)
	}

	space.minChannels = int(minCh)
	space.maxChannels = int(maxCh)
	space.minRate = int(minRate)
	space.maxRate = int(maxRate)
	space.commit = d.commit

	d.log.Debugf("%s: channels %d-%d, rate %d-%d Hz, formats %v",
		d.Name(), minCh, maxCh, minRate, maxRate, space.formats)

	return space, nil
}

func (d *alsaDevice) commit(c streamConfig) (Stream, error) {
	if c.Access != audio.AccessRWInterleaved {
		return nil, fmt.Errorf("%w: only interleaved read/write access is implemented", ErrNotSupported)
	}
	if c.Format != audio.FormatS16LE {
		return nil, fmt.Errorf("%w: streams write S16_LE only, not %s", ErrNotSupported, c.Format)
	}

	config := alsa.Config{
		Channels:    uint32(c.Channels),
		Rate:        uint32(c.Rate),
		PeriodSize:  uint32(d.opts.PeriodFrames),
		PeriodCount: DefaultPeriods,
		Format:      alsaFormats[c.Format],
	}

	// NORESTART hands EPIPE back to the caller instead of restarting
	// silently, so the loop sees every underrun.
	pcm, err := alsa.PcmOpen(d.card, d.device, alsa.PCM_OUT|alsa.PCM_NORESTART, &config)
	if err != nil {
		return nil, err
	}

	if err := pcm.Prepare(); err != nil {
		pcm.Close()
		return nil, fmt.Errorf("failed to prepare stream: %w", err)
	}

	return &alsaStream{
		pcm:      pcm,
		channels: c.Channels,
		log:      d.log,
	}, nil
}

// Close is a no-op: the kernel handle belongs to the committed stream
func (d *alsaDevice) Close() error {
	return nil
}

type alsaStream struct {
	pcm      *alsa.PCM
	channels int
	scratch  []byte
	log      slog.Logger
	closed   bool
}

// Write encodes the samples as S16_LE and writes them with one blocking call
func (s *alsaStream) Write(samples []int16) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}

	size := len(samples) * 2
	if cap(s.scratch) < size {
		s.scratch = make([]byte, size)
	}
	buf := s.scratch[:size]
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}

	n, err := s.pcm.Write(buf)
	if err != nil {
		if errors.Is(err, unix.EPIPE) {
			return n, fmt.Errorf("%w: %w", ErrUnderrun, err)
		}
		return n, err
	}
	return n, nil
}

func (s *alsaStream) Prepare() error {
	if s.closed {
		return ErrClosed
	}
	return s.pcm.Prepare()
}

func (s *alsaStream) Drain() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.pcm.Drain(); err != nil {
		// A stream that never started or already underran has nothing
		// left to play.
		if errors.Is(err, unix.EPIPE) || errors.Is(err, unix.EBADFD) {
			s.log.Debugf("Drain on idle stream: %v", err)
			return nil
		}
		return err
	}
	return nil
}

func (s *alsaStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.pcm.Close()
}
