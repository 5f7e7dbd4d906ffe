// ABOUTME: Miniaudio output via malgo
// ABOUTME: The device callback pulls silence out of the shared ring buffer
package output

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/gen2brain/malgo"
	"github.com/gwwtests/play-silence/pkg/audio"
)

// Limits miniaudio accepts for a playback device
const (
	malgoMaxChannels = 254
	malgoMinRate     = 8000
	malgoMaxRate     = 384000
)

// Miniaudio plays through whatever system API miniaudio picks
type Miniaudio struct{}

// NewMiniaudio creates the miniaudio driver
func NewMiniaudio() Driver {
	return Miniaudio{}
}

func (Miniaudio) Name() string { return "miniaudio" }

// Open creates a miniaudio context and looks up the playback device. An
// empty name selects the context's default device; otherwise the first
// device whose name contains it is used.
func (Miniaudio) Open(name string, opts OpenOptions) (Device, error) {
	opts = opts.withDefaults()
	log := opts.Log

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debugf("miniaudio: %s", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	d := &malgoDevice{
		ctx:  ctx,
		name: DefaultDevice,
		opts: opts,
		log:  log,
	}

	if name != "" {
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to list playback devices: %w", err)
		}
		for _, info := range infos {
			if strings.Contains(info.Name(), name) {
				id := info.ID
				d.id = &id
				d.name = info.Name()
				break
			}
		}
		if d.id == nil {
			d.Close()
			return nil, fmt.Errorf("%w: no miniaudio playback device matches %q", ErrUnknownDevice, name)
		}
	}

	return d, nil
}

type malgoDevice struct {
	ctx  *malgo.AllocatedContext
	id   *malgo.DeviceID
	name string
	opts OpenOptions
	log  slog.Logger

	mu     sync.Mutex
	closed bool
}

func (d *malgoDevice) Name() string {
	return d.name
}

// HwParams reports miniaudio's own limits. It converts to the native
// format internally, so rates inside the range are granted exactly.
func (d *malgoDevice) HwParams() (HwParams, error) {
	return &paramSpace{
		accesses:    []audio.Access{audio.AccessRWInterleaved},
		formats:     []audio.SampleFormat{audio.FormatS16LE},
		minChannels: 1,
		maxChannels: malgoMaxChannels,
		minRate:     malgoMinRate,
		maxRate:     malgoMaxRate,
		commit:      d.commit,
	}, nil
}

func (d *malgoDevice) commit(c streamConfig) (Stream, error) {
	rs := newRingStream(c.Channels, d.opts.PeriodFrames, c.Rate)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(c.Channels)
	deviceConfig.SampleRate = uint32(c.Rate)
	deviceConfig.PeriodSizeInFrames = uint32(d.opts.PeriodFrames)
	deviceConfig.Alsa.NoMMap = 1
	if d.id != nil {
		deviceConfig.Playback.DeviceID = d.id.Pointer()
	}

	var scratch []int16
	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		n := int(frameCount) * c.Channels
		if cap(scratch) < n {
			scratch = make([]int16, n)
		}
		samples := scratch[:n]
		rs.ring.Read(samples)
		for i, s := range samples {
			binary.LittleEndian.PutUint16(pOutput[i*2:], uint16(s))
		}
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	if got := int(device.SampleRate()); got != c.Rate {
		d.log.Debugf("Device %s runs at %d Hz, miniaudio converts from %d Hz", d.name, got, c.Rate)
	}

	rs.stop = func() error {
		err := device.Stop()
		device.Uninit()
		return err
	}

	return rs, nil
}

// Close tears down the miniaudio context
func (d *malgoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	err := d.ctx.Uninit()
	d.ctx.Free()
	return err
}
