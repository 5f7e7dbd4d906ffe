// ABOUTME: Generic hardware parameter space used by the output backends
// ABOUTME: Validates access, format and channels and picks the nearest rate
package output

import (
	"fmt"

	"github.com/gwwtests/play-silence/pkg/audio"
)

// paramSpace is the set of configurations a device can run with, plus the
// choices made so far. Backends fill in the limits and a commit function.
type paramSpace struct {
	accesses    []audio.Access
	formats     []audio.SampleFormat
	minChannels int
	maxChannels int
	minRate     int
	maxRate     int

	commit func(c streamConfig) (Stream, error)

	access   audio.Access
	format   audio.SampleFormat
	channels int
	rate     int
}

// streamConfig is the committed configuration
type streamConfig struct {
	Access   audio.Access
	Format   audio.SampleFormat
	Channels int
	Rate     int
}

func (p *paramSpace) SetAccess(access audio.Access) error {
	for _, a := range p.accesses {
		if a == access {
			p.access = access
			return nil
		}
	}
	return fmt.Errorf("%w: access %s", ErrNotSupported, access)
}

func (p *paramSpace) SetFormat(format audio.SampleFormat) error {
	for _, f := range p.formats {
		if f == format {
			p.format = format
			return nil
		}
	}
	return fmt.Errorf("%w: format %s", ErrNotSupported, format)
}

func (p *paramSpace) SetChannels(channels int) error {
	if channels < p.minChannels || channels > p.maxChannels {
		return fmt.Errorf("%w: %d channels (device range %d-%d)",
			ErrNotSupported, channels, p.minChannels, p.maxChannels)
	}
	p.channels = channels
	return nil
}

func (p *paramSpace) SetRateNear(rate int) (int, error) {
	if rate <= 0 {
		return 0, fmt.Errorf("invalid rate %d", rate)
	}

	got := clampRate(rate, p.minRate, p.maxRate)
	if got <= 0 {
		return 0, fmt.Errorf("device offered no usable rate near %d Hz", rate)
	}
	p.rate = got
	return got, nil
}

// Commit fills in anything the caller did not negotiate with the first
// supported value and hands the result to the backend.
func (p *paramSpace) Commit() (Stream, error) {
	if p.commit == nil {
		return nil, fmt.Errorf("device cannot be committed")
	}
	if p.channels == 0 {
		p.channels = p.minChannels
	}
	if p.rate == 0 {
		p.rate = clampRate(audio.DefaultSampleRate, p.minRate, p.maxRate)
	}
	return p.commit(streamConfig{
		Access:   p.access,
		Format:   p.format,
		Channels: p.channels,
		Rate:     p.rate,
	})
}

// clampRate returns the rate inside [min, max] nearest to rate. A zero max
// means the range is unbounded above.
func clampRate(rate, min, max int) int {
	if min > 0 && rate < min {
		return min
	}
	if max > 0 && rate > max {
		return max
	}
	return rate
}
