// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats, access modes and the reusable silence buffer
package audio

import "fmt"

const (
	// DefaultSampleRate is the rate requested from every device
	DefaultSampleRate = 44100

	// DefaultChannels is the fixed channel count (stereo)
	DefaultChannels = 2

	// DefaultBitDepth is the fixed sample width
	DefaultBitDepth = 16

	// DefaultBufferFrames is the number of frames pushed per write
	DefaultBufferFrames = 1024
)

// Access describes how frames are laid out when handed to a device
type Access int

const (
	AccessRWInterleaved Access = iota
	AccessRWNonInterleaved
	AccessMMapInterleaved
)

func (a Access) String() string {
	switch a {
	case AccessRWInterleaved:
		return "RW_INTERLEAVED"
	case AccessRWNonInterleaved:
		return "RW_NONINTERLEAVED"
	case AccessMMapInterleaved:
		return "MMAP_INTERLEAVED"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// SampleFormat identifies the encoding of a single sample
type SampleFormat int

const (
	FormatS16LE SampleFormat = iota
	FormatS24LE
	FormatS32LE
	FormatFloat32LE
)

func (f SampleFormat) String() string {
	switch f {
	case FormatS16LE:
		return "S16_LE"
	case FormatS24LE:
		return "S24_LE"
	case FormatS32LE:
		return "S32_LE"
	case FormatFloat32LE:
		return "FLOAT_LE"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// Bits returns the significant bits per sample
func (f SampleFormat) Bits() int {
	switch f {
	case FormatS16LE:
		return 16
	case FormatS24LE:
		return 24
	case FormatS32LE, FormatFloat32LE:
		return 32
	default:
		return 0
	}
}

// Format describes a negotiated PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// String renders the format the way it is reported on startup,
// e.g. "44100 Hz, 16-bit stereo".
func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d-bit %s", f.SampleRate, f.BitDepth, ChannelName(f.Channels))
}

// ChannelName returns a human-readable channel layout name
func ChannelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d-channel", channels)
	}
}

// Silence is a zero-valued interleaved sample buffer. It is allocated once
// and handed to the device on every write; nothing in this module writes
// into it after construction.
type Silence struct {
	samples  []int16
	frames   int
	channels int
}

// NewSilence allocates frames*channels zero samples
func NewSilence(frames, channels int) *Silence {
	if frames <= 0 {
		frames = DefaultBufferFrames
	}
	if channels <= 0 {
		channels = DefaultChannels
	}
	return &Silence{
		samples:  make([]int16, frames*channels),
		frames:   frames,
		channels: channels,
	}
}

// Samples returns the interleaved sample slice
func (s *Silence) Samples() []int16 { return s.samples }

// Frames returns the number of frames in the buffer
func (s *Silence) Frames() int { return s.frames }

// Channels returns the channel count the buffer was laid out for
func (s *Silence) Channels() int { return s.channels }

// IsSilent reports whether every sample is still zero
func (s *Silence) IsSilent() bool {
	return IsZero(s.samples)
}

// IsZero reports whether all samples are zero
func IsZero(samples []int16) bool {
	for _, v := range samples {
		if v != 0 {
			return false
		}
	}
	return true
}

// FramesToBytes converts a frame count to a byte count for a format
func FramesToBytes(frames, channels int, format SampleFormat) int {
	return frames * channels * format.Bits() / 8
}
