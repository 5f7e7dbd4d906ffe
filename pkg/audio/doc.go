// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, access/sample-format enums and the Silence buffer
// Package audio provides the PCM vocabulary shared by the output drivers
// and the playback loop.
//
// This package defines:
//   - Format: a negotiated stream format (sample rate, channels, bit depth)
//   - Access and SampleFormat: the values negotiated with a device
//   - Silence: a zero-valued interleaved buffer reused for every write
//
// Example:
//
//	silence := audio.NewSilence(audio.DefaultBufferFrames, audio.DefaultChannels)
//	n, err := stream.Write(silence.Samples())
package audio
