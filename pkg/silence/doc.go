// ABOUTME: Silence package for keeping an output device active
// ABOUTME: Provides Session, Loop, RunFlag and Play
// Package silence keeps an audio output device active by streaming silence
// to it.
//
// A Session opens and configures a playback stream (interleaved S16_LE
// stereo at the rate nearest 44100 Hz). A Loop writes a fixed silent
// buffer into the stream until its RunFlag drops, re-priming the stream
// after underruns. Play ties the two together and always releases the
// device.
//
// Example:
//
//	flag := silence.NewRunFlag()
//	err := silence.Play("default", flag, silence.PlayConfig{})
package silence
