//go:build !portaudio

// ABOUTME: PortAudio stub when the library is not compiled in
// ABOUTME: Keeps the portaudio backend name resolvable but fails it at open
package output

import (
	"fmt"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates the PortAudio driver
func NewPortAudio() Driver {
	return PortAudio{}
}

func (PortAudio) Name() string { return "portaudio" }

// Open always fails without the portaudio build tag
func (PortAudio) Open(name string, opts OpenOptions) (Device, error) {
	return nil, fmt.Errorf("PortAudio support not enabled (build with -tags portaudio)")
}
