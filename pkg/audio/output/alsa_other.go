//go:build !linux

// ABOUTME: ALSA stub for platforms without kernel PCM devices
// ABOUTME: Keeps hw: identifiers resolvable but fails them at open
package output

import "fmt"

// ALSA output implementation (stub)
type ALSA struct{}

// NewALSA creates the ALSA driver
func NewALSA() Driver {
	return ALSA{}
}

func (ALSA) Name() string { return "alsa" }

// Open always fails off Linux
func (ALSA) Open(name string, opts OpenOptions) (Device, error) {
	if _, _, err := parseHwName(name); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("ALSA kernel devices are only available on linux")
}
