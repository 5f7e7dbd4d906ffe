// ABOUTME: Parsing of ALSA hw:CARD,DEV identifiers
// ABOUTME: Maps identifiers onto kernel PCM playback nodes
package output

import (
	"fmt"
	"strconv"
	"strings"
)

// isHwName reports whether an identifier names an ALSA kernel device
func isHwName(id string) bool {
	return strings.HasPrefix(id, "hw:") || strings.HasPrefix(id, "plughw:")
}

// parseHwName parses an ALSA kernel device name of the form "hw:C,D" or
// "hw:C". "plughw:" is accepted as an alias since the stream format is
// fixed to one every card plays. An empty name is card 0, device 0.
func parseHwName(name string) (card, device uint, err error) {
	if name == "" {
		return 0, 0, nil
	}

	rest, ok := strings.CutPrefix(name, "hw:")
	if !ok {
		rest, ok = strings.CutPrefix(name, "plughw:")
	}
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q is not an hw:CARD,DEVICE name", ErrUnknownDevice, name)
	}

	cardStr, devStr, hasDev := strings.Cut(rest, ",")
	c, err := strconv.ParseUint(cardStr, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad card number in %q", ErrUnknownDevice, name)
	}

	var d uint64
	if hasDev {
		d, err = strconv.ParseUint(devStr, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: bad device number in %q", ErrUnknownDevice, name)
		}
	}

	return uint(c), uint(d), nil
}
