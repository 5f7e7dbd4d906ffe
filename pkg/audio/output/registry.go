// ABOUTME: Maps device identifiers to output drivers
// ABOUTME: Resolves "default", "hw:C,D" and "<backend>[:<name>]" identifiers
package output

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultDevice is the identifier for the system default output
const DefaultDevice = "default"

// BackendAuto selects the first default output that opens
const BackendAuto = "auto"

// Target is a driver plus the backend-specific device name to open
type Target struct {
	Driver Driver
	Name   string
}

// String renders the target as a device identifier
func (t Target) String() string {
	if t.Name == "" {
		return t.Driver.Name() + ":" + DefaultDevice
	}
	if isHwName(t.Name) {
		return t.Name
	}
	return t.Driver.Name() + ":" + t.Name
}

// Registry holds the available drivers and the order tried for "default"
type Registry struct {
	drivers map[string]Driver
	auto    []string
}

// NewRegistry creates a registry. The auto order follows registration order.
func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[string]Driver)}
	for _, d := range drivers {
		r.Register(d)
	}
	return r
}

// DefaultRegistry returns every driver compiled into this binary. Sound
// servers come first in the auto order so "default" follows the desktop's
// chosen output; raw kernel devices are only used when named.
func DefaultRegistry() *Registry {
	r := NewRegistry(NewPulse(), NewMiniaudio(), NewOto(), NewALSA(), NewPortAudio())
	r.SetAutoOrder("pulse", "miniaudio", "oto")
	return r
}

// Register adds a driver, replacing any driver with the same name
func (r *Registry) Register(d Driver) {
	name := d.Name()
	if _, exists := r.drivers[name]; !exists {
		r.auto = append(r.auto, name)
	}
	r.drivers[name] = d
}

// SetAutoOrder sets which drivers "default" tries under the auto backend
func (r *Registry) SetAutoOrder(names ...string) {
	r.auto = append([]string(nil), names...)
}

// Driver looks up a driver by name
func (r *Registry) Driver(name string) (Driver, bool) {
	d, ok := r.drivers[name]
	return d, ok
}

// Names returns the registered driver names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns a device identifier into the targets to try, in order.
// backend picks the driver that serves "default"; "" and "auto" mean the
// auto order.
func (r *Registry) Resolve(identifier, backend string) ([]Target, error) {
	id := strings.TrimSpace(identifier)

	if id == "" || id == DefaultDevice {
		if backend == "" || backend == BackendAuto {
			targets := make([]Target, 0, len(r.auto))
			for _, name := range r.auto {
				if d, ok := r.drivers[name]; ok {
					targets = append(targets, Target{Driver: d})
				}
			}
			if len(targets) == 0 {
				return nil, fmt.Errorf("%w: no drivers available for %q", ErrUnknownDevice, DefaultDevice)
			}
			return targets, nil
		}

		d, ok := r.drivers[backend]
		if !ok {
			return nil, fmt.Errorf("%w: backend %q", ErrUnknownDevice, backend)
		}
		return []Target{{Driver: d}}, nil
	}

	if isHwName(id) {
		d, ok := r.drivers["alsa"]
		if !ok {
			return nil, fmt.Errorf("%w: %q (alsa driver not registered)", ErrUnknownDevice, id)
		}
		return []Target{{Driver: d, Name: id}}, nil
	}

	if prefix, name, found := strings.Cut(id, ":"); found {
		if d, ok := r.drivers[prefix]; ok {
			if name == DefaultDevice {
				name = ""
			}
			return []Target{{Driver: d, Name: name}}, nil
		}
	}

	if d, ok := r.drivers[id]; ok {
		return []Target{{Driver: d}}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
}
