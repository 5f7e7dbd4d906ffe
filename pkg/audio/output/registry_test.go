// ABOUTME: Tests for device identifier resolution
// ABOUTME: Covers default, hw:, backend-prefixed and unknown identifiers
package output

import (
	"errors"
	"testing"
)

type namedDriver string

func (d namedDriver) Name() string { return string(d) }

func (d namedDriver) Open(name string, opts OpenOptions) (Device, error) {
	return nil, errors.New("not a real device")
}

func testRegistry() *Registry {
	return NewRegistry(namedDriver("pulse"), namedDriver("oto"), namedDriver("alsa"))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		backend    string
		want       []string
	}{
		{"default auto", "default", "auto", []string{"pulse:default", "oto:default", "alsa:default"}},
		{"empty is default", "", "", []string{"pulse:default", "oto:default", "alsa:default"}},
		{"default with backend", "default", "oto", []string{"oto:default"}},
		{"hw card and device", "hw:1,0", "auto", []string{"hw:1,0"}},
		{"hw ignores backend", "hw:0", "pulse", []string{"hw:0"}},
		{"plughw", "plughw:1,0", "auto", []string{"plughw:1,0"}},
		{"backend prefix", "pulse:alsa_output.usb", "auto", []string{"pulse:alsa_output.usb"}},
		{"backend prefix default", "pulse:default", "auto", []string{"pulse:default"}},
		{"bare backend", "oto", "auto", []string{"oto:default"}},
		{"surrounding space", "  default ", "oto", []string{"oto:default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := testRegistry().Resolve(tt.identifier, tt.backend)
			if err != nil {
				t.Fatalf("Resolve(%q, %q) error: %v", tt.identifier, tt.backend, err)
			}
			if len(targets) != len(tt.want) {
				t.Fatalf("got %d targets, want %d", len(targets), len(tt.want))
			}
			for i, target := range targets {
				if target.String() != tt.want[i] {
					t.Errorf("target[%d] = %q, want %q", i, target.String(), tt.want[i])
				}
			}
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	tests := []struct {
		identifier string
		backend    string
	}{
		{"nosuch:device", "auto"},
		{"bogus", "auto"},
		{"default", "nosuch"},
	}

	for _, tt := range tests {
		_, err := testRegistry().Resolve(tt.identifier, tt.backend)
		if !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("Resolve(%q, %q) = %v, want ErrUnknownDevice", tt.identifier, tt.backend, err)
		}
	}
}

func TestResolveHwWithoutALSA(t *testing.T) {
	r := NewRegistry(namedDriver("pulse"))
	if _, err := r.Resolve("hw:0,0", "auto"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestSetAutoOrder(t *testing.T) {
	r := testRegistry()
	r.SetAutoOrder("oto", "missing", "pulse")

	targets, err := r.Resolve("default", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 || targets[0].Driver.Name() != "oto" || targets[1].Driver.Name() != "pulse" {
		t.Errorf("unexpected auto targets: %v", targets)
	}

	r.SetAutoOrder()
	if _, err := r.Resolve("default", ""); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("empty auto order should fail, got %v", err)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := testRegistry()
	r.Register(namedDriver("pulse"))

	names := r.Names()
	want := []string{"alsa", "oto", "pulse"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if _, ok := r.Driver("pulse"); !ok {
		t.Error("pulse should still be registered")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{"alsa", "miniaudio", "oto", "portaudio", "pulse"} {
		if _, ok := r.Driver(name); !ok {
			t.Errorf("driver %q missing from default registry", name)
		}
	}

	targets, err := r.Resolve("default", BackendAuto)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, target := range targets {
		got = append(got, target.Driver.Name())
	}
	want := []string{"pulse", "miniaudio", "oto"}
	if len(got) != len(want) {
		t.Fatalf("auto order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("auto order = %v, want %v", got, want)
			break
		}
	}
}
