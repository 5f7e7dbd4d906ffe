// ABOUTME: Scriptable fake driver, device and stream for silence tests
// ABOUTME: Records every call so tests can assert ordering and cleanup
package silence

import (
	"errors"
	"sync"
	"time"

	"github.com/gwwtests/play-silence/pkg/audio"
	"github.com/gwwtests/play-silence/pkg/audio/output"
)

var errFake = errors.New("fake failure")

type writeResult struct {
	frames int
	err    error
}

type fakeStream struct {
	mu sync.Mutex

	results     []writeResult
	prepareErrs []error
	drainErr    error
	closeErr    error

	writes   int
	prepares int
	drains   int
	closes   int
	calls    []string
	buffers  [][]int16

	// onWrite runs after every write with the running write count
	onWrite func(n int)
}

func (s *fakeStream) Write(samples []int16) (int, error) {
	s.mu.Lock()
	s.writes++
	n := s.writes
	s.buffers = append(s.buffers, samples)
	s.calls = append(s.calls, "write")

	res := writeResult{frames: len(samples) / audio.DefaultChannels}
	if len(s.results) > 0 {
		res = s.results[0]
		s.results = s.results[1:]
	}
	hook := s.onWrite
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return res.frames, res.err
}

func (s *fakeStream) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prepares++
	s.calls = append(s.calls, "prepare")
	if len(s.prepareErrs) > 0 {
		err := s.prepareErrs[0]
		s.prepareErrs = s.prepareErrs[1:]
		return err
	}
	return nil
}

func (s *fakeStream) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drains++
	s.calls = append(s.calls, "drain")
	return s.drainErr
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.calls = append(s.calls, "close")
	return s.closeErr
}

type fakeDevice struct {
	name   string
	stream *fakeStream

	// failAt makes the matching negotiation step fail
	failAt   map[Stage]error
	rate     int
	closes   int
	closeErr error
	params   *fakeHwParams
}

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) HwParams() (output.HwParams, error) {
	if err := d.failAt[StageParams]; err != nil {
		return nil, err
	}
	d.params = &fakeHwParams{dev: d}
	return d.params, nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	return d.closeErr
}

type fakeHwParams struct {
	dev      *fakeDevice
	access   audio.Access
	format   audio.SampleFormat
	channels int
	rate     int
}

func (p *fakeHwParams) SetAccess(a audio.Access) error {
	p.access = a
	return p.dev.failAt[StageAccess]
}

func (p *fakeHwParams) SetFormat(f audio.SampleFormat) error {
	p.format = f
	return p.dev.failAt[StageFormat]
}

func (p *fakeHwParams) SetChannels(c int) error {
	p.channels = c
	return p.dev.failAt[StageChannels]
}

func (p *fakeHwParams) SetRateNear(rate int) (int, error) {
	p.rate = rate
	if err := p.dev.failAt[StageRate]; err != nil {
		return 0, err
	}
	if p.dev.rate != 0 {
		return p.dev.rate, nil
	}
	return rate, nil
}

func (p *fakeHwParams) Commit() (output.Stream, error) {
	if err := p.dev.failAt[StageCommit]; err != nil {
		return nil, err
	}
	return p.dev.stream, nil
}

type fakeDriver struct {
	name    string
	device  *fakeDevice
	openErr error
	opened  []string
	opts    output.OpenOptions
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) Open(name string, opts output.OpenOptions) (output.Device, error) {
	d.opened = append(d.opened, name)
	d.opts = opts
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.device, nil
}

func newFakeDriver(name string) *fakeDriver {
	return &fakeDriver{
		name: name,
		device: &fakeDevice{
			name:   name + " device",
			stream: &fakeStream{},
		},
	}
}

// recordingSleep collects requested delays instead of sleeping
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
}

func (r *recordingSleep) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.delays {
		if got == d {
			n++
		}
	}
	return n
}

func underrun() writeResult {
	return writeResult{err: output.ErrUnderrun}
}
