// ABOUTME: Ring buffer bridging a blocking writer to a pull-model audio callback
// ABOUTME: Flags underruns when the callback finds it dry and backs the callback streams
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"
)

// RingBuffer provides a thread-safe circular buffer for interleaved samples.
// Write blocks while the buffer is full; Read never blocks and zero-fills
// whatever it cannot satisfy.
type RingBuffer struct {
	buffer   []int16
	readPos  int
	writePos int
	size     int
	count    int // Number of samples currently in buffer

	primed   bool // a write has landed since the last Prepare
	underrun bool // the reader ran dry after priming
	draining bool
	closed   bool

	mu   sync.Mutex
	cond *sync.Cond
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	rb := &RingBuffer{
		buffer: make([]int16, capacity),
		size:   capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write queues samples, blocking until all of them fit. It refuses new data
// with ErrUnderrun until Prepare is called after the reader ran dry.
func (rb *RingBuffer) Write(samples []int16) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return 0, ErrClosed
	}
	if rb.underrun {
		return 0, ErrUnderrun
	}

	written := 0
	for written < len(samples) {
		for rb.count == rb.size && !rb.closed {
			rb.cond.Wait()
		}
		if rb.closed {
			return written, ErrClosed
		}

		for written < len(samples) && rb.count < rb.size {
			rb.buffer[rb.writePos] = samples[written]
			rb.writePos = (rb.writePos + 1) % rb.size
			rb.count++
			written++
		}
	}

	rb.primed = true
	return written, nil
}

// Read retrieves samples from the ring buffer. Missing samples are zeroed.
// It returns the number of real samples copied and whether the buffer has
// been fully played out after Drain or Close.
func (rb *RingBuffer) Read(samples []int16) (int, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := 0; i < len(samples) && rb.count > 0; i++ {
		samples[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		read++
	}

	// Zero-fill remaining if underrun
	for i := read; i < len(samples); i++ {
		samples[i] = 0
	}

	finished := rb.draining || rb.closed
	if read < len(samples) && rb.primed && !finished {
		rb.underrun = true
	}

	rb.cond.Broadcast()
	return read, finished && rb.count == 0
}

// Prepare clears a pending underrun so writes are accepted again
func (rb *RingBuffer) Prepare() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.underrun = false
	rb.primed = false
	rb.draining = false
}

// Underrun reports whether the reader ran dry since the last Prepare
func (rb *RingBuffer) Underrun() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.underrun
}

// Drain waits until the reader has consumed every queued sample
func (rb *RingBuffer) Drain(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		rb.mu.Lock()
		rb.cond.Broadcast()
		rb.mu.Unlock()
	})
	defer timer.Stop()

	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.draining = true
	for rb.count > 0 && !rb.closed {
		if !time.Now().Before(deadline) {
			return fmt.Errorf("drain timed out with %d samples queued", rb.count)
		}
		rb.cond.Wait()
	}
	return nil
}

// Close unblocks pending writers and makes further writes fail
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.closed = true
	rb.cond.Broadcast()
}

// Closed reports whether Close has been called
func (rb *RingBuffer) Closed() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.closed
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns the number of free slots in the buffer
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}

// ringReader exposes a RingBuffer as little-endian S16 bytes for backends
// that pull from an io.Reader.
type ringReader struct {
	ring    *RingBuffer
	scratch []int16
}

func (r *ringReader) Read(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}
	if cap(r.scratch) < n {
		r.scratch = make([]int16, n)
	}
	samples := r.scratch[:n]

	read, done := r.ring.Read(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s))
	}
	if done {
		return read * 2, io.EOF
	}
	return n * 2, nil
}

// ringStream adapts a RingBuffer to the Stream interface. The backend
// supplies hooks for health checks, a final drain and teardown.
type ringStream struct {
	ring         *RingBuffer
	channels     int
	drainTimeout time.Duration

	health func() error
	drain  func() error
	stop   func() error

	closeOnce sync.Once
	closeErr  error
}

func newRingStream(channels, periodFrames, rate int) *ringStream {
	capacity := channels * periodFrames * DefaultPeriods
	buffered := time.Duration(capacity/channels) * time.Second / time.Duration(rate)
	return &ringStream{
		ring:         NewRingBuffer(capacity),
		channels:     channels,
		drainTimeout: buffered + 500*time.Millisecond,
	}
}

func (s *ringStream) Write(samples []int16) (int, error) {
	if s.health != nil {
		if err := s.health(); err != nil {
			return 0, err
		}
	}
	n, err := s.ring.Write(samples)
	return n / s.channels, err
}

func (s *ringStream) Prepare() error {
	s.ring.Prepare()
	return nil
}

func (s *ringStream) Drain() error {
	if err := s.ring.Drain(s.drainTimeout); err != nil {
		return err
	}
	if s.drain != nil {
		return s.drain()
	}
	return nil
}

func (s *ringStream) Close() error {
	s.closeOnce.Do(func() {
		s.ring.Close()
		if s.stop != nil {
			s.closeErr = s.stop()
		}
	})
	return s.closeErr
}
