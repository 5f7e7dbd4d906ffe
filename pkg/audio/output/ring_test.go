// ABOUTME: Tests for the ring buffer and the stream built on it
// ABOUTME: Covers blocking writes, underrun detection, drain and close
package output

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestRingBufferWriteRead(t *testing.T) {
	rb := NewRingBuffer(8)

	n, err := rb.Write([]int16{1, 2, 3, 4})
	if err != nil || n != 4 {
		t.Fatalf("Write = %d, %v; want 4, nil", n, err)
	}
	if rb.Available() != 4 || rb.Free() != 4 {
		t.Errorf("Available/Free = %d/%d, want 4/4", rb.Available(), rb.Free())
	}

	out := make([]int16, 4)
	read, done := rb.Read(out)
	if read != 4 || done {
		t.Fatalf("Read = %d, %v; want 4, false", read, done)
	}
	for i, want := range []int16{1, 2, 3, 4} {
		if out[i] != want {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
}

func TestRingBufferZeroFillsBeforePriming(t *testing.T) {
	rb := NewRingBuffer(8)

	out := []int16{9, 9, 9}
	read, _ := rb.Read(out)
	if read != 0 {
		t.Errorf("read = %d, want 0", read)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %d, want 0", i, v)
		}
	}
	if rb.Underrun() {
		t.Error("an unprimed buffer should not report underrun")
	}
}

func TestRingBufferUnderrunAndPrepare(t *testing.T) {
	rb := NewRingBuffer(8)

	if _, err := rb.Write([]int16{1, 2}); err != nil {
		t.Fatal(err)
	}
	rb.Read(make([]int16, 4))

	if !rb.Underrun() {
		t.Fatal("expected underrun after a short read")
	}
	if _, err := rb.Write([]int16{1}); !errors.Is(err, ErrUnderrun) {
		t.Fatalf("Write after underrun = %v, want ErrUnderrun", err)
	}

	rb.Prepare()
	if rb.Underrun() {
		t.Error("Prepare should clear the underrun")
	}
	if _, err := rb.Write([]int16{1}); err != nil {
		t.Errorf("Write after Prepare = %v", err)
	}
}

func TestRingBufferWriteBlocksUntilRead(t *testing.T) {
	rb := NewRingBuffer(4)
	if _, err := rb.Write([]int16{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := rb.Write([]int16{5, 6})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("Write should block while the buffer is full")
	case <-time.After(20 * time.Millisecond):
	}

	rb.Read(make([]int16, 2))

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("blocked Write returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Write did not resume after Read")
	}
}

func TestRingBufferCloseUnblocksWriter(t *testing.T) {
	rb := NewRingBuffer(2)
	if _, err := rb.Write([]int16{1, 2}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := rb.Write([]int16{3})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Write after Close = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock the writer")
	}
}

func TestRingBufferDrain(t *testing.T) {
	rb := NewRingBuffer(8)
	if _, err := rb.Write([]int16{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		rb.Read(make([]int16, 4))
	}()

	if err := rb.Drain(time.Second); err != nil {
		t.Fatalf("Drain = %v", err)
	}

	_, done := rb.Read(make([]int16, 2))
	if !done {
		t.Error("Read after Drain should report done")
	}
	if rb.Underrun() {
		t.Error("draining dry should not count as underrun")
	}
}

func TestRingBufferDrainTimeout(t *testing.T) {
	rb := NewRingBuffer(8)
	if _, err := rb.Write([]int16{1, 2}); err != nil {
		t.Fatal(err)
	}

	if err := rb.Drain(20 * time.Millisecond); err == nil {
		t.Error("expected timeout with nobody reading")
	}
}

func TestRingReaderEncodesLittleEndian(t *testing.T) {
	rb := NewRingBuffer(4)
	if _, err := rb.Write([]int16{0x0102, -1}); err != nil {
		t.Fatal(err)
	}

	r := &ringReader{ring: rb}
	p := make([]byte, 4)
	n, err := r.Read(p)
	if err != nil || n != 4 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	want := []byte{0x02, 0x01, 0xff, 0xff}
	for i := range want {
		if p[i] != want[i] {
			t.Errorf("p[%d] = %#x, want %#x", i, p[i], want[i])
		}
	}

	rb.Close()
	if _, err := r.Read(p); !errors.Is(err, io.EOF) {
		t.Errorf("Read after Close = %v, want io.EOF", err)
	}
}

func TestRingStreamWriteReturnsFrames(t *testing.T) {
	s := newRingStream(2, 16, 44100)
	defer s.Close()

	n, err := s.Write(make([]int16, 20))
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("Write = %d frames, want 10", n)
	}
}

func TestRingStreamHealthFailure(t *testing.T) {
	s := newRingStream(2, 16, 44100)
	defer s.Close()

	fault := errors.New("server went away")
	s.health = func() error { return fault }

	if _, err := s.Write(make([]int16, 2)); !errors.Is(err, fault) {
		t.Errorf("Write = %v, want health error", err)
	}
}

func TestRingStreamCloseRunsStopOnce(t *testing.T) {
	s := newRingStream(1, 16, 44100)

	calls := 0
	s.stop = func() error {
		calls++
		return nil
	}

	s.Close()
	s.Close()
	if calls != 1 {
		t.Errorf("stop called %d times, want 1", calls)
	}
	if _, err := s.Write([]int16{0}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
}
