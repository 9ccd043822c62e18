// SPDX-License-Identifier: MIT
/*
Package buffer implements the thread-safe sample ring that hands audio from
the capture/decode callback context to the analysis loop.

The producer (portaudio callback) only ever calls Write; the consumer (the
frame loop) only ever calls Read/ReadWindow. Both sides copy in or out under
a short-held mutex, so neither context can stall the other for longer than a
memcpy of one chunk.
*/
package buffer

import (
	"sync"
	"sync/atomic"
)

// Ring is a fixed-capacity circular sample buffer with monotonic cursors.
// The write side never blocks and never fails: when the buffer is full the
// oldest unread samples are overwritten and counted as dropped.
type Ring struct {
	mu       sync.Mutex
	data     []float32
	writePos uint64 // Total samples ever written.
	readPos  uint64 // Total samples ever consumed or discarded.
	dropped  atomic.Uint64
}

// New creates a ring holding capacity samples. The capacity should be sized
// to hold several analysis windows so a slow frame does not immediately
// lose data.
func New(capacity int) *Ring {
	if capacity <= 0 {
		panic("buffer: ring capacity must be positive")
	}
	return &Ring{data: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest unread data when the ring is
// full. It never blocks on the reader and never returns an error; overwrites
// only advance the dropped-sample counter. Safe to call from the audio
// callback context.
func (r *Ring) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	capacity := uint64(len(r.data))

	// A chunk larger than the whole ring keeps only its newest samples.
	if uint64(len(samples)) > capacity {
		over := uint64(len(samples)) - capacity
		r.dropped.Add(over)
		samples = samples[over:]
	}

	r.mu.Lock()
	pos := r.writePos % capacity
	n := copy(r.data[pos:], samples)
	if n < len(samples) {
		copy(r.data, samples[n:])
	}
	r.writePos += uint64(len(samples))

	if r.writePos-r.readPos > capacity {
		over := r.writePos - r.readPos - capacity
		r.readPos += over
		r.mu.Unlock()
		r.dropped.Add(over)
		return
	}
	r.mu.Unlock()
}

// Read copies exactly len(dst) samples into dst and consumes them. It
// returns false without touching the cursors when fewer samples are
// buffered; the caller is expected to retry on the next frame tick rather
// than block.
func (r *Ring) Read(dst []float32) bool {
	return r.ReadWindow(dst, len(dst))
}

// ReadWindow copies exactly len(dst) samples starting at the read cursor but
// consumes only hop samples, so successive windows overlap by
// len(dst)-hop. Returns false when fewer than len(dst) samples are buffered.
func (r *Ring) ReadWindow(dst []float32, hop int) bool {
	if len(dst) == 0 {
		return true
	}
	if hop < 0 || hop > len(dst) {
		hop = len(dst)
	}
	capacity := uint64(len(r.data))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writePos-r.readPos < uint64(len(dst)) {
		return false
	}

	pos := r.readPos % capacity
	n := copy(dst, r.data[pos:])
	if n < len(dst) {
		copy(dst[n:], r.data)
	}
	r.readPos += uint64(hop)
	return true
}

// Len returns the number of unread samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.writePos - r.readPos)
}

// Capacity returns the fixed sample capacity.
func (r *Ring) Capacity() int {
	return len(r.data)
}

// Dropped returns the total number of samples overwritten before they were
// read. Diagnostic only.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// Reset discards all unread samples. The dropped counter is preserved.
func (r *Ring) Reset() {
	r.mu.Lock()
	r.readPos = r.writePos
	r.mu.Unlock()
}
