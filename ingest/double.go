// Package ingest hands audio from a producer goroutine to a per-frame
// consumer without locks.
package ingest

import (
	"runtime"
	"sync/atomic"
)

const (
	activeBit uint32 = 1 << 0 // index of the ring the producer writes
	busyBit   uint32 = 1 << 1 // a Write is in progress
	dirtyBit  uint32 = 1 << 2 // the active ring got samples since the last flip
)

// DoubleBuffer holds two rings of mono samples. The producer writes into the
// active ring while the consumer reads the frozen one; Swap exchanges them.
// Both rings carry the same stream: the first Write after a flip continues
// from the contents and cursor of the ring that was just frozen, so every
// ring Swap returns holds the most recent Size samples.
//
// Exactly one goroutine may call Write and exactly one may call Swap. The
// consumer must be done with the ring returned by Swap before calling Swap
// again, since the next flip hands that ring back to the producer.
type DoubleBuffer struct {
	rings   [2][]float32
	cursors [2]int // next write position per ring

	// written is the ring the producer wrote last. Only Write touches it.
	written uint32

	state atomic.Uint32
}

// New allocates two rings of size samples each.
func New(size int) *DoubleBuffer {
	size = max(size, 1)
	return &DoubleBuffer{
		rings: [2][]float32{make([]float32, size), make([]float32, size)},
	}
}

// Size returns the ring length in samples.
func (d *DoubleBuffer) Size() int {
	return len(d.rings[0])
}

// Write appends the first channel of each interleaved group in samples to the
// active ring, wrapping at its end. channels <= 0 is treated as mono.
func (d *DoubleBuffer) Write(samples []float32, channels int) {
	if len(samples) == 0 {
		return
	}
	if channels <= 0 {
		channels = 1
	}

	var s uint32
	for {
		s = d.state.Load()
		if d.state.CompareAndSwap(s, s|busyBit) {
			break
		}
	}
	idx := s & activeBit

	// A flip happened since the last Write. The frozen ring is only read
	// by the consumer, so it can be copied while the consumer holds it.
	if idx != d.written {
		copy(d.rings[idx], d.rings[d.written])
		d.cursors[idx] = d.cursors[d.written]
		d.written = idx
	}

	ring := d.rings[idx]
	c := d.cursors[idx]
	for i := 0; i < len(samples); i += channels {
		ring[c] = samples[i]
		c++
		if c == len(ring) {
			c = 0
		}
	}
	d.cursors[idx] = c

	// Swap never changes a busy state word, so a plain store releases it.
	d.state.Store(idx | dirtyBit)
}

// Swap freezes the active ring and returns it together with its write
// cursor, which is the position of the oldest sample. ok is false, and
// nothing changes, when no Write happened since the previous Swap.
//
// If a Write is in progress Swap yields until it finishes, so the returned
// ring never holds part of a batch. The flip clears the dirty bit in the same
// compare-and-swap, so a later Swap reports ok only for samples written
// after this one.
func (d *DoubleBuffer) Swap() (ring []float32, start int, ok bool) {
	for {
		s := d.state.Load()
		if s&dirtyBit == 0 {
			return nil, 0, false
		}
		if s&busyBit != 0 {
			runtime.Gosched()
			continue
		}
		if d.state.CompareAndSwap(s, (s^activeBit)&^dirtyBit) {
			frozen := s & activeBit
			return d.rings[frozen], d.cursors[frozen], true
		}
	}
}
