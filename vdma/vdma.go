// Package vdma provides a double-buffered relay stage in the manner
// of a video DMA engine parking frames between channels.
//
// The DoubleBuffer holds two mode-sized slots. WriteFrame commits the
// armed slot and arms the other one; ReadFrame always returns the
// most recently committed slot. A reader therefore never observes a
// slot that is being filled, and the frame it holds stays untouched
// until the writer commits again.
package vdma

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/e7canasta/frametie"
)

// DoubleBuffer is a two-slot BufferStage.
//
// Driven in lockstep (one WriteFrame, then one ReadFrame per
// iteration) it parks every frame exactly once and loses none.
// Driven freely it parks on the latest committed frame, the way a
// display channel keeps scanning out the last frame it was given.
type DoubleBuffer struct {
	mode frametie.Mode

	mu      sync.Mutex
	slots   [2]*frametie.Frame
	armed   int // slot index handed out for the next write
	latest  int // last committed slot, -1 before the first commit
	started bool

	framesWritten atomic.Uint64
	framesRead    atomic.Uint64
}

// NewDoubleBuffer builds a stage for the given mode. Buffers are not
// allocated until Start.
func NewDoubleBuffer(mode frametie.Mode) (*DoubleBuffer, error) {
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("vdma: %w", err)
	}
	return &DoubleBuffer{mode: mode, latest: -1}, nil
}

// Start allocates both slots. Start on a started stage is a no-op.
func (d *DoubleBuffer) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}
	d.slots[0] = frametie.NewFrame(d.mode)
	d.slots[1] = frametie.NewFrame(d.mode)
	d.armed = 0
	d.latest = -1
	d.started = true
	return nil
}

// Stop releases both slots. Stop on a stopped stage is a no-op.
func (d *DoubleBuffer) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots[0] = nil
	d.slots[1] = nil
	d.latest = -1
	d.started = false
	return nil
}

// AllocateFrame returns the armed write slot. The same slot stays
// armed until a WriteFrame commits it, so back-to-back allocations
// return the same buffer.
func (d *DoubleBuffer) AllocateFrame() *frametie.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return frametie.NewFrame(d.mode)
	}
	return d.slots[d.armed]
}

// WriteFrame commits frame and swaps the armed slot. A frame obtained
// from AllocateFrame is committed in place; a foreign frame of the
// right size is copied into the armed slot first.
func (d *DoubleBuffer) WriteFrame(frame *frametie.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return fmt.Errorf("vdma: %w: stage is not started", frametie.ErrNotStarted)
	}

	slot := d.slots[d.armed]
	if frame != slot {
		if err := slot.CopyFrom(frame); err != nil {
			return fmt.Errorf("vdma: write: %w", err)
		}
	}

	d.latest = d.armed
	d.armed = 1 - d.armed
	d.framesWritten.Add(1)
	return nil
}

// ReadFrame returns the most recently committed slot. The returned
// frame stays valid until the next WriteFrame commits over it, which
// in lockstep use is a full loop iteration away.
func (d *DoubleBuffer) ReadFrame() (*frametie.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return nil, fmt.Errorf("vdma: %w: stage is not started", frametie.ErrNotStarted)
	}
	if d.latest < 0 {
		return nil, fmt.Errorf("vdma: %w: no frame committed yet", frametie.ErrNotStarted)
	}
	d.framesRead.Add(1)
	return d.slots[d.latest], nil
}

// Stats is a snapshot of the relay counters.
type Stats struct {
	FramesWritten uint64
	FramesRead    uint64
}

// Stats returns the commit and read counts since construction.
func (d *DoubleBuffer) Stats() Stats {
	return Stats{
		FramesWritten: d.framesWritten.Load(),
		FramesRead:    d.framesRead.Load(),
	}
}
