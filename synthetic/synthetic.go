// Package synthetic provides software endpoints: a pattern generator
// source and capture sinks that need no hardware.
//
// These endpoints carry the same contracts as the device-backed ones,
// so a tie can be exercised end to end on any machine. The daemon
// uses them for smoke testing and the package tests use them as
// realistic peers.
package synthetic

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/frametie"
)

// PatternSource generates a rolling gradient at the mode frame rate.
//
// Pacing lives in ReadFrame: the source blocks until the next frame
// is due, the way a camera blocks until the sensor delivers. The
// sequence number survives reconfigures, so recovery does not reset
// frame identity.
type PatternSource struct {
	mu         sync.Mutex
	mode       frametie.Mode
	configured bool
	seq        uint64
	lastRead   time.Time
}

// NewPatternSource builds an unconfigured pattern source.
func NewPatternSource() *PatternSource {
	return &PatternSource{}
}

// Configure validates and adopts the mode. Reconfiguring an open
// source just restarts the pacing clock.
func (s *PatternSource) Configure(mode frametie.Mode) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("synthetic: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.configured = true
	s.lastRead = time.Time{}

	slog.Debug("synthetic: pattern source configured", "mode", mode.String())
	return nil
}

// ReadFrame blocks until the next frame is due and returns it.
func (s *PatternSource) ReadFrame() (*frametie.Frame, error) {
	s.mu.Lock()
	if !s.configured {
		s.mu.Unlock()
		return nil, fmt.Errorf("synthetic: %w: source is not configured", frametie.ErrNotStarted)
	}
	mode := s.mode
	last := s.lastRead
	s.mu.Unlock()

	interval := time.Second / time.Duration(mode.FrameRate)
	if !last.IsZero() {
		if wait := interval - time.Since(last); wait > 0 {
			time.Sleep(wait)
		}
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.lastRead = time.Now()
	s.mu.Unlock()

	frame := frametie.NewFrame(mode)
	frame.Seq = seq
	frame.Timestamp = time.Now()
	frame.TraceID = uuid.New().String()
	fillPattern(frame.Data, seq)
	return frame, nil
}

// Release closes the source. Release on an unconfigured source is a
// no-op.
func (s *PatternSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = false
	return nil
}

// fillPattern writes a gradient that shifts with seq, so consecutive
// frames differ visibly.
func fillPattern(data []byte, seq uint64) {
	shift := byte(seq * 3)
	for i := range data {
		data[i] = byte(i) + shift
	}
}

// CaptureSink delivers frames to a channel, dropping when the
// consumer falls behind. Dropping keeps the copy loop from ever
// blocking on a slow reader.
type CaptureSink struct {
	mu         sync.Mutex
	mode       frametie.Mode
	configured bool

	frames    chan *frametie.Frame
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewCaptureSink builds a sink with the given channel depth. A depth
// below one falls back to 16.
func NewCaptureSink(depth int) *CaptureSink {
	if depth < 1 {
		depth = 16
	}
	return &CaptureSink{frames: make(chan *frametie.Frame, depth)}
}

// Configure validates and adopts the mode.
func (s *CaptureSink) Configure(mode frametie.Mode) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("synthetic: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.configured = true
	return nil
}

// AllocateFrame returns a fresh frame for the configured mode.
func (s *CaptureSink) AllocateFrame() *frametie.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return frametie.NewFrame(s.mode)
}

// WriteFrame hands the frame to the consumer channel. When the
// channel is full the frame is dropped and counted, never blocked on.
func (s *CaptureSink) WriteFrame(frame *frametie.Frame) error {
	s.mu.Lock()
	if !s.configured {
		s.mu.Unlock()
		return fmt.Errorf("synthetic: %w: sink is not configured", frametie.ErrNotStarted)
	}
	s.mu.Unlock()

	select {
	case s.frames <- frame:
		s.delivered.Add(1)
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Close marks the sink unconfigured. The frames channel stays open;
// readers drain whatever was delivered before the close.
func (s *CaptureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = false
	return nil
}

// Frames returns the delivery channel. Receivers own the frames they
// take from it.
func (s *CaptureSink) Frames() <-chan *frametie.Frame {
	return s.frames
}

// CaptureStats is a snapshot of the delivery counters.
type CaptureStats struct {
	Delivered uint64
	Dropped   uint64
}

// Stats returns delivery and drop counts since construction.
func (s *CaptureSink) Stats() CaptureStats {
	return CaptureStats{
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// NullSink counts frames and discards them.
type NullSink struct {
	mu         sync.Mutex
	mode       frametie.Mode
	configured bool
	delivered  atomic.Uint64
}

// NewNullSink builds a sink that discards everything it is given.
func NewNullSink() *NullSink {
	return &NullSink{}
}

// Configure validates and adopts the mode.
func (s *NullSink) Configure(mode frametie.Mode) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("synthetic: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.configured = true
	return nil
}

// AllocateFrame returns a fresh frame for the configured mode.
func (s *NullSink) AllocateFrame() *frametie.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return frametie.NewFrame(s.mode)
}

// WriteFrame counts the frame and lets it go to the garbage
// collector.
func (s *NullSink) WriteFrame(frame *frametie.Frame) error {
	s.mu.Lock()
	if !s.configured {
		s.mu.Unlock()
		return fmt.Errorf("synthetic: %w: sink is not configured", frametie.ErrNotStarted)
	}
	s.mu.Unlock()

	s.delivered.Add(1)
	return nil
}

// Close marks the sink unconfigured.
func (s *NullSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = false
	return nil
}

// Delivered returns the number of frames written so far.
func (s *NullSink) Delivered() uint64 {
	return s.delivered.Load()
}
