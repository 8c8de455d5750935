package frametie

import "time"

// Stats is a point-in-time snapshot of a tie.
type Stats struct {
	// State at snapshot time.
	State State

	// FramesCopied is the number of frames moved end to end since
	// the last full configure.
	FramesCopied uint64

	// ReadRetries counts failed source reads that triggered a
	// reconfigure.
	ReadRetries uint64

	// Reconfigures counts successful source reconfigures performed
	// by the recovery path.
	Reconfigures uint64

	// Uptime is the time since the last full configure. It keeps
	// counting across pause and resume and resets on the next
	// configure.
	Uptime time.Duration

	// AverageFPS is FramesCopied over Uptime. Zero until the first
	// frame lands.
	AverageFPS float64

	// LastFrameTime is when the most recent frame reached the
	// sink. Zero before the first frame.
	LastFrameTime time.Time
}

// Stats returns a snapshot of the engine counters. Safe to call from
// any goroutine at any lifecycle state.
func (e *Engine) Stats() Stats {
	s := Stats{
		State:        e.State(),
		FramesCopied: e.framesCopied.Load(),
		ReadRetries:  e.readRetries.Load(),
		Reconfigures: e.reconfigures.Load(),
	}

	if start := e.startNano.Load(); start > 0 {
		s.Uptime = time.Since(time.Unix(0, start))
		if s.Uptime > 0 && s.FramesCopied > 0 {
			s.AverageFPS = float64(s.FramesCopied) / s.Uptime.Seconds()
		}
	}
	if last := e.lastFrameNano.Load(); last > 0 {
		s.LastFrameTime = time.Unix(0, last)
	}
	return s
}
