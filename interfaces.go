package frametie

// Source produces frames. Implementations wrap a capture device, a
// video file, or a generator.
//
// A source is used by one copy loop at a time; implementations do not
// need to be safe for concurrent calls. Configure, ReadFrame and
// Release are always called from that single goroutine or between
// loop runs.
type Source interface {
	// Configure opens or re-opens the underlying device for the
	// given mode. Calling Configure on an open source resets it:
	// a file source rewinds to the first frame, a camera source
	// re-opens the device. The engine calls Configure again after
	// every transient read failure.
	Configure(mode Mode) error

	// ReadFrame blocks until the next frame is available and
	// returns it. The returned frame is owned by the caller.
	// Errors wrapping ErrTransient make the engine reconfigure
	// and retry; any other error stops the tie.
	ReadFrame() (*Frame, error)

	// Release closes the underlying device. Release on an
	// unconfigured source is a no-op.
	Release() error
}

// Sink consumes frames. Implementations wrap a display, an encoder,
// or a file writer.
type Sink interface {
	// Configure prepares the sink for the given mode.
	Configure(mode Mode) error

	// AllocateFrame returns a fresh frame sized for the configured
	// mode. The copy loop allocates one destination per iteration
	// and never reuses it.
	AllocateFrame() *Frame

	// WriteFrame submits a frame for output. Ownership of the
	// frame transfers to the sink; the caller must not touch it
	// afterwards.
	WriteFrame(frame *Frame) error

	// Close releases the sink. Close on an unconfigured sink is a
	// no-op.
	Close() error
}

// BufferStage is an optional relay placed between source and sink.
//
// A stage decouples the two ends through its own buffering, the way a
// DMA engine parks frames between a capture channel and a display
// channel. The copy loop drives it in lockstep: one WriteFrame, then
// one ReadFrame, every iteration. The frame returned by ReadFrame
// never aliases the frame passed to the preceding WriteFrame.
type BufferStage interface {
	// Start allocates the stage buffers.
	Start() error

	// Stop releases the stage buffers.
	Stop() error

	// AllocateFrame returns the frame to fill for the next
	// WriteFrame. The stage owns its buffers; implementations may
	// hand out an internal write slot rather than fresh memory.
	AllocateFrame() *Frame

	// WriteFrame commits a frame into the stage. Ownership
	// transfers to the stage.
	WriteFrame(frame *Frame) error

	// ReadFrame returns the most recently committed frame. The
	// returned frame remains valid until the next WriteFrame.
	ReadFrame() (*Frame, error)
}
