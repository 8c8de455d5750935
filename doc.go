// Package frametie moves video frames from a source to a sink with a
// managed background copy loop.
//
// The engine generalizes the frame-tie pattern of SoC video pipelines:
// a capture endpoint (camera, video file, HDMI input) is tied to an
// output endpoint (display, encoder, file writer) and a dedicated
// goroutine copies whole frames between them until told to pause or
// stop. Any Source can be tied to any Sink; an optional BufferStage
// decouples the two through double buffering the way a DMA engine
// parks frames between channels.
//
// # Quick Start
//
// Tying a synthetic test pattern to an on-disk frame mirror:
//
//	src := synthetic.NewPatternSource()
//	sink, err := mirror.NewSink(mirror.Config{Dir: "/tmp/frames", Format: "png"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng, err := frametie.New(frametie.Config{
//	    Source: src,
//	    Sink:   sink,
//	    Mode:   frametie.DefaultMode,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	// ... frames flow in the background ...
//
//	stats := eng.Stats()
//	log.Printf("copied %d frames at %.1f fps", stats.FramesCopied, stats.AverageFPS)
//
// # Lifecycle
//
// An engine is a small state machine:
//
//   - Start from Idle or Stopped configures sink, stage and source
//     for the tie mode, then spawns the copy loop.
//   - Pause halts the loop but keeps the endpoints configured; Start
//     on a paused engine resumes without reconfiguring anything.
//   - Stop halts the loop and releases source, stage and sink.
//   - Start, Pause and Stop are idempotent in their target states.
//
// Pause and Stop block until the copy loop goroutine has actually
// exited. When they return, no engine code touches the endpoints.
//
// # Frame Format
//
// Frames carry raw packed pixels, row-major, no padding:
//
//   - 24 bpp frames are interleaved BGR (the OpenCV layout)
//   - Size: Width × Height × BitsPerPixel/8 bytes
//   - Example (720p BGR): 1280 × 720 × 3 = 2,764,800 bytes
//
// Every hop through the loop copies into a freshly allocated
// destination and hands it over; ownership of a buffer transfers
// exactly once and no two pipeline stages ever share one.
//
// # Error Handling and Recovery
//
// Errors are classified by wrapped sentinels (see Classify):
//
//   - Transient read failures trigger source recovery: the loop
//     reconfigures the source and reads again, up to ReadAttempts
//     times per iteration. For a file source a reconfigure rewinds
//     to the first frame, so looping playback falls out of the
//     recovery path.
//   - A non-transient failure, or an exhausted read budget, stops
//     the tie. The engine lands in StateStopped, Done() reports the
//     halt and Err() returns the cause wrapping ErrFatal.
//
// # Thread Safety
//
// Start, Pause, Stop, State, Err, Done and Stats are safe for
// concurrent use. Sources, sinks and stages are driven from a single
// goroutine and do not need internal locking beyond their own
// hardware handles.
//
// # Limitations
//
//   - The copy loop never throttles: pacing comes from the blocking
//     behavior of the endpoints. A free-running source ties at
//     whatever rate it can produce.
//   - Pause and Stop wait for the loop without a timeout. A source
//     blocked forever in a device read blocks them too.
//   - One engine drives one source/sink pair. Fan-out belongs to a
//     sink implementation, not to the engine.
package frametie
