package frametie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of an Engine.
//
// The engine moves through a fixed machine:
//
//	Idle ──start──> Running ──pause──> Paused ──start──> Running
//	                   │                  │
//	                 stop               stop
//	                   v                  v
//	               Stopped ──start──> Running (full reconfigure)
//
// A fatal copy-loop failure also lands in Stopped, with the cause
// available from Err.
type State int

const (
	// StateIdle is a new engine that has never been started.
	StateIdle State = iota

	// StateRunning means the copy loop is moving frames.
	StateRunning

	// StatePaused means the copy loop has exited but the endpoints
	// stay configured. Start resumes without reconfiguring.
	StatePaused

	// StateStopped means the copy loop has exited and, unless the
	// stop came from a copy-loop failure, resources are released.
	// Start from here performs a full reconfigure.
	StateStopped
)

// String returns a short name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ReadAttempts is the read budget of one copy-loop iteration: up to
// this many reads, the source reconfigured after each failed one,
// before the tie is declared dead. The budget is fixed; sources that
// need a different recovery strategy implement it behind Configure.
const ReadAttempts = 5

// Config assembles an Engine.
type Config struct {
	// Source produces frames. Required.
	Source Source

	// Sink consumes frames. Required.
	Sink Sink

	// Stage is an optional buffer relay between source and sink.
	Stage BufferStage

	// Mode ties both ends to one geometry. The zero value selects
	// DefaultMode.
	Mode Mode
}

// Engine ties a Source to a Sink with a background copy loop.
//
// Start spawns the loop, Pause halts it keeping the endpoints
// configured, Stop halts it and releases them. Pause and Stop block
// until the loop goroutine has exited, so when they return no engine
// code touches the endpoints anymore. All three are safe for
// concurrent use; the copy loop itself is single-threaded.
type Engine struct {
	source Source
	sink   Sink
	stage  BufferStage
	mode   Mode

	// mu serializes lifecycle transitions.
	mu         sync.Mutex
	configured bool

	// stateMu guards state, lastErr and done. The copy loop takes
	// stateMu only, never mu, so lifecycle calls can wait for the
	// loop without deadlocking.
	stateMu sync.RWMutex
	state   State
	lastErr error
	done    chan struct{}

	running atomic.Bool

	framesCopied  atomic.Uint64
	readRetries   atomic.Uint64
	reconfigures  atomic.Uint64
	startNano     atomic.Int64
	lastFrameNano atomic.Int64
}

// New builds an Engine from cfg. The engine starts in StateIdle; no
// endpoint is touched until Start.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("frametie: %w: nil source", ErrInvalidArgument)
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("frametie: %w: nil sink", ErrInvalidArgument)
	}
	mode := cfg.Mode
	if mode == (Mode{}) {
		mode = DefaultMode
	}
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("frametie: %w", err)
	}

	// Pre-closed so waiters never hang on an engine that has not
	// spawned a copy loop yet.
	done := make(chan struct{})
	close(done)

	return &Engine{
		source: cfg.Source,
		sink:   cfg.Sink,
		stage:  cfg.Stage,
		mode:   mode,
		state:  StateIdle,
		done:   done,
	}, nil
}

// Start brings the engine to StateRunning.
//
// From StateIdle or StateStopped the endpoints are configured first:
// sink, then stage, then source. From StatePaused the loop resumes
// against the already-configured endpoints. Start on a running engine
// is a no-op.
//
// ctx bounds the spawned copy loop: cancelling it halts the loop as
// if Stop had been called, except that resources stay configured
// until an explicit Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	resumed := false
	switch e.State() {
	case StateRunning:
		return nil
	case StatePaused:
		resumed = true
	default:
		if err := e.configure(); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	e.stateMu.Lock()
	e.state = StateRunning
	e.lastErr = nil
	e.done = done
	e.stateMu.Unlock()
	e.running.Store(true)

	go e.run(ctx, done)

	slog.Info("frametie: tie running", "mode", e.mode.String(), "resumed", resumed)
	return nil
}

// configure opens the endpoints for e.mode, sink side first so a
// frame always has somewhere to land. A failure rolls back whatever
// was already opened.
func (e *Engine) configure() error {
	if err := e.sink.Configure(e.mode); err != nil {
		return fmt.Errorf("frametie: sink configure: %w", err)
	}
	if e.stage != nil {
		if err := e.stage.Start(); err != nil {
			e.discard(nil)
			return fmt.Errorf("frametie: stage start: %w", err)
		}
	}
	if err := e.source.Configure(e.mode); err != nil {
		e.discard(e.stage)
		return fmt.Errorf("frametie: source configure: %w", err)
	}

	e.configured = true
	e.startNano.Store(time.Now().UnixNano())
	e.framesCopied.Store(0)
	e.readRetries.Store(0)
	e.reconfigures.Store(0)
	e.lastFrameNano.Store(0)
	return nil
}

// discard rolls back a partial configure: the stage if it was
// already started, then the sink.
func (e *Engine) discard(stage BufferStage) {
	if stage != nil {
		if err := stage.Stop(); err != nil {
			slog.Warn("frametie: stage stop during rollback", "error", err)
		}
	}
	if err := e.sink.Close(); err != nil {
		slog.Warn("frametie: sink close during rollback", "error", err)
	}
}

// Pause halts the copy loop but keeps the endpoints configured, so a
// later Start resumes without reconfiguring. Pause blocks until the
// loop goroutine has exited. Pause on a paused engine is a no-op;
// pause on an engine that is not running returns ErrNotStarted.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.State() {
	case StatePaused:
		return nil
	case StateRunning:
	default:
		return fmt.Errorf("frametie: %w: cannot pause a tie that is not running", ErrNotStarted)
	}

	e.running.Store(false)
	e.waitDone()

	e.stateMu.Lock()
	if e.state == StateStopped {
		// The loop died on its own while the pause was landing.
		err := e.lastErr
		e.stateMu.Unlock()
		return err
	}
	e.state = StatePaused
	e.stateMu.Unlock()

	slog.Info("frametie: tie paused")
	return nil
}

// Stop halts the copy loop and releases the endpoints: source first,
// then stage, then sink. Stop blocks until the loop goroutine has
// exited. Stop on an idle engine is a no-op, and only the first stop
// after a configure releases anything, so Stop is safe to call twice
// and safe after a fatal loop failure.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.State()
	if st == StateIdle {
		return nil
	}
	if st == StateRunning || st == StatePaused {
		e.running.Store(false)
		e.waitDone()
	}

	e.stateMu.Lock()
	e.state = StateStopped
	e.stateMu.Unlock()

	if !e.configured {
		return nil
	}
	e.configured = false

	var errs []error
	if err := e.source.Release(); err != nil {
		errs = append(errs, fmt.Errorf("frametie: source release: %w", err))
	}
	if e.stage != nil {
		if err := e.stage.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("frametie: stage stop: %w", err))
		}
	}
	if err := e.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("frametie: sink close: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("frametie: tie stopped", "frames_copied", e.framesCopied.Load())
	return nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// Err returns the error that stopped the copy loop, or nil. The error
// wraps ErrFatal; Classify and errors.Is recover the underlying
// cause. Err is cleared by the next successful Start.
func (e *Engine) Err() error {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.lastErr
}

// InputMode returns the mode the source is configured with.
func (e *Engine) InputMode() Mode {
	return e.mode
}

// OutputMode returns the mode the sink is configured with. The tie
// drives both endpoints at one mode, so this equals InputMode.
func (e *Engine) OutputMode() Mode {
	return e.mode
}

// Done returns a channel that is closed while no copy loop is
// running: after Pause, after Stop, after a fatal failure, and before
// the first Start. Waiting on it and then checking Err distinguishes
// a deliberate halt from a dead tie.
func (e *Engine) Done() <-chan struct{} {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.done
}

func (e *Engine) waitDone() {
	e.stateMu.RLock()
	done := e.done
	e.stateMu.RUnlock()
	<-done
}

// run is the copy loop. One iteration: read a frame (with the
// ReadAttempts recovery budget), push it through the optional stage,
// copy it into a fresh sink frame, hand it over. The loop never
// throttles; pacing belongs to the endpoints.
func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for e.running.Load() {
		if ctx.Err() != nil {
			e.running.Store(false)
			e.stateMu.Lock()
			e.state = StateStopped
			e.stateMu.Unlock()
			slog.Info("frametie: context cancelled, tie halted")
			return
		}

		frame, err := e.readFrame()
		if err != nil {
			e.fail(err)
			return
		}
		if err := e.relay(frame); err != nil {
			e.fail(err)
			return
		}

		e.framesCopied.Add(1)
		e.lastFrameNano.Store(time.Now().UnixNano())
	}
}

// readFrame reads the next frame, reconfiguring the source after
// every transient failure. The budget exhausted, it gives up with an
// error wrapping ErrFatal. Non-transient errors abort immediately.
func (e *Engine) readFrame() (*Frame, error) {
	var readErr error
	for attempt := 1; attempt <= ReadAttempts; attempt++ {
		frame, err := e.source.ReadFrame()
		if err == nil {
			return frame, nil
		}
		if !IsTransient(err) {
			return nil, fmt.Errorf("frametie: source read: %w", err)
		}

		readErr = err
		e.readRetries.Add(1)
		slog.Warn("frametie: transient read failure, reconfiguring source",
			"attempt", attempt, "error", err)

		if cfgErr := e.source.Configure(e.mode); cfgErr != nil {
			return nil, fmt.Errorf("frametie: source reconfigure: %w", cfgErr)
		}
		e.reconfigures.Add(1)
	}
	return nil, fmt.Errorf("frametie: %w: no frame after %d read attempts: %v",
		ErrFatal, ReadAttempts, readErr)
}

// relay moves frame to the sink, through the stage when one is
// configured. Every hop copies into a freshly allocated destination;
// ownership of each buffer transfers exactly once.
func (e *Engine) relay(frame *Frame) error {
	if e.stage != nil {
		staged := e.stage.AllocateFrame()
		if err := staged.CopyFrom(frame); err != nil {
			return fmt.Errorf("frametie: stage copy: %w", err)
		}
		if err := e.stage.WriteFrame(staged); err != nil {
			return fmt.Errorf("frametie: stage write: %w", err)
		}
		relayed, err := e.stage.ReadFrame()
		if err != nil {
			return fmt.Errorf("frametie: stage read: %w", err)
		}
		frame = relayed
	}

	out := e.sink.AllocateFrame()
	if err := out.CopyFrom(frame); err != nil {
		return fmt.Errorf("frametie: sink copy: %w", err)
	}
	if err := e.sink.WriteFrame(out); err != nil {
		return fmt.Errorf("frametie: sink write: %w", err)
	}
	return nil
}

// fail parks err and stops the tie. Resources stay configured; the
// next Stop releases them.
func (e *Engine) fail(err error) {
	if !IsFatal(err) {
		err = fmt.Errorf("%w: %w", ErrFatal, err)
	}

	e.running.Store(false)
	e.stateMu.Lock()
	e.state = StateStopped
	e.lastErr = err
	e.stateMu.Unlock()

	slog.Error("frametie: tie failed", "error", err)
}
