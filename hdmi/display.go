package hdmi

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/frametie"
)

// DisplayConfig describes a KMS display sink. The zero value lets
// kmssink pick the first connected display.
type DisplayConfig struct {
	// DriverName restricts kmssink to a DRM driver, e.g. "xlnx" on
	// Zynq UltraScale+ boards. Empty means auto-detect.
	DriverName string

	// ConnectorID selects a DRM connector. Zero means the first
	// connected one.
	ConnectorID int
}

// DisplaySink pushes frames to a DRM/KMS plane through an
// appsrc -> videoconvert -> kmssink pipeline.
type DisplaySink struct {
	cfg DisplayConfig

	mode     frametie.Mode
	pipeline *gst.Pipeline
	appsrc   *app.Source
	opened   bool
}

// NewDisplaySink validates cfg. The display is not opened until
// Configure.
func NewDisplaySink(cfg DisplayConfig) (*DisplaySink, error) {
	if cfg.ConnectorID < 0 {
		return nil, fmt.Errorf("hdmi: %w: connector id %d", frametie.ErrInvalidArgument, cfg.ConnectorID)
	}
	return &DisplaySink{cfg: cfg}, nil
}

// Configure builds and starts the display pipeline for the given
// mode. Reconfiguring tears down the previous pipeline first.
func (s *DisplaySink) Configure(mode frametie.Mode) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("hdmi: %w", err)
	}
	if mode.BitsPerPixel != 24 {
		return fmt.Errorf("hdmi: %w: %d bpp (display negotiates 24 bpp BGR)",
			frametie.ErrUnsupportedMode, mode.BitsPerPixel)
	}

	s.teardown()

	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("hdmi: failed to create pipeline: %w", err)
	}

	appsrc, err := app.NewAppSrc()
	if err != nil {
		return fmt.Errorf("hdmi: failed to create appsrc: %w", err)
	}
	appsrc.SetProperty("caps", gst.NewCapsFromString(bgrCaps(mode)))
	appsrc.SetProperty("is-live", true)
	appsrc.SetProperty("block", true) // Back-pressure paces the writer
	appsrc.SetProperty("max-bytes", uint64(2*mode.FrameSize()))

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("hdmi: failed to create videoconvert: %w", err)
	}

	kmssink, err := gst.NewElement("kmssink")
	if err != nil {
		return fmt.Errorf("hdmi: failed to create kmssink: %w", err)
	}
	kmssink.SetProperty("sync", false) // Scan out as frames arrive
	if s.cfg.DriverName != "" {
		kmssink.SetProperty("driver-name", s.cfg.DriverName)
	}
	if s.cfg.ConnectorID > 0 {
		kmssink.SetProperty("connector-id", s.cfg.ConnectorID)
	}

	pipeline.AddMany(appsrc.Element, converter, kmssink)
	if err := gst.ElementLinkMany(appsrc.Element, converter, kmssink); err != nil {
		return fmt.Errorf("hdmi: failed to link display elements: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("hdmi: failed to start display pipeline: %w", err)
	}

	s.pipeline = pipeline
	s.appsrc = appsrc
	s.mode = mode
	s.opened = true

	slog.Info("hdmi: display pipeline playing", "mode", mode.String(),
		"driver", s.cfg.DriverName, "connector", s.cfg.ConnectorID)
	return nil
}

// AllocateFrame returns a fresh frame sized for the configured mode.
func (s *DisplaySink) AllocateFrame() *frametie.Frame {
	return frametie.NewFrame(s.mode)
}

// WriteFrame hands the frame to the display pipeline. The payload is
// wrapped into a GStreamer buffer, so the frame must not be reused by
// the caller afterwards.
func (s *DisplaySink) WriteFrame(frame *frametie.Frame) error {
	if !s.opened {
		return fmt.Errorf("hdmi: %w: display is not configured", frametie.ErrNotStarted)
	}
	if len(frame.Data) != s.mode.FrameSize() {
		return fmt.Errorf("hdmi: %w: frame is %d bytes, mode %s wants %d",
			frametie.ErrInvalidArgument, len(frame.Data), s.mode, s.mode.FrameSize())
	}

	buffer := gst.NewBufferFromBytes(frame.Data)
	if ret := s.appsrc.PushBuffer(buffer); ret != gst.FlowOK {
		return frametie.Fatalf("display rejected buffer: flow %v", ret)
	}
	return nil
}

// Close stops the display pipeline.
func (s *DisplaySink) Close() error {
	s.teardown()
	return nil
}

func (s *DisplaySink) teardown() {
	if !s.opened {
		return
	}
	s.opened = false
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		slog.Warn("hdmi: display pipeline teardown", "error", err)
	}
	s.pipeline = nil
	s.appsrc = nil
}
