// Package hdmi provides GStreamer-backed endpoints for SoC video
// planes: a V4L2 capture source and a KMS display sink.
//
// Both endpoints negotiate packed BGR so frames interchange directly
// with the OpenCV sources. The pipelines are built element by element
// and held in the PLAYING state between Configure and Release; a
// reconfigure tears the pipeline down and rebuilds it, which is what
// recovers a re-plugged capture device.
package hdmi

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/frametie"
)

// CaptureConfig describes a V4L2 capture source.
type CaptureConfig struct {
	// Device is the V4L2 device path, e.g. /dev/video0.
	Device string
}

// CaptureSource reads frames from a V4L2 device through a
// v4l2src -> videoconvert -> capsfilter -> appsink pipeline.
type CaptureSource struct {
	device string

	mode     frametie.Mode
	pipeline *gst.Pipeline
	appsink  *app.Sink
	opened   bool
	seq      uint64
}

// NewCaptureSource validates cfg. The device is not opened until
// Configure.
func NewCaptureSource(cfg CaptureConfig) (*CaptureSource, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("hdmi: %w: capture device is required", frametie.ErrInvalidArgument)
	}
	return &CaptureSource{device: cfg.Device}, nil
}

// Configure builds and starts the capture pipeline for the given
// mode. Reconfiguring tears down the previous pipeline first.
func (s *CaptureSource) Configure(mode frametie.Mode) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("hdmi: %w", err)
	}
	if mode.BitsPerPixel != 24 {
		return fmt.Errorf("hdmi: %w: %d bpp (capture negotiates 24 bpp BGR)",
			frametie.ErrUnsupportedMode, mode.BitsPerPixel)
	}

	s.teardown()

	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("hdmi: failed to create pipeline: %w", err)
	}

	v4l2src, err := gst.NewElement("v4l2src")
	if err != nil {
		return fmt.Errorf("hdmi: failed to create v4l2src: %w", err)
	}
	v4l2src.SetProperty("device", s.device)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("hdmi: failed to create videoconvert: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("hdmi: failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(bgrCaps(mode)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("hdmi: failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)     // Drop old frames

	pipeline.AddMany(v4l2src, converter, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(v4l2src, converter, capsfilter, appsink.Element); err != nil {
		return fmt.Errorf("hdmi: failed to link capture elements: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("hdmi: failed to start capture pipeline: %w", err)
	}

	s.pipeline = pipeline
	s.appsink = appsink
	s.mode = mode
	s.opened = true

	slog.Info("hdmi: capture pipeline playing", "device", s.device, "mode", mode.String())
	return nil
}

// ReadFrame blocks until the appsink delivers the next sample and
// returns it as a frame. The sample data is copied out; GStreamer
// reuses its buffers.
func (s *CaptureSource) ReadFrame() (*frametie.Frame, error) {
	if !s.opened {
		return nil, fmt.Errorf("hdmi: %w: capture is not configured", frametie.ErrNotStarted)
	}

	sample := s.appsink.PullSample()
	if sample == nil {
		return nil, frametie.Transientf("no sample from %s (EOS or pipeline stall)", s.device)
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, frametie.Transientf("sample from %s carries no buffer", s.device)
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return nil, frametie.Transientf("empty buffer from %s", s.device)
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	buffer.Unmap()

	if len(payload) != s.mode.FrameSize() {
		return nil, frametie.Fatalf("sample from %s is %d bytes, mode %s wants %d",
			s.device, len(payload), s.mode, s.mode.FrameSize())
	}

	s.seq++
	return &frametie.Frame{
		Seq:          s.seq,
		Timestamp:    time.Now(),
		Width:        s.mode.Width,
		Height:       s.mode.Height,
		BitsPerPixel: s.mode.BitsPerPixel,
		Data:         payload,
		TraceID:      uuid.New().String(),
	}, nil
}

// Release stops the capture pipeline.
func (s *CaptureSource) Release() error {
	s.teardown()
	return nil
}

func (s *CaptureSource) teardown() {
	if !s.opened {
		return
	}
	s.opened = false
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		slog.Warn("hdmi: capture pipeline teardown", "device", s.device, "error", err)
	}
	s.pipeline = nil
	s.appsink = nil
}

// bgrCaps builds the packed-BGR caps string for a mode.
func bgrCaps(mode frametie.Mode) string {
	return fmt.Sprintf("video/x-raw,format=BGR,width=%d,height=%d,framerate=%d/1",
		mode.Width, mode.Height, mode.FrameRate)
}
