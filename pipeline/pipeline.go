// Package pipeline assembles configured engines from the adapter
// catalog. One generic engine serves every variant; this factory only
// decides which Source, Sink and BufferStage to wire into it.
package pipeline

import (
	"fmt"

	"github.com/e7canasta/frametie"
	"github.com/e7canasta/frametie/config"
	"github.com/e7canasta/frametie/hdmi"
	"github.com/e7canasta/frametie/mirror"
	"github.com/e7canasta/frametie/opencv"
	"github.com/e7canasta/frametie/synthetic"
	"github.com/e7canasta/frametie/vdma"
)

// New assembles an engine from a pipeline configuration.
func New(cfg config.Pipeline) (*frametie.Engine, error) {
	mode := orDefault(cfg.Mode.Mode())

	source, err := buildSource(cfg.Source)
	if err != nil {
		return nil, err
	}
	sink, err := buildSink(cfg.Sink)
	if err != nil {
		return nil, err
	}

	var stage frametie.BufferStage
	if cfg.Buffered {
		stage, err = vdma.NewDoubleBuffer(mode)
		if err != nil {
			return nil, err
		}
	}

	return frametie.New(frametie.Config{Source: source, Sink: sink, Stage: stage, Mode: mode})
}

// FileMirror ties a video file to an on-disk PNG mirror.
func FileMirror(path, dir string, mode frametie.Mode) (*frametie.Engine, error) {
	source, err := opencv.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	sink, err := mirror.NewSink(mirror.Config{Dir: dir, Format: "png"})
	if err != nil {
		return nil, err
	}
	return frametie.New(frametie.Config{Source: source, Sink: sink, Mode: mode})
}

// CameraMirror ties a live camera to an on-disk PNG mirror.
func CameraMirror(device int, dir string, mode frametie.Mode) (*frametie.Engine, error) {
	source, err := opencv.NewCameraSource(device)
	if err != nil {
		return nil, err
	}
	sink, err := mirror.NewSink(mirror.Config{Dir: dir, Format: "png"})
	if err != nil {
		return nil, err
	}
	return frametie.New(frametie.Config{Source: source, Sink: sink, Mode: mode})
}

// FileDisplay ties a video file to the KMS display through the
// double-buffer stage.
func FileDisplay(path string, mode frametie.Mode) (*frametie.Engine, error) {
	source, err := opencv.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	return displayEngine(source, mode)
}

// CameraDisplay ties a live camera to the KMS display through the
// double-buffer stage.
func CameraDisplay(device int, mode frametie.Mode) (*frametie.Engine, error) {
	source, err := opencv.NewCameraSource(device)
	if err != nil {
		return nil, err
	}
	return displayEngine(source, mode)
}

func displayEngine(source frametie.Source, mode frametie.Mode) (*frametie.Engine, error) {
	mode = orDefault(mode)
	sink, err := hdmi.NewDisplaySink(hdmi.DisplayConfig{})
	if err != nil {
		return nil, err
	}
	stage, err := vdma.NewDoubleBuffer(mode)
	if err != nil {
		return nil, err
	}
	return frametie.New(frametie.Config{Source: source, Sink: sink, Stage: stage, Mode: mode})
}

func buildSource(cfg config.SourceConfig) (frametie.Source, error) {
	switch cfg.Kind {
	case "file":
		return opencv.NewFileSource(cfg.Path)
	case "camera":
		return opencv.NewCameraSource(cfg.Device)
	case "hdmi":
		return hdmi.NewCaptureSource(hdmi.CaptureConfig{Device: cfg.V4L2})
	case "synthetic":
		return synthetic.NewPatternSource(), nil
	default:
		return nil, fmt.Errorf("pipeline: %w: unknown source kind %q", frametie.ErrInvalidArgument, cfg.Kind)
	}
}

func buildSink(cfg config.SinkConfig) (frametie.Sink, error) {
	switch cfg.Kind {
	case "display":
		return hdmi.NewDisplaySink(hdmi.DisplayConfig{DriverName: cfg.Driver, ConnectorID: cfg.Connector})
	case "mirror":
		return mirror.NewSink(mirror.Config{Dir: cfg.Dir, Format: cfg.Format, JPEGQuality: cfg.JPEGQuality})
	case "null":
		return synthetic.NewNullSink(), nil
	default:
		return nil, fmt.Errorf("pipeline: %w: unknown sink kind %q", frametie.ErrInvalidArgument, cfg.Kind)
	}
}

func orDefault(mode frametie.Mode) frametie.Mode {
	if mode == (frametie.Mode{}) {
		return frametie.DefaultMode
	}
	return mode
}
