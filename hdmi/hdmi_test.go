package hdmi_test

import (
	"errors"
	"testing"

	"github.com/e7canasta/frametie"
	"github.com/e7canasta/frametie/hdmi"
)

// Pipeline construction needs GStreamer and real devices, so these
// tests cover only the validation that happens before any of that.

func TestNewCaptureSource_FailFast(t *testing.T) {
	if _, err := hdmi.NewCaptureSource(hdmi.CaptureConfig{}); !errors.Is(err, frametie.ErrInvalidArgument) {
		t.Fatalf("NewCaptureSource(empty device) error = %v, want ErrInvalidArgument", err)
	}

	src, err := hdmi.NewCaptureSource(hdmi.CaptureConfig{Device: "/dev/video0"})
	if err != nil {
		t.Fatalf("NewCaptureSource() error = %v", err)
	}
	if src == nil {
		t.Fatal("NewCaptureSource() returned nil source")
	}
}

func TestNewDisplaySink_FailFast(t *testing.T) {
	if _, err := hdmi.NewDisplaySink(hdmi.DisplayConfig{ConnectorID: -1}); !errors.Is(err, frametie.ErrInvalidArgument) {
		t.Fatalf("NewDisplaySink(negative connector) error = %v, want ErrInvalidArgument", err)
	}

	sink, err := hdmi.NewDisplaySink(hdmi.DisplayConfig{})
	if err != nil {
		t.Fatalf("NewDisplaySink() error = %v", err)
	}
	if sink == nil {
		t.Fatal("NewDisplaySink() returned nil sink")
	}
}

func TestCaptureSource_ReadBeforeConfigure(t *testing.T) {
	src, err := hdmi.NewCaptureSource(hdmi.CaptureConfig{Device: "/dev/video0"})
	if err != nil {
		t.Fatalf("NewCaptureSource() error = %v", err)
	}

	if _, err := src.ReadFrame(); !errors.Is(err, frametie.ErrNotStarted) {
		t.Errorf("ReadFrame() before Configure error = %v, want ErrNotStarted", err)
	}
	// Release before Configure is a no-op.
	if err := src.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
}

func TestDisplaySink_WriteBeforeConfigure(t *testing.T) {
	sink, err := hdmi.NewDisplaySink(hdmi.DisplayConfig{})
	if err != nil {
		t.Fatalf("NewDisplaySink() error = %v", err)
	}

	frame := frametie.NewFrame(frametie.DefaultMode)
	if err := sink.WriteFrame(frame); !errors.Is(err, frametie.ErrNotStarted) {
		t.Errorf("WriteFrame() before Configure error = %v, want ErrNotStarted", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
