package opencv_test

import (
	"errors"
	"testing"

	"github.com/e7canasta/frametie"
	"github.com/e7canasta/frametie/opencv"
)

// TestNewFileSource_FailFast tests constructor validation. Opening
// the file itself is deferred to Configure, so no media is needed.
func TestNewFileSource_FailFast(t *testing.T) {
	if _, err := opencv.NewFileSource(""); !errors.Is(err, frametie.ErrInvalidArgument) {
		t.Errorf("NewFileSource(\"\") error = %v, want ErrInvalidArgument", err)
	}

	src, err := opencv.NewFileSource("testdata/clip.mp4")
	if err != nil {
		t.Fatalf("NewFileSource() unexpected error = %v", err)
	}
	if src == nil {
		t.Fatal("NewFileSource() returned nil source with no error")
	}
}

// TestNewCameraSource_FailFast tests device index validation.
func TestNewCameraSource_FailFast(t *testing.T) {
	if _, err := opencv.NewCameraSource(-1); !errors.Is(err, frametie.ErrInvalidArgument) {
		t.Errorf("NewCameraSource(-1) error = %v, want ErrInvalidArgument", err)
	}

	src, err := opencv.NewCameraSource(0)
	if err != nil {
		t.Fatalf("NewCameraSource() unexpected error = %v", err)
	}
	if src == nil {
		t.Fatal("NewCameraSource() returned nil source with no error")
	}
}

// TestSource_ReadBeforeConfigure tests reads against an unopened
// source.
func TestSource_ReadBeforeConfigure(t *testing.T) {
	src, err := opencv.NewFileSource("testdata/clip.mp4")
	if err != nil {
		t.Fatalf("NewFileSource() unexpected error = %v", err)
	}
	if _, err := src.ReadFrame(); !errors.Is(err, frametie.ErrNotStarted) {
		t.Errorf("ReadFrame() error = %v, want ErrNotStarted", err)
	}

	// Release before configure is a no-op.
	if err := src.Release(); err != nil {
		t.Errorf("Release() unexpected error = %v", err)
	}
}

// TestConfigure_UnsupportedDepth tests that non-BGR modes are refused
// before any device is touched.
func TestConfigure_UnsupportedDepth(t *testing.T) {
	src, err := opencv.NewCameraSource(0)
	if err != nil {
		t.Fatalf("NewCameraSource() unexpected error = %v", err)
	}

	gray := frametie.Mode{Width: 640, Height: 480, BitsPerPixel: 8, FrameRate: 30}
	if err := src.Configure(gray); !errors.Is(err, frametie.ErrUnsupportedMode) {
		t.Errorf("Configure(8bpp) error = %v, want ErrUnsupportedMode", err)
	}
}
