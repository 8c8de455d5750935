package frametie_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/e7canasta/frametie"
)

// TestMode_Validate tests mode validation boundaries.
//
// These tests ensure malformed modes are rejected at construction
// time rather than surfacing as copy-loop failures later.
func TestMode_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mode    frametie.Mode
		wantErr error
	}{
		{
			name: "default mode",
			mode: frametie.DefaultMode,
		},
		{
			name: "grayscale VGA",
			mode: frametie.Mode{Width: 640, Height: 480, BitsPerPixel: 8, FrameRate: 60},
		},
		{
			name: "32bpp full HD",
			mode: frametie.Mode{Width: 1920, Height: 1080, BitsPerPixel: 32, FrameRate: 30},
		},
		{
			name:    "zero width",
			mode:    frametie.Mode{Width: 0, Height: 720, BitsPerPixel: 24, FrameRate: 30},
			wantErr: frametie.ErrInvalidArgument,
		},
		{
			name:    "negative height",
			mode:    frametie.Mode{Width: 1280, Height: -720, BitsPerPixel: 24, FrameRate: 30},
			wantErr: frametie.ErrInvalidArgument,
		},
		{
			name:    "zero frame rate",
			mode:    frametie.Mode{Width: 1280, Height: 720, BitsPerPixel: 24, FrameRate: 0},
			wantErr: frametie.ErrInvalidArgument,
		},
		{
			name:    "12 bits per pixel",
			mode:    frametie.Mode{Width: 1280, Height: 720, BitsPerPixel: 12, FrameRate: 30},
			wantErr: frametie.ErrUnsupportedMode,
		},
		{
			name:    "zero bits per pixel",
			mode:    frametie.Mode{Width: 1280, Height: 720, BitsPerPixel: 0, FrameRate: 30},
			wantErr: frametie.ErrUnsupportedMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mode.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestMode_FrameSize tests frame size arithmetic.
func TestMode_FrameSize(t *testing.T) {
	tests := []struct {
		name string
		mode frametie.Mode
		want int
	}{
		{
			name: "720p BGR",
			mode: frametie.Mode{Width: 1280, Height: 720, BitsPerPixel: 24, FrameRate: 30},
			want: 2764800,
		},
		{
			name: "VGA grayscale",
			mode: frametie.Mode{Width: 640, Height: 480, BitsPerPixel: 8, FrameRate: 30},
			want: 307200,
		},
		{
			name: "1080p BGRA",
			mode: frametie.Mode{Width: 1920, Height: 1080, BitsPerPixel: 32, FrameRate: 30},
			want: 8294400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.FrameSize(); got != tt.want {
				t.Errorf("FrameSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestNewFrame tests frame allocation against the mode geometry.
func TestNewFrame(t *testing.T) {
	mode := frametie.Mode{Width: 320, Height: 240, BitsPerPixel: 24, FrameRate: 30}
	frame := frametie.NewFrame(mode)

	if frame.Width != 320 || frame.Height != 240 {
		t.Errorf("NewFrame() geometry = %dx%d, want 320x240", frame.Width, frame.Height)
	}
	if frame.BitsPerPixel != 24 {
		t.Errorf("NewFrame() bpp = %d, want 24", frame.BitsPerPixel)
	}
	if frame.Size() != mode.FrameSize() {
		t.Errorf("NewFrame() size = %d, want %d", frame.Size(), mode.FrameSize())
	}
}

// TestFrame_CopyFrom tests whole-buffer copy semantics.
func TestFrame_CopyFrom(t *testing.T) {
	mode := frametie.Mode{Width: 4, Height: 2, BitsPerPixel: 24, FrameRate: 30}

	src := frametie.NewFrame(mode)
	src.Seq = 42
	src.Timestamp = time.Unix(1700000000, 0)
	src.TraceID = "trace-42"
	for i := range src.Data {
		src.Data[i] = byte(i)
	}

	dst := frametie.NewFrame(mode)
	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom() unexpected error = %v", err)
	}

	if dst.Seq != 42 || dst.TraceID != "trace-42" {
		t.Errorf("CopyFrom() metadata = (%d, %q), want (42, trace-42)", dst.Seq, dst.TraceID)
	}
	if !dst.Timestamp.Equal(src.Timestamp) {
		t.Errorf("CopyFrom() timestamp = %v, want %v", dst.Timestamp, src.Timestamp)
	}
	for i := range dst.Data {
		if dst.Data[i] != byte(i) {
			t.Fatalf("CopyFrom() data[%d] = %d, want %d", i, dst.Data[i], byte(i))
		}
	}

	// The buffers must stay independent after the copy.
	src.Data[0] = 0xFF
	if dst.Data[0] == 0xFF {
		t.Error("CopyFrom() destination aliases source buffer")
	}
}

// TestFrame_CopyFrom_SizeMismatch tests that partial copies are refused.
func TestFrame_CopyFrom_SizeMismatch(t *testing.T) {
	small := frametie.NewFrame(frametie.Mode{Width: 2, Height: 2, BitsPerPixel: 24, FrameRate: 30})
	big := frametie.NewFrame(frametie.Mode{Width: 4, Height: 4, BitsPerPixel: 24, FrameRate: 30})

	err := big.CopyFrom(small)
	if !errors.Is(err, frametie.ErrInvalidArgument) {
		t.Errorf("CopyFrom() error = %v, want ErrInvalidArgument", err)
	}

	// The destination must be untouched on failure.
	big.Seq = 7
	if err := big.CopyFrom(small); err == nil {
		t.Fatal("CopyFrom() expected error on size mismatch")
	}
	if big.Seq != 7 {
		t.Errorf("CopyFrom() modified destination metadata on failure")
	}
}

// TestClassify tests the error taxonomy mapping.
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want frametie.ErrorClass
	}{
		{
			name: "nil error",
			err:  nil,
			want: frametie.ClassNone,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: frametie.ClassNone,
		},
		{
			name: "transient helper",
			err:  frametie.Transientf("empty frame from %s", "/dev/video0"),
			want: frametie.ClassTransient,
		},
		{
			name: "fatal helper",
			err:  frametie.Fatalf("device unplugged"),
			want: frametie.ClassFatal,
		},
		{
			name: "wrapped transient",
			err:  fmt.Errorf("source read: %w", frametie.Transientf("EOF")),
			want: frametie.ClassTransient,
		},
		{
			name: "fatal wins over transient",
			err:  fmt.Errorf("%w: %w", frametie.ErrFatal, frametie.Transientf("EOF")),
			want: frametie.ClassFatal,
		},
		{
			name: "not started",
			err:  fmt.Errorf("pause: %w", frametie.ErrNotStarted),
			want: frametie.ClassNotStarted,
		},
		{
			name: "unsupported mode",
			err:  fmt.Errorf("%w: 12 bpp", frametie.ErrUnsupportedMode),
			want: frametie.ClassUnsupportedMode,
		},
		{
			name: "invalid argument",
			err:  fmt.Errorf("%w: nil sink", frametie.ErrInvalidArgument),
			want: frametie.ClassInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frametie.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestIsTransient_IsFatal tests the classification shorthands.
func TestIsTransient_IsFatal(t *testing.T) {
	transient := frametie.Transientf("no frame")
	fatal := frametie.Fatalf("gone")

	if !frametie.IsTransient(transient) {
		t.Error("IsTransient() = false for Transientf error")
	}
	if frametie.IsTransient(fatal) {
		t.Error("IsTransient() = true for Fatalf error")
	}
	if !frametie.IsFatal(fatal) {
		t.Error("IsFatal() = false for Fatalf error")
	}
	if frametie.IsFatal(transient) {
		t.Error("IsFatal() = true for Transientf error")
	}
}

// ExampleMode_String demonstrates the mode description format.
func ExampleMode_String() {
	fmt.Println(frametie.DefaultMode.String())
	fmt.Println(frametie.Mode{Width: 640, Height: 480, BitsPerPixel: 8, FrameRate: 60}.String())
	// Output: 1280x720@30fps 24bpp
	// 640x480@60fps 8bpp
}

// ExampleMode_FrameSize demonstrates frame size arithmetic.
func ExampleMode_FrameSize() {
	fmt.Println(frametie.DefaultMode.FrameSize())
	// Output: 2764800
}

// ExampleClassify demonstrates error classification.
func ExampleClassify() {
	err := frametie.Transientf("empty frame")
	fmt.Println(frametie.Classify(err))
	fmt.Println(frametie.Classify(nil))
	// Output: transient
	// none
}
