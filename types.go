package frametie

import (
	"fmt"
	"time"
)

// Mode describes the geometry and pacing of a video stream.
//
// A mode is agreed between the source and the sink before frames flow:
// both ends are configured with the same mode, and every frame carries
// exactly FrameSize() bytes of packed pixel data.
type Mode struct {
	// Width in pixels.
	Width int

	// Height in pixels.
	Height int

	// BitsPerPixel is the packed pixel depth. Supported depths are
	// 8 (grayscale), 16, 24 (BGR) and 32 (BGRA).
	BitsPerPixel int

	// FrameRate in frames per second. Pacing is owned by the source
	// or sink hardware; the copy loop itself never throttles.
	FrameRate int
}

// DefaultMode is the mode used when a configuration does not name one:
// 720p BGR at 30 frames per second.
var DefaultMode = Mode{Width: 1280, Height: 720, BitsPerPixel: 24, FrameRate: 30}

// BytesPerPixel returns the packed size of one pixel.
func (m Mode) BytesPerPixel() int {
	return m.BitsPerPixel / 8
}

// FrameSize returns the number of bytes in one frame of this mode.
func (m Mode) FrameSize() int {
	return m.Width * m.Height * m.BytesPerPixel()
}

// String returns a human-readable description, e.g. "1280x720@30fps 24bpp".
func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%dfps %dbpp", m.Width, m.Height, m.FrameRate, m.BitsPerPixel)
}

// Validate checks that the mode is well formed.
//
// Non-positive dimensions or frame rate return ErrInvalidArgument.
// A pixel depth outside {8, 16, 24, 32} returns ErrUnsupportedMode.
func (m Mode) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidArgument, m.Width, m.Height)
	}
	if m.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate %d", ErrInvalidArgument, m.FrameRate)
	}
	switch m.BitsPerPixel {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedMode, m.BitsPerPixel)
	}
}

// Frame is one video frame moving through a tie.
//
// Ownership transfers with the frame: once a frame is handed to
// WriteFrame the caller must not touch it again. The copy loop
// allocates a fresh destination every iteration, so no two stages
// ever share a buffer.
type Frame struct {
	// Seq is a monotonic sequence number assigned by the source.
	Seq uint64

	// Timestamp is the capture time.
	Timestamp time.Time

	// Width in pixels.
	Width int

	// Height in pixels.
	Height int

	// BitsPerPixel is the packed pixel depth.
	BitsPerPixel int

	// Data holds the packed pixel bytes, row-major, no padding.
	Data []byte

	// TraceID identifies this frame across pipeline stages and logs.
	TraceID string
}

// NewFrame allocates a zeroed frame sized for the given mode.
func NewFrame(mode Mode) *Frame {
	return &Frame{
		Width:        mode.Width,
		Height:       mode.Height,
		BitsPerPixel: mode.BitsPerPixel,
		Data:         make([]byte, mode.FrameSize()),
	}
}

// Size returns the payload size in bytes.
func (f *Frame) Size() int {
	return len(f.Data)
}

// CopyFrom copies the pixel data and metadata of src into f.
//
// The destination buffer is reused as-is; only whole-buffer copies are
// allowed, so the payloads must be the same size. A size mismatch
// returns ErrInvalidArgument and leaves f unchanged.
func (f *Frame) CopyFrom(src *Frame) error {
	if len(f.Data) != len(src.Data) {
		return fmt.Errorf("%w: frame size %d does not match %d", ErrInvalidArgument, len(src.Data), len(f.Data))
	}
	copy(f.Data, src.Data)
	f.Seq = src.Seq
	f.Timestamp = src.Timestamp
	f.Width = src.Width
	f.Height = src.Height
	f.BitsPerPixel = src.BitsPerPixel
	f.TraceID = src.TraceID
	return nil
}
