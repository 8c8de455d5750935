// Package mirror provides a Sink that mirrors every frame to disk as
// a PNG or JPEG file.
package mirror

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/e7canasta/frametie"
)

// DefaultJPEGQuality is used when Config.JPEGQuality is zero.
const DefaultJPEGQuality = 85

// Config describes a mirror sink.
type Config struct {
	// Dir is the output directory. Created if missing.
	Dir string

	// Format is "png" or "jpeg".
	Format string

	// JPEGQuality is 1-100, only used for JPEG output. Zero selects
	// DefaultJPEGQuality.
	JPEGQuality int
}

// Sink writes one image file per frame.
//
// Filenames carry the sequence number and capture timestamp:
// frame_000042_20260823_154501.000.png. Only 24 bpp BGR frames are
// supported; Configure refuses other depths.
type Sink struct {
	dir     string
	format  string
	quality int

	mu         sync.Mutex
	mode       frametie.Mode
	configured bool

	saved  atomic.Uint64
	failed atomic.Uint64
}

// NewSink validates cfg and creates the output directory.
func NewSink(cfg Config) (*Sink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("mirror: %w: output directory is required", frametie.ErrInvalidArgument)
	}
	if cfg.Format != "png" && cfg.Format != "jpeg" {
		return nil, fmt.Errorf("mirror: %w: format %q (must be png or jpeg)", frametie.ErrInvalidArgument, cfg.Format)
	}
	quality := cfg.JPEGQuality
	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("mirror: %w: jpeg quality %d (must be 1-100)", frametie.ErrInvalidArgument, quality)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("mirror: create output directory: %w", err)
	}

	return &Sink{dir: cfg.Dir, format: cfg.Format, quality: quality}, nil
}

// Configure adopts the mode. Only 24 bpp frames can be encoded.
func (s *Sink) Configure(mode frametie.Mode) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	if mode.BitsPerPixel != 24 {
		return fmt.Errorf("mirror: %w: %d bpp (mirror encodes 24 bpp BGR only)",
			frametie.ErrUnsupportedMode, mode.BitsPerPixel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.configured = true
	return nil
}

// AllocateFrame returns a fresh frame for the configured mode.
func (s *Sink) AllocateFrame() *frametie.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return frametie.NewFrame(s.mode)
}

// WriteFrame encodes the frame and writes it to the output directory.
func (s *Sink) WriteFrame(frame *frametie.Frame) error {
	s.mu.Lock()
	if !s.configured {
		s.mu.Unlock()
		return fmt.Errorf("mirror: %w: sink is not configured", frametie.ErrNotStarted)
	}
	s.mu.Unlock()

	img, err := bgrToRGBA(frame)
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("mirror: %w", err)
	}

	name := fmt.Sprintf("frame_%06d_%s.%s",
		frame.Seq,
		frame.Timestamp.Format("20060102_150405.000"),
		s.format)
	path := filepath.Join(s.dir, name)

	file, err := os.Create(path)
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("mirror: create %s: %w", name, err)
	}
	defer file.Close()

	switch s.format {
	case "png":
		err = png.Encode(file, img)
	case "jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: s.quality})
	}
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("mirror: encode %s: %w", name, err)
	}

	s.saved.Add(1)
	return nil
}

// Close marks the sink unconfigured. Files already written stay.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = false
	return nil
}

// Stats returns the save and failure counts.
func (s *Sink) Stats() (saved, failed uint64) {
	return s.saved.Load(), s.failed.Load()
}

// bgrToRGBA converts packed BGR bytes (3 bytes per pixel, the OpenCV
// layout) to image.RGBA with an opaque alpha channel.
func bgrToRGBA(frame *frametie.Frame) (*image.RGBA, error) {
	expected := frame.Width * frame.Height * 3
	if len(frame.Data) != expected {
		return nil, fmt.Errorf("%w: BGR data size %d, expected %d",
			frametie.ErrInvalidArgument, len(frame.Data), expected)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i := 0; i < frame.Width*frame.Height; i++ {
		img.Pix[i*4+0] = frame.Data[i*3+2] // R
		img.Pix[i*4+1] = frame.Data[i*3+1] // G
		img.Pix[i*4+2] = frame.Data[i*3+0] // B
		img.Pix[i*4+3] = 255
	}
	return img, nil
}
