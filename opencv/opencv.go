// Package opencv provides frame sources backed by OpenCV video
// capture: video files and V4L camera devices.
//
// Both sources deliver 24 bpp BGR frames. Reconfigure semantics
// follow the capture backend: OpenCV cannot rewind a demuxed stream,
// so a file source re-opens its file from the first frame, and a
// camera source re-opens the device. The engine's transient-failure
// recovery therefore turns end-of-file into looping playback and
// rides out short device stalls.
package opencv

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/e7canasta/frametie"
)

// FileSource reads frames from a video file.
type FileSource struct {
	path string
	cap  capture
}

// NewFileSource builds a source for the given file path. The file is
// not opened until Configure.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("opencv: %w: file path is required", frametie.ErrInvalidArgument)
	}
	return &FileSource{path: path}, nil
}

// Configure opens the file for the given mode. Reconfiguring rewinds
// to the first frame by re-opening.
func (s *FileSource) Configure(mode frametie.Mode) error {
	return s.cap.configure(mode, func() (*gocv.VideoCapture, error) {
		return gocv.VideoCaptureFile(s.path)
	}, false, s.path)
}

// ReadFrame returns the next decoded frame. End of file surfaces as a
// transient failure, so the engine's recovery path rewinds the clip.
func (s *FileSource) ReadFrame() (*frametie.Frame, error) {
	return s.cap.readFrame(s.path)
}

// Release closes the file.
func (s *FileSource) Release() error {
	return s.cap.release()
}

// CameraSource reads frames from a camera device index.
type CameraSource struct {
	device int
	cap    capture
}

// NewCameraSource builds a source for the given device index. The
// device is not opened until Configure.
func NewCameraSource(device int) (*CameraSource, error) {
	if device < 0 {
		return nil, fmt.Errorf("opencv: %w: device index %d", frametie.ErrInvalidArgument, device)
	}
	return &CameraSource{device: device}, nil
}

// Configure opens the device for the given mode, forcing the MJPG
// pixel format so USB cameras sustain their full frame rate.
func (s *CameraSource) Configure(mode frametie.Mode) error {
	name := fmt.Sprintf("device %d", s.device)
	return s.cap.configure(mode, func() (*gocv.VideoCapture, error) {
		return gocv.VideoCaptureDevice(s.device)
	}, true, name)
}

// ReadFrame returns the next captured frame. A stalled device
// surfaces as a transient failure, so the engine's recovery path
// re-opens it.
func (s *CameraSource) ReadFrame() (*frametie.Frame, error) {
	return s.cap.readFrame(fmt.Sprintf("device %d", s.device))
}

// Release closes the device.
func (s *CameraSource) Release() error {
	return s.cap.release()
}

// capture holds the shared OpenCV handle plumbing. The engine drives
// a source from one goroutine, so no locking is needed here.
type capture struct {
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	hasMat bool
	mode   frametie.Mode
	seq    uint64
	opened bool
}

func (c *capture) configure(mode frametie.Mode, open func() (*gocv.VideoCapture, error), camera bool, name string) error {
	if err := mode.Validate(); err != nil {
		return fmt.Errorf("opencv: %w", err)
	}
	if mode.BitsPerPixel != 24 {
		return fmt.Errorf("opencv: %w: %d bpp (OpenCV capture delivers 24 bpp BGR)",
			frametie.ErrUnsupportedMode, mode.BitsPerPixel)
	}

	if c.opened {
		c.opened = false
		if err := c.vc.Close(); err != nil {
			slog.Warn("opencv: close before reconfigure", "source", name, "error", err)
		}
	}

	vc, err := open()
	if err != nil {
		return fmt.Errorf("opencv: open %s: %w", name, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(mode.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(mode.Height))
	if camera {
		vc.Set(gocv.VideoCaptureFOURCC, vc.ToCodec("MJPG"))
	}
	vc.Set(gocv.VideoCaptureFPS, float64(mode.FrameRate))

	// Files always decode at their native size and cameras may round
	// to the nearest supported geometry. A capture that cannot
	// deliver the requested mode is refused here, not at the first
	// copy. Backends that report 0 before the first read are let
	// through; the read path still checks the frame size.
	actualW := int(vc.Get(gocv.VideoCaptureFrameWidth))
	actualH := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if actualW > 0 && actualH > 0 && (actualW != mode.Width || actualH != mode.Height) {
		if err := vc.Close(); err != nil {
			slog.Warn("opencv: close after mode mismatch", "source", name, "error", err)
		}
		return fmt.Errorf("opencv: %w: %s delivers %dx%d, mode wants %dx%d",
			frametie.ErrUnsupportedMode, name, actualW, actualH, mode.Width, mode.Height)
	}

	if !c.hasMat {
		c.mat = gocv.NewMat()
		c.hasMat = true
	}

	c.vc = vc
	c.mode = mode
	c.opened = true

	slog.Debug("opencv: capture configured", "source", name, "mode", mode.String())
	return nil
}

func (c *capture) readFrame(name string) (*frametie.Frame, error) {
	if !c.opened {
		return nil, fmt.Errorf("opencv: %w: capture is not configured", frametie.ErrNotStarted)
	}

	if ok := c.vc.Read(&c.mat); !ok {
		return nil, frametie.Transientf("no frame from %s (end of stream or device stall)", name)
	}
	if c.mat.Empty() {
		return nil, frametie.Transientf("empty frame from %s", name)
	}

	data := c.mat.ToBytes()
	if len(data) != c.mode.FrameSize() {
		return nil, frametie.Fatalf("frame from %s is %dx%dx%d channels, mode wants %s",
			name, c.mat.Cols(), c.mat.Rows(), c.mat.Channels(), c.mode)
	}

	c.seq++
	return &frametie.Frame{
		Seq:          c.seq,
		Timestamp:    time.Now(),
		Width:        c.mode.Width,
		Height:       c.mode.Height,
		BitsPerPixel: c.mode.BitsPerPixel,
		Data:         data,
		TraceID:      uuid.New().String(),
	}, nil
}

func (c *capture) release() error {
	var errs []error
	if c.hasMat {
		c.hasMat = false
		if err := c.mat.Close(); err != nil {
			errs = append(errs, fmt.Errorf("opencv: close mat: %w", err))
		}
	}
	if c.opened {
		c.opened = false
		if err := c.vc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("opencv: close capture: %w", err))
		}
	}
	return errors.Join(errs...)
}
