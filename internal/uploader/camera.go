package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Camera device failures, classified so each maps to a specific user-facing
// message.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceNotFound   = errors.New("camera device not found")
	ErrNotSupported     = errors.New("camera capture not supported")
	ErrDeviceInUse      = errors.New("camera device in use")

	// ErrCameraNotReady means the source has not reported nonzero video
	// dimensions yet; capturing would produce a blank image.
	ErrCameraNotReady = errors.New("camera is not ready")
)

// FacingMode selects which camera a device should open.
type FacingMode string

const (
	FacingModeUser        FacingMode = "user"
	FacingModeEnvironment FacingMode = "environment"
)

// Constraints bound the requested video stream.
type Constraints struct {
	FacingMode  FacingMode
	IdealWidth  int
	IdealHeight int
}

// DefaultConstraints prefers the back camera at a bounded resolution.
func DefaultConstraints() Constraints {
	return Constraints{
		FacingMode:  FacingModeEnvironment,
		IdealWidth:  1920,
		IdealHeight: 1080,
	}
}

// Track is a live media track. Stopping it releases the underlying device.
type Track interface {
	Stop()
	Live() bool
}

// FrameSource abstracts a camera stream. The preview a source shows is
// mirrored; Frame returns the unmirrored sensor image.
type FrameSource interface {
	Open(ctx context.Context, c Constraints) error
	// Frame returns the current video frame.
	Frame() (image.Image, error)
	// Dimensions reports the current frame size, (0, 0) until the source
	// is ready.
	Dimensions() (width, height int)
	Tracks() []Track
	Close() error
}

// CameraErrorMessage maps a device failure to one of five user-facing
// messages.
func CameraErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Camera access was denied. Please allow camera access and try again."
	case errors.Is(err, ErrDeviceNotFound):
		return "No camera was found on this device."
	case errors.Is(err, ErrNotSupported):
		return "Camera capture is not supported on this device."
	case errors.Is(err, ErrDeviceInUse):
		return "The camera is already in use by another application."
	default:
		return "Could not access the camera. Please try again."
	}
}

// jpegQuality matches typical browser canvas encoding.
const jpegQuality = 90

// captureFrame draws the frame horizontally flipped, undoing the mirrored
// preview, and encodes it as JPEG.
func captureFrame(src FrameSource) ([]byte, error) {
	frame, err := src.Frame()
	if err != nil {
		return nil, fmt.Errorf("read camera frame: %w", err)
	}

	b := frame.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrCameraNotReady
	}

	flipped := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	flip := f64.Aff3{
		-1, 0, float64(b.Max.X),
		0, 1, float64(-b.Min.Y),
	}
	draw.NearestNeighbor.Transform(flipped, flip, frame, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flipped, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), nil
}

// stopTracks releases every track of the source.
func stopTracks(src FrameSource) {
	for _, t := range src.Tracks() {
		t.Stop()
	}
}
