// Package uploader implements the capture/upload request lifecycle as an
// explicit state machine: select or capture an image, validate it, run the
// staged progress animation, send the extraction request with retries, and
// expose the result in the export formats.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snaptext/snaptext/internal/export"
	"github.com/snaptext/snaptext/pkg/dataurl"
)

// State names the stages of the upload/capture flow.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateProcessing
	StateResult
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateProcessing:
		return "processing"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when an event is not legal in the
// current state. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid state transition")

// minCaptureBytes rejects implausibly small captures before upload.
const minCaptureBytes = 128

// Machine owns all client-side state. It is single-writer: every mutation
// happens from the caller's goroutine in response to a discrete event, and
// at most one extraction request is in flight at a time.
type Machine struct {
	state  State
	client *Client

	clipboard Clipboard
	source    FrameSource

	imageDataURL string
	result       *export.Result
	errMsg       string

	stepDelay    time.Duration
	stepObserver func(index int, step Step)
	sleep        func(time.Duration)
	now          func() time.Time
	copiedAt     time.Time
}

// NewMachine starts in StateIdle. clipboard may be nil if copy support is
// not wanted.
func NewMachine(client *Client, clipboard Clipboard) *Machine {
	return &Machine{
		state:     StateIdle,
		client:    client,
		clipboard: clipboard,
		stepDelay: DefaultStepDelay,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// ErrorMessage returns the first actionable message for the error state.
func (m *Machine) ErrorMessage() string { return m.errMsg }

// Result returns the most recent result, if any. Entering the error state
// does not clear a previously held result.
func (m *Machine) Result() *export.Result { return m.result }

// OnStep registers an observer for the processing animation stages.
func (m *Machine) OnStep(fn func(index int, step Step)) { m.stepObserver = fn }

// SetStepDelay overrides the pacing between progress stages. Zero disables
// the pause, which is appropriate when no progress is being displayed.
func (m *Machine) SetStepDelay(d time.Duration) { m.stepDelay = d }

func (m *Machine) invalid(event string) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, m.state)
}

// imageMimeTypes are the upload formats accepted from the file picker.
var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// SelectFile reads an image file and stages it for processing. Legal from
// Idle, Result, and Error (starting over discards nothing until the new
// result arrives).
func (m *Machine) SelectFile(path string) error {
	if m.state == StateCapturing || m.state == StateProcessing {
		return m.invalid("select file")
	}

	mimeType, ok := imageMimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		m.fail("Please select an image file (PNG, JPEG, GIF, or WebP).")
		return fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		m.fail("The selected file could not be read.")
		return fmt.Errorf("open image file: %w", err)
	}
	defer f.Close()

	return m.stageImage(f, mimeType)
}

// SelectReader stages image bytes from an arbitrary reader with a declared
// MIME type.
func (m *Machine) SelectReader(r io.Reader, mimeType string) error {
	if m.state == StateCapturing || m.state == StateProcessing {
		return m.invalid("select file")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		m.fail("Please select an image file (PNG, JPEG, GIF, or WebP).")
		return fmt.Errorf("unsupported mime type %q", mimeType)
	}
	return m.stageImage(r, mimeType)
}

func (m *Machine) stageImage(r io.Reader, mimeType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		m.fail("The selected file could not be read.")
		return fmt.Errorf("read image: %w", err)
	}

	url := dataurl.Encode(mimeType, data)
	if _, err := dataurl.Parse(url); err != nil {
		m.fail("The selected file is not a supported image.")
		return fmt.Errorf("stage image: %w", err)
	}

	m.imageDataURL = url
	m.state = StateProcessing
	return nil
}

// OpenCamera requests a video stream with back-camera preference and
// bounded resolution. Device failures land in the error state with one of
// five specific messages.
func (m *Machine) OpenCamera(ctx context.Context, src FrameSource) error {
	if m.state != StateIdle && m.state != StateResult && m.state != StateError {
		return m.invalid("open camera")
	}

	if err := src.Open(ctx, DefaultConstraints()); err != nil {
		m.fail(CameraErrorMessage(err))
		return fmt.Errorf("open camera: %w", err)
	}

	m.source = src
	m.state = StateCapturing
	return nil
}

// Capture grabs the current frame, undoes the preview mirroring, and stages
// the JPEG for processing. The stream is stopped only after a plausible
// capture.
func (m *Machine) Capture() error {
	if m.state != StateCapturing {
		return m.invalid("capture")
	}

	w, h := m.source.Dimensions()
	if w == 0 || h == 0 {
		// Stream not ready yet; refuse rather than upload a blank image.
		return fmt.Errorf("%w: video dimensions not available yet", ErrCameraNotReady)
	}

	data, err := captureFrame(m.source)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if len(data) < minCaptureBytes {
		return fmt.Errorf("capture produced an implausibly small image (%d bytes)", len(data))
	}

	url := dataurl.Encode("image/jpeg", data)
	if _, err := dataurl.Parse(url); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	stopTracks(m.source)
	m.source.Close()
	m.source = nil

	m.imageDataURL = url
	m.state = StateProcessing
	return nil
}

// CancelCamera stops every track and returns to Idle.
func (m *Machine) CancelCamera() error {
	if m.state != StateCapturing {
		return m.invalid("cancel camera")
	}
	stopTracks(m.source)
	m.source.Close()
	m.source = nil
	m.state = StateIdle
	return nil
}

// Process validates the staged image, plays the four-stage progress
// animation, and issues the extraction request. On success the machine
// holds the result; on terminal failure it holds the first actionable
// error message.
func (m *Machine) Process(ctx context.Context) error {
	if m.state != StateProcessing {
		return m.invalid("process")
	}

	img, err := dataurl.Parse(m.imageDataURL)
	if err != nil {
		m.fail("The image could not be prepared for upload.")
		return fmt.Errorf("validate staged image: %w", err)
	}
	if img.DecodedSize() < minCaptureBytes {
		m.fail("The image is too small to contain readable text.")
		return fmt.Errorf("staged image too small (%d bytes)", img.DecodedSize())
	}

	for i, step := range ProcessingSteps() {
		if m.stepObserver != nil {
			m.stepObserver(i, step)
		}
		m.sleep(m.stepDelay)
	}

	text, err := m.client.Extract(ctx, m.imageDataURL)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			m.fail(reqErr.Message)
		} else {
			m.fail("Could not reach the extraction service. Please try again.")
		}
		return fmt.Errorf("process: %w", err)
	}

	m.result = export.NewResult(text)
	m.state = StateResult
	return nil
}

// Export renders the held result in the given format.
func (m *Machine) Export(f export.Format) ([]byte, error) {
	if m.state != StateResult {
		return nil, m.invalid("export")
	}
	return export.Render(m.result, f)
}

// Download writes the export to dir under the format's canonical filename
// and returns the written path.
func (m *Machine) Download(dir string, f export.Format) (string, error) {
	data, err := m.Export(f)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, export.Filename(m.result, f))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	return path, nil
}

// CopyToClipboard writes the export to the clipboard and starts the
// two-second "copied" acknowledgment window.
func (m *Machine) CopyToClipboard(f export.Format) error {
	if m.state != StateResult {
		return m.invalid("copy")
	}
	if m.clipboard == nil {
		return errors.New("no clipboard available")
	}
	data, err := export.Render(m.result, f)
	if err != nil {
		return err
	}
	if err := m.clipboard.Write(string(data)); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	m.copiedAt = m.now()
	return nil
}

// CopiedRecently reports whether a copy happened within the acknowledgment
// window.
func (m *Machine) CopiedRecently() bool {
	return !m.copiedAt.IsZero() && m.now().Sub(m.copiedAt) < 2*time.Second
}

// Reset discards held state and returns to Idle, releasing any open
// camera source.
func (m *Machine) Reset() {
	if m.source != nil {
		stopTracks(m.source)
		m.source.Close()
		m.source = nil
	}
	m.imageDataURL = ""
	m.result = nil
	m.errMsg = ""
	m.state = StateIdle
}

// fail enters the error state. Prior image and result state are retained.
func (m *Machine) fail(msg string) {
	m.errMsg = msg
	m.state = StateError
}
