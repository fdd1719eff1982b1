package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/snaptext/snaptext/internal/export"
)

// fakeClipboard records the last written text.
type fakeClipboard struct {
	text string
}

func (c *fakeClipboard) Write(text string) error {
	c.text = text
	return nil
}

// extractServer responds to /api/v1/extract, failing the first `failures`
// requests with 500.
func extractServer(t *testing.T, text string, failures int) (*httptest.Server, *int) {
	t.Helper()
	calls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		if *calls <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "upstream unavailable"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

// fastMachine builds a machine against srv with zero cosmetic delay and a
// recorded client sleep.
func fastMachine(srv *httptest.Server, clip Clipboard) (*Machine, *[]time.Duration) {
	client := NewClient(srv.URL)
	delays := &[]time.Duration{}
	client.sleep = func(d time.Duration) { *delays = append(*delays, d) }

	m := NewMachine(client, clip)
	m.stepDelay = 0
	m.sleep = func(time.Duration) {}
	return m, delays
}

func stageBytes(t *testing.T, m *Machine, size int) {
	t.Helper()
	if err := m.SelectReader(bytes.NewReader(bytes.Repeat([]byte{0x33}, size)), "image/png"); err != nil {
		t.Fatalf("SelectReader returned error: %v", err)
	}
}

// TestFileFlowToResult tests the happy path: select → processing with four
// animated steps → result holding the server's text.
func TestFileFlowToResult(t *testing.T) {
	t.Parallel()

	srv, _ := extractServer(t, "EXIT 12\nGate B", 0)
	m, _ := fastMachine(srv, nil)

	var steps []Step
	m.OnStep(func(_ int, s Step) { steps = append(steps, s) })

	stageBytes(t, m, 512)
	if m.State() != StateProcessing {
		t.Fatalf("state after select = %v, expected processing", m.State())
	}

	if err := m.Process(context.Background()); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if m.State() != StateResult {
		t.Fatalf("state after process = %v, expected result", m.State())
	}
	if m.Result().Text != "EXIT 12\nGate B" {
		t.Errorf("result text = %q", m.Result().Text)
	}
	if len(steps) != 4 {
		t.Errorf("observed %d processing steps, expected 4", len(steps))
	}
}

// TestSelectRejectsNonImage tests MIME rejection with a user-facing error.
func TestSelectRejectsNonImage(t *testing.T) {
	t.Parallel()

	srv, _ := extractServer(t, "", 0)
	m, _ := fastMachine(srv, nil)

	err := m.SelectReader(strings.NewReader("hello"), "text/plain")
	if err == nil {
		t.Fatal("SelectReader accepted text/plain")
	}
	if m.State() != StateError {
		t.Errorf("state = %v, expected error", m.State())
	}
	if m.ErrorMessage() == "" {
		t.Error("error message is empty")
	}
}

// TestSelectFileUnsupportedExtension tests the file-picker extension check.
func TestSelectFileUnsupportedExtension(t *testing.T) {
	t.Parallel()

	srv, _ := extractServer(t, "", 0)
	m, _ := fastMachine(srv, nil)

	if err := m.SelectFile("notes.txt"); err == nil {
		t.Fatal("SelectFile accepted a .txt file")
	}
	if m.State() != StateError {
		t.Errorf("state = %v, expected error", m.State())
	}
}

// TestIllegalTransitions tests that events outside their legal states
// return ErrInvalidTransition and leave the state unchanged.
func TestIllegalTransitions(t *testing.T) {
	t.Parallel()

	srv, _ := extractServer(t, "", 0)
	m, _ := fastMachine(srv, nil)

	if err := m.Capture(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Capture in idle: error = %v, expected ErrInvalidTransition", err)
	}
	if err := m.Process(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Process in idle: error = %v, expected ErrInvalidTransition", err)
	}
	if _, err := m.Export(export.FormatText); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Export in idle: error = %v, expected ErrInvalidTransition", err)
	}
	if err := m.CancelCamera(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CancelCamera in idle: error = %v, expected ErrInvalidTransition", err)
	}
	if m.State() != StateIdle {
		t.Errorf("state drifted to %v after rejected events", m.State())
	}
}

// TestRetrySucceedsOnThirdAttempt tests the retry loop: two transient
// failures, success on the third attempt, exactly two backoff delays.
func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	srv, calls := extractServer(t, "recovered text", 2)
	m, delays := fastMachine(srv, nil)

	stageBytes(t, m, 512)
	if err := m.Process(context.Background()); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if m.Result().Text != "recovered text" {
		t.Errorf("result text = %q", m.Result().Text)
	}
	if *calls != 3 {
		t.Errorf("server saw %d requests, expected 3", *calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != 2 || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Errorf("backoff delays = %v, expected %v", *delays, want)
	}
}

// TestNoRetryOnValidationError tests that a 400 rejection is final: one
// request, no backoff, error state.
func TestNoRetryOnValidationError(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "no text found in the image"})
	}))
	t.Cleanup(srv.Close)

	m, delays := fastMachine(srv, nil)
	stageBytes(t, m, 512)

	if err := m.Process(context.Background()); err == nil {
		t.Fatal("Process succeeded, expected error")
	}
	if calls != 1 {
		t.Errorf("server saw %d requests, expected 1", calls)
	}
	if len(*delays) != 0 {
		t.Errorf("observed %d backoff delays, expected 0", len(*delays))
	}
	if m.State() != StateError {
		t.Errorf("state = %v, expected error", m.State())
	}
	if m.ErrorMessage() != "no text found in the image" {
		t.Errorf("error message = %q, expected the server's message", m.ErrorMessage())
	}
}

// TestErrorRetainsPriorResult tests that a failed follow-up extraction
// leaves the previous result readable.
func TestErrorRetainsPriorResult(t *testing.T) {
	t.Parallel()

	srv, _ := extractServer(t, "first result", 0)
	m, _ := fastMachine(srv, nil)

	stageBytes(t, m, 512)
	if err := m.Process(context.Background()); err != nil {
		t.Fatalf("first Process returned error: %v", err)
	}

	// Every later request fails at the transport level.
	srv.Close()

	stageBytes(t, m, 512)
	if err := m.Process(context.Background()); err == nil {
		t.Fatal("second Process succeeded against a closed server")
	}
	if m.State() != StateError {
		t.Errorf("state = %v, expected error", m.State())
	}
	if m.Result() == nil || m.Result().Text != "first result" {
		t.Error("prior result was cleared by the failed extraction")
	}
}

// TestProcessRejectsUndersizedImage tests the pre-network size check.
func TestProcessRejectsUndersizedImage(t *testing.T) {
	t.Parallel()

	srv, calls := extractServer(t, "", 0)
	m, _ := fastMachine(srv, nil)

	stageBytes(t, m, 16)
	if err := m.Process(context.Background()); err == nil {
		t.Fatal("Process accepted an undersized image")
	}
	if *calls != 0 {
		t.Errorf("server saw %d requests for an undersized image, expected 0", *calls)
	}
}

// TestDownloadWritesNamedFile tests download naming, content, and MIME
// pairing by extension.
func TestDownloadWritesNamedFile(t *testing.T) {
	t.Parallel()

	srv, _ := extractServer(t, "line a\nline b", 0)
	m, _ := fastMachine(srv, nil)

	stageBytes(t, m, 512)
	if err := m.Process(context.Background()); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	dir := t.TempDir()
	path, err := m.Download(dir, export.FormatCSV)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if !strings.HasSuffix(path, ".csv") {
		t.Errorf("download path %q does not end in .csv", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if !strings.Contains(string(data), "Line Number,Content") {
		t.Errorf("download content %q missing CSV header", string(data))
	}
}

// TestCopyToClipboardAcknowledgment tests the copy action and its
// two-second acknowledgment window.
func TestCopyToClipboardAcknowledgment(t *testing.T) {
	t.Parallel()

	srv, _ := extractServer(t, "copy me", 0)
	clip := &fakeClipboard{}
	m, _ := fastMachine(srv, clip)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	stageBytes(t, m, 512)
	if err := m.Process(context.Background()); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if m.CopiedRecently() {
		t.Error("CopiedRecently true before any copy")
	}
	if err := m.CopyToClipboard(export.FormatText); err != nil {
		t.Fatalf("CopyToClipboard returned error: %v", err)
	}
	if clip.text != "copy me" {
		t.Errorf("clipboard content = %q", clip.text)
	}
	if !m.CopiedRecently() {
		t.Error("CopiedRecently false immediately after copy")
	}

	current = current.Add(3 * time.Second)
	if m.CopiedRecently() {
		t.Error("CopiedRecently still true after the window elapsed")
	}
}
