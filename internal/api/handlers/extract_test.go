package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snaptext/snaptext/internal/extraction"
	"github.com/snaptext/snaptext/internal/llm"
	"github.com/snaptext/snaptext/pkg/dataurl"
)

// scriptedGateway returns a fixed response or error and records whether it
// was called.
type scriptedGateway struct {
	calls   int
	content string
	err     error
}

func (g *scriptedGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &llm.ChatResponse{Content: g.content, Model: req.Model}, nil
}

func (g *scriptedGateway) Provider(string) (llm.Provider, error) {
	return nil, errors.New("no providers")
}
func (g *scriptedGateway) ListModels() []llm.ModelInfo { return nil }

func newTestHandler(gw llm.Gateway) *ExtractHandler {
	return NewExtractHandler(extraction.NewService(gw, "gpt-4o", 128, nil))
}

func postExtract(t *testing.T, h *ExtractHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Extract(rec, req)
	return rec
}

func imageBody(t *testing.T, size int) string {
	t.Helper()
	url := dataurl.Encode("image/jpeg", bytes.Repeat([]byte{0x55}, size))
	body, err := json.Marshal(ExtractRequest{Base64Image: url})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return string(body)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response body %q did not parse: %v", rec.Body.String(), err)
	}
	return resp.Error
}

// TestExtractSuccess tests the 200 path: {base64Image} in, {text} out.
func TestExtractSuccess(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{content: "MENU\nCoffee 3.00"}
	rec := postExtract(t, newTestHandler(gw), imageBody(t, 512))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200; body: %s", rec.Code, rec.Body.String())
	}
	var resp ExtractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response did not parse: %v", err)
	}
	if resp.Text != "MENU\nCoffee 3.00" {
		t.Errorf("text = %q, expected model output", resp.Text)
	}
}

// TestExtractRejectsBadPayloads tests 400 responses for missing, malformed,
// and undersized images, and that the gateway is never reached.
func TestExtractRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing field", `{}`},
		{"empty image", `{"base64Image": ""}`},
		{"not a data url", `{"base64Image": "hello world"}`},
		{"wrong mime", `{"base64Image": "data:text/plain;base64,aGVsbG8="}`},
		{"undersized", imageBody(t, 16)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gw := &scriptedGateway{content: "unused"}
			rec := postExtract(t, newTestHandler(gw), tc.body)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, expected 400; body: %s", rec.Code, rec.Body.String())
			}
			if decodeError(t, rec) == "" {
				t.Error("error message is empty")
			}
			if gw.calls != 0 {
				t.Errorf("gateway called %d times, expected 0", gw.calls)
			}
		})
	}
}

// TestExtractSentinelReturnsError tests that the no-text sentinel maps to a
// 400 error, not an empty success.
func TestExtractSentinelReturnsError(t *testing.T) {
	t.Parallel()

	gw := &scriptedGateway{content: extraction.NoTextSentinel}
	rec := postExtract(t, newTestHandler(gw), imageBody(t, 512))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400; body: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "no text") {
		t.Errorf("error = %q, expected a no-text message", msg)
	}
}

// TestExtractStatusByFailureKind tests the taxonomy: timeout → 408, policy
// → 400, everything else → 500 with a generic message.
func TestExtractStatusByFailureKind(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"timeout", context.DeadlineExceeded, http.StatusRequestTimeout},
		{"policy violation", errors.New("rejected by content policy"), http.StatusBadRequest},
		{"provider rate limit", errors.New("429 too many requests"), http.StatusTooManyRequests},
		{"unknown upstream", errors.New("tls handshake failure"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gw := &scriptedGateway{err: tc.err}
			rec := postExtract(t, newTestHandler(gw), imageBody(t, 512))

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, expected %d; body: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus == http.StatusInternalServerError {
				if msg := decodeError(t, rec); strings.Contains(msg, "tls") {
					t.Errorf("error %q leaks internal detail", msg)
				}
			}
		})
	}
}
