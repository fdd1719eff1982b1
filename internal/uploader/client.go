package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultMaxAttempts bounds the client-side retry loop.
	DefaultMaxAttempts = 3
	// DefaultAttemptTimeout is the per-request timeout.
	DefaultAttemptTimeout = 30 * time.Second
	// retryBaseDelay is doubled per attempt: 1s, 2s, 4s, ...
	retryBaseDelay = time.Second
)

// RequestError is a server-rejected extraction attempt. Retryable reports
// whether another attempt could plausibly succeed.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("extraction request failed (%d): %s", e.Status, e.Message)
}

// Retryable reports whether the failure is transient. Validation, policy,
// and rate-limit rejections are final; timeouts and server errors are not.
func (e *RequestError) Retryable() bool {
	if e.Status == http.StatusRequestTimeout {
		return true
	}
	return e.Status >= 500
}

// Client issues extraction requests with bounded retries and exponential
// backoff between attempts. There is no way to abort an in-flight attempt
// other than cancelling ctx.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	MaxAttempts    int
	AttemptTimeout time.Duration

	// sleep is swapped out by tests to observe backoff delays.
	sleep func(time.Duration)
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:        baseURL,
		HTTPClient:     &http.Client{},
		MaxAttempts:    DefaultMaxAttempts,
		AttemptTimeout: DefaultAttemptTimeout,
		sleep:          time.Sleep,
	}
}

type extractRequest struct {
	Base64Image string `json:"base64Image"`
}

type extractResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Extract POSTs the data URL and returns the extracted text. Transient
// failures are retried up to MaxAttempts with backoff 1s × 2^attempt;
// non-retryable rejections surface immediately.
func (c *Client) Extract(ctx context.Context, dataURL string) (string, error) {
	body, err := json.Marshal(extractRequest{Base64Image: dataURL})
	if err != nil {
		return "", fmt.Errorf("marshal extraction request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := retryBaseDelay * time.Duration(1<<(attempt-1))
			c.sleep(backoff)
		}

		text, err := c.attempt(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var reqErr *RequestError
		if errors.As(err, &reqErr) && !reqErr.Retryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("extraction failed after %d attempts: %w", c.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.BaseURL+"/api/v1/extract", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send extraction request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read extraction response: %w", err)
	}

	var parsed extractResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &RequestError{Status: resp.StatusCode, Message: "unreadable server response"}
	}

	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &RequestError{Status: resp.StatusCode, Message: msg}
	}
	return parsed.Text, nil
}
