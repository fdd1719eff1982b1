// Package extraction forwards validated images to a hosted vision model and
// classifies the outcome.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/snaptext/snaptext/internal/export"
	"github.com/snaptext/snaptext/internal/llm"
	"github.com/snaptext/snaptext/pkg/dataurl"
)

// NoTextSentinel is the token the model is instructed to return when the
// image contains no readable text. It distinguishes "no text" from a
// transport-level empty response.
const NoTextSentinel = "NO_TEXT_FOUND"

// instructionPrompt is the fixed prompt sent alongside every image.
const instructionPrompt = "Extract all visible text from this image verbatim. " +
	"If any text is not in English, translate it to English while preserving the original formatting and line breaks. " +
	"Do not describe the image or add commentary. " +
	"If the image contains no readable text, respond with exactly " + NoTextSentinel + "."

// Service validates image payloads and relays them to the model gateway.
type Service struct {
	gateway  llm.Gateway
	model    string // must be vision-capable
	minBytes int
	logger   *slog.Logger
}

func NewService(gw llm.Gateway, model string, minBytes int, logger *slog.Logger) *Service {
	if model == "" {
		model = "gpt-4o"
	}
	if minBytes <= 0 {
		minBytes = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gw, model: model, minBytes: minBytes, logger: logger}
}

// Extract validates the data URL, forwards the image with the instruction
// prompt, and returns the extracted text. Failures carry a classified
// *Error; no model call is attempted for invalid or undersized payloads.
func (s *Service) Extract(ctx context.Context, dataURL string) (*export.Result, error) {
	img, err := dataurl.Parse(dataURL)
	if err != nil {
		return nil, newError(KindInvalidInput, "invalid image data", err)
	}

	if size := img.DecodedSize(); size < s.minBytes {
		return nil, newError(KindInvalidInput,
			fmt.Sprintf("image payload too small (%d bytes, minimum %d)", size, s.minBytes), nil)
	}

	resp, err := s.gateway.Chat(ctx, llm.ChatRequest{
		Model: s.model,
		Messages: []llm.Message{
			{
				Role:    "user",
				Content: instructionPrompt,
				Images: []llm.ImageAttachment{
					{MimeType: img.MimeType, Data: img.Payload},
				},
			},
		},
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" || text == NoTextSentinel {
		return nil, newError(KindNoText, "no text found in the image", nil)
	}

	result := export.NewResult(text)
	s.logger.Info("extraction.ok",
		"result_id", result.ID.String(),
		"mime_type", img.MimeType,
		"image_bytes", img.DecodedSize(),
		"chars", result.CharacterCount(),
		"model", resp.Model,
		"latency_ms", resp.LatencyMs,
		"cost_usd", resp.CostUSD,
	)
	return result, nil
}
