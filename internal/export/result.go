// Package export holds the extraction result model and its serialized views.
package export

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Result is one extracted text blob. Line, word, and character views are
// derived on demand and never stored.
type Result struct {
	ID          uuid.UUID `json:"id"`
	Text        string    `json:"text"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// NewResult wraps extracted text with an ID and timestamp.
func NewResult(text string) *Result {
	return &Result{
		ID:          uuid.New(),
		Text:        text,
		ExtractedAt: time.Now().UTC(),
	}
}

// Lines returns the non-blank lines of the text.
func (r *Result) Lines() []string {
	var lines []string
	for _, line := range strings.Split(r.Text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// WordCount counts whitespace-delimited tokens.
func (r *Result) WordCount() int {
	return len(strings.Fields(r.Text))
}

// CharacterCount counts characters (runes, not bytes, so multi-byte text is
// not inflated).
func (r *Result) CharacterCount() int {
	return len([]rune(r.Text))
}
