package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// Format selects how a result is serialized for display, clipboard, or
// download.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	// FormatExcel emits the CSV bytes under a spreadsheet MIME type and
	// .xlsx extension. It is not a real spreadsheet container.
	FormatExcel Format = "excel"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatCSV, FormatExcel}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatCSV, FormatExcel:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the MIME type declared for downloads of this format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain"
	}
}

// Extension returns the download file extension, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "xlsx"
	default:
		return "txt"
	}
}

// jsonView is the shape of the JSON export.
type jsonView struct {
	ExtractedText  string   `json:"extractedText"`
	Lines          []string `json:"lines"`
	WordCount      int      `json:"wordCount"`
	CharacterCount int      `json:"characterCount"`
	ExtractedAt    string   `json:"extractedAt"`
}

// Render serializes the result in the given format. Rendering is a pure
// function of the result text and format, so repeated calls are idempotent.
func Render(r *Result, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(r.Text), nil

	case FormatJSON:
		view := jsonView{
			ExtractedText:  r.Text,
			Lines:          r.Lines(),
			WordCount:      r.WordCount(),
			CharacterCount: r.CharacterCount(),
			ExtractedAt:    r.ExtractedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if view.Lines == nil {
			view.Lines = []string{}
		}
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json export: %w", err)
		}
		return data, nil

	case FormatCSV, FormatExcel:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write([]string{"Line Number", "Content"}); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		for i, line := range r.Lines() {
			if err := w.Write([]string{strconv.Itoa(i + 1), line}); err != nil {
				return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("flush csv export: %w", err)
		}
		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("unknown export format %q", f)
}

// Filename names a download artifact for the result in the given format.
func Filename(r *Result, f Format) string {
	return fmt.Sprintf("extracted-text-%d.%s", r.ExtractedAt.Unix(), f.Extension())
}
