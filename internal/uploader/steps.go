package uploader

import "time"

// Step is one stage of the processing animation shown while a request is in
// flight. The stages are fixed and cosmetic: they carry no status from the
// network call.
type Step struct {
	Label       string
	Description string
}

// ProcessingSteps returns the four fixed stages, in order.
func ProcessingSteps() []Step {
	return []Step{
		{Label: "Analyzing image", Description: "Scanning the image for text regions"},
		{Label: "Enhancing quality", Description: "Sharpening and normalizing contrast"},
		{Label: "Extracting text", Description: "Reading characters with the vision model"},
		{Label: "Finalizing", Description: "Formatting the extracted text"},
	}
}

// DefaultStepDelay is the pause between stages, roughly one second each.
const DefaultStepDelay = time.Second
