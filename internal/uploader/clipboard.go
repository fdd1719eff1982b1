package uploader

// Clipboard abstracts the platform clipboard. The browser clipboard-write
// capability and any desktop equivalent are external collaborators.
type Clipboard interface {
	Write(text string) error
}
