// Package main provides the entry point for the snapctl CLI.
//
// snapctl sends an image to a snaptext extraction server and prints or
// saves the extracted text in one of the export formats.
//
// Usage:
//
//	snapctl extract <image-file>
//	snapctl extract <image-file> --format csv --output ./exports
//
// See --help for all available options.
package main

// main is the entry point for snapctl.
func main() {
	Execute()
}
