package pdfsearch

import "strings"

// DefaultPDFMimeTypes are the content types browsers and uploaders report for PDF files.
var DefaultPDFMimeTypes = []string{
	"application/pdf",
	"application/x-pdf",
	"application/acrobat",
	"applications/vnd.pdf",
	"application/vnd.pdf",
	"text/pdf",
	"text/x-pdf",
}

// MimeClassifier decides whether a declared content type is a PDF.
type MimeClassifier struct {
	types map[string]struct{}
}

// NewMimeClassifier builds a classifier over DefaultPDFMimeTypes plus extra.
func NewMimeClassifier(extra ...string) *MimeClassifier {
	c := &MimeClassifier{types: make(map[string]struct{}, len(DefaultPDFMimeTypes)+len(extra))}
	for _, t := range DefaultPDFMimeTypes {
		c.types[normalizeMime(t)] = struct{}{}
	}
	for _, t := range extra {
		if n := normalizeMime(t); n != "" {
			c.types[n] = struct{}{}
		}
	}
	return c
}

// IsPDF reports whether mimeType is on the allow-list. Parameters such as charset are ignored.
func (c *MimeClassifier) IsPDF(mimeType string) bool {
	n := normalizeMime(mimeType)
	if n == "" {
		return false
	}
	_, ok := c.types[n]
	return ok
}

func normalizeMime(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}
