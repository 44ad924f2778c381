// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Declared MIME types accepted for uploaded resumes.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupportedFormat is returned when the declared content type is
// neither PDF nor DOCX.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor maps (file on disk, declared MIME type) to extracted plain text.
type Extractor interface {
	ExtractText(path, declaredType string) (string, error)
}

// DocExtractor extracts text from PDF and DOCX files using Go libraries.
type DocExtractor struct{}

// NewDocExtractor returns the library-backed extractor.
func NewDocExtractor() DocExtractor {
	return DocExtractor{}
}

// ExtractText dispatches on the declared MIME type. An empty declared type
// falls back to the file extension. Extracted text may be empty; emptiness
// is not an error here.
func (DocExtractor) ExtractText(path, declaredType string) (string, error) {
	switch NormalizeType(declaredType, path) {
	case MIMEPDF:
		return extractPDF(path)
	case MIMEDOCX:
		return extractDOCX(path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, declaredType)
	}
}

// NormalizeType reduces a declared content type (possibly carrying
// parameters like charset) to a bare media type, falling back to the file
// extension when the declaration is absent or generic.
func NormalizeType(declaredType, path string) string {
	mediaType := strings.ToLower(strings.TrimSpace(declaredType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf":
			return MIMEPDF
		case ".docx":
			return MIMEDOCX
		}
	}
	return mediaType
}

func extractPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing the whole document.
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func extractDOCX(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()
	return doc.Editable().GetContent(), nil
}
