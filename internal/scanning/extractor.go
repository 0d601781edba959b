package scanning

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrExtractionUnavailable is returned when a document has no extractable text
var ErrExtractionUnavailable = errors.New("no extractable text")

// Extractor defines the interface for turning a document into plain text
type Extractor interface {
	// ExtractText returns the text content of a PDF, image or text document
	ExtractText(data []byte, contentType string) (string, error)
}

// ContentType guesses a document's MIME type from its filename
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt", ".text":
		return "text/plain"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// normalizeContentType lowercases a MIME type and drops any parameters
func normalizeContentType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// PlainText passes text documents through unchanged
type PlainText struct{}

// ExtractText implements Extractor
func (PlainText) ExtractText(data []byte, contentType string) (string, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", ErrExtractionUnavailable
	}
	return string(data), nil
}

// Router dispatches documents to an Extractor by content type
type Router struct {
	PDF   Extractor
	Text  Extractor
	Image Extractor // optional; images are unavailable without it
}

// NewRouter creates a Router with the built-in PDF and text extractors and an
// optional image extractor
func NewRouter(image Extractor) *Router {
	return &Router{
		PDF:   Fitz{Fallback: image},
		Text:  PlainText{},
		Image: image,
	}
}

// ExtractText implements Extractor
func (r *Router) ExtractText(data []byte, contentType string) (string, error) {
	mimeType := normalizeContentType(contentType)
	switch {
	case mimeType == "application/pdf":
		return r.PDF.ExtractText(data, mimeType)
	case strings.HasPrefix(mimeType, "text/"):
		return r.Text.ExtractText(data, mimeType)
	case strings.HasPrefix(mimeType, "image/"):
		if r.Image == nil {
			return "", fmt.Errorf("%s without OCR: %w", mimeType, ErrExtractionUnavailable)
		}
		return r.Image.ExtractText(data, mimeType)
	default:
		return "", fmt.Errorf("unsupported content type %q: %w", contentType, ErrExtractionUnavailable)
	}
}
