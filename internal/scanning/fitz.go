package scanning

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Fitz extracts the text layer of PDF documents with MuPDF
type Fitz struct {
	// Fallback transcribes scanned PDFs that have no text layer. Optional.
	Fallback Extractor
}

// ExtractText implements Extractor. Pages are joined with newlines.
func (f Fitz) ExtractText(data []byte, contentType string) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", page, err)
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
	}

	text := b.String()
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if f.Fallback == nil {
		return "", ErrExtractionUnavailable
	}
	slog.Debug("PDF has no text layer, transcribing", "pages", doc.NumPage())
	text, err = f.Fallback.ExtractText(data, "application/pdf")
	if err != nil && !errors.Is(err, ErrExtractionUnavailable) {
		return "", fmt.Errorf("transcribing scanned PDF: %w", err)
	}
	return text, err
}
