package scanning

import (
	"fmt"
	"strings"
)

// OCR backends selectable with OCRConfig.Backend
const (
	BackendNone   = "none"
	BackendGemini = "gemini"
	BackendOllama = "ollama"
)

// OCR is an image Extractor holding client resources
type OCR interface {
	Extractor
	Close() error
}

// OCRConfig selects and configures the image transcription backend
type OCRConfig struct {
	Backend     string
	GeminiKey   string
	GeminiModel string
	OllamaURL   string
	OllamaModel string
}

// NewOCR creates the configured backend. The none backend returns a nil OCR,
// leaving images and scanned PDFs without extractable text.
func NewOCR(cfg OCRConfig) (OCR, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendGemini:
		g, err := NewGemini(cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	case BackendOllama:
		o, err := NewOllama(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown OCR backend %q (valid: none, gemini, ollama)", cfg.Backend)
	}
}

// NewRouterWithOCR creates a Router using ocr for images and scanned PDFs.
// A nil ocr disables both.
func NewRouterWithOCR(ocr OCR) *Router {
	if ocr == nil {
		return NewRouter(nil)
	}
	return NewRouter(ocr)
}
