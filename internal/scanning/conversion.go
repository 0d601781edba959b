package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// maxRenderedPages caps how many pages of a scanned PDF are sent for OCR
const maxRenderedPages = 5

// renderPDF rasterizes the first pages of a PDF to PNG
func renderPDF(pdfData []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := min(doc.NumPage(), maxRenderedPages)
	out := make([][]byte, 0, pages)
	for i := 0; i < pages; i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i, err)
		}
		data, err := encodePNG(img)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// decodeImage decodes JPEG, PNG, GIF and HEIC/HEIF images
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	if isHEIC(data, mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEIC checks the MIME type and the ftyp box brand of the data
func isHEIC(data []byte, mimeType string) bool {
	if mimeType == "image/heic" || mimeType == "image/heif" {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// pagesAsPNG converts a PDF or image document into PNG pages ready for a
// vision model
func pagesAsPNG(data []byte, contentType string) ([][]byte, error) {
	mimeType := normalizeContentType(contentType)
	if mimeType == "application/pdf" {
		pages, err := renderPDF(data)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pages, nil
	}

	if mimeType == "image/png" && !isHEIC(data, mimeType) {
		return [][]byte{data}, nil
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("converting image to PNG: %w", err)
	}
	page, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	return [][]byte{page}, nil
}
