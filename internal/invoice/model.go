package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/invoice-categorizer/internal/categorize"
)

// LineRecord is one classified line of document text
type LineRecord struct {
	Document string              `json:"document"`
	Line     int                 `json:"line"` // index among the document's non-blank lines
	Text     string              `json:"text"`
	Category categorize.Category `json:"category"`
	Amount   *decimal.Decimal    `json:"amount,omitempty"` // trailing amount of the line, if any
}

// Document is the result of processing one invoice
type Document struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Filename    string            `json:"filename,omitempty"` // stored file, for uploaded documents
	ContentType string            `json:"content_type,omitempty"`
	Records     []LineRecord      `json:"records"`
	Amounts     []decimal.Decimal `json:"amounts"` // every extracted amount, in line order
	Error       string            `json:"error,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// CategoryCount is the number of lines assigned to a category
type CategoryCount struct {
	Category categorize.Category `json:"category"`
	Count    int                 `json:"count"`
}

// CategoryTotal is the sum of the line amounts assigned to a category
type CategoryTotal struct {
	Category categorize.Category `json:"category"`
	Amount   decimal.Decimal     `json:"amount"`
}

// Summary summarizes a set of processed documents
type Summary struct {
	Counts    CategoryCounts  `json:"counts"`
	Totals    []CategoryTotal `json:"totals"`
	Documents int             `json:"documents"`
	Lines     int             `json:"lines"`
}

// Run is a persisted batch categorization of a document folder
type Run struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Report    Summary   `json:"report"`
	CreatedAt time.Time `json:"created_at"`
}
