package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/invoice-categorizer/internal/categorize"
	"github.com/zombor/invoice-categorizer/internal/lineitem"
	"github.com/zombor/invoice-categorizer/internal/scanning"
)

// Document processing outcomes reported to the Recorder
const (
	OutcomeParsed = "parsed"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Source lists documents and returns their raw contents
type Source interface {
	List() ([]string, error)
	Get(name string) ([]byte, error)
}

// Recorder receives processing events, e.g. for metrics
type Recorder interface {
	DocumentProcessed(outcome string)
	LineClassified(category categorize.Category)
}

type nopRecorder struct{}

func (nopRecorder) DocumentProcessed(string)          {}
func (nopRecorder) LineClassified(categorize.Category) {}

// Processor turns documents into classified line records
type Processor struct {
	classifier categorize.Classifier
	extractor  scanning.Extractor
	recorder   Recorder
	workers    int
	extensions map[string]bool
	timeSource TimeSource
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithWorkers sets how many documents Run processes at once
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithExtensions restricts Run to files with the given extensions
func WithExtensions(exts ...string) ProcessorOption {
	return func(p *Processor) {
		p.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			p.extensions[ext] = true
		}
	}
}

// WithRecorder sets the processing event recorder
func WithRecorder(r Recorder) ProcessorOption {
	return func(p *Processor) {
		p.recorder = r
	}
}

// WithTimeSource overrides the clock used for ProcessedAt
func WithTimeSource(t TimeSource) ProcessorOption {
	return func(p *Processor) {
		p.timeSource = t
	}
}

// NewProcessor creates a Processor. By default it handles PDF and text files
// one at a time.
func NewProcessor(classifier categorize.Classifier, extractor scanning.Extractor, opts ...ProcessorOption) *Processor {
	p := &Processor{
		classifier: classifier,
		extractor:  extractor,
		recorder:   nopRecorder{},
		workers:    1,
		extensions: map[string]bool{".pdf": true, ".txt": true},
		timeSource: &defaultTimeSource{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessDocument classifies every non-blank line of text. Lines ending in
// an amount carry it on their record.
func (p *Processor) ProcessDocument(name, text string) []LineRecord {
	lines := lineitem.Lines(text)
	records := make([]LineRecord, 0, len(lines))
	for i, line := range lines {
		category := p.classifier.Categorize(line)
		p.recorder.LineClassified(category)

		record := LineRecord{
			Document: name,
			Line:     i,
			Text:     line,
			Category: category,
		}
		if amount, ok := lineitem.AmountOf(line); ok {
			record.Amount = &amount
		}
		records = append(records, record)
	}
	return records
}

// Process extracts the text of a document and classifies it. A document
// without extractable text yields an empty Document and no error. Other
// extraction failures are returned alongside a Document describing them.
func (p *Processor) Process(name string, data []byte, contentType string) (Document, error) {
	doc := Document{
		Name:        name,
		ContentType: contentType,
		Records:     []LineRecord{},
		Amounts:     []decimal.Decimal{},
		ProcessedAt: p.timeSource.Now(),
	}

	text, err := p.extractor.ExtractText(data, contentType)
	if err != nil {
		doc.Error = err.Error()
		if errors.Is(err, scanning.ErrExtractionUnavailable) {
			slog.Warn("No extractable text", "document", name, "content_type", contentType, "error", err)
			p.recorder.DocumentProcessed(OutcomeEmpty)
			return doc, nil
		}
		p.recorder.DocumentProcessed(OutcomeFailed)
		return doc, fmt.Errorf("extracting text: %w", err)
	}

	doc.Records = p.ProcessDocument(name, text)
	doc.Amounts = lineitem.Amounts(text)

	outcome := OutcomeParsed
	if len(doc.Records) == 0 {
		outcome = OutcomeEmpty
	}
	p.recorder.DocumentProcessed(outcome)

	slog.Debug("Processed document", "document", name, "lines", len(doc.Records), "amounts", len(doc.Amounts))
	return doc, nil
}

// accepts reports whether Run should process the named file
func (p *Processor) accepts(name string) bool {
	if len(p.extensions) == 0 {
		return true
	}
	return p.extensions[strings.ToLower(filepath.Ext(name))]
}

// Run processes every accepted document of src. Documents that cannot be read
// or extracted are logged and kept with no records, so one bad document never
// stops the others. The result follows the order of src.List.
func (p *Processor) Run(ctx context.Context, src Source) ([]Document, error) {
	names, err := src.List()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	accepted := make([]string, 0, len(names))
	for _, name := range names {
		if p.accepts(name) {
			accepted = append(accepted, name)
		} else {
			slog.Debug("Skipping document", "document", name)
		}
	}

	docs := make([]Document, len(accepted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, name := range accepted {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i] = p.processSource(src, name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// processSource reads and processes one document of src, never failing
func (p *Processor) processSource(src Source, name string) Document {
	contentType := scanning.ContentType(name)

	data, err := src.Get(name)
	if err != nil {
		slog.Error("Failed to read document", "document", name, "error", err)
		p.recorder.DocumentProcessed(OutcomeFailed)
		return Document{
			Name:        name,
			ContentType: contentType,
			Records:     []LineRecord{},
			Amounts:     []decimal.Decimal{},
			Error:       err.Error(),
			ProcessedAt: p.timeSource.Now(),
		}
	}

	doc, err := p.Process(name, data, contentType)
	if err != nil {
		slog.Error("Failed to process document", "document", name, "error", err)
	}
	return doc
}
