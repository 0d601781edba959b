package invoice

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for documents and runs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles uploaded documents and batch run history
type Service struct {
	db          DB
	processor   *Processor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, processor *Processor, storage Storage) *Service {
	return &Service{
		db:          db,
		processor:   processor,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, processor *Processor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		processor:   processor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters from a filename and truncates it
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "invoice"
	}

	return base + ext
}

// ProcessUpload stores an uploaded document, classifies its lines and saves
// the result. The stored file is removed again when processing fails.
func (s *Service) ProcessUpload(filename string, data []byte, contentType string) (*Document, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	doc, err := s.processor.Process(filename, data, contentType)
	if err != nil {
		slog.Error("Failed to process document",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeUpload(savedPath)
		return nil, fmt.Errorf("processing document: %w", err)
	}

	doc.ID = id
	doc.Filename = savedPath
	doc.ProcessedAt = now

	if err := s.db.SaveDocument(&doc); err != nil {
		s.removeUpload(savedPath)
		return nil, fmt.Errorf("saving document to database: %w", err)
	}

	slog.Info("Processed upload", "id", id, "filename", filename, "lines", len(doc.Records))
	return &doc, nil
}

// removeUpload deletes a stored file whose document was never saved
func (s *Service) removeUpload(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to remove stored file", "filename", path, "error", err)
	}
}

// GetDocument retrieves a document by ID
func (s *Service) GetDocument(id string) (*Document, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents
func (s *Service) ListDocuments() ([]*Document, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and its file
func (s *Service) DeleteDocument(id string) error {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return fmt.Errorf("getting document for deletion: %w", err)
	}

	if doc.Filename != "" {
		if err := s.storage.Delete(doc.Filename); err != nil {
			// the record is still removed
			slog.Warn("Failed to delete file", "filename", doc.Filename, "error", err)
		}
	}

	if err := s.db.DeleteDocument(id); err != nil {
		return fmt.Errorf("deleting document from database: %w", err)
	}
	return nil
}

// GetDocumentFile retrieves the stored file of a document
func (s *Service) GetDocumentFile(id string) ([]byte, string, error) {
	doc, err := s.db.GetDocument(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting document: %w", err)
	}

	data, err := s.storage.Get(doc.Filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("document file %s: %w", doc.Filename, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting document file: %w", err)
	}

	return data, doc.ContentType, nil
}

// Report aggregates every stored document
func (s *Service) Report() (Summary, error) {
	docs, err := s.db.ListDocuments()
	if err != nil {
		return Summary{}, fmt.Errorf("listing documents: %w", err)
	}

	values := make([]Document, len(docs))
	for i, d := range docs {
		values[i] = *d
	}
	return NewSummary(values), nil
}

// RecordRun saves the report of a batch run over source
func (s *Service) RecordRun(source string, docs []Document) (*Run, error) {
	run := &Run{
		ID:        s.idGenerator.Generate(),
		Source:    source,
		Report:    NewSummary(docs),
		CreatedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveRun(run); err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}
	return run, nil
}

// ListRuns returns all recorded runs
func (s *Service) ListRuns() ([]*Run, error) {
	runs, err := s.db.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}
