package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/invoice-categorizer/internal/categorize"
	"github.com/zombor/invoice-categorizer/internal/invoice"
	"github.com/zombor/invoice-categorizer/internal/logging"
	"github.com/zombor/invoice-categorizer/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// previewSize is the number of records echoed before the report
const previewSize = 5

// output is the JSON document written to stdout
type output struct {
	Preview []invoice.LineRecord `json:"preview"`
	Report  invoice.Summary      `json:"report"`
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("invoice-categorizer")
	var (
		samplesPath   = fs.StringLong("samples", "", "YAML training corpus (default: built-in samples)")
		minConfidence = fs.Float64Long("min-confidence", 0, "Answer 'other' below this posterior probability (0 disables)")
		keywords      = fs.BoolLong("keyword-fallback", "Use keyword rules for lines the model answers 'other'")
		workers       = fs.IntLong("workers", 1, "Number of documents processed in parallel")
		extensions    = fs.StringLong("extensions", ".pdf,.txt", "Comma separated file extensions to process")
		dbPath        = fs.StringLong("db", "", "Record the run in this database file (optional)")
		ocrBackend    = fs.StringLong("ocr", scanning.BackendNone, "OCR for images and scanned PDFs: 'none', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name")
		logLevel      = fs.StringLong("log-level", "info", "Log level: debug, info, warn, error")
		logFormat     = fs.StringLong("log-format", "text", "Log format: text or json")
		_             = fs.StringLong("config", "", "Config file with one 'flag value' per line (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_CATEGORIZER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Init(*logFormat, logging.ParseLevel(*logLevel))

	args := fs.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs, "invoice-categorizer [FLAGS] <folder>"))
		fmt.Fprintf(os.Stderr, "error: expected exactly one folder argument\n")
		os.Exit(1)
	}
	folder := args[0]

	model, err := categorize.BuildFromFile(*samplesPath, categorize.WithMinConfidence(*minConfidence))
	if err != nil {
		var cfgErr *categorize.ConfigurationError
		if errors.As(err, &cfgErr) {
			slog.Error("Invalid category model", "reason", cfgErr.Reason)
		} else {
			slog.Error("Failed to build category model", "error", err)
		}
		os.Exit(1)
	}
	slog.Debug("Built category model", "terms", model.Vectorizer().Dim(), "classes", model.Classes())

	var classifier categorize.Classifier = model
	if *keywords {
		classifier, err = categorize.WithKeywordFallback(model)
		if err != nil {
			slog.Error("Failed to enable keyword fallback", "error", err)
			os.Exit(1)
		}
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	ocr, err := scanning.NewOCR(scanning.OCRConfig{
		Backend:     *ocrBackend,
		GeminiKey:   apiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize OCR", "backend", *ocrBackend, "error", err)
		os.Exit(1)
	}
	if ocr != nil {
		defer ocr.Close()
	}

	src, err := invoice.OpenFolder(folder)
	if err != nil {
		slog.Error("Failed to open folder", "folder", folder, "error", err)
		os.Exit(1)
	}

	processor := invoice.NewProcessor(classifier, scanning.NewRouterWithOCR(ocr),
		invoice.WithWorkers(*workers),
		invoice.WithExtensions(strings.Split(*extensions, ",")...),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := processor.Run(ctx, src)
	if err != nil {
		slog.Error("Failed to process folder", "folder", folder, "error", err)
		os.Exit(1)
	}

	var agg invoice.Aggregator
	for _, d := range docs {
		agg.Add(d.Records...)
	}
	records := agg.Records()
	if len(records) == 0 {
		fmt.Println("No data parsed.")
		return
	}

	report := agg.Report()
	report.Documents = len(docs)

	if *dbPath != "" {
		if err := recordRun(*dbPath, folder, processor, docs); err != nil {
			slog.Error("Failed to record run", "db", *dbPath, "error", err)
			os.Exit(1)
		}
	}

	out := output{Preview: records[:min(previewSize, len(records))], Report: report}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("Failed to write report", "error", err)
		os.Exit(1)
	}
}

// recordRun saves the run report to the database at dbPath
func recordRun(dbPath, folder string, processor *invoice.Processor, docs []invoice.Document) error {
	db, err := invoice.NewBoltDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := invoice.NewService(db, processor, nil).RecordRun(folder, docs)
	if err != nil {
		return err
	}
	slog.Info("Recorded run", "id", run.ID, "documents", run.Report.Documents, "lines", run.Report.Lines)
	return nil
}
