package main

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombor/invoice-categorizer/internal/categorize"
	"github.com/zombor/invoice-categorizer/internal/invoice"
	"github.com/zombor/invoice-categorizer/internal/logging"
	"github.com/zombor/invoice-categorizer/internal/metrics"
	"github.com/zombor/invoice-categorizer/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("invoice-server")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "invoices.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./invoices", "Storage directory path for uploads")
		samplesPath   = fs.StringLong("samples", "", "YAML training corpus (default: built-in samples)")
		minConfidence = fs.Float64Long("min-confidence", 0, "Answer 'other' below this posterior probability (0 disables)")
		keywords      = fs.BoolLong("keyword-fallback", "Use keyword rules for lines the model answers 'other'")
		ocrBackend    = fs.StringLong("ocr", scanning.BackendNone, "OCR for images and scanned PDFs: 'none', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
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

	slog.Info("Building category model...")
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

	var classifier categorize.Classifier = model
	if *keywords {
		classifier, err = categorize.WithKeywordFallback(model)
		if err != nil {
			slog.Error("Failed to enable keyword fallback", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Initializing database...")
	db, err := invoice.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	slog.Info("Initializing OCR...", "backend", *ocrBackend)
	ocr, err := scanning.NewOCR(scanning.OCRConfig{
		Backend:     *ocrBackend,
		GeminiKey:   apiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize OCR", "error", err)
		os.Exit(1)
	}
	if ocr != nil {
		defer ocr.Close()
	}

	slog.Info("Initializing storage...")
	store, err := invoice.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	recorder, err := metrics.NewRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	processor := invoice.NewProcessor(classifier, scanning.NewRouterWithOCR(ocr), invoice.WithRecorder(recorder))
	service := invoice.NewService(db, processor, store)

	server := invoice.NewServer(service, invoice.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})
	server.HandleMetrics(metrics.Handler(prometheus.DefaultGatherer))

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
