package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPDFToText = "pdftotext"
	DefaultTesseract = "tesseract"
	DefaultPDFToPPM  = "pdftoppm"

	// ocrDPI matches the resolution tesseract is tuned for.
	ocrDPI = "300"
)

var (
	ErrEmptyDocument   = errors.New("empty document")
	ErrUnsupportedKind = errors.New("unsupported document type")
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Extractor pulls plain text out of PDFs and images using the poppler and
// tesseract command line tools.
type Extractor struct {
	pdfToText string
	tesseract string
	// pdfToPPM is optional, without it scanned PDFs yield no text.
	pdfToPPM string

	run    commandRunner
	logger *slog.Logger
}

type ExtractorOptions struct {
	PDFToTextPath string
	TesseractPath string
	PDFToPPMPath  string
	Logger        *slog.Logger
}

// NewExtractor resolves the configured tools. Missing pdftotext or tesseract
// is an error, a missing pdftoppm only disables OCR of scanned PDFs.
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	pdfToText, err := lookPath(opts.PDFToTextPath, DefaultPDFToText)
	if err != nil {
		return nil, err
	}
	tesseract, err := lookPath(opts.TesseractPath, DefaultTesseract)
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		pdfToText: pdfToText,
		tesseract: tesseract,
		run:       runCommand,
		logger:    logger,
	}
	if opts.Logger != nil {
		e.logger = opts.Logger
	}
	if pdfToPPM, err := lookPath(opts.PDFToPPMPath, DefaultPDFToPPM); err == nil {
		e.pdfToPPM = pdfToPPM
	} else {
		e.logger.Warn("scanned pdf ocr disabled", "error", err)
	}

	return e, nil
}

func lookPath(configured, fallback string) (string, error) {
	name := configured
	if name == "" {
		name = fallback
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", name, err)
	}
	return path, nil
}

// Extract returns the text of a document of the given kind.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind Kind) (string, error) {
	switch kind {
	case KindPDF:
		return e.ExtractPDF(ctx, data)
	case KindImage:
		return e.ExtractImage(ctx, data)
	default:
		return "", ErrUnsupportedKind
	}
}

// ExtractPDF reads the text layer of a PDF, falling back to OCR of the
// rendered pages when there is none.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "extract pdf text")
	defer span.End()
	span.SetAttributes(attribute.Int("request.bytes", len(data)))

	if len(data) == 0 {
		return "", fail(span, ErrEmptyDocument)
	}

	dir, err := os.MkdirTemp("", "vocalis-pdf-*")
	if err != nil {
		return "", fail(span, fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fail(span, fmt.Errorf("failed to write pdf: %w", err))
	}

	out, err := e.run(ctx, e.pdfToText, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fail(span, fmt.Errorf("pdftotext failed: %w", err))
	}
	text := normalize(string(out))
	if text != "" || e.pdfToPPM == "" {
		span.SetAttributes(attribute.Int("response.text_length", len(text)))
		return text, nil
	}

	span.AddEvent("no text layer, running ocr")
	text, err = e.ocrPDF(ctx, dir, path)
	if err != nil {
		return "", fail(span, err)
	}
	span.SetAttributes(attribute.Int("response.text_length", len(text)))
	return text, nil
}

func (e *Extractor) ocrPDF(ctx context.Context, dir, path string) (string, error) {
	prefix := filepath.Join(dir, "page")
	if _, err := e.run(ctx, e.pdfToPPM, "-r", ocrDPI, "-gray", "-png", path, prefix); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w", err)
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", fmt.Errorf("failed to list rendered pages: %w", err)
	}
	// pdftoppm zero pads page numbers so lexical order is page order
	sort.Strings(pages)

	var text strings.Builder
	for _, page := range pages {
		out, err := e.run(ctx, e.tesseract, page, "stdout")
		if err != nil {
			return "", fmt.Errorf("tesseract failed on %s: %w", filepath.Base(page), err)
		}
		text.Write(out)
		text.WriteString("\n")
	}
	return normalize(text.String()), nil
}

// ExtractImage runs OCR on a single image.
func (e *Extractor) ExtractImage(ctx context.Context, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "extract image text")
	defer span.End()
	span.SetAttributes(attribute.Int("request.bytes", len(data)))

	if len(data) == 0 {
		return "", fail(span, ErrEmptyDocument)
	}

	file, err := os.CreateTemp("", "vocalis-ocr-*")
	if err != nil {
		return "", fail(span, fmt.Errorf("failed to create temp file: %w", err))
	}
	defer os.Remove(file.Name())
	if _, err := file.Write(data); err != nil {
		file.Close()
		return "", fail(span, fmt.Errorf("failed to write image: %w", err))
	}
	if err := file.Close(); err != nil {
		return "", fail(span, fmt.Errorf("failed to write image: %w", err))
	}

	out, err := e.run(ctx, e.tesseract, file.Name(), "stdout")
	if err != nil {
		return "", fail(span, fmt.Errorf("tesseract failed: %w", err))
	}
	text := normalize(string(out))
	span.SetAttributes(attribute.Int("response.text_length", len(text)))
	return text, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// normalize drops form feeds and trailing whitespace the tools leave behind.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\f", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Excerpt returns at most limit runes of text and whether it was cut.
func Excerpt(text string, limit int) (string, bool) {
	if limit <= 0 {
		return "", text != ""
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i], true
		}
		count++
	}
	return text, false
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
