package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
)

// FileExtractor routes a file to the extraction method its format needs:
// PDFs go through the text layer with an OCR fallback, images go straight
// to OCR, plain text passes through.
type FileExtractor struct {
	ocr    *AzureOCR
	logger *slog.Logger
}

func NewFileExtractor(ocr *AzureOCR, logger *slog.Logger) *FileExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileExtractor{ocr: ocr, logger: logger}
}

var _ TextExtractor = (*FileExtractor)(nil)

func (x *FileExtractor) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	start := time.Now()
	format := constants.MapExtToFormat(filepath.Ext(path))

	var (
		res TextExtractionResult
		err error
	)
	switch format {
	case "PDF":
		res, err = x.extractPDF(ctx, path)
	case "IMAGE":
		res, err = x.extractImage(ctx, path)
	case "TXT":
		res, err = x.extractPlain(path)
	default:
		return TextExtractionResult{}, fmt.Errorf("extract %q: unsupported extension: %w", path, common.ErrInvalidInput)
	}
	if err != nil {
		return TextExtractionResult{}, err
	}

	res.Duration = time.Since(start)
	x.logger.DebugContext(ctx, "extract.done",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration", res.Duration,
	)
	return res, nil
}

func (x *FileExtractor) extractPDF(ctx context.Context, path string) (TextExtractionResult, error) {
	doc, pctx, err := extractPDFText(path)
	if err != nil {
		return TextExtractionResult{}, err
	}

	res := TextExtractionResult{
		Text:       doc.Text,
		Pages:      doc.Pages,
		SourceType: "PDF",
		Method:     "pdf-text",
	}

	if !doc.Quality.NeedsOCR() {
		return res, nil
	}

	if x.ocr == nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("text layer below quality gate (%.0f chars/page, %.2f printable) and no OCR configured",
				doc.Quality.CharsPerPage, doc.Quality.PrintableRatio))
		return res, nil
	}

	x.logger.InfoContext(ctx, "extract.pdf.ocr_fallback",
		"path", path,
		"chars_per_page", doc.Quality.CharsPerPage,
		"printable_ratio", doc.Quality.PrintableRatio,
	)
	text, err := x.ocr.RecognizePDFImages(ctx, pctx)
	if err != nil {
		// Keep whatever the text layer produced; a thin result still beats
		// an error when the document total is recoverable.
		res.Warnings = append(res.Warnings, fmt.Sprintf("ocr fallback failed: %v", err))
		return res, nil
	}
	res.Text = text
	res.Method = "pdf-ocr"
	return res, nil
}

func (x *FileExtractor) extractImage(ctx context.Context, path string) (TextExtractionResult, error) {
	if x.ocr == nil {
		return TextExtractionResult{}, fmt.Errorf("extract %q: image upload needs OCR configuration: %w", path, common.ErrInvalidInput)
	}
	text, err := x.ocr.RecognizeImage(ctx, path)
	if err != nil {
		return TextExtractionResult{}, err
	}
	return TextExtractionResult{
		Text:       text,
		Pages:      1,
		SourceType: "IMAGE",
		Method:     "image-ocr",
	}, nil
}

func (x *FileExtractor) extractPlain(path string) (TextExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TextExtractionResult{}, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return TextExtractionResult{
		Text:       text,
		Pages:      1 + strings.Count(text, "\f"),
		SourceType: "TXT",
		Method:     "plain-text",
	}, nil
}
