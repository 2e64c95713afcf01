package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/peerapong/invoice-reader/internal/common"
)

var (
	cvOnce   sync.Once
	cvClient *computervision.BaseClient
)

// sharedCVClient returns the process-wide Computer Vision client. The
// authorizer and transport are reusable across goroutines, so one client
// serves every worker.
func sharedCVClient(endpoint, apiKey string) *computervision.BaseClient {
	cvOnce.Do(func() {
		c := computervision.New(endpoint)
		c.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
		cvClient = &c
	})
	return cvClient
}

// AzureOCR recognizes printed text in scanned invoices via Azure Computer
// Vision. It is the fallback path for image uploads and for PDFs whose
// text layer fails the quality gate.
type AzureOCR struct {
	client      *computervision.BaseClient
	pollTimeout time.Duration
	logger      *slog.Logger
}

// NewAzureOCR builds the OCR fallback, or nil when no endpoint is
// configured. Callers treat a nil fallback as "text layer only".
func NewAzureOCR(cfg common.OCRConfig, logger *slog.Logger) *AzureOCR {
	if cfg.Endpoint == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AzureOCR{
		client:      sharedCVClient(cfg.Endpoint, cfg.APIKey),
		pollTimeout: timeout,
		logger:      logger,
	}
}

// RecognizeImage runs OCR on one image file.
func (o *AzureOCR) RecognizeImage(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return o.recognize(ctx, enhanceForOCR(img))
}

// RecognizePDFImages runs OCR over the images embedded in a PDF, page by
// page. Scanned invoices carry exactly one full-page image per page, so
// this recovers the text the empty text layer could not provide. Pages are
// joined with form feeds to match the text-layer page convention.
func (o *AzureOCR) RecognizePDFImages(ctx context.Context, pctx *model.Context) (string, error) {
	var pages []string
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		imgs, err := pdfcpu.ExtractPageImages(pctx, pageNr, false)
		if err != nil {
			o.logger.WarnContext(ctx, "ocr.page.extract_failed", "page", pageNr, "error", err)
			continue
		}
		var pageText strings.Builder
		for _, pi := range imgs {
			img, err := imaging.Decode(pi)
			if err != nil {
				o.logger.WarnContext(ctx, "ocr.page.decode_failed", "page", pageNr, "error", err)
				continue
			}
			text, err := o.recognize(ctx, enhanceForOCR(img))
			if err != nil {
				return "", err
			}
			if pageText.Len() > 0 {
				pageText.WriteByte('\n')
			}
			pageText.WriteString(text)
		}
		if pageText.Len() > 0 {
			pages = append(pages, pageText.String())
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdf ocr: no recognizable page images")
	}
	return strings.Join(pages, "\f"), nil
}

func (o *AzureOCR) recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	rctx, cancel := context.WithTimeout(ctx, o.pollTimeout)
	defer cancel()

	// Language auto-detection: the invoices mix Thai and English and the
	// printed-text API has no Thai constant.
	result, err := o.client.RecognizePrintedTextInStream(
		rctx,
		true,
		io.NopCloser(&buf),
		computervision.OcrLanguagesUnk,
	)
	if err != nil {
		return "", fmt.Errorf("azure ocr: %w", err)
	}
	return flattenOCRResult(result), nil
}

// flattenOCRResult rebuilds line-oriented text from the region/line/word
// hierarchy the API returns.
func flattenOCRResult(result computervision.OcrResult) string {
	var sb strings.Builder
	if result.Regions == nil {
		return ""
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var lineText strings.Builder
			for _, word := range *line.Words {
				if word.Text == nil {
					continue
				}
				if lineText.Len() > 0 {
					lineText.WriteByte(' ')
				}
				lineText.WriteString(*word.Text)
			}
			if lineText.Len() > 0 {
				sb.WriteString(lineText.String())
				sb.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// enhanceForOCR raises contrast and sharpness on the scan before
// recognition. Grayscale first: invoice stamps and letterheads in color
// only confuse the printed-text model.
func enhanceForOCR(src image.Image) image.Image {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	return img
}
