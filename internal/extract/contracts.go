package extract

import (
	"context"
	"time"
)

// TextExtractor is Stage 1: file -> text. The extracted text feeds the
// engine untouched; normalization and reconstruction happen downstream.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF" | "IMAGE" | "TXT"
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "plain-text"
	Duration   time.Duration
	Warnings   []string
}
