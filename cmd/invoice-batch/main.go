package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
	"github.com/peerapong/invoice-reader/internal/engine"
	"github.com/peerapong/invoice-reader/internal/export"
	"github.com/peerapong/invoice-reader/internal/extract"
	"github.com/peerapong/invoice-reader/internal/journal"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type fileResult struct {
	path    string
	items   []engine.LineItem
	skipped bool
	err     error
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory to process invoices from (required)")
		out      = flag.String("out", "", "output file path (defaults to <parent>/line_items.<format>)")
		format   = flag.String("format", "xlsx", "output format: xlsx or csv")
		journalP = flag.String("journal", "", "journal database path (defaults to <dir>/.invoice-batch.db)")
		workers  = flag.Int("workers", 4, "number of concurrent workers")
		rerun    = flag.Bool("rerun", false, "reprocess files already recorded in the journal")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *format != "xlsx" && *format != "csv" {
		printError("Error: --format must be xlsx or csv\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "line_items."+*format)
	}
	if *journalP == "" {
		*journalP = filepath.Join(*dir, ".invoice-batch.db")
	}
	if *workers < 1 {
		*workers = 1
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()

	jrnl, err := journal.Open(*journalP, logger)
	if err != nil {
		logger.Error("failed to open journal", "path", *journalP, "error", err)
		os.Exit(1)
	}
	defer jrnl.Close()

	ocr := extract.NewAzureOCR(cfg.OCR, logger)
	extractor := extract.NewFileExtractor(ocr, logger)

	minAmount, err := decimal.NewFromString(cfg.Engine.MinAmount)
	if err != nil {
		minAmount = decimal.Decimal{}
	}
	eng := engine.New(logger, engine.Options{
		FragmentThreshold: cfg.Engine.FragmentThreshold,
		MinAmount:         minAmount,
	})

	files, err := collectFiles(*dir)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("starting batch", "dir", *dir, "files", len(files), "workers", *workers)

	results := make([]fileResult, len(files))
	jobsCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobsCh {
				results[i] = processOne(ctx, files[i], eng, extractor, jrnl, *rerun, logger)
			}
		}()
	}
	for i := range files {
		jobsCh <- i
	}
	close(jobsCh)
	wg.Wait()

	var (
		allItems  []engine.LineItem
		processed int
		skipped   int
		failures  int
	)
	for _, res := range results {
		switch {
		case res.err != nil:
			failures++
		case res.skipped:
			skipped++
		default:
			processed++
			allItems = append(allItems, res.items...)
		}
	}

	exporter := export.NewService(logger)
	var body []byte
	if *format == "csv" {
		body, err = exporter.WriteCSV(allItems)
	} else {
		body, err = exporter.WriteXLSX(allItems)
	}
	if err != nil {
		logger.Error("failed to build export", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, body, 0644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"files", len(files),
		"processed", processed,
		"skipped", skipped,
		"failures", failures,
		"line_items", len(allItems),
		"output_file", *out,
	)

	fmt.Printf("Batch complete!\n")
	fmt.Printf("- Files scanned: %d\n", len(files))
	fmt.Printf("- Processed: %d\n", processed)
	fmt.Printf("- Skipped (already in journal): %d\n", skipped)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Line items: %d\n", len(allItems))
	fmt.Printf("- Output: %s\n", *out)
	if failures > 0 {
		os.Exit(1)
	}
}

// processOne runs the pipeline on one file and records the outcome in the
// journal. A skipped file returns an empty result with no error.
func processOne(ctx context.Context, path string, eng *engine.Engine, extractor *extract.FileExtractor, jrnl *journal.Journal, rerun bool, logger *slog.Logger) fileResult {
	name := filepath.Base(path)

	sum, err := checksumFile(path)
	if err != nil {
		logger.Error("failed to checksum file", "path", path, "error", err)
		return fileResult{path: path, err: err}
	}

	if !rerun {
		seen, err := jrnl.Seen(ctx, name, sum)
		if err != nil {
			logger.Error("journal lookup failed", "path", path, "error", err)
			return fileResult{path: path, err: err}
		}
		if seen {
			logger.Info("skipping already processed file", "file", name)
			return fileResult{path: path, skipped: true}
		}
	}

	text, err := extractor.Extract(ctx, path)
	if err == nil {
		var items []engine.LineItem
		items, _, err = eng.Extract(ctx, text.Text, name, nil)
		if err == nil {
			entry := journal.Entry{
				Filename:  name,
				Checksum:  sum,
				Status:    "ok",
				ItemCount: len(items),
			}
			if len(items) > 0 {
				entry.Platform = string(items[0].Platform)
				entry.InvoiceType = string(items[0].InvoiceType)
				entry.ComputedTotal = sumAmounts(items)
			}
			if jerr := jrnl.Record(ctx, entry); jerr != nil {
				logger.Error("failed to record journal entry", "file", name, "error", jerr)
			}
			return fileResult{path: path, items: items}
		}
	}

	logger.Error("failed to process file", "file", name, "error", err)
	if jerr := jrnl.Record(ctx, journal.Entry{
		Filename: name, Checksum: sum, Status: "failed", Error: err.Error(),
	}); jerr != nil {
		logger.Error("failed to record journal entry", "file", name, "error", jerr)
	}
	return fileResult{path: path, err: err}
}

func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; ok {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func checksumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func sumAmounts(items []engine.LineItem) string {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Amount)
	}
	return total.StringFixed(2)
}
