// Package export renders parsed line items as XLSX workbooks and CSV
// files for the finance side of the house.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/peerapong/invoice-reader/internal/engine"
)

var columns = []string{
	"Platform",
	"Invoice ID",
	"Invoice Type",
	"Line",
	"Amount",
	"Agency",
	"Project ID",
	"Project Name",
	"Objective",
	"Period",
	"Campaign ID",
	"Description",
}

// Service produces export artifacts from line items.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteXLSX returns an XLSX workbook with one row per line item.
func (s *Service) WriteXLSX(items []engine.LineItem) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Line Items"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIndex, _ := f.GetSheetIndex("Sheet1"); defIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, li := range items {
		row := rowIdx + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		rec := li.Record()
		write(1, rec.Platform)
		write(2, rec.InvoiceID)
		write(3, rec.InvoiceType)
		write(4, rec.LineNumber)
		write(5, rec.Amount)
		write(6, rec.Agency)
		write(7, rec.ProjectID)
		write(8, rec.ProjectName)
		write(9, rec.Objective)
		write(10, rec.Period)
		write(11, rec.CampaignID)
		write(12, rec.Description)
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 18)
	_ = f.SetColWidth(sheet, "E", "E", 14)
	_ = f.SetColWidth(sheet, "H", "H", 40)
	_ = f.SetColWidth(sheet, "L", "L", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteCSV returns the same rows as RFC 4180 CSV. Amounts keep two
// decimals as text so spreadsheet imports do not mangle them.
func (s *Service) WriteCSV(items []engine.LineItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, li := range items {
		rec := li.Record()
		row := []string{
			rec.Platform,
			rec.InvoiceID,
			rec.InvoiceType,
			fmt.Sprintf("%d", rec.LineNumber),
			rec.Amount,
			rec.Agency,
			rec.ProjectID,
			rec.ProjectName,
			rec.Objective,
			rec.Period,
			rec.CampaignID,
			rec.Description,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	s.logger.Info("export.csv.ok", "rows", len(items))
	return buf.Bytes(), nil
}
