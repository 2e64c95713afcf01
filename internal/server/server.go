// Package server exposes the extraction pipeline over HTTP: invoice
// uploads, document queries and export downloads.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/peerapong/invoice-reader/constants"
	"github.com/peerapong/invoice-reader/internal/common"
	"github.com/peerapong/invoice-reader/internal/engine"
	"github.com/peerapong/invoice-reader/internal/export"
	"github.com/peerapong/invoice-reader/internal/pipeline"
	"github.com/peerapong/invoice-reader/internal/repository"
)

type Server struct {
	cfg       common.ServerConfig
	logger    *slog.Logger
	processor *pipeline.Processor
	documents repository.DocumentRepository
	items     repository.LineItemRepository
	exporter  *export.Service
	pool      *pgxpool.Pool
	schema    map[string]any
}

func New(
	cfg common.ServerConfig,
	logger *slog.Logger,
	processor *pipeline.Processor,
	documents repository.DocumentRepository,
	items repository.LineItemRepository,
	exporter *export.Service,
	pool *pgxpool.Pool,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		processor: processor,
		documents: documents,
		items:     items,
		exporter:  exporter,
		pool:      pool,
		schema:    buildRecordJSONSchema(),
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/invoices", s.handleUpload)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/export", s.handleExport)
	})
	return r
}

type documentPayload struct {
	ID              string  `json:"id"`
	Filename        string  `json:"filename"`
	Platform        string  `json:"platform"`
	InvoiceType     string  `json:"invoiceType"`
	InvoiceID       string  `json:"invoiceId"`
	ExpectedTotal   *string `json:"expectedTotal,omitempty"`
	ComputedTotal   string  `json:"computedTotal"`
	WithinTolerance bool    `json:"withinTolerance"`
	UploadedAt      string  `json:"uploadedAt"`
}

type extractPayload struct {
	Document       documentPayload             `json:"document"`
	Items          []engine.Record             `json:"items"`
	Reconciliation engine.ReconciliationResult `json:"reconciliation"`
}

func toDocumentPayload(doc *repository.Document) documentPayload {
	p := documentPayload{
		ID:              doc.ID.String(),
		Filename:        doc.Filename,
		Platform:        string(doc.Platform),
		InvoiceType:     string(doc.InvoiceType),
		InvoiceID:       doc.InvoiceID,
		ComputedTotal:   doc.ComputedTotal.StringFixed(2),
		WithinTolerance: doc.WithinTolerance,
		UploadedAt:      doc.UploadedAt.UTC().Format(time.RFC3339),
	}
	if doc.ExpectedTotal != nil {
		v := doc.ExpectedTotal.StringFixed(2)
		p.ExpectedTotal = &v
	}
	return p
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pool != nil {
		if err := repository.HealthCheck(r.Context(), s.pool, 2*time.Second, s.logger); err != nil {
			s.writeError(w, r, fmt.Errorf("database unreachable: %w", common.ErrInternal))
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts one invoice file as multipart form data. The
// optional expected_total field overrides the document total the engine
// would otherwise read from the text.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, r, fmt.Errorf("parse multipart form: %w", common.ErrInvalidInput))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("missing file field: %w", common.ErrInvalidInput))
		return
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		s.writeError(w, r, fmt.Errorf("unsupported file type %q: %w", ext, common.ErrInvalidInput))
		return
	}

	var expected *decimal.Decimal
	if raw := r.FormValue("expected_total"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("invalid expected_total %q: %w", raw, common.ErrInvalidInput))
			return
		}
		expected = &d
	}

	tmpPath := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"."+ext)
	if err := saveUpload(file, tmpPath); err != nil {
		s.writeError(w, r, common.WrapError(err, "store upload"))
		return
	}
	defer os.Remove(tmpPath)

	res, err := s.processor.ProcessFile(r.Context(), tmpPath, header.Filename, expected)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records := make([]engine.Record, 0, len(res.Items))
	for _, li := range res.Items {
		records = append(records, li.Record())
	}
	if err := s.validateRecords(records); err != nil {
		s.writeError(w, r, fmt.Errorf("%v: %w", err, common.ErrInternal))
		return
	}

	s.writeJSON(w, http.StatusOK, extractPayload{
		Document:       toDocumentPayload(res.Document),
		Items:          records,
		Reconciliation: res.Recon,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context(), 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := make([]documentPayload, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, toDocumentPayload(doc))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"documents": payload})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, items, err := s.loadDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records := make([]engine.Record, 0, len(items))
	for _, li := range items {
		records = append(records, li.Record())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"document": toDocumentPayload(doc),
		"items":    records,
	})
}

// handleExport streams the document's line items as XLSX or CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, items, err := s.loadDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}

	var (
		body        []byte
		contentType string
	)
	switch format {
	case "xlsx":
		body, err = s.exporter.WriteXLSX(items)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "csv":
		body, err = s.exporter.WriteCSV(items)
		contentType = "text/csv"
	default:
		s.writeError(w, r, fmt.Errorf("unsupported export format %q: %w", format, common.ErrInvalidInput))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", doc.Filename+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) loadDocument(ctx context.Context, rawID string) (*repository.Document, []engine.LineItem, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid document id %q: %w", rawID, common.ErrInvalidInput)
	}
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.items.ListForDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, items, nil
}

func (s *Server) validateRecords(records []engine.Record) error {
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := validateAgainstSchema(s.schema, b); err != nil {
			return fmt.Errorf("record %d: %w", rec.LineNumber, err)
		}
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func saveUpload(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}
