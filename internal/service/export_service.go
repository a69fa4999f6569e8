package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/export"
	"github.com/noah-isme/sma-roster-api/pkg/storage"
)

type snapshotSource interface {
	Snapshot(ctx context.Context, className, date string) ([]models.SnapshotRow, error)
	Today() string
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportRequest asks for a rendered class report for one date.
type ExportRequest struct {
	ClassName string              `json:"-" validate:"required"`
	Date      string              `json:"date"`
	Format    models.ReportFormat `json:"format" validate:"omitempty,oneof=pdf csv"`
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders class snapshots and serves them through signed links.
type ExportService struct {
	roster    snapshotSource
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(roster snapshotSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, metrics *MetricsService, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{
		roster:    roster,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		validator: validator.New(),
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate renders the snapshot of a class, stores it and returns a signed link.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if req.Format == "" {
		req.Format = models.ReportFormatPDF
	}
	if req.Date == "" {
		req.Date = s.roster.Today()
	}
	rows, err := s.roster.Snapshot(ctx, req.ClassName, req.Date)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch req.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(SnapshotDataset(rows))
	default:
		payload, err = s.pdf.Render(SnapshotReport(req.ClassName, req.Date, rows))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := s.buildFilename(req)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	token, expiresAt, err := s.signer.Generate(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.metrics.ObserveExport(string(req.Format))
	s.logger.Info("report generated",
		zap.String("class", req.ClassName),
		zap.String("date", req.Date),
		zap.String("format", string(req.Format)),
		zap.Int("rows", len(rows)),
	)

	return &models.ExportResult{
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Filename:  relPath,
		Format:    req.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and returns the stored file with its format.
func (s *ExportService) Open(token string) (*os.File, models.ReportFormat, error) {
	relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link expired")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report not found")
	}
	format := models.ReportFormatPDF
	if strings.HasSuffix(relPath, "."+string(models.ReportFormatCSV)) {
		format = models.ReportFormatCSV
	}
	return file, format, nil
}

// Cleanup removes reports older than ttl (the configured TTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// SnapshotReport lays a snapshot out as printable report lines.
func SnapshotReport(className, date string, rows []models.SnapshotRow) export.Report {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		note := row.LatestNote
		if note == "" {
			note = "none"
		}
		lines = append(lines, fmt.Sprintf("Name: %s | Status: %s | Behavior: %s", row.Name, row.Status, note))
	}
	return export.Report{
		Title: fmt.Sprintf("Daily Student Report - %s - %s", className, date),
		Lines: lines,
	}
}

// SnapshotDataset lays a snapshot out as CSV columns.
func SnapshotDataset(rows []models.SnapshotRow) export.Dataset {
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Name":     row.Name,
			"Status":   string(row.Status),
			"Score":    strconv.Itoa(row.Score),
			"Behavior": row.LatestNote,
		})
	}
	return export.Dataset{
		Headers: []string{"Name", "Status", "Score", "Behavior"},
		Rows:    dataRows,
	}
}

func (s *ExportService) buildFilename(req ExportRequest) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("reports/%s_%s_%s.%s", sanitizeFilename(req.ClassName), req.Date, timestamp, req.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "class"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return strings.ToValidUTF8(result[:100], "")
	}
	return result
}
