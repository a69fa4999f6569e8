package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/importer"
)

type studentImporter interface {
	ImportStudents(ctx context.Context, req ImportStudentsRequest) (*ImportResult, error)
}

// ImportUpload is one spreadsheet upload targeting a class.
type ImportUpload struct {
	ClassName   string
	Filename    string
	Body        io.Reader
	CreateClass bool
}

// ImportService parses uploads and hands the rows to the roster.
type ImportService struct {
	roster  studentImporter
	maxSize int64
	logger  *zap.Logger
}

// NewImportService constructs the import service; maxSize <= 0 disables the limit.
func NewImportService(roster studentImporter, maxSize int64, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{roster: roster, maxSize: maxSize, logger: logger}
}

// Import reads the upload, parses it and appends the named students in one batch.
func (s *ImportService) Import(ctx context.Context, upload ImportUpload) (*ImportResult, error) {
	if upload.Body == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	body := upload.Body
	if s.maxSize > 0 {
		body = io.LimitReader(body, s.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrImport.Code, appErrors.ErrImport.Status, "failed to read upload")
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	rows, err := importer.Parse(upload.Filename, bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("import rejected", zap.String("file", upload.Filename), zap.Error(err))
		return nil, err
	}
	return s.roster.ImportStudents(ctx, ImportStudentsRequest{
		ClassName:   upload.ClassName,
		Rows:        rows,
		CreateClass: upload.CreateClass,
	})
}
