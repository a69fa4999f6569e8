package service

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/export"
	"github.com/noah-isme/sma-roster-api/pkg/storage"
)

type pdfRecorder struct {
	last export.Report
}

func (p *pdfRecorder) Render(report export.Report) ([]byte, error) {
	p.last = report
	return []byte("%PDF-1.3 test"), nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *RosterService, *storage.LocalStorage, *pdfRecorder) {
	t.Helper()
	roster := newTestRosterService(t, &mockRosterRepo{})
	ctx := context.Background()
	_, err := roster.AddClass(ctx, AddClassRequest{Name: "Grade 5"})
	require.NoError(t, err)
	ali, err := roster.AddStudent(ctx, AddStudentRequest{ClassName: "Grade 5", Name: "Ali"})
	require.NoError(t, err)
	_, err = roster.AddStudent(ctx, AddStudentRequest{ClassName: "Grade 5", Name: "Sara"})
	require.NoError(t, err)
	_, err = roster.RecordBehavior(ctx, RecordBehaviorRequest{ClassName: "Grade 5", StudentID: ali.ID, Kind: models.BehaviorPositive, Note: "حل الواجب"})
	require.NoError(t, err)
	_, err = roster.SetAttendance(ctx, SetAttendanceRequest{ClassName: "Grade 5", StudentID: ali.ID, Date: "2024-03-05", Status: models.AttendanceStatusAbsent})
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	pdf := &pdfRecorder{}
	svc := NewExportService(roster, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop(), nil, nil, pdf)
	return svc, roster, store, pdf
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, _, _, pdf := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), ExportRequest{ClassName: "Grade 5"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))

	assert.Equal(t, "Daily Student Report - Grade 5 - 2024-03-05", pdf.last.Title)
	assert.Equal(t, []string{
		"Name: Ali | Status: absent | Behavior: حل الواجب",
		"Name: Sara | Status: present | Behavior: none",
	}, pdf.last.Lines)

	file, format, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, models.ReportFormatPDF, format)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 test", string(body))
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, _, store, _ := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), ExportRequest{ClassName: "Grade 5", Date: "2024-03-04", Format: models.ReportFormatCSV})
	require.NoError(t, err)

	info, err := os.Stat(store.Path(result.Filename))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	file, format, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, models.ReportFormatCSV, format)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Name,Status,Score,Behavior\nAli,present,1,حل الواجب\nSara,present,0,\n")
}

func TestExportServiceRejections(t *testing.T) {
	svc, _, store, _ := newExportServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Generate(ctx, ExportRequest{ClassName: "Grade 5", Format: "docx"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	_, err = svc.Generate(ctx, ExportRequest{ClassName: "Grade 9"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, _, err = svc.Open("garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))

	result, err := svc.Generate(ctx, ExportRequest{ClassName: "Grade 5"})
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(result.Filename), past, past))
	deleted, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
	_, _, err = svc.Open(result.Token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Grade_5-A", sanitizeFilename("Grade 5/A"))
	assert.Equal(t, "class", sanitizeFilename(""))
}
