package handler

import (
	"bytes"
	"context"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type stubRoster struct {
	lastBehavior   service.RecordBehaviorRequest
	lastAttendance service.SetAttendanceRequest
	absences       []string
	err            error
}

func (s *stubRoster) Vocabulary() models.BehaviorVocabulary { return models.DefaultVocabulary() }

func (s *stubRoster) AddClass(_ context.Context, req service.AddClassRequest) (*models.ClassSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ClassSummary{Name: req.Name}, nil
}

func (s *stubRoster) AddStudent(_ context.Context, req service.AddStudentRequest) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Student{ID: "stu-1", Name: req.Name}, nil
}

func (s *stubRoster) RecordBehavior(_ context.Context, req service.RecordBehaviorRequest) (*models.Student, error) {
	s.lastBehavior = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Student{ID: req.StudentID, Score: 1}, nil
}

func (s *stubRoster) SetAttendance(_ context.Context, req service.SetAttendanceRequest) (*models.Student, error) {
	s.lastAttendance = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Student{ID: req.StudentID}, nil
}

func (s *stubRoster) ListClasses(context.Context) []models.ClassSummary {
	return []models.ClassSummary{{Name: "Grade 5", StudentCount: 2}}
}

func (s *stubRoster) ListStudents(context.Context, string) ([]models.Student, error) {
	return nil, s.err
}

func (s *stubRoster) GetStudent(context.Context, string) (*models.StudentDetail, error) {
	return nil, s.err
}

func (s *stubRoster) History(context.Context, string) ([]models.BehaviorEvent, error) {
	return nil, s.err
}

func (s *stubRoster) Absences(context.Context, string) (iter.Seq[string], error) {
	if s.err != nil {
		return nil, s.err
	}
	return slices.Values(s.absences), nil
}

func (s *stubRoster) Snapshot(context.Context, string, string) ([]models.SnapshotRow, error) {
	return nil, s.err
}

func newRosterTestRouter(roster rosterService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRosterHandler(roster)
	r := gin.New()
	r.GET("/classes", h.ListClasses)
	r.POST("/classes", h.CreateClass)
	r.GET("/classes/:class/students", h.ListStudents)
	r.POST("/classes/:class/students/:id/behaviors", h.RecordBehavior)
	r.PUT("/classes/:class/students/:id/attendance", h.SetAttendance)
	r.GET("/students/:id/absences", h.Absences)
	return r
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRosterHandlerListClasses(t *testing.T) {
	resp := performRequest(newRosterTestRouter(&stubRoster{}), httptest.NewRequest(http.MethodGet, "/classes", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":[{"name":"Grade 5","student_count":2}],"meta":{"count":1}}`, resp.Body.String())
}

func TestRosterHandlerCreateClass(t *testing.T) {
	router := newRosterTestRouter(&stubRoster{})

	resp := performRequest(router, jsonRequest(http.MethodPost, "/classes", `{"name":"Grade 5"}`))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"name":"Grade 5"`)

	resp = performRequest(router, jsonRequest(http.MethodPost, "/classes", `{"name":`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
}

func TestRosterHandlerPathParamsReachService(t *testing.T) {
	stub := &stubRoster{}
	router := newRosterTestRouter(stub)

	resp := performRequest(router, jsonRequest(http.MethodPost, "/classes/Grade%205/students/stu-9/behaviors", `{"kind":"negative","note":"شغب"}`))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Grade 5", stub.lastBehavior.ClassName)
	assert.Equal(t, "stu-9", stub.lastBehavior.StudentID)
	assert.Equal(t, models.BehaviorNegative, stub.lastBehavior.Kind)

	resp = performRequest(router, jsonRequest(http.MethodPut, "/classes/Grade%205/students/stu-9/attendance", `{"date":"2024-03-01","status":"absent"}`))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "2024-03-01", stub.lastAttendance.Date)
	assert.Equal(t, models.AttendanceStatusAbsent, stub.lastAttendance.Status)
}

func TestRosterHandlerMapsServiceErrors(t *testing.T) {
	stub := &stubRoster{err: appErrors.Clone(appErrors.ErrNotFound, "class not found")}
	router := newRosterTestRouter(stub)

	resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/classes/Nope/students", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), `"code":"NOT_FOUND"`)

	stub.err = appErrors.Clone(appErrors.ErrValidation, "unknown behavior note")
	resp = performRequest(router, jsonRequest(http.MethodPost, "/classes/A/students/s/behaviors", `{"kind":"positive","note":"x"}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRosterHandlerAbsences(t *testing.T) {
	router := newRosterTestRouter(&stubRoster{absences: []string{"2024-03-02", "2024-03-01"}})
	resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/students/s1/absences", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":["2024-03-02","2024-03-01"],"meta":{"count":2}}`, resp.Body.String())

	router = newRosterTestRouter(&stubRoster{})
	resp = performRequest(router, httptest.NewRequest(http.MethodGet, "/students/s1/absences", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":[],"meta":{"count":0}}`, resp.Body.String(), "no absences is an empty list")
}

type stubImports struct {
	upload service.ImportUpload
	body   string
}

func (s *stubImports) Import(_ context.Context, upload service.ImportUpload) (*service.ImportResult, error) {
	s.upload = upload
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(upload.Body); err != nil {
		return nil, err
	}
	s.body = buf.String()
	return &service.ImportResult{Imported: 1, Skipped: 1, Students: []models.Student{{ID: "s1", Name: "Sara"}}}, nil
}

func TestImportHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &stubImports{}
	r := gin.New()
	r.POST("/classes/:class/students/import", NewImportHandler(stub).Import)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	part, err := form.CreateFormFile("file", "list.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name\nSara\n"))
	require.NoError(t, err)
	require.NoError(t, form.WriteField("createClass", "true"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/classes/Grade5/students/import", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp := performRequest(r, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Grade5", stub.upload.ClassName)
	assert.Equal(t, "list.csv", stub.upload.Filename)
	assert.True(t, stub.upload.CreateClass)
	assert.Equal(t, "name\nSara\n", stub.body)
	assert.Contains(t, resp.Body.String(), `"meta":{"imported":1,"skipped":1}`)

	resp = performRequest(r, httptest.NewRequest(http.MethodPost, "/classes/Grade5/students/import", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubExports struct {
	path   string
	format models.ReportFormat
	req    service.ExportRequest
	err    error
}

func (s *stubExports) Generate(_ context.Context, req service.ExportRequest) (*models.ExportResult, error) {
	s.req = req
	return &models.ExportResult{Token: "tok", URL: "/exports/tok", Format: models.ReportFormatPDF}, nil
}

func (s *stubExports) Open(string) (*os.File, models.ReportFormat, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	file, err := os.Open(s.path)
	return file, s.format, err
}

func TestExportHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "grade5_2024-03-01.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Status\n"), 0o644))
	stub := &stubExports{path: path, format: models.ReportFormatCSV}

	h := NewExportHandler(stub)
	r := gin.New()
	r.POST("/classes/:class/exports", h.Create)
	r.GET("/exports/:token", h.Download)

	resp := performRequest(r, httptest.NewRequest(http.MethodPost, "/classes/Grade5/exports", nil))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Grade5", stub.req.ClassName)
	assert.Empty(t, stub.req.Format)

	chunked := httptest.NewRequest(http.MethodPost, "/classes/Grade6/exports", io.NopCloser(strings.NewReader("")))
	require.EqualValues(t, -1, chunked.ContentLength)
	resp = performRequest(r, chunked)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Grade6", stub.req.ClassName)

	resp = performRequest(r, jsonRequest(http.MethodPost, "/classes/Grade5/exports", `{"format":"csv"}`))
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, models.ReportFormatCSV, stub.req.Format)

	resp = performRequest(r, jsonRequest(http.MethodPost, "/classes/Grade5/exports", `{"format":`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = performRequest(r, httptest.NewRequest(http.MethodGet, "/exports/tok", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="grade5_2024-03-01.csv"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "Name,Status\n", resp.Body.String())

	stub.err = appErrors.Clone(appErrors.ErrNotFound, "export expired")
	resp = performRequest(r, httptest.NewRequest(http.MethodGet, "/exports/tok", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
