package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, req service.ExportRequest) (*models.ExportResult, error)
	Open(token string) (*os.File, models.ReportFormat, error)
}

// ExportHandler renders class reports and serves downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create godoc
// @Summary Render a daily class report
// @Tags Exports
// @Accept json
// @Produce json
// @Param class path string true "Class name"
// @Param payload body service.ExportRequest false "Format (pdf|csv) and date"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class}/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req service.ExportRequest
	// An empty body selects the defaults.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload"))
		return
	}
	req.ClassName = c.Param("class")
	result, err := h.exports.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered report
// @Tags Exports
// @Produce application/pdf
// @Produce text/csv
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, format, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(file.Name())))
	c.DataFromReader(http.StatusOK, info.Size(), format.ContentType(), file, nil)
}
