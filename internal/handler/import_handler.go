package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, upload service.ImportUpload) (*service.ImportResult, error)
}

// ImportHandler accepts spreadsheet uploads.
type ImportHandler struct {
	imports importService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports importService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Import godoc
// @Summary Import students from a spreadsheet
// @Description Accepts .csv or .xlsx. Rows without a name are skipped.
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param class path string true "Class name"
// @Param file formData file true "Spreadsheet"
// @Param createClass formData bool false "Create the class when missing"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /classes/{class}/students/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is required"))
		return
	}
	createClass, _ := strconv.ParseBool(c.DefaultPostForm("createClass", "false"))

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrImport.Code, appErrors.ErrImport.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.imports.Import(c.Request.Context(), service.ImportUpload{
		ClassName:   c.Param("class"),
		Filename:    header.Filename,
		Body:        file,
		CreateClass: createClass,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, map[string]interface{}{
		"imported": result.Imported,
		"skipped":  result.Skipped,
	})
}
