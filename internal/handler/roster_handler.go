package handler

import (
	"context"
	"iter"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type rosterService interface {
	Vocabulary() models.BehaviorVocabulary
	AddClass(ctx context.Context, req service.AddClassRequest) (*models.ClassSummary, error)
	AddStudent(ctx context.Context, req service.AddStudentRequest) (*models.Student, error)
	RecordBehavior(ctx context.Context, req service.RecordBehaviorRequest) (*models.Student, error)
	SetAttendance(ctx context.Context, req service.SetAttendanceRequest) (*models.Student, error)
	ListClasses(ctx context.Context) []models.ClassSummary
	ListStudents(ctx context.Context, className string) ([]models.Student, error)
	GetStudent(ctx context.Context, studentID string) (*models.StudentDetail, error)
	History(ctx context.Context, studentID string) ([]models.BehaviorEvent, error)
	Absences(ctx context.Context, studentID string) (iter.Seq[string], error)
	Snapshot(ctx context.Context, className, date string) ([]models.SnapshotRow, error)
}

// RosterHandler exposes class, student, attendance and behaviour endpoints.
type RosterHandler struct {
	roster rosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster rosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// Behaviors godoc
// @Summary List behaviour notes
// @Tags Behaviors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /behaviors [get]
func (h *RosterHandler) Behaviors(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.roster.Vocabulary())
}

// ListClasses godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *RosterHandler) ListClasses(c *gin.Context) {
	classes := h.roster.ListClasses(c.Request.Context())
	response.JSON(c, http.StatusOK, classes, map[string]interface{}{"count": len(classes)})
}

// CreateClass godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.AddClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes [post]
func (h *RosterHandler) CreateClass(c *gin.Context) {
	var req service.AddClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload"))
		return
	}
	class, err := h.roster.AddClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// ListStudents godoc
// @Summary List students of a class
// @Tags Students
// @Produce json
// @Param class path string true "Class name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class}/students [get]
func (h *RosterHandler) ListStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context(), c.Param("class"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"count": len(students)})
}

// CreateStudent godoc
// @Summary Add student to class
// @Tags Students
// @Accept json
// @Produce json
// @Param class path string true "Class name"
// @Param payload body service.AddStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class}/students [post]
func (h *RosterHandler) CreateStudent(c *gin.Context) {
	var req service.AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload"))
		return
	}
	req.ClassName = c.Param("class")
	student, err := h.roster.AddStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// RecordBehavior godoc
// @Summary Record behaviour event
// @Tags Behaviors
// @Accept json
// @Produce json
// @Param class path string true "Class name"
// @Param id path string true "Student ID"
// @Param payload body service.RecordBehaviorRequest true "Behaviour payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class}/students/{id}/behaviors [post]
func (h *RosterHandler) RecordBehavior(c *gin.Context) {
	var req service.RecordBehaviorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid behavior payload"))
		return
	}
	req.ClassName = c.Param("class")
	req.StudentID = c.Param("id")
	student, err := h.roster.RecordBehavior(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// SetAttendance godoc
// @Summary Set attendance for a date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param class path string true "Class name"
// @Param id path string true "Student ID"
// @Param payload body service.SetAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class}/students/{id}/attendance [put]
func (h *RosterHandler) SetAttendance(c *gin.Context) {
	var req service.SetAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload"))
		return
	}
	req.ClassName = c.Param("class")
	req.StudentID = c.Param("id")
	student, err := h.roster.SetAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Snapshot godoc
// @Summary Daily class snapshot
// @Tags Classes
// @Produce json
// @Param class path string true "Class name"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class}/snapshot [get]
func (h *RosterHandler) Snapshot(c *gin.Context) {
	rows, err := h.roster.Snapshot(c.Request.Context(), c.Param("class"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// GetStudent godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *RosterHandler) GetStudent(c *gin.Context) {
	student, err := h.roster.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// History godoc
// @Summary Behaviour history, newest first
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/history [get]
func (h *RosterHandler) History(c *gin.Context) {
	history, err := h.roster.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history)
}

// Absences godoc
// @Summary Absent dates, newest first
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/absences [get]
func (h *RosterHandler) Absences(c *gin.Context) {
	seq, err := h.roster.Absences(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	dates := slices.Collect(seq)
	if dates == nil {
		dates = []string{}
	}
	response.JSON(c, http.StatusOK, dates, map[string]interface{}{"count": len(dates)})
}
