package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduportal-api/internal/dto"
	"github.com/noah-isme/eduportal-api/internal/middleware"
	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/internal/service"
	appErrors "github.com/noah-isme/eduportal-api/pkg/errors"
	"github.com/noah-isme/eduportal-api/pkg/response"
)

type attendanceService interface {
	Matrix(ctx context.Context, req dto.AttendanceWindowRequest) (*dto.AttendanceMatrixResponse, bool, error)
	SaveBatch(ctx context.Context, classID string, req dto.SaveAttendanceRequest, claims *models.JWTClaims) (*dto.SaveAttendanceResponse, error)
	Export(ctx context.Context, req dto.AttendanceExportRequest) (*service.ExportDocument, error)
}

// AttendanceHandler exposes the class attendance matrix.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Matrix godoc
// @Summary Attendance matrix of a class
// @Tags Attendance
// @Produce json
// @Param classId path string true "Class ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/attendance [get]
func (h *AttendanceHandler) Matrix(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, cached, err := h.service.Matrix(c.Request.Context(), windowFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.MarkCached(c, cached)
	response.JSON(c, http.StatusOK, result, nil, middleware.Meta(c))
}

// Save godoc
// @Summary Save a batch of attendance cells
// @Tags Attendance
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.SaveAttendanceRequest true "Cell edits"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{classId}/attendance [put]
func (h *AttendanceHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SaveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.SaveBatch(c.Request.Context(), c.Param("classId"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download the attendance sheet
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param classId path string true "Class ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /classes/{classId}/attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, err := h.service.Export(c.Request.Context(), dto.AttendanceExportRequest{
		Window: windowFromQuery(c),
		Format: c.DefaultQuery("format", "csv"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Body)
}

func windowFromQuery(c *gin.Context) dto.AttendanceWindowRequest {
	return dto.AttendanceWindowRequest{
		ClassID: c.Param("classId"),
		Month:   c.Query("month"),
		From:    c.Query("from"),
		To:      c.Query("to"),
	}
}
