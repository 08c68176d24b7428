package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduportal-api/internal/attendance"
	"github.com/noah-isme/eduportal-api/internal/dto"
	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/internal/service"
)

type attendanceServiceMock struct {
	window dto.AttendanceWindowRequest
	saved  dto.SaveAttendanceRequest
	format string
	cached bool
	err    error
}

func (m *attendanceServiceMock) Matrix(ctx context.Context, req dto.AttendanceWindowRequest) (*dto.AttendanceMatrixResponse, bool, error) {
	m.window = req
	return &dto.AttendanceMatrixResponse{ClassID: req.ClassID, Dates: []string{"2024-03-04"}}, m.cached, nil
}

func (m *attendanceServiceMock) SaveBatch(ctx context.Context, classID string, req dto.SaveAttendanceRequest, claims *models.JWTClaims) (*dto.SaveAttendanceResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.saved = req
	return &dto.SaveAttendanceResponse{Created: len(req.Entries)}, nil
}

func (m *attendanceServiceMock) Export(ctx context.Context, req dto.AttendanceExportRequest) (*service.ExportDocument, error) {
	m.window = req.Window
	m.format = req.Format
	return &service.ExportDocument{Filename: "attendance_x_2024-03-01_2024-03-31.csv", ContentType: "text/csv", Body: []byte("Student,NIS\n")}, nil
}

func TestAttendanceHandlerMatrixReportsCacheHit(t *testing.T) {
	svc := &attendanceServiceMock{cached: true}
	handler := NewAttendanceHandler(svc)
	c, w := newTestContext(http.MethodGet, "/classes/c1/attendance?month=2024-03", "", gin.Params{{Key: "classId", Value: "c1"}}, true)

	handler.Matrix(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.AttendanceWindowRequest{ClassID: "c1", Month: "2024-03"}, svc.window)
	var env struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, true, env.Meta["cached"])
}

func TestAttendanceHandlerSave(t *testing.T) {
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)
	body := `{"entries":[{"studentId":"stu-a","date":"2024-03-04","status":"PRESENT"},{"studentId":"stu-b","date":"2024-03-04","status":"ABSENT","note":"sick"}]}`
	c, w := newTestContext(http.MethodPut, "/classes/c1/attendance", body, gin.Params{{Key: "classId", Value: "c1"}}, true)

	handler.Save(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.saved.Entries, 2)
	require.NotNil(t, svc.saved.Entries[1].Note)
	assert.Equal(t, "sick", *svc.saved.Entries[1].Note)
}

func TestAttendanceHandlerSaveSurfacesDomainErrors(t *testing.T) {
	svc := &attendanceServiceMock{err: attendance.ErrUnmarkNotSupported}
	handler := NewAttendanceHandler(svc)
	body := `{"entries":[{"studentId":"stu-a","date":"2024-03-04","status":"UNMARKED"}]}`
	c, w := newTestContext(http.MethodPut, "/classes/c1/attendance", body, gin.Params{{Key: "classId", Value: "c1"}}, true)

	handler.Save(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNMARK_NOT_SUPPORTED")
}

func TestAttendanceHandlerExport(t *testing.T) {
	svc := &attendanceServiceMock{}
	handler := NewAttendanceHandler(svc)
	c, w := newTestContext(http.MethodGet, "/classes/c1/attendance/export?from=2024-03-01&to=2024-03-31", "", gin.Params{{Key: "classId", Value: "c1"}}, true)

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "2024-03-01", svc.window.From)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_x_2024-03-01_2024-03-31.csv")
	assert.Equal(t, "Student,NIS\n", w.Body.String())
}
