package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduportal-api/internal/attendance"
	"github.com/noah-isme/eduportal-api/internal/dto"
	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/internal/temporal"
	appErrors "github.com/noah-isme/eduportal-api/pkg/errors"
	"github.com/noah-isme/eduportal-api/pkg/export"
)

const monthLayout = "2006-01"

type attendanceRecordStore interface {
	FindByClassAndRange(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceRecord, error)
	UpsertBatch(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error)
}

type rosterProvider interface {
	EnrolledStudents(ctx context.Context, classID string) ([]models.RosterStudent, error)
}

type sessionRangeReader interface {
	FindByClassAndRange(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSession, error)
}

type documentRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Records   attendanceRecordStore
	Roster    rosterProvider
	Sessions  sessionRangeReader
	Classes   classReader
	Cache     *CacheService
	CacheTTL  time.Duration
	Metrics   *MetricsService
	Renderers map[string]documentRenderer
	Location  *time.Location
	Clock     Clock
	Validator *validator.Validate
	Logger    *zap.Logger
}

// AttendanceService assembles attendance matrices and saves batches of cell edits.
type AttendanceService struct {
	records   attendanceRecordStore
	roster    rosterProvider
	sessions  sessionRangeReader
	classes   classReader
	cache     *CacheService
	cacheTTL  time.Duration
	metrics   *MetricsService
	renderers map[string]documentRenderer
	loc       *time.Location
	clock     Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// ExportDocument is a rendered attendance sheet.
type ExportDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}

// attendanceWindow is an inclusive range of civil dates.
type attendanceWindow struct {
	From time.Time
	To   time.Time
}

func (w attendanceWindow) fromKey() string { return w.From.Format(dateLayout) }
func (w attendanceWindow) toKey() string   { return w.To.Format(dateLayout) }

// NewAttendanceService constructs an AttendanceService. CSV and PDF renderers are
// registered when none are supplied.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	renderers := params.Renderers
	if len(renderers) == 0 {
		renderers = map[string]documentRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		}
	}
	return &AttendanceService{
		records:   params.Records,
		roster:    params.Roster,
		sessions:  params.Sessions,
		classes:   params.Classes,
		cache:     params.Cache,
		cacheTTL:  params.CacheTTL,
		metrics:   params.Metrics,
		renderers: renderers,
		loc:       loc,
		clock:     clock,
		validator: newRequestValidator(params.Validator),
		logger:    logger,
	}
}

// Matrix returns the dense student x date grid of a class for the requested window.
func (s *AttendanceService) Matrix(ctx context.Context, req dto.AttendanceWindowRequest) (*dto.AttendanceMatrixResponse, bool, error) {
	if _, err := findClass(ctx, s.classes, s.logger, req.ClassID); err != nil {
		return nil, false, err
	}
	window, err := s.resolveWindow(req)
	if err != nil {
		return nil, false, err
	}

	key := AttendanceMatrixKey(req.ClassID, window.fromKey(), window.toKey())
	var cached dto.AttendanceMatrixResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	matrix, err := s.buildMatrix(ctx, req.ClassID, window)
	if err != nil {
		return nil, false, err
	}
	resp := toMatrixResponse(req.ClassID, window, matrix)
	if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
		s.logger.Debug("attendance matrix served uncached", zap.String("class_id", req.ClassID), zap.Error(err))
	}
	return resp, false, nil
}

// SaveBatch applies cell edits for a class in one transaction. Every edit must target an
// enrolled student on a date with a scheduled session.
func (s *AttendanceService) SaveBatch(ctx context.Context, classID string, req dto.SaveAttendanceRequest, claims *models.JWTClaims) (*dto.SaveAttendanceResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := findClass(ctx, s.classes, s.logger, classID); err != nil {
		return nil, err
	}

	edits := make([]attendance.Edit, 0, len(req.Entries))
	var window attendanceWindow
	for i, entry := range req.Entries {
		date, err := time.Parse(dateLayout, entry.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("entries[%d].date must be a date (YYYY-MM-DD)", i))
		}
		if i == 0 || date.Before(window.From) {
			window.From = date
		}
		if i == 0 || date.After(window.To) {
			window.To = date
		}
		edits = append(edits, attendance.Edit{
			StudentID: strings.TrimSpace(entry.StudentID),
			Date:      date,
			Status:    models.AttendanceStatus(entry.Status),
			Note:      entry.Note,
		})
	}

	matrix, records, err := s.loadMatrix(ctx, classID, window)
	if err != nil {
		return nil, err
	}
	for _, edit := range edits {
		if !matrix.HasStudent(edit.StudentID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not enrolled in this class", edit.StudentID))
		}
		if day := attendance.FormatDate(edit.Date); !matrix.HasDate(day) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no session is scheduled on %s", day))
		}
	}

	plan, err := attendance.PlanBatch(attendance.NewIndex(records), classID, edits)
	if err != nil {
		return nil, err
	}

	result := &dto.SaveAttendanceResponse{
		Created:   len(plan.Creates),
		Updated:   len(plan.Updates),
		Unchanged: plan.Unchanged,
	}
	if plan.Empty() {
		return result, nil
	}

	writes := plan.Writes()
	markedBy := claims.UserID
	for i := range writes {
		writes[i].MarkedBy = &markedBy
	}
	start := time.Now()
	_, err = s.records.UpsertBatch(ctx, writes)
	s.metrics.ObserveDBQuery("attendance_upsert_batch", time.Since(start))
	if err != nil {
		return nil, internalError(s.logger, err, "failed to save attendance batch", zap.String("class_id", classID), zap.Int("records", len(writes)))
	}

	s.metrics.RecordAttendanceBatch(result.Created, result.Updated, result.Unchanged)
	if err := s.cache.InvalidateAttendance(ctx, classID); err != nil {
		s.logger.Warn("failed to invalidate attendance cache", zap.String("class_id", classID), zap.Error(err))
	}
	s.logger.Info("attendance batch saved",
		zap.String("class_id", classID),
		zap.String("marked_by", markedBy),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
	)
	return result, nil
}

// Export renders the class matrix as a CSV or PDF attendance sheet.
func (s *AttendanceService) Export(ctx context.Context, req dto.AttendanceExportRequest) (*ExportDocument, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	class, err := findClass(ctx, s.classes, s.logger, req.Window.ClassID)
	if err != nil {
		return nil, err
	}
	window, err := s.resolveWindow(req.Window)
	if err != nil {
		return nil, err
	}
	matrix, err := s.buildMatrix(ctx, class.ID, window)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(matrixDataset(class, window, matrix))
	if err != nil {
		return nil, internalError(s.logger, err, "failed to render attendance export", zap.String("class_id", class.ID), zap.String("format", format))
	}
	return &ExportDocument{
		Filename:    fmt.Sprintf("attendance_%s_%s_%s.%s", slug(class.Name), window.fromKey(), window.toKey(), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *AttendanceService) buildMatrix(ctx context.Context, classID string, window attendanceWindow) (*attendance.Matrix, error) {
	matrix, _, err := s.loadMatrix(ctx, classID, window)
	return matrix, err
}

// loadMatrix reads the roster, the scheduled dates and the stored records of the window.
func (s *AttendanceService) loadMatrix(ctx context.Context, classID string, window attendanceWindow) (*attendance.Matrix, []models.AttendanceRecord, error) {
	start := time.Now()
	roster, err := s.roster.EnrolledStudents(ctx, classID)
	s.metrics.ObserveDBQuery("roster_enrolled_students", time.Since(start))
	if err != nil {
		return nil, nil, internalError(s.logger, err, "failed to load class roster", zap.String("class_id", classID))
	}

	start = time.Now()
	sessions, err := s.sessions.FindByClassAndRange(ctx, models.ClassSessionFilter{
		ClassID: classID,
		From:    startOfDay(window.From, s.loc),
		To:      startOfDay(window.To.AddDate(0, 0, 1), s.loc),
	})
	s.metrics.ObserveDBQuery("class_sessions_range", time.Since(start))
	if err != nil {
		return nil, nil, internalError(s.logger, err, "failed to load class sessions", zap.String("class_id", classID))
	}
	dates := make([]time.Time, 0, len(sessions))
	for _, session := range sessions {
		if session.Status == models.SessionStatusCancelled {
			continue
		}
		dates = append(dates, temporal.CivilDate(session.StartTime, s.loc))
	}

	start = time.Now()
	records, err := s.records.FindByClassAndRange(ctx, classID, window.From, window.To)
	s.metrics.ObserveDBQuery("attendance_records_range", time.Since(start))
	if err != nil {
		return nil, nil, internalError(s.logger, err, "failed to load attendance records", zap.String("class_id", classID))
	}

	return attendance.Build(roster, dates, records), records, nil
}

// resolveWindow accepts month=YYYY-MM or from/to=YYYY-MM-DD; without either it uses the
// current month in the schedule zone.
func (s *AttendanceService) resolveWindow(req dto.AttendanceWindowRequest) (attendanceWindow, error) {
	month := strings.TrimSpace(req.Month)
	from := strings.TrimSpace(req.From)
	to := strings.TrimSpace(req.To)

	switch {
	case month != "" && (from != "" || to != ""):
		return attendanceWindow{}, appErrors.Clone(appErrors.ErrValidation, "use either month or from/to")
	case month != "":
		first, err := time.Parse(monthLayout, month)
		if err != nil {
			return attendanceWindow{}, appErrors.Clone(appErrors.ErrValidation, "month must be YYYY-MM")
		}
		return attendanceWindow{From: first, To: first.AddDate(0, 1, -1)}, nil
	case from == "" && to == "":
		today := temporal.CivilDate(s.clock.Now(), s.loc)
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return attendanceWindow{From: first, To: first.AddDate(0, 1, -1)}, nil
	case from == "" || to == "":
		return attendanceWindow{}, appErrors.Clone(appErrors.ErrValidation, "from and to must be provided together")
	}

	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return attendanceWindow{}, appErrors.Clone(appErrors.ErrValidation, "from must be a date (YYYY-MM-DD)")
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return attendanceWindow{}, appErrors.Clone(appErrors.ErrValidation, "to must be a date (YYYY-MM-DD)")
	}
	if end.Before(start) {
		return attendanceWindow{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if int(end.Sub(start).Hours()/24) >= maxCalendarWindow {
		return attendanceWindow{}, appErrors.Clone(appErrors.ErrValidation, "date range must not exceed 366 days")
	}
	return attendanceWindow{From: start, To: end}, nil
}

func toMatrixResponse(classID string, window attendanceWindow, matrix *attendance.Matrix) *dto.AttendanceMatrixResponse {
	cells := make(map[string]map[string]dto.AttendanceCellResponse, len(matrix.Cells))
	for studentID, row := range matrix.Cells {
		out := make(map[string]dto.AttendanceCellResponse, len(row))
		for date, cell := range row {
			out[date] = dto.AttendanceCellResponse{Status: string(cell.Status), Note: cell.Note, RecordID: cell.RecordID}
		}
		cells[studentID] = out
	}
	counts := matrix.Counts()
	return &dto.AttendanceMatrixResponse{
		ClassID:  classID,
		From:     window.fromKey(),
		To:       window.toKey(),
		Students: matrix.Students,
		Dates:    matrix.Dates,
		Cells:    cells,
		Summary: dto.AttendanceMatrixSummary{
			Present:  counts[models.AttendanceStatusPresent],
			Absent:   counts[models.AttendanceStatusAbsent],
			Unmarked: counts[models.AttendanceStatusUnmarked],
		},
	}
}

var cellSymbols = map[models.AttendanceStatus]string{
	models.AttendanceStatusPresent:  "P",
	models.AttendanceStatusAbsent:   "A",
	models.AttendanceStatusUnmarked: "-",
}

func matrixDataset(class *models.Class, window attendanceWindow, matrix *attendance.Matrix) export.Dataset {
	headers := append([]string{"Student", "NIS"}, matrix.Dates...)
	headers = append(headers, "Present", "Absent")

	rows := make([]map[string]string, 0, len(matrix.Students))
	for _, student := range matrix.Students {
		row := map[string]string{"NIS": student.NIS, "Student": student.FullName}
		present, absent := 0, 0
		for _, date := range matrix.Dates {
			cell, _ := matrix.Cell(student.ID, date)
			row[date] = cellSymbols[cell.Status]
			switch cell.Status {
			case models.AttendanceStatusPresent:
				present++
			case models.AttendanceStatusAbsent:
				absent++
			}
		}
		row["Present"] = fmt.Sprintf("%d", present)
		row["Absent"] = fmt.Sprintf("%d", absent)
		rows = append(rows, row)
	}

	return export.Dataset{
		Title:   fmt.Sprintf("Attendance %s (%s to %s)", class.Name, window.fromKey(), window.toKey()),
		Headers: headers,
		Rows:    rows,
	}
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
