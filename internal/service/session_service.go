package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/eduportal-api/internal/dto"
	"github.com/noah-isme/eduportal-api/internal/models"
	"github.com/noah-isme/eduportal-api/internal/recurrence"
	"github.com/noah-isme/eduportal-api/internal/temporal"
	appErrors "github.com/noah-isme/eduportal-api/pkg/errors"
)

const (
	dateLayout        = "2006-01-02"
	maxCalendarWindow = 366
)

type sessionStore interface {
	CreateSeries(ctx context.Context, group *models.RecurrenceGroup, sessions []models.ClassSession) error
	FindByClassAndRange(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSession, error)
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	FindGroupByID(ctx context.Context, id string) (*models.RecurrenceGroup, error)
	Update(ctx context.Context, session *models.ClassSession) error
	Delete(ctx context.Context, id string) error
	DeleteByGroupID(ctx context.Context, groupID string) ([]string, error)
}

type sessionNotifier interface {
	NotifySessionsCreated(event SessionsCreatedEvent) error
	NotifySessionCancelled(event SessionCancelledEvent) error
}

type attendanceCacheInvalidator interface {
	InvalidateAttendance(ctx context.Context, classID string) error
}

// SessionServiceParams groups constructor dependencies.
type SessionServiceParams struct {
	Store      sessionStore
	Classes    classReader
	Expander   *recurrence.Expander
	Classifier *temporal.Classifier
	Clock      Clock
	Cache      attendanceCacheInvalidator
	Notifier   sessionNotifier
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// SessionService creates, reads and edits class sessions and recurring series.
type SessionService struct {
	store      sessionStore
	classes    classReader
	expander   *recurrence.Expander
	classifier *temporal.Classifier
	clock      Clock
	cache      attendanceCacheInvalidator
	notifier   sessionNotifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(params SessionServiceParams) *SessionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := params.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	classifier := params.Classifier
	if classifier == nil {
		classifier = temporal.NewClassifier(time.UTC)
	}
	expander := params.Expander
	if expander == nil {
		expander = recurrence.NewExpander(classifier.Location(), recurrence.DefaultMaxOccurrences)
	}
	return &SessionService{
		store:      params.Store,
		classes:    params.Classes,
		expander:   expander,
		classifier: classifier,
		clock:      clock,
		cache:      params.Cache,
		notifier:   params.Notifier,
		metrics:    params.Metrics,
		validator:  newRequestValidator(params.Validator),
		logger:     logger,
	}
}

// CreateSessions stores a single session, or the whole series produced by the request's
// recurrence rule. A rule that fails validation or yields no occurrence stores nothing.
func (s *SessionService) CreateSessions(ctx context.Context, classID string, req dto.CreateSessionRequest, claims *models.JWTClaims) (*dto.CreateSessionsResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := findClass(ctx, s.classes, s.logger, classID); err != nil {
		return nil, err
	}

	tpl := recurrence.Template{
		Title:     strings.TrimSpace(req.Title),
		ClassID:   classID,
		OwnerID:   claims.UserID,
		Location:  normaliseText(req.Location),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}

	var (
		group    *models.RecurrenceGroup
		sessions []models.ClassSession
	)
	if req.Recurrence == nil {
		if err := s.expander.CheckTemplate(tpl.StartTime, tpl.EndTime); err != nil {
			return nil, err
		}
		sessions = []models.ClassSession{s.sessionFromOccurrence(recurrence.Occurrence{
			Title:     tpl.Title,
			ClassID:   tpl.ClassID,
			OwnerID:   tpl.OwnerID,
			Location:  tpl.Location,
			StartTime: tpl.StartTime.In(s.classifier.Location()),
			EndTime:   tpl.EndTime.In(s.classifier.Location()),
		})}
	} else {
		rule, err := ruleFromRequest(*req.Recurrence)
		if err != nil {
			return nil, err
		}
		occurrences, err := s.expander.Expand(tpl, rule)
		if err != nil {
			return nil, err
		}
		group = &models.RecurrenceGroup{
			ID:            uuid.NewString(),
			ClassID:       classID,
			IntervalWeeks: rule.IntervalWeeks,
			Weekdays:      weekdayArray(rule.Weekdays),
			EndDate:       temporal.DateOf(rule.EndDate),
			CreatedBy:     claims.UserID,
		}
		sessions = make([]models.ClassSession, 0, len(occurrences))
		for _, occ := range occurrences {
			session := s.sessionFromOccurrence(occ)
			session.RecurrenceGroupID = &group.ID
			sessions = append(sessions, session)
		}
	}

	if err := s.store.CreateSeries(ctx, group, sessions); err != nil {
		return nil, internalError(s.logger, err, "failed to store class sessions", zap.String("class_id", classID), zap.Int("sessions", len(sessions)))
	}

	s.metrics.RecordSessionsCreated(len(sessions), group != nil)
	s.invalidateAttendance(ctx, classID)

	resp := &dto.CreateSessionsResponse{Count: len(sessions), Sessions: make([]dto.SessionResponse, 0, len(sessions))}
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(session, ""))
		ids = append(ids, session.ID)
	}
	if group != nil {
		resp.RecurrenceGroupID = &group.ID
	}

	s.notifyCreated(SessionsCreatedEvent{
		ClassID:           classID,
		OwnerID:           claims.UserID,
		Title:             tpl.Title,
		RecurrenceGroupID: resp.RecurrenceGroupID,
		SessionIDs:        ids,
		FirstStart:        sessions[0].StartTime,
		LastStart:         sessions[len(sessions)-1].StartTime,
	})

	s.logger.Info("class sessions created",
		zap.String("class_id", classID),
		zap.String("owner_id", claims.UserID),
		zap.Int("sessions", len(sessions)),
		zap.Bool("recurring", group != nil),
	)
	return resp, nil
}

// Calendar returns the class's sessions in the window grouped into past, upcoming and
// future relative to the clock. The grouping is recomputed on every call.
func (s *SessionService) Calendar(ctx context.Context, req dto.CalendarRequest) (*dto.CalendarResponse, error) {
	if _, err := findClass(ctx, s.classes, s.logger, req.ClassID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	loc := s.classifier.Location()
	from, to, err := calendarWindow(req.From, req.To, now, loc)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.FindByClassAndRange(ctx, models.ClassSessionFilter{
		ClassID: req.ClassID,
		From:    startOfDay(from, loc),
		To:      startOfDay(to.AddDate(0, 0, 1), loc),
	})
	if err != nil {
		return nil, internalError(s.logger, err, "failed to list class sessions", zap.String("class_id", req.ClassID))
	}

	groups, err := temporal.GroupByState(s.classifier, sessions, now)
	if err != nil {
		return nil, internalError(s.logger, err, "stored session has an invalid time range", zap.String("class_id", req.ClassID))
	}

	return &dto.CalendarResponse{
		ClassID:  req.ClassID,
		From:     from.Format(dateLayout),
		To:       to.Format(dateLayout),
		Now:      now,
		Past:     toSessionResponses(groups.Past, temporal.StatePast),
		Upcoming: toSessionResponses(groups.Upcoming, temporal.StateUpcoming),
		Future:   toSessionResponses(groups.Future, temporal.StateFuture),
	}, nil
}

// UpdateSession edits one occurrence. Only its title, time, location and status change;
// the rest of its series is untouched.
func (s *SessionService) UpdateSession(ctx context.Context, id string, req dto.UpdateSessionRequest, claims *models.JWTClaims) (*dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	session, err := s.ownedSession(ctx, id, claims)
	if err != nil {
		return nil, err
	}
	previous := *session

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title must not be empty")
		}
		session.Title = title
	}
	if req.Location != nil {
		session.Location = normaliseText(req.Location)
	}
	if req.StartTime != nil {
		session.StartTime = req.StartTime.In(s.classifier.Location())
	}
	if req.EndTime != nil {
		session.EndTime = req.EndTime.In(s.classifier.Location())
	}
	if req.StartTime != nil || req.EndTime != nil {
		if err := s.expander.CheckTemplate(session.StartTime, session.EndTime); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		session.Status = models.SessionStatus(*req.Status)
	}

	if err := s.store.Update(ctx, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, internalError(s.logger, err, "failed to update class session", zap.String("session_id", id))
	}

	if !temporal.SameDay(previous.StartTime, session.StartTime, s.classifier.Location()) || previous.Status != session.Status {
		s.invalidateAttendance(ctx, session.ClassID)
	}
	if previous.Status != models.SessionStatusCancelled && session.Status == models.SessionStatusCancelled {
		s.notifyCancelled(SessionCancelledEvent{
			ClassID:   session.ClassID,
			SessionID: session.ID,
			Title:     session.Title,
			StartTime: session.StartTime,
		})
	}

	resp := toSessionResponse(*session, "")
	return &resp, nil
}

// DeleteSession removes one occurrence.
func (s *SessionService) DeleteSession(ctx context.Context, id string, claims *models.JWTClaims) error {
	session, err := s.ownedSession(ctx, id, claims)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return internalError(s.logger, err, "failed to delete class session", zap.String("session_id", id))
	}
	s.metrics.RecordSessionsDeleted(1)
	s.invalidateAttendance(ctx, session.ClassID)
	return nil
}

// DeleteGroup removes a recurrence group and all of its sessions atomically.
func (s *SessionService) DeleteGroup(ctx context.Context, groupID string, claims *models.JWTClaims) (*dto.DeleteGroupResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	group, err := s.store.FindGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recurrence group not found")
		}
		return nil, internalError(s.logger, err, "failed to load recurrence group", zap.String("recurrence_group_id", groupID))
	}
	if !claims.IsStaff() && group.CreatedBy != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the series owner can delete it")
	}

	ids, err := s.store.DeleteByGroupID(ctx, groupID)
	if err != nil {
		return nil, internalError(s.logger, err, "failed to delete recurrence group", zap.String("recurrence_group_id", groupID))
	}
	if ids == nil {
		ids = []string{}
	}

	s.metrics.RecordSessionsDeleted(len(ids))
	s.invalidateAttendance(ctx, group.ClassID)
	s.logger.Info("recurrence group deleted", zap.String("recurrence_group_id", groupID), zap.Int("sessions", len(ids)))
	return &dto.DeleteGroupResponse{RecurrenceGroupID: groupID, DeletedIDs: ids}, nil
}

func (s *SessionService) ownedSession(ctx context.Context, id string, claims *models.JWTClaims) (*models.ClassSession, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, internalError(s.logger, err, "failed to load class session", zap.String("session_id", id))
	}
	if !claims.IsStaff() && session.OwnerID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the session owner can change it")
	}
	return session, nil
}

func (s *SessionService) sessionFromOccurrence(occ recurrence.Occurrence) models.ClassSession {
	return models.ClassSession{
		ID:        uuid.NewString(),
		ClassID:   occ.ClassID,
		OwnerID:   occ.OwnerID,
		Title:     occ.Title,
		Location:  occ.Location,
		StartTime: occ.StartTime,
		EndTime:   occ.EndTime,
		Status:    models.SessionStatusScheduled,
		Sequence:  occ.Sequence,
	}
}

func (s *SessionService) invalidateAttendance(ctx context.Context, classID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAttendance(ctx, classID); err != nil {
		s.logger.Warn("failed to invalidate attendance cache", zap.String("class_id", classID), zap.Error(err))
	}
}

func (s *SessionService) notifyCreated(event SessionsCreatedEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifySessionsCreated(event); err != nil {
		s.logger.Warn("failed to enqueue sessions notification", zap.String("class_id", event.ClassID), zap.Error(err))
	}
}

func (s *SessionService) notifyCancelled(event SessionCancelledEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifySessionCancelled(event); err != nil {
		s.logger.Warn("failed to enqueue cancellation notification", zap.String("session_id", event.SessionID), zap.Error(err))
	}
}

func ruleFromRequest(req dto.RecurrenceRequest) (recurrence.Rule, error) {
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return recurrence.Rule{}, appErrors.Clone(appErrors.ErrValidation, "endDate must be a date (YYYY-MM-DD)")
	}
	interval := 1
	if req.IntervalWeeks != nil {
		interval = *req.IntervalWeeks
	}
	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, wd := range req.Weekdays {
		weekdays = append(weekdays, time.Weekday(wd))
	}
	return recurrence.Rule{IntervalWeeks: interval, Weekdays: weekdays, EndDate: endDate}, nil
}

func weekdayArray(days []time.Weekday) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(days))
	for _, d := range days {
		out = append(out, int64(d))
	}
	return out
}

// calendarWindow resolves optional date bounds to inclusive civil dates. Without bounds
// the window is the current month in loc.
func calendarWindow(from, to *time.Time, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time
	switch {
	case from == nil && to == nil:
		today := temporal.CivilDate(now, loc)
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	case from != nil && to != nil:
		start, end = temporal.DateOf(*from), temporal.DateOf(*to)
	case from != nil:
		start = temporal.DateOf(*from)
		end = start.AddDate(0, 1, -1)
	default:
		end = temporal.DateOf(*to)
		start = end.AddDate(0, -1, 1)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if int(end.Sub(start).Hours()/24) >= maxCalendarWindow {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date range must not exceed 366 days")
	}
	return start, end, nil
}

// startOfDay returns midnight of a civil date in loc.
func startOfDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func normaliseText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toSessionResponses(sessions []models.ClassSession, state temporal.State) []dto.SessionResponse {
	out := make([]dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionResponse(session, state))
	}
	return out
}

func toSessionResponse(session models.ClassSession, state temporal.State) dto.SessionResponse {
	return dto.SessionResponse{
		ID:                session.ID,
		ClassID:           session.ClassID,
		OwnerID:           session.OwnerID,
		Title:             session.Title,
		Location:          session.Location,
		StartTime:         session.StartTime,
		EndTime:           session.EndTime,
		Status:            string(session.Status),
		RecurrenceGroupID: session.RecurrenceGroupID,
		Sequence:          session.Sequence,
		State:             string(state),
	}
}
