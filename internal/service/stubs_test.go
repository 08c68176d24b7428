package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/eduportal-api/internal/models"
)

var wib = time.FixedZone("WIB", 7*60*60)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type classReaderStub struct {
	classes map[string]*models.Class
	err     error
}

func (s classReaderStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if s.err != nil {
		return nil, s.err
	}
	if class, ok := s.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

func oneClass() classReaderStub {
	return classReaderStub{classes: map[string]*models.Class{"class-1": {ID: "class-1", Name: "X IPA 1"}}}
}

// sessionStoreStub keeps sessions in memory.
type sessionStoreStub struct {
	mu        sync.Mutex
	sessions  map[string]models.ClassSession
	groups    map[string]models.RecurrenceGroup
	createErr error
	creates   int
}

func newSessionStoreStub(sessions ...models.ClassSession) *sessionStoreStub {
	s := &sessionStoreStub{sessions: map[string]models.ClassSession{}, groups: map[string]models.RecurrenceGroup{}}
	for _, session := range sessions {
		s.sessions[session.ID] = session
	}
	return s
}

func (s *sessionStoreStub) CreateSeries(ctx context.Context, group *models.RecurrenceGroup, sessions []models.ClassSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return s.createErr
	}
	if group != nil {
		s.groups[group.ID] = *group
	}
	for _, session := range sessions {
		s.sessions[session.ID] = session
	}
	return nil
}

func (s *sessionStoreStub) FindByClassAndRange(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ClassSession
	for _, session := range s.sessions {
		if session.ClassID != filter.ClassID || session.StartTime.Before(filter.From) || !session.StartTime.Before(filter.To) {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (s *sessionStoreStub) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (s *sessionStoreStub) FindGroupByID(ctx context.Context, id string) (*models.RecurrenceGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &group, nil
}

func (s *sessionStoreStub) Update(ctx context.Context, session *models.ClassSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return sql.ErrNoRows
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *sessionStoreStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.sessions, id)
	return nil
}

func (s *sessionStoreStub) DeleteByGroupID(ctx context.Context, groupID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, session := range s.sessions {
		if session.RecurrenceGroupID != nil && *session.RecurrenceGroupID == groupID {
			ids = append(ids, id)
			delete(s.sessions, id)
		}
	}
	delete(s.groups, groupID)
	sort.Strings(ids)
	return ids, nil
}

type invalidatorStub struct {
	classes []string
}

func (s *invalidatorStub) InvalidateAttendance(ctx context.Context, classID string) error {
	s.classes = append(s.classes, classID)
	return nil
}

type notifierStub struct {
	mu        sync.Mutex
	created   []SessionsCreatedEvent
	cancelled []SessionCancelledEvent
}

func (s *notifierStub) NotifySessionsCreated(event SessionsCreatedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, event)
	return nil
}

func (s *notifierStub) NotifySessionCancelled(event SessionCancelledEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, event)
	return nil
}

func (s *notifierStub) SessionsCreated(ctx context.Context, event SessionsCreatedEvent) error {
	return s.NotifySessionsCreated(event)
}

func (s *notifierStub) SessionCancelled(ctx context.Context, event SessionCancelledEvent) error {
	return s.NotifySessionCancelled(event)
}

func (s *notifierStub) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func testStr(v string) *string { return &v }
