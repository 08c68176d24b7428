package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/eduportal-api/pkg/config"
	"github.com/noah-isme/eduportal-api/pkg/jobs"
)

// Notification job types.
const (
	JobSessionsCreated  = "sessions.created"
	JobSessionCancelled = "session.cancelled"
)

// SessionsCreatedEvent announces newly scheduled sessions of a class.
type SessionsCreatedEvent struct {
	ClassID           string
	OwnerID           string
	Title             string
	RecurrenceGroupID *string
	SessionIDs        []string
	FirstStart        time.Time
	LastStart         time.Time
}

// SessionCancelledEvent announces a cancelled occurrence.
type SessionCancelledEvent struct {
	ClassID   string
	SessionID string
	Title     string
	StartTime time.Time
}

// Notifier delivers notifications to class members.
type Notifier interface {
	SessionsCreated(ctx context.Context, event SessionsCreatedEvent) error
	SessionCancelled(ctx context.Context, event SessionCancelledEvent) error
}

// LogNotifier writes notifications to the log. It is the default delivery channel.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// SessionsCreated logs the created series.
func (n *LogNotifier) SessionsCreated(_ context.Context, event SessionsCreatedEvent) error {
	fields := []zap.Field{
		zap.String("class_id", event.ClassID),
		zap.String("owner_id", event.OwnerID),
		zap.String("title", event.Title),
		zap.Int("sessions", len(event.SessionIDs)),
		zap.Time("first_start", event.FirstStart),
		zap.Time("last_start", event.LastStart),
	}
	if event.RecurrenceGroupID != nil {
		fields = append(fields, zap.String("recurrence_group_id", *event.RecurrenceGroupID))
	}
	n.logger.Info("notify sessions created", fields...)
	return nil
}

// SessionCancelled logs the cancelled occurrence.
func (n *LogNotifier) SessionCancelled(_ context.Context, event SessionCancelledEvent) error {
	n.logger.Info("notify session cancelled",
		zap.String("class_id", event.ClassID),
		zap.String("session_id", event.SessionID),
		zap.Time("start_time", event.StartTime),
	)
	return nil
}

// NotificationDispatcher fans notifications out through a background queue so request
// handlers never wait on delivery.
type NotificationDispatcher struct {
	queue    *jobs.Queue
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	enabled  bool
}

// NewNotificationDispatcher builds the dispatcher and its worker queue.
func NewNotificationDispatcher(notifier Notifier, cfg config.NotificationsConfig, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	d := &NotificationDispatcher{notifier: notifier, metrics: metrics, logger: logger, enabled: cfg.Enabled}
	d.queue = jobs.NewQueue("notifications", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return d
}

// Start launches the workers.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	if d == nil || !d.enabled {
		return
	}
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *NotificationDispatcher) Stop() {
	if d == nil {
		return
	}
	d.queue.Stop()
}

// Stats reports queue throughput.
func (d *NotificationDispatcher) Stats() jobs.Stats {
	if d == nil {
		return jobs.Stats{}
	}
	return d.queue.Stats()
}

// NotifySessionsCreated enqueues a sessions.created job.
func (d *NotificationDispatcher) NotifySessionsCreated(event SessionsCreatedEvent) error {
	return d.enqueue(JobSessionsCreated, event)
}

// NotifySessionCancelled enqueues a session.cancelled job.
func (d *NotificationDispatcher) NotifySessionCancelled(event SessionCancelledEvent) error {
	return d.enqueue(JobSessionCancelled, event)
}

func (d *NotificationDispatcher) enqueue(jobType string, payload interface{}) error {
	if d == nil || !d.enabled {
		return nil
	}
	return d.queue.Enqueue(jobs.Job{Type: jobType, Payload: payload})
}

func (d *NotificationDispatcher) handle(ctx context.Context, job jobs.Job) error {
	var err error
	switch job.Type {
	case JobSessionsCreated:
		event, ok := job.Payload.(SessionsCreatedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		err = d.notifier.SessionsCreated(ctx, event)
	case JobSessionCancelled:
		event, ok := job.Payload.(SessionCancelledEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		err = d.notifier.SessionCancelled(ctx, event)
	default:
		d.logger.Warn("unknown notification job", zap.String("type", job.Type), zap.String("job_id", job.ID))
		return nil
	}
	d.metrics.RecordNotification(job.Type, err)
	return err
}
