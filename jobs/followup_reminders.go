package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/leaddesk/leaddesk/internal/jobs"
	"github.com/leaddesk/leaddesk/internal/leads"
	"github.com/leaddesk/leaddesk/internal/notify"
	"github.com/leaddesk/leaddesk/internal/shared"
	"github.com/leaddesk/leaddesk/internal/users"
)

// DueLister finds leads with a follow-up in a window.
type DueLister interface {
	DueFollowUps(ctx context.Context, from, to time.Time) ([]leads.Lead, error)
}

// UserLister resolves reminder recipients.
type UserLister interface {
	ListUsers(ctx context.Context, filter users.ListFilter) ([]users.User, error)
}

// FollowUpReminderJob pushes a reminder for every lead whose follow-up falls today.
type FollowUpReminderJob struct {
	Leads    DueLister
	Users    UserLister
	Notifier leads.Notifier
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewFollowUpReminderJob wires dependencies for the reminder handler. loc is the
// display zone that decides which calendar day is "today".
func NewFollowUpReminderJob(due DueLister, people UserLister, notifier leads.Notifier, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *FollowUpReminderJob {
	return &FollowUpReminderJob{
		Leads:    due,
		Users:    people,
		Notifier: notifier,
		Location: loc,
		Logger:   logger,
		Metrics:  metrics,
		clock:    time.Now,
	}
}

// Handle processes TaskFollowUpReminders tasks.
func (j *FollowUpReminderJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Leads == nil || j.Notifier == nil {
		return errors.New("followup reminders: handler not configured")
	}
	var payload FollowUpRemindersPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("followup reminders: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	day, err := j.day(payload)
	if err != nil {
		return fmt.Errorf("followup reminders: %v: %w", err, asynq.SkipRetry)
	}

	run := j.Metrics.Start(TaskFollowUpReminders)
	defer func() { err = run.Finish(err) }()

	logger := j.logger().With(slog.String("day", day.Format("2006-01-02")))
	sent, err := j.Run(ctx, day)
	if err != nil {
		logger.Error("followup reminders failed", slog.Any("error", err))
		return err
	}
	logger.Info("followup reminders enqueued", slog.Int("count", sent))
	return nil
}

// Run enqueues reminders for the calendar day starting at day (UTC midnight of
// the wall date). Individual enqueue failures are logged and skipped.
func (j *FollowUpReminderJob) Run(ctx context.Context, day time.Time) (int, error) {
	from := leads.StartOfDay(day)
	due, err := j.Leads.DueFollowUps(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return 0, fmt.Errorf("load due follow-ups: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}
	people, err := j.recipients(ctx)
	if err != nil {
		return 0, err
	}

	perDesignation := map[shared.Designation]int{}
	sent := 0
	for _, lead := range due {
		recipient, ok := people[recipientID(lead)]
		if !ok || recipient.Status != users.StatusActive {
			continue
		}
		n := notify.FollowUpReminder(recipient.ID, recipient.Name, lead.ID, lead.Name, lead.Mobile, *lead.FollowUpDate)
		if err := j.Notifier.Notify(ctx, n); err != nil {
			j.logger().Warn("enqueue reminder", slog.Int64("lead_id", lead.ID), slog.Any("error", err))
			continue
		}
		perDesignation[recipient.Designation]++
		sent++
	}
	for designation, count := range perDesignation {
		j.Metrics.Reminders(string(designation), count)
	}
	return sent, nil
}

func recipientID(lead leads.Lead) int64 {
	if lead.LeadBy != 0 {
		return lead.LeadBy
	}
	return lead.CreatedBy
}

func (j *FollowUpReminderJob) recipients(ctx context.Context) (map[int64]users.User, error) {
	if j.Users == nil {
		return nil, errors.New("followup reminders: user lister not configured")
	}
	list, err := j.Users.ListUsers(ctx, users.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make(map[int64]users.User, len(list))
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

func (j *FollowUpReminderJob) day(payload FollowUpRemindersPayload) (time.Time, error) {
	if payload.Date != "" {
		return shared.ParseDate(payload.Date)
	}
	loc := j.Location
	if loc == nil {
		loc = time.UTC
	}
	return leads.WallClockUTC(j.now().In(loc)), nil
}

func (j *FollowUpReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskFollowUpReminders))
	}
	return slog.Default().With(slog.String("job", TaskFollowUpReminders))
}

func (j *FollowUpReminderJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
