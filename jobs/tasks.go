package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/leaddesk/leaddesk/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries push notifications.
	QueueNotifications = "notifications"

	// TaskSendPush delivers one push notification.
	TaskSendPush = "notify:push"
	// TaskFollowUpReminders scans today's follow-ups and enqueues reminders.
	TaskFollowUpReminders = "leads:followup_reminders"

	// FollowUpRemindersCron runs the reminder scan at 08:00 in the scheduler's zone.
	FollowUpRemindersCron = "0 8 * * *"
)

// NewPushTask wraps a notification in a task.
func NewPushTask(n notify.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSendPush, data, asynq.MaxRetry(5), asynq.Queue(QueueNotifications)), nil
}

// FollowUpRemindersPayload optionally pins the scan to one day (YYYY-MM-DD).
type FollowUpRemindersPayload struct {
	Date string `json:"date,omitempty"`
}

// NewFollowUpRemindersTask builds the reminder scan task.
func NewFollowUpRemindersTask(payload FollowUpRemindersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpReminders, data, asynq.Queue(QueueDefault)), nil
}
