package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/leaddesk/leaddesk/internal/jobs"
	"github.com/leaddesk/leaddesk/internal/notify"
)

// PushJob delivers queued notifications to the push gateway.
type PushJob struct {
	Sender  notify.Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPushJob wires dependencies for the push handler.
func NewPushJob(sender notify.Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *PushJob {
	return &PushJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSendPush tasks. Malformed payloads are dropped.
func (j *PushJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sender == nil {
		return errors.New("push: handler not configured")
	}
	run := j.Metrics.Start(TaskSendPush)
	defer func() { err = run.Finish(err) }()

	var n notify.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("push: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if n.UserID == 0 {
		return fmt.Errorf("push: notification without recipient: %w", asynq.SkipRetry)
	}

	err = j.Sender.Send(ctx, n)
	j.Metrics.Push(n.Kind, err)
	if err != nil {
		j.logger().Warn("push delivery failed",
			slog.Int64("user_id", n.UserID),
			slog.String("kind", n.Kind),
			slog.Any("error", err))
		return err
	}
	j.logger().Info("push delivered", slog.Int64("user_id", n.UserID), slog.String("kind", n.Kind))
	return nil
}

func (j *PushJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default().With(slog.String("job", TaskSendPush))
	}
	return j.Logger.With(slog.String("job", TaskSendPush))
}
