package leads

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leaddesk/leaddesk/internal/notify"
	"github.com/leaddesk/leaddesk/internal/users"
)

// CandidateSource lists the BDEs a lead may be assigned to.
type CandidateSource interface {
	ActiveBDEs(ctx context.Context) ([]users.User, error)
}

// Notifier hands a notification to the delivery queue.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// NotificationObserver counts notification outcomes.
type NotificationObserver interface {
	Notification(kind string, err error)
}

// Resolver validates appointment assignees and notifies them after commit.
type Resolver struct {
	candidates CandidateSource
	notifier   Notifier
	observer   NotificationObserver
	logger     *slog.Logger
}

// NewResolver constructs a Resolver. observer may be nil.
func NewResolver(candidates CandidateSource, notifier Notifier, observer NotificationObserver, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{candidates: candidates, notifier: notifier, observer: observer, logger: logger}
}

// ResolveAssignee returns the active BDE with id, or a field error on appoint_to.
func (r *Resolver) ResolveAssignee(ctx context.Context, id int64) (users.User, error) {
	candidates, err := r.candidates.ActiveBDEs(ctx)
	if err != nil {
		return users.User{}, fmt.Errorf("load bde candidates: %w", err)
	}
	for _, c := range candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return users.User{}, FieldErrors{string(FieldAppointTo): "Select an active BDE"}
}

// ShouldNotify reports whether moving from prev to next is a new assignment or a
// reassignment. prev is nil on create.
func ShouldNotify(prev *Lead, next Lead) bool {
	if next.Status != StatusAppointmentGenerated || next.AppointTo == nil || next.AppointmentDate == nil {
		return false
	}
	if prev == nil {
		return true
	}
	alreadyAssigned := prev.Status == StatusAppointmentGenerated &&
		prev.AppointmentDate != nil &&
		prev.AppointTo != nil &&
		*prev.AppointTo == *next.AppointTo
	return !alreadyAssigned
}

// BuildNotification renders the assignment message for assignee.
func BuildNotification(assignee users.User, lead Lead) notify.Notification {
	return notify.AppointmentAssigned(assignee.ID, assignee.Name, lead.ID, lead.Name, *lead.AppointmentDate)
}

// AfterCommit fires the assignment notification when ShouldNotify holds.
// Delivery errors are logged and never returned.
func (r *Resolver) AfterCommit(ctx context.Context, prev *Lead, next Lead, assignee users.User) bool {
	if !ShouldNotify(prev, next) || assignee.ID != *next.AppointTo {
		return false
	}
	n := BuildNotification(assignee, next)
	err := r.notifier.Notify(ctx, n)
	if r.observer != nil {
		r.observer.Notification(n.Kind, err)
	}
	if err != nil {
		r.logger.Warn("appointment notification failed",
			slog.Int64("lead_id", next.ID),
			slog.Int64("bde_id", assignee.ID),
			slog.Any("error", err))
		return false
	}
	return true
}
