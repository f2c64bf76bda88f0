// Package notify builds push notifications and delivers them to the push gateway.
package notify

import (
	"fmt"
	"strconv"
	"time"
)

// Display layouts for the India date and 12-hour clock convention.
const (
	DateLayout  = "02/01/2006"
	ClockLayout = "03:04 PM"
)

// Notification kinds.
const (
	KindAppointment = "appointment"
	KindFollowUp    = "followup"
)

// AppointmentTitle is the title of the assignment notification.
const AppointmentTitle = "New Appointment Assigned"

// FollowUpTitle is the title of the daily reminder.
const FollowUpTitle = "Follow-up Due Today"

// Notification is one push message addressed to a user.
type Notification struct {
	UserID int64             `json:"user_id"`
	Kind   string            `json:"kind"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// FormatDate renders the wall-clock date of t as dd/mm/yyyy. Stored timestamps
// already carry the display wall clock in UTC, so no zone conversion happens here.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatClock renders the wall-clock time of t as hh:mm AM/PM.
func FormatClock(t time.Time) string {
	return t.UTC().Format(ClockLayout)
}

// AppointmentAssigned builds the notification sent to a BDE on a new or changed assignment.
func AppointmentAssigned(bdeID int64, bdeName string, leadID int64, leadName string, at time.Time) Notification {
	return Notification{
		UserID: bdeID,
		Kind:   KindAppointment,
		Title:  AppointmentTitle,
		Body: fmt.Sprintf("Hi %s, you have an appointment with %s on %s at %s",
			bdeName, leadName, FormatDate(at), FormatClock(at)),
		Data: map[string]string{
			"lead_id":          strconv.FormatInt(leadID, 10),
			"appointment_date": at.UTC().Format(time.RFC3339),
		},
	}
}

// FollowUpReminder builds the daily reminder for one lead.
func FollowUpReminder(userID int64, userName string, leadID int64, leadName, mobile string, due time.Time) Notification {
	return Notification{
		UserID: userID,
		Kind:   KindFollowUp,
		Title:  FollowUpTitle,
		Body: fmt.Sprintf("Hi %s, follow up with %s (%s) today, %s",
			userName, leadName, mobile, FormatDate(due)),
		Data: map[string]string{
			"lead_id": strconv.FormatInt(leadID, 10),
		},
	}
}
