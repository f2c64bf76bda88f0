// Package leads owns the lead record, its status lifecycle, role-scoped
// listing and the appointment assignment side effects.
package leads

import "time"

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusFreshData            Status = "Fresh Data"
	StatusAppointmentGenerated Status = "Appointment Generated"
	StatusFollowup             Status = "Followup"
	StatusNotInterested        Status = "Not Interested"
	StatusInvalidData          Status = "Invalid Data"
	StatusNotResponding        Status = "Not Responding"
	StatusDealClosed           Status = "Deal Closed"
	StatusVisited              Status = "Visited"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{
		StatusFreshData,
		StatusAppointmentGenerated,
		StatusFollowup,
		StatusNotInterested,
		StatusInvalidData,
		StatusNotResponding,
		StatusDealClosed,
		StatusVisited,
	}
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// VisitReasons lists the outcomes a BDE may record when marking a lead visited.
func VisitReasons() []Status {
	return []Status{StatusFollowup, StatusDealClosed, StatusNotInterested, StatusNotResponding, StatusInvalidData}
}

func validVisitReason(s Status) bool {
	for _, r := range VisitReasons() {
		if s == r {
			return true
		}
	}
	return false
}

// VisitResult is recorded by the mark-visited action.
type VisitResult struct {
	Reason         Status     `json:"reason"`
	FollowUpDate   *time.Time `json:"follow_up_date"`
	VisitTime      time.Time  `json:"visit_time"`
	UpdateLocation string     `json:"update_location,omitempty"`
}

// Lead is a business prospect.
type Lead struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	ContactPerson   string       `json:"contact_person"`
	Mobile          string       `json:"mobile"`
	Remarks         string       `json:"remarks"`
	CityID          int64        `json:"city_id"`
	CategoryID      int64        `json:"category_id"`
	SourceID        int64        `json:"source_id"`
	Status          Status       `json:"status"`
	FollowUpDate    *time.Time   `json:"follow_up_date"`
	AppointmentDate *time.Time   `json:"appointment_date"`
	AppointTo       *int64       `json:"appoint_to"`
	LeadBy          int64        `json:"lead_by"`
	CreatedBy       int64        `json:"created_by"`
	VisitResult     *VisitResult `json:"visit_result"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (l Lead) fields() Fields {
	return Fields{FollowUpDate: l.FollowUpDate, AppointmentDate: l.AppointmentDate, AppointTo: l.AppointTo}
}

func (l *Lead) setFields(f Fields) {
	l.FollowUpDate = f.FollowUpDate
	l.AppointmentDate = f.AppointmentDate
	l.AppointTo = f.AppointTo
}

// Page is one repository result for a single query.
type Page struct {
	Leads       []Lead
	TotalCount  int
	StatusCount map[Status]int
}
