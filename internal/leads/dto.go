package leads

import (
	"strings"

	"github.com/leaddesk/leaddesk/internal/shared"
)

// LeadRequest is the create and edit payload.
type LeadRequest struct {
	Name            string `json:"name" validate:"required,max=150"`
	ContactPerson   string `json:"contact_person" validate:"omitempty,max=100"`
	Mobile          string `json:"mobile" validate:"required,mobile"`
	Remarks         string `json:"remarks" validate:"omitempty,max=1000"`
	CityID          int64  `json:"city_id" validate:"required,gt=0"`
	CategoryID      int64  `json:"category_id" validate:"required,gt=0"`
	SourceID        int64  `json:"source_id" validate:"required,gt=0"`
	Status          string `json:"status" validate:"required"`
	FollowUpDate    string `json:"follow_up_date" validate:"omitempty,date"`
	AppointmentDate string `json:"appointment_date" validate:"omitempty,date"`
	AppointTo       *int64 `json:"appoint_to"`
}

// parse converts the request into a lead body plus its lifecycle fields.
// The request has already passed tag validation.
// parse returns the lead together with any date format errors; unparsable
// dates are left unset.
func (r LeadRequest) parse() (Lead, error) {
	lead := Lead{
		Name:          strings.TrimSpace(r.Name),
		ContactPerson: strings.TrimSpace(r.ContactPerson),
		Mobile:        strings.TrimSpace(r.Mobile),
		Remarks:       strings.TrimSpace(r.Remarks),
		CityID:        r.CityID,
		CategoryID:    r.CategoryID,
		SourceID:      r.SourceID,
		Status:        Status(strings.TrimSpace(r.Status)),
	}
	errs := FieldErrors{}
	followUp, err := shared.ParseOptionalDate(r.FollowUpDate)
	if err != nil {
		errs.Add(string(FieldFollowUpDate), "Use the YYYY-MM-DD format")
	}
	appointment, err := shared.ParseOptionalDate(r.AppointmentDate)
	if err != nil {
		errs.Add(string(FieldAppointmentDate), "Use the YYYY-MM-DD format")
	}
	lead.FollowUpDate = followUp
	lead.AppointmentDate = appointment
	if r.AppointTo != nil && *r.AppointTo > 0 {
		id := *r.AppointTo
		lead.AppointTo = &id
	}
	return lead, errs.Err()
}

// VisitRequest is the mark-visited payload.
type VisitRequest struct {
	Reason         string `json:"reason"`
	FollowUpDate   string `json:"follow_up_date"`
	UpdateLocation string `json:"update_location" validate:"omitempty,max=255"`
}

func (r VisitRequest) parse() (VisitInput, error) {
	followUp, err := shared.ParseOptionalDate(r.FollowUpDate)
	if err != nil {
		return VisitInput{}, FieldErrors{string(FieldVisitFollowUpDate): "Use the YYYY-MM-DD format"}
	}
	return VisitInput{
		Reason:         Status(strings.TrimSpace(r.Reason)),
		FollowUpDate:   followUp,
		UpdateLocation: strings.TrimSpace(r.UpdateLocation),
	}, nil
}

// ProposalRequest picks the WhatsApp template sent to the lead.
type ProposalRequest struct {
	TemplateID string `json:"template_id" validate:"required"`
}
