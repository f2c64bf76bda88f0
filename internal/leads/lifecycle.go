package leads

import (
	"time"
)

// Field names the lifecycle-controlled fields by their JSON key.
type Field string

const (
	FieldFollowUpDate    Field = "follow_up_date"
	FieldAppointmentDate Field = "appointment_date"
	FieldAppointTo       Field = "appoint_to"

	FieldVisitReason       Field = "visit_result.reason"
	FieldVisitFollowUpDate Field = "visit_result.follow_up_date"
)

var requiredMessages = map[Field]string{
	FieldFollowUpDate:      "Follow-up date is required",
	FieldAppointmentDate:   "Appointment date is required",
	FieldAppointTo:         "Assign a BDE for the appointment",
	FieldVisitReason:       "Select a visit outcome",
	FieldVisitFollowUpDate: "Follow-up date is required",
}

// Rule lists the fields a status requires and the fields it clears.
type Rule struct {
	Required []Field
	Cleared  []Field
}

// Transition returns the rule for moving a lead into status. Visited has no
// field rule of its own; its requirements live on the visit sub-record.
func Transition(status Status) Rule {
	switch status {
	case StatusFollowup:
		return Rule{
			Required: []Field{FieldFollowUpDate},
			Cleared:  []Field{FieldAppointmentDate, FieldAppointTo},
		}
	case StatusAppointmentGenerated:
		return Rule{
			Required: []Field{FieldAppointmentDate, FieldAppointTo},
			Cleared:  []Field{FieldFollowUpDate},
		}
	case StatusVisited:
		return Rule{Required: []Field{FieldVisitReason}}
	default:
		return Rule{Cleared: []Field{FieldFollowUpDate, FieldAppointmentDate, FieldAppointTo}}
	}
}

// Fields is the status-dependent part of a lead.
type Fields struct {
	FollowUpDate    *time.Time
	AppointmentDate *time.Time
	AppointTo       *int64
}

func (f Fields) present(field Field) bool {
	switch field {
	case FieldFollowUpDate:
		return f.FollowUpDate != nil && !f.FollowUpDate.IsZero()
	case FieldAppointmentDate:
		return f.AppointmentDate != nil && !f.AppointmentDate.IsZero()
	case FieldAppointTo:
		return f.AppointTo != nil && *f.AppointTo > 0
	}
	return true
}

func (f *Fields) clear(field Field) {
	switch field {
	case FieldFollowUpDate:
		f.FollowUpDate = nil
	case FieldAppointmentDate:
		f.AppointmentDate = nil
	case FieldAppointTo:
		f.AppointTo = nil
	}
}

// ApplyTransition checks in against the rule for status. On success it returns a
// copy with the cleared fields nulled; on failure it returns FieldErrors with one
// message per missing field and leaves in untouched.
func ApplyTransition(status Status, in Fields) (Fields, error) {
	rule := Transition(status)
	if status == StatusVisited {
		return in, nil
	}
	errs := FieldErrors{}
	for _, field := range rule.Required {
		if !in.present(field) {
			errs.Add(string(field), requiredMessages[field])
		}
	}
	if err := errs.Err(); err != nil {
		return in, err
	}
	out := in
	for _, field := range rule.Cleared {
		out.clear(field)
	}
	return out, nil
}

// VisitInput is the outcome a BDE records for a visit.
type VisitInput struct {
	Reason         Status
	FollowUpDate   *time.Time
	UpdateLocation string
}

// ValidateVisit checks the Visited sub-flow requirements.
func ValidateVisit(in VisitInput) error {
	errs := FieldErrors{}
	switch {
	case in.Reason == "":
		errs.Add(string(FieldVisitReason), requiredMessages[FieldVisitReason])
	case !validVisitReason(in.Reason):
		errs.Add(string(FieldVisitReason), "Unknown visit outcome")
	case in.Reason == StatusFollowup && (in.FollowUpDate == nil || in.FollowUpDate.IsZero()):
		errs.Add(string(FieldVisitFollowUpDate), requiredMessages[FieldVisitFollowUpDate])
	}
	return errs.Err()
}

// ApplyVisit returns lead moved to Visited with the visit recorded at now. The
// lead's follow-up date follows the visit outcome and appointment fields are kept.
func ApplyVisit(lead Lead, in VisitInput, now time.Time) (Lead, error) {
	if err := ValidateVisit(in); err != nil {
		return lead, err
	}
	var followUp *time.Time
	if in.Reason == StatusFollowup {
		d := *in.FollowUpDate
		followUp = &d
	}
	out := lead
	out.Status = StatusVisited
	out.FollowUpDate = followUp
	out.VisitResult = &VisitResult{
		Reason:         in.Reason,
		FollowUpDate:   followUp,
		VisitTime:      now.UTC(),
		UpdateLocation: in.UpdateLocation,
	}
	return out, nil
}

// checkStatusChoice rejects Visited on create/edit unless the lead already is Visited.
func checkStatusChoice(prev *Lead, next Status) error {
	if !next.Valid() {
		return FieldErrors{"status": "Unknown status"}
	}
	if next == StatusVisited && (prev == nil || prev.Status != StatusVisited) {
		return FieldErrors{"status": "Use the mark visited action to set this status"}
	}
	return nil
}
