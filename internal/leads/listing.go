package leads

import (
	"fmt"
	"strings"

	"github.com/leaddesk/leaddesk/internal/notify"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// Action is something the caller may do with a listed lead.
type Action string

const (
	ActionView         Action = "view"
	ActionEdit         Action = "edit"
	ActionCopy         Action = "copy"
	ActionSendProposal Action = "send_proposal"
	ActionDelete       Action = "delete"
	ActionMarkVisited  Action = "mark_visited"
)

// ActionsFor returns the per-record actions for a designation.
func ActionsFor(d shared.Designation) []Action {
	actions := []Action{ActionView, ActionEdit, ActionCopy, ActionSendProposal}
	switch d {
	case shared.DesignationAdmin:
		actions = append(actions, ActionDelete)
	case shared.DesignationBDE:
		actions = append(actions, ActionMarkVisited)
	}
	return actions
}

// Names resolves lookup and user ids to display names.
type Names struct {
	Cities     map[int64]string
	Categories map[int64]string
	Sources    map[int64]string
	Users      map[int64]string
}

func nameOf(m map[int64]string, id int64) string {
	if name, ok := m[id]; ok {
		return name
	}
	return ""
}

// LeadView is a lead with display names and the caller's allowed actions.
type LeadView struct {
	Lead
	CityName      string   `json:"city_name"`
	CategoryName  string   `json:"category_name"`
	SourceName    string   `json:"source_name"`
	AppointToName string   `json:"appoint_to_name,omitempty"`
	Actions       []Action `json:"actions"`
}

// NewLeadView decorates lead for designation.
func NewLeadView(lead Lead, names Names, d shared.Designation) LeadView {
	view := LeadView{
		Lead:         lead,
		CityName:     nameOf(names.Cities, lead.CityID),
		CategoryName: nameOf(names.Categories, lead.CategoryID),
		SourceName:   nameOf(names.Sources, lead.SourceID),
		Actions:      ActionsFor(d),
	}
	if lead.AppointTo != nil {
		view.AppointToName = nameOf(names.Users, *lead.AppointTo)
	}
	return view
}

// ListResult is the list screen payload.
type ListResult struct {
	Leads        []LeadView     `json:"leads"`
	CurrentPage  int            `json:"currentPage"`
	TotalPages   int            `json:"totalPages"`
	TotalCount   int            `json:"totalCount"`
	StatusCount  map[Status]int `json:"statusCount"`
	EmptyMessage string         `json:"emptyMessage,omitempty"`
}

// BuildListResult assembles the payload for page of batch.
func BuildListResult(batch Batch, page int, names Names, d shared.Designation) ListResult {
	res := ListResult{
		Leads:       make([]LeadView, 0, len(batch.Leads)),
		CurrentPage: page,
		TotalPages:  batch.TotalPages,
		TotalCount:  batch.TotalCount,
		StatusCount: batch.StatusCount,
	}
	if res.StatusCount == nil {
		res.StatusCount = map[Status]int{}
	}
	for _, lead := range batch.Leads {
		res.Leads = append(res.Leads, NewLeadView(lead, names, d))
	}
	if len(res.Leads) == 0 {
		res.EmptyMessage = emptyMessage(page, batch.TotalPages)
	}
	return res
}

func emptyMessage(page, totalPages int) string {
	if totalPages > 0 && page > totalPages {
		return fmt.Sprintf("No leads on page %d. The last page is %d.", page, totalPages)
	}
	return "No leads found for the selected filters."
}

// CopySummary renders the plain-text summary copied to the clipboard.
func CopySummary(lead Lead, names Names) string {
	followUp := "-"
	if lead.FollowUpDate != nil {
		followUp = notify.FormatDate(*lead.FollowUpDate)
	}
	lines := []string{
		"Name: " + lead.Name,
		"Mobile: " + lead.Mobile,
		"City: " + orDash(nameOf(names.Cities, lead.CityID)),
		"Category: " + orDash(nameOf(names.Categories, lead.CategoryID)),
		"Status: " + string(lead.Status),
		"Follow-up Date: " + followUp,
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
