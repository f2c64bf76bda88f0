package shared

import "strings"

// Designation is the role a user holds in the sales team.
type Designation string

const (
	DesignationAdmin           Designation = "Admin"
	DesignationTelecaller      Designation = "Telecaller"
	DesignationBDE             Designation = "BDE"
	DesignationDigitalMarketer Designation = "Digital Marketer"
)

// Valid reports whether d is a known designation.
func (d Designation) Valid() bool {
	switch d {
	case DesignationAdmin, DesignationTelecaller, DesignationBDE, DesignationDigitalMarketer:
		return true
	}
	return false
}

// ParseDesignation matches raw case-insensitively against the known designations.
func ParseDesignation(raw string) (Designation, bool) {
	raw = strings.TrimSpace(raw)
	for _, d := range Designations() {
		if strings.EqualFold(string(d), raw) {
			return d, true
		}
	}
	return "", false
}

// Designations lists every designation in display order.
func Designations() []Designation {
	return []Designation{DesignationAdmin, DesignationTelecaller, DesignationBDE, DesignationDigitalMarketer}
}

// Lead permissions.
const (
	PermLeadView      = "leads.view"
	PermLeadCreate    = "leads.create"
	PermLeadEdit      = "leads.edit"
	PermLeadDelete    = "leads.delete"
	PermLeadVisit     = "leads.visit"
	PermLeadPropose   = "leads.propose"
	PermLeadViewAll   = "leads.view_all"
	PermUsersView     = "users.view"
	PermUsersEdit     = "users.edit"
	PermLookupView    = "lookups.view"
	PermLookupEdit    = "lookups.edit"
	PermTemplatesView = "whatsapp.templates.view"
)

// LeadScopes lists the permissions related to lead handling.
func LeadScopes() []string {
	return []string{
		PermLeadView,
		PermLeadCreate,
		PermLeadEdit,
		PermLeadDelete,
		PermLeadVisit,
		PermLeadPropose,
		PermLeadViewAll,
	}
}

// CoreScopes lists user and lookup administration permissions.
func CoreScopes() []string {
	return []string{PermUsersView, PermUsersEdit, PermLookupView, PermLookupEdit, PermTemplatesView}
}
