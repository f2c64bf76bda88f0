package rbac

import "github.com/leaddesk/leaddesk/internal/shared"

// Grant lists the permissions held by one designation.
type Grant struct {
	Designation shared.Designation `json:"designation"`
	Permissions []string           `json:"permissions"`
}

var commonLeadPermissions = []string{
	shared.PermLeadView,
	shared.PermLeadCreate,
	shared.PermLeadEdit,
	shared.PermLeadPropose,
	shared.PermLookupView,
	shared.PermTemplatesView,
}

// defaultGrants is the fixed designation to permission table.
var defaultGrants = map[shared.Designation][]string{
	shared.DesignationAdmin: append(append([]string{}, shared.LeadScopes()...), shared.CoreScopes()...),
	shared.DesignationTelecaller: append([]string{
		shared.PermUsersView,
	}, commonLeadPermissions...),
	shared.DesignationBDE: append([]string{
		shared.PermLeadVisit,
	}, commonLeadPermissions...),
	shared.DesignationDigitalMarketer: append([]string{}, commonLeadPermissions...),
}
