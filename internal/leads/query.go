package leads

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leaddesk/leaddesk/internal/shared"
)

// Relation ties a scoped query to the acting user.
type Relation string

const (
	RelationNone             Relation = ""
	RelationLeadBy           Relation = "leadBy"
	RelationCreatedBy        Relation = "createdBy"
	RelationAppointTo        Relation = "appointTo"
	RelationByTagAppointment Relation = "byTagAppointment"
)

// Filters is what the list screen lets a user pick. From and To are calendar
// dates in whatever zone the client sent them; only their wall-clock date counts.
type Filters struct {
	From         *time.Time
	To           *time.Time
	Mobile       string
	BusinessName string
	CityID       int64
	CategoryID   int64
	Status       Status
	Page         int
	Limit        int
}

// Scope describes the acting user for query composition.
type Scope struct {
	UserID      int64
	Designation shared.Designation
	CityIDs     []int64
	CategoryIDs []int64
}

// ScopeFromProfile builds a Scope from the session profile.
func ScopeFromProfile(p shared.Profile) Scope {
	return Scope{UserID: p.UserID, Designation: p.Designation, CityIDs: p.CityIDs, CategoryIDs: p.CategoryIDs}
}

// Query is one outbound lead query.
type Query struct {
	Relation     Relation
	UserID       int64
	From         *time.Time
	To           *time.Time
	Mobile       string
	BusinessName string
	CityIDs      []int64
	CategoryIDs  []int64
	Status       Status
	Page         int
	Limit        int
}

// WallClockUTC keeps the wall-clock reading of t and relabels it as UTC.
func WallClockUTC(t time.Time) time.Time {
	return shared.WallClockUTC(t)
}

// StartOfDay returns UTC midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Compose turns filters into one or more queries for scope.
func Compose(f Filters, scope Scope) ([]Query, error) {
	base, err := baseQuery(f)
	if err != nil {
		return nil, err
	}
	if scope.Designation == shared.DesignationAdmin {
		return []Query{base}, nil
	}
	if scope.UserID == 0 {
		return nil, shared.ErrUnauthorized
	}
	if len(base.CityIDs) == 0 {
		base.CityIDs = copyIDs(scope.CityIDs)
	}
	if len(base.CategoryIDs) == 0 {
		base.CategoryIDs = copyIDs(scope.CategoryIDs)
	}

	var relations []Relation
	switch scope.Designation {
	case shared.DesignationTelecaller:
		relations = []Relation{RelationLeadBy, RelationCreatedBy, RelationByTagAppointment}
	case shared.DesignationBDE:
		relations = []Relation{RelationAppointTo, RelationCreatedBy, RelationByTagAppointment}
	case shared.DesignationDigitalMarketer:
		relations = []Relation{RelationCreatedBy}
	default:
		return nil, shared.ErrForbidden
	}
	queries := make([]Query, 0, len(relations))
	for _, rel := range relations {
		q := base
		q.Relation = rel
		q.UserID = scope.UserID
		q.CityIDs = copyIDs(base.CityIDs)
		q.CategoryIDs = copyIDs(base.CategoryIDs)
		queries = append(queries, q)
	}
	return queries, nil
}

func baseQuery(f Filters) (Query, error) {
	errs := FieldErrors{}
	if f.Status != "" && !f.Status.Valid() {
		errs.Add("status", "Unknown status")
	}
	q := Query{
		Mobile:       strings.TrimSpace(f.Mobile),
		BusinessName: strings.TrimSpace(f.BusinessName),
		Status:       f.Status,
	}
	q.Page, q.Limit = shared.NormalizePage(f.Page, f.Limit)
	if f.From != nil {
		from := StartOfDay(*f.From)
		q.From = &from
	}
	if f.To != nil {
		to := StartOfDay(*f.To).AddDate(0, 0, 1)
		q.To = &to
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		errs.Add("to", "End date must be on or after the start date")
	}
	if f.CityID > 0 {
		q.CityIDs = []int64{f.CityID}
	}
	if f.CategoryID > 0 {
		q.CategoryIDs = []int64{f.CategoryID}
	}
	if err := errs.Err(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Values renders q as query parameters, omitting unset filters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.From != nil {
		v.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if q.To != nil {
		v.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.Mobile != "" {
		v.Set("mobile", q.Mobile)
	}
	if q.BusinessName != "" {
		v.Set("name", q.BusinessName)
	}
	if len(q.CityIDs) > 0 {
		v.Set("city", joinIDs(q.CityIDs))
	}
	if len(q.CategoryIDs) > 0 {
		v.Set("category", joinIDs(q.CategoryIDs))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	switch q.Relation {
	case RelationLeadBy, RelationCreatedBy, RelationAppointTo:
		v.Set(string(q.Relation), strconv.FormatInt(q.UserID, 10))
	case RelationByTagAppointment:
		v.Set(string(q.Relation), "true")
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// Where renders the SQL predicate for q. Arguments are numbered from $1. The
// status filter is skipped when withStatus is false so bucket counts can span
// every status.
func (q Query) Where(withStatus bool) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	switch q.Relation {
	case RelationLeadBy:
		add("lead_by = $%d", q.UserID)
	case RelationCreatedBy:
		add("created_by = $%d", q.UserID)
	case RelationAppointTo:
		add("appoint_to = $%d", q.UserID)
	case RelationByTagAppointment:
		add("status = $%d", string(StatusAppointmentGenerated))
	}
	if q.From != nil {
		add("created_at >= $%d", *q.From)
	}
	if q.To != nil {
		add("created_at < $%d", *q.To)
	}
	if q.Mobile != "" {
		add("mobile LIKE $%d", "%"+escapeLike(q.Mobile)+"%")
	}
	if q.BusinessName != "" {
		add("name ILIKE $%d", "%"+escapeLike(q.BusinessName)+"%")
	}
	if len(q.CityIDs) > 0 {
		add("city_id = ANY($%d)", q.CityIDs)
	}
	if len(q.CategoryIDs) > 0 {
		add("category_id = ANY($%d)", q.CategoryIDs)
	}
	if withStatus && q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// Matches reports whether lead satisfies q, page bounds aside. It mirrors Where
// for in-memory checks.
func (q Query) Matches(l Lead) bool {
	switch q.Relation {
	case RelationLeadBy:
		if l.LeadBy != q.UserID {
			return false
		}
	case RelationCreatedBy:
		if l.CreatedBy != q.UserID {
			return false
		}
	case RelationAppointTo:
		if l.AppointTo == nil || *l.AppointTo != q.UserID {
			return false
		}
	case RelationByTagAppointment:
		if l.Status != StatusAppointmentGenerated {
			return false
		}
	}
	if q.From != nil && l.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && !l.CreatedAt.Before(*q.To) {
		return false
	}
	if q.Mobile != "" && !strings.Contains(l.Mobile, q.Mobile) {
		return false
	}
	if q.BusinessName != "" && !strings.Contains(strings.ToLower(l.Name), strings.ToLower(q.BusinessName)) {
		return false
	}
	if len(q.CityIDs) > 0 && !containsID(q.CityIDs, l.CityID) {
		return false
	}
	if len(q.CategoryIDs) > 0 && !containsID(q.CategoryIDs, l.CategoryID) {
		return false
	}
	if q.Status != "" && l.Status != q.Status {
		return false
	}
	return true
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func copyIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	return append([]int64(nil), ids...)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
