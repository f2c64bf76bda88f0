package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leaddesk/leaddesk/internal/masterdata"
	"github.com/leaddesk/leaddesk/internal/platform/validation"
	"github.com/leaddesk/leaddesk/internal/shared"
	"github.com/leaddesk/leaddesk/internal/users"
)

// ErrProposalFailed wraps messaging gateway failures.
var ErrProposalFailed = errors.New("leads: proposal could not be sent")

// LookupPort resolves and checks category, city and source ids.
type LookupPort interface {
	Names(ctx context.Context, kind masterdata.Kind) (map[int64]string, error)
	Exists(ctx context.Context, kind masterdata.Kind, id int64) (bool, error)
}

// UserPort lists users for display names.
type UserPort interface {
	ListUsers(ctx context.Context, filter users.ListFilter) ([]users.User, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ProposalSender delivers a WhatsApp template to a mobile number.
type ProposalSender interface {
	SendTemplate(ctx context.Context, mobile, templateID string) error
}

// MetricsPort records lead activity.
type MetricsPort interface {
	LeadEvent(action, status string)
	ObserveScopedQuery(designation string, d time.Duration)
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Metrics MetricsPort
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Service coordinates lead operations for a signed-in user.
type Service struct {
	repo      Repository
	scoped    ScopedQuery
	lookups   LookupPort
	people    UserPort
	resolver  *Resolver
	audit     AuditPort
	proposals ProposalSender
	validator *validation.Validator
	metrics   MetricsPort
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, lookups LookupPort, people UserPort, resolver *Resolver, audit AuditPort, proposals ProposalSender, validator *validation.Validator, cfg ServiceConfig) *Service {
	s := &Service{
		repo:      repo,
		scoped:    NewScopedQuery(repo),
		lookups:   lookups,
		people:    people,
		resolver:  resolver,
		audit:     audit,
		proposals: proposals,
		validator: validator,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Clock,
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type noopMetrics struct{}

func (noopMetrics) LeadEvent(string, string)                 {}
func (noopMetrics) ObserveScopedQuery(string, time.Duration) {}

// List runs the caller's scoped queries and assembles one page.
func (s *Service) List(ctx context.Context, profile shared.Profile, f Filters) (ListResult, error) {
	queries, err := Compose(f, ScopeFromProfile(profile))
	if err != nil {
		return ListResult{}, err
	}
	start := s.now()
	batch, err := s.scoped.Run(ctx, queries)
	s.metrics.ObserveScopedQuery(string(profile.Designation), s.now().Sub(start))
	if err != nil {
		return ListResult{}, fmt.Errorf("list leads: %w", err)
	}
	names, err := s.names(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return BuildListResult(batch, queries[0].Page, names, profile.Designation), nil
}

// Get returns one lead the caller may see.
func (s *Service) Get(ctx context.Context, profile shared.Profile, id int64) (LeadView, error) {
	lead, err := s.visible(ctx, profile, id)
	if err != nil {
		return LeadView{}, err
	}
	names, err := s.names(ctx)
	if err != nil {
		return LeadView{}, err
	}
	return NewLeadView(lead, names, profile.Designation), nil
}

// Summary returns the copy-to-clipboard text for a lead.
func (s *Service) Summary(ctx context.Context, profile shared.Profile, id int64) (string, error) {
	lead, err := s.visible(ctx, profile, id)
	if err != nil {
		return "", err
	}
	names, err := s.names(ctx)
	if err != nil {
		return "", err
	}
	return CopySummary(lead, names), nil
}

// Create stores a new lead authored by the caller.
func (s *Service) Create(ctx context.Context, profile shared.Profile, req LeadRequest) (Lead, error) {
	if profile.UserID == 0 {
		return Lead{}, shared.ErrUnauthorized
	}
	lead, err := s.prepare(ctx, profile, nil, req)
	if err != nil {
		return Lead{}, err
	}
	lead.LeadBy = profile.UserID
	lead.CreatedBy = profile.UserID

	assignee, err := s.assignee(ctx, nil, lead)
	if err != nil {
		return Lead{}, err
	}

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return Lead{}, mapStoreError(err)
	}
	s.record(ctx, profile, shared.AuditLeadCreated, created.ID, map[string]any{"status": created.Status})
	s.metrics.LeadEvent("create", string(created.Status))
	s.resolver.AfterCommit(ctx, nil, created, assignee)
	return created, nil
}

// Update applies an edit to a visible lead.
func (s *Service) Update(ctx context.Context, profile shared.Profile, id int64, req LeadRequest) (Lead, error) {
	prev, err := s.visible(ctx, profile, id)
	if err != nil {
		return Lead{}, err
	}
	lead, err := s.prepare(ctx, profile, &prev, req)
	if err != nil {
		return Lead{}, err
	}
	lead.ID = prev.ID
	lead.LeadBy = prev.LeadBy
	lead.CreatedBy = prev.CreatedBy
	if lead.Status == StatusVisited {
		lead.VisitResult = prev.VisitResult
	}
	lead.CreatedAt = prev.CreatedAt

	assignee, err := s.assignee(ctx, &prev, lead)
	if err != nil {
		return Lead{}, err
	}

	updated, err := s.repo.Update(ctx, lead)
	if err != nil {
		return Lead{}, mapStoreError(err)
	}
	if prev.Status != updated.Status {
		s.record(ctx, profile, shared.AuditLeadStatusChanged, updated.ID, map[string]any{
			"from": prev.Status,
			"to":   updated.Status,
		})
	}
	s.metrics.LeadEvent("update", string(updated.Status))
	s.resolver.AfterCommit(ctx, &prev, updated, assignee)
	return updated, nil
}

// MarkVisited records a BDE visit outcome.
func (s *Service) MarkVisited(ctx context.Context, profile shared.Profile, id int64, req VisitRequest) (Lead, error) {
	if profile.Designation != shared.DesignationBDE {
		return Lead{}, shared.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return Lead{}, err
	}
	in, err := req.parse()
	if err != nil {
		return Lead{}, err
	}
	prev, err := s.visible(ctx, profile, id)
	if err != nil {
		return Lead{}, err
	}
	next, err := ApplyVisit(prev, in, s.now())
	if err != nil {
		return Lead{}, err
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Lead{}, mapStoreError(err)
	}
	s.record(ctx, profile, shared.AuditLeadVisited, updated.ID, map[string]any{
		"from":   prev.Status,
		"reason": in.Reason,
	})
	s.metrics.LeadEvent("visit", string(in.Reason))
	return updated, nil
}

// Delete permanently removes a lead. Only admins may delete and confirm must be set.
func (s *Service) Delete(ctx context.Context, profile shared.Profile, id int64, confirm bool) error {
	if profile.Designation != shared.DesignationAdmin {
		return shared.ErrForbidden
	}
	if !confirm {
		return shared.ErrConfirmationRequired
	}
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, profile, shared.AuditLeadDeleted, id, map[string]any{
		"name":   lead.Name,
		"mobile": lead.Mobile,
		"status": lead.Status,
	})
	s.metrics.LeadEvent("delete", string(lead.Status))
	return nil
}

// SendProposal sends a WhatsApp template to the lead's mobile.
func (s *Service) SendProposal(ctx context.Context, profile shared.Profile, id int64, req ProposalRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	lead, err := s.visible(ctx, profile, id)
	if err != nil {
		return err
	}
	if s.proposals == nil {
		return fmt.Errorf("%w: messaging not configured", ErrProposalFailed)
	}
	if err := s.proposals.SendTemplate(ctx, lead.Mobile, req.TemplateID); err != nil {
		s.logger.Warn("send proposal", slog.Int64("lead_id", lead.ID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrProposalFailed, err)
	}
	s.metrics.LeadEvent("proposal", string(lead.Status))
	return nil
}

// prepare validates req against the lifecycle rule and lookup tables. prev is
// nil on create.
func (s *Service) prepare(ctx context.Context, profile shared.Profile, prev *Lead, req LeadRequest) (Lead, error) {
	errs := FieldErrors{}
	if err := s.validator.Struct(req); err != nil && !mergeFieldErrors(errs, err) {
		return Lead{}, err
	}
	lead, err := req.parse()
	if err != nil && !mergeFieldErrors(errs, err) {
		return Lead{}, err
	}
	if err := checkStatusChoice(prev, lead.Status); err != nil && !mergeFieldErrors(errs, err) {
		return Lead{}, err
	}
	if lead.Status == StatusAppointmentGenerated && lead.AppointTo == nil && profile.Designation == shared.DesignationBDE {
		self := profile.UserID
		lead.AppointTo = &self
	}
	fields, err := ApplyTransition(lead.Status, lead.fields())
	if err != nil {
		if !mergeFieldErrors(errs, err) {
			return Lead{}, err
		}
	} else {
		lead.setFields(fields)
	}
	if err := s.checkLookups(ctx, prev, lead, errs); err != nil {
		return Lead{}, err
	}
	if err := errs.Err(); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// assignee resolves the BDE named by appoint_to whenever the lead keeps one
// (Appointment Generated, or an edit that stays at Visited) and the assignment
// changes. An unchanged assignment at the same status is not re-checked.
func (s *Service) assignee(ctx context.Context, prev *Lead, next Lead) (users.User, error) {
	if next.AppointTo == nil || (next.Status != StatusAppointmentGenerated && next.Status != StatusVisited) {
		return users.User{}, nil
	}
	if prev != nil && prev.Status == next.Status && prev.AppointTo != nil && *prev.AppointTo == *next.AppointTo {
		return users.User{}, nil
	}
	return s.resolver.ResolveAssignee(ctx, *next.AppointTo)
}

func (s *Service) checkLookups(ctx context.Context, prev *Lead, lead Lead, errs FieldErrors) error {
	checks := []struct {
		kind  masterdata.Kind
		field string
		id    int64
		old   int64
	}{
		{masterdata.KindCity, "city_id", lead.CityID, 0},
		{masterdata.KindCategory, "category_id", lead.CategoryID, 0},
		{masterdata.KindSource, "source_id", lead.SourceID, 0},
	}
	if prev != nil {
		checks[0].old, checks[1].old, checks[2].old = prev.CityID, prev.CategoryID, prev.SourceID
	}
	for _, c := range checks {
		if c.id <= 0 || c.id == c.old {
			continue
		}
		ok, err := s.lookups.Exists(ctx, c.kind, c.id)
		if err != nil {
			return fmt.Errorf("check %s: %w", c.kind, err)
		}
		if !ok {
			errs.Add(c.field, fmt.Sprintf("Select a valid %s", c.kind))
		}
	}
	return nil
}

// visible loads a lead and hides it unless the caller's scope covers it.
func (s *Service) visible(ctx context.Context, profile shared.Profile, id int64) (Lead, error) {
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	queries, err := Compose(Filters{}, ScopeFromProfile(profile))
	if err != nil {
		return Lead{}, err
	}
	for _, q := range queries {
		if q.Matches(lead) {
			return lead, nil
		}
	}
	return Lead{}, ErrNotFound
}

func (s *Service) names(ctx context.Context) (Names, error) {
	var names Names
	g, gctx := errgroup.WithContext(ctx)
	load := func(kind masterdata.Kind, dst *map[int64]string) {
		g.Go(func() error {
			m, err := s.lookups.Names(gctx, kind)
			if err != nil {
				return fmt.Errorf("load %s names: %w", kind, err)
			}
			*dst = m
			return nil
		})
	}
	load(masterdata.KindCity, &names.Cities)
	load(masterdata.KindCategory, &names.Categories)
	load(masterdata.KindSource, &names.Sources)
	g.Go(func() error {
		list, err := s.people.ListUsers(gctx, users.ListFilter{Designation: shared.DesignationBDE})
		if err != nil {
			return fmt.Errorf("load user names: %w", err)
		}
		names.Users = make(map[int64]string, len(list))
		for _, u := range list {
			names.Users[u.ID] = u.Name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Names{}, err
	}
	return names, nil
}

func (s *Service) record(ctx context.Context, profile shared.Profile, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  profile.UserID,
		Action:   action,
		Entity:   "lead",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("lead audit failed", slog.String("action", action), slog.Int64("lead_id", id), slog.Any("error", err))
	}
}

func mapStoreError(err error) error {
	if errors.Is(err, ErrDuplicateMobile) {
		return FieldErrors{"mobile": duplicateMobileMessage}
	}
	return err
}

func mergeFieldErrors(dst FieldErrors, err error) bool {
	fe, ok := shared.AsFieldErrors(err)
	if !ok {
		return false
	}
	for k, v := range fe {
		dst.Add(k, v)
	}
	return true
}
