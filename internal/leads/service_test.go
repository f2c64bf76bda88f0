package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaddesk/leaddesk/internal/platform/validation"
	"github.com/leaddesk/leaddesk/internal/shared"
)

type serviceFixture struct {
	svc       *Service
	repo      *memRepository
	notifier  *recordingNotifier
	audit     *recordingAudit
	proposals *fakeProposals
	now       time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:      newMemRepository(),
		notifier:  &recordingNotifier{},
		audit:     &recordingAudit{},
		proposals: &fakeProposals{},
		now:       time.Date(2025, 3, 2, 11, 45, 0, 0, time.UTC),
	}
	dir := testDirectory()
	resolver := NewResolver(dir, f.notifier, nil, discardLogger())
	f.svc = NewService(f.repo, newFakeLookups(), dir, resolver, f.audit, f.proposals, validation.New(), ServiceConfig{
		Logger: discardLogger(),
		Clock:  func() time.Time { return f.now },
	})
	return f
}

var (
	admin      = shared.Profile{UserID: 1, Name: "Asha", Designation: shared.DesignationAdmin}
	bde        = shared.Profile{UserID: 7, Name: "Ravi", Designation: shared.DesignationBDE}
	telecaller = shared.Profile{UserID: 9, Name: "Tara", Designation: shared.DesignationTelecaller, CityIDs: []int64{1}}
)

func freshRequest() LeadRequest {
	return LeadRequest{
		Name:       "Acme Traders",
		Mobile:     "9876543210",
		CityID:     1,
		CategoryID: 1,
		SourceID:   1,
		Status:     string(StatusFreshData),
	}
}

func TestScenarioLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	// A: fresh lead persists with no dates or assignee.
	created, err := f.svc.Create(ctx, admin, freshRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusFreshData, created.Status)
	assert.Nil(t, created.FollowUpDate)
	assert.Nil(t, created.AppointmentDate)
	assert.Nil(t, created.AppointTo)
	assert.Equal(t, admin.UserID, created.LeadBy)

	// B: assigning an appointment notifies the BDE and nulls the follow-up date.
	req := freshRequest()
	req.Status = string(StatusAppointmentGenerated)
	req.AppointTo = ptrID(7)
	req.AppointmentDate = "2025-03-01T10:00:00Z"
	req.FollowUpDate = "2025-02-20"
	updated, err := f.svc.Update(ctx, admin, created.ID, req)
	require.NoError(t, err)
	assert.Nil(t, updated.FollowUpDate)
	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, int64(7), n.UserID)
	assert.Equal(t, "New Appointment Assigned", n.Title)
	assert.Contains(t, n.Body, "01/03/2025")
	assert.Contains(t, n.Body, "10:00 AM")

	// C: same status and assignee again does not notify twice.
	req.Remarks = "called again"
	_, err = f.svc.Update(ctx, admin, created.ID, req)
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)

	// D: duplicate mobile is a field error and nothing new is stored.
	dup := freshRequest()
	dup.Name = "Other"
	_, err = f.svc.Create(ctx, admin, dup)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Mobile number already exists", fe["mobile"])
	assert.Len(t, f.repo.leads, 1)

	// E: the BDE marks the visit with a follow-up.
	visited, err := f.svc.MarkVisited(ctx, bde, created.ID, VisitRequest{Reason: "Followup", FollowUpDate: "2025-03-09"})
	require.NoError(t, err)
	assert.Equal(t, StatusVisited, visited.Status)
	require.NotNil(t, visited.VisitResult)
	assert.Equal(t, StatusFollowup, visited.VisitResult.Reason)
	assert.Equal(t, f.now, visited.VisitResult.VisitTime)
	require.NotNil(t, visited.FollowUpDate)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), *visited.FollowUpDate)

	assert.Equal(t, []string{shared.AuditLeadCreated, shared.AuditLeadStatusChanged, shared.AuditLeadVisited}, f.audit.actions())
}

func TestCreateValidationNeverReachesStore(t *testing.T) {
	f := newServiceFixture(t)
	req := freshRequest()
	req.Status = string(StatusFollowup)
	req.Mobile = "12345"

	_, err := f.svc.Create(context.Background(), admin, req)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe, "mobile")
	assert.Equal(t, "Follow-up date is required", fe["follow_up_date"], "tag and lifecycle errors are reported together")
	assert.Empty(t, f.repo.leads)

	req.Mobile = "9876543210"
	_, err = f.svc.Create(context.Background(), admin, req)
	fe, ok = shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Follow-up date is required", fe["follow_up_date"])
	assert.Empty(t, f.repo.leads)
}

func TestCreateRejectsVisitedAndUnknownLookups(t *testing.T) {
	f := newServiceFixture(t)
	req := freshRequest()
	req.Status = string(StatusVisited)
	_, err := f.svc.Create(context.Background(), admin, req)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe, "status")

	req = freshRequest()
	req.CityID = 42
	_, err = f.svc.Create(context.Background(), admin, req)
	fe, ok = shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Select a valid city", fe["city_id"])
}

func TestCreateRejectsDeactivatedBDE(t *testing.T) {
	f := newServiceFixture(t)
	req := freshRequest()
	req.Status = string(StatusAppointmentGenerated)
	req.AppointmentDate = "2025-03-01"
	req.AppointTo = ptrID(8)

	_, err := f.svc.Create(context.Background(), admin, req)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Select an active BDE", fe["appoint_to"])
	assert.Empty(t, f.notifier.sent)
}

func TestBDECreatingAppointmentDefaultsToSelf(t *testing.T) {
	f := newServiceFixture(t)
	req := freshRequest()
	req.Status = string(StatusAppointmentGenerated)
	req.AppointmentDate = "2025-03-01T15:30"

	lead, err := f.svc.Create(context.Background(), bde, req)
	require.NoError(t, err)
	require.NotNil(t, lead.AppointTo)
	assert.Equal(t, bde.UserID, *lead.AppointTo)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].Body, "03:30 PM")
}

func TestNotificationFailureKeepsMutation(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.err = errors.New("queue down")
	req := freshRequest()
	req.Status = string(StatusAppointmentGenerated)
	req.AppointmentDate = "2025-03-01"
	req.AppointTo = ptrID(7)

	lead, err := f.svc.Create(context.Background(), admin, req)
	require.NoError(t, err)
	assert.Contains(t, f.repo.leads, lead.ID)
}

func TestVisibilityFollowsScope(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	lead, err := f.svc.Create(ctx, admin, freshRequest())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, telecaller, lead.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	req := freshRequest()
	req.Mobile = "9123456780"
	own, err := f.svc.Create(ctx, telecaller, req)
	require.NoError(t, err)
	view, err := f.svc.Get(ctx, telecaller, own.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pune", view.CityName)
	assert.NotContains(t, view.Actions, ActionDelete)

	res, err := f.svc.List(ctx, telecaller, Filters{})
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, own.ID, res.Leads[0].ID)

	res, err = f.svc.List(ctx, admin, Filters{})
	require.NoError(t, err)
	assert.Len(t, res.Leads, 2)
	assert.Equal(t, 2, res.StatusCount[StatusFreshData])
}

func TestMarkVisitedIsBDEOnly(t *testing.T) {
	f := newServiceFixture(t)
	lead, err := f.svc.Create(context.Background(), admin, freshRequest())
	require.NoError(t, err)

	_, err = f.svc.MarkVisited(context.Background(), admin, lead.ID, VisitRequest{Reason: "Deal Closed"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteRequiresAdminAndConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	lead, err := f.svc.Create(ctx, admin, freshRequest())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, telecaller, lead.ID, true), shared.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, lead.ID, false), shared.ErrConfirmationRequired)
	require.NoError(t, f.svc.Delete(ctx, admin, lead.ID, true))
	assert.Empty(t, f.repo.leads)
	assert.Equal(t, shared.AuditLeadDeleted, f.audit.logs[len(f.audit.logs)-1].Action)
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, lead.ID, true), shared.ErrNotFound)
}

func TestSendProposal(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	lead, err := f.svc.Create(ctx, admin, freshRequest())
	require.NoError(t, err)

	require.NoError(t, f.svc.SendProposal(ctx, admin, lead.ID, ProposalRequest{TemplateID: "intro"}))
	assert.Equal(t, "9876543210", f.proposals.mobile)
	assert.Equal(t, "intro", f.proposals.template)

	f.proposals.err = errors.New("gateway down")
	err = f.svc.SendProposal(ctx, admin, lead.ID, ProposalRequest{TemplateID: "intro"})
	assert.ErrorIs(t, err, ErrProposalFailed)
}

func TestSummary(t *testing.T) {
	f := newServiceFixture(t)
	lead, err := f.svc.Create(context.Background(), admin, freshRequest())
	require.NoError(t, err)

	text, err := f.svc.Summary(context.Background(), admin, lead.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "City: Pune")
	assert.Contains(t, text, "Category: Retail")
}

func TestCreateReportsEveryFieldError(t *testing.T) {
	f := newServiceFixture(t)
	req := freshRequest()
	req.Name = ""
	req.Status = string(StatusAppointmentGenerated)
	req.FollowUpDate = "next week"

	_, err := f.svc.Create(context.Background(), admin, req)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "follow_up_date")
	assert.Contains(t, fe, "appointment_date")
	assert.Contains(t, fe, "appoint_to")
	assert.Empty(t, f.repo.leads)
}

func TestEditAfterVisit(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	created, err := f.svc.Create(ctx, admin, freshRequest())
	require.NoError(t, err)

	req := freshRequest()
	req.Status = string(StatusAppointmentGenerated)
	req.AppointTo = ptrID(7)
	req.AppointmentDate = "2025-03-01T10:00"
	_, err = f.svc.Update(ctx, admin, created.ID, req)
	require.NoError(t, err)
	_, err = f.svc.MarkVisited(ctx, bde, created.ID, VisitRequest{Reason: "Deal Closed"})
	require.NoError(t, err)

	// Staying at Visited with a new assignee still requires an active BDE.
	req.Status = string(StatusVisited)
	req.AppointTo = ptrID(8)
	_, err = f.svc.Update(ctx, admin, created.ID, req)
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Select an active BDE", fe["appoint_to"])

	req.AppointTo = ptrID(7)
	kept, err := f.svc.Update(ctx, admin, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, StatusVisited, kept.Status)
	require.NotNil(t, kept.VisitResult)
	assert.Equal(t, StatusDealClosed, kept.VisitResult.Reason)

	// Leaving Visited drops the visit outcome with it.
	req = freshRequest()
	req.Status = string(StatusNotResponding)
	moved, err := f.svc.Update(ctx, admin, created.ID, req)
	require.NoError(t, err)
	assert.Nil(t, moved.VisitResult)
	stored, err := f.repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.VisitResult)
	assert.Len(t, f.notifier.sent, 1)
}
