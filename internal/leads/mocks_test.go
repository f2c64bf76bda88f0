package leads

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/leaddesk/leaddesk/internal/masterdata"
	"github.com/leaddesk/leaddesk/internal/notify"
	"github.com/leaddesk/leaddesk/internal/shared"
	"github.com/leaddesk/leaddesk/internal/users"
)

type memRepository struct {
	mu      sync.Mutex
	leads   map[int64]Lead
	nextID  int64
	clock   time.Time
	listErr map[Relation]error
}

func newMemRepository() *memRepository {
	return &memRepository{
		leads:  map[int64]Lead{},
		nextID: 1,
		clock:  time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memRepository) List(_ context.Context, q Query) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr[q.Relation]; err != nil {
		return Page{}, err
	}
	bucketQuery := q
	bucketQuery.Status = ""
	var matched []Lead
	counts := map[Status]int{}
	for _, l := range m.leads {
		if bucketQuery.Matches(l) {
			counts[l.Status]++
		}
		if q.Matches(l) {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := len(matched)
	start := shared.Offset(q.Page, q.Limit)
	_, limit := shared.NormalizePage(q.Page, q.Limit)
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return Page{Leads: matched[start:end], TotalCount: total, StatusCount: counts}, nil
}

func (m *memRepository) Get(_ context.Context, id int64) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (m *memRepository) mobileTaken(mobile string, except int64) bool {
	for id, l := range m.leads {
		if id != except && l.Mobile == mobile {
			return true
		}
	}
	return false
}

func (m *memRepository) Create(_ context.Context, lead Lead) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mobileTaken(lead.Mobile, 0) {
		return Lead{}, ErrDuplicateMobile
	}
	lead.ID = m.nextID
	m.nextID++
	lead.CreatedAt = m.tick()
	lead.UpdatedAt = lead.CreatedAt
	m.leads[lead.ID] = lead
	return lead, nil
}

func (m *memRepository) Update(_ context.Context, lead Lead) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.leads[lead.ID]
	if !ok {
		return Lead{}, ErrNotFound
	}
	if m.mobileTaken(lead.Mobile, lead.ID) {
		return Lead{}, ErrDuplicateMobile
	}
	lead.CreatedAt = prev.CreatedAt
	lead.LeadBy = prev.LeadBy
	lead.CreatedBy = prev.CreatedBy
	lead.UpdatedAt = m.tick()
	m.leads[lead.ID] = lead
	return lead, nil
}

func (m *memRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[id]; !ok {
		return ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *memRepository) DueFollowUps(_ context.Context, from, to time.Time) ([]Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Lead
	for _, l := range m.leads {
		if l.FollowUpDate != nil && !l.FollowUpDate.Before(from) && l.FollowUpDate.Before(to) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeLookups struct {
	names map[masterdata.Kind]map[int64]string
}

func newFakeLookups() *fakeLookups {
	return &fakeLookups{names: map[masterdata.Kind]map[int64]string{
		masterdata.KindCity:     {1: "Pune", 2: "Mumbai"},
		masterdata.KindCategory: {1: "Retail", 2: "Clinic"},
		masterdata.KindSource:   {1: "Walk-in"},
	}}
}

func (f *fakeLookups) Names(_ context.Context, kind masterdata.Kind) (map[int64]string, error) {
	return f.names[kind], nil
}

func (f *fakeLookups) Exists(_ context.Context, kind masterdata.Kind, id int64) (bool, error) {
	_, ok := f.names[kind][id]
	return ok, nil
}

type fakeDirectory struct {
	users []users.User
}

func (f *fakeDirectory) ActiveBDEs(ctx context.Context) ([]users.User, error) {
	return f.ListUsers(ctx, users.ListFilter{Designation: shared.DesignationBDE, Status: users.StatusActive})
}

func (f *fakeDirectory) ListUsers(_ context.Context, filter users.ListFilter) ([]users.User, error) {
	var out []users.User
	for _, u := range f.users {
		if filter.Designation != "" && u.Designation != filter.Designation {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingAudit) actions() []string {
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

type fakeProposals struct {
	mobile   string
	template string
	err      error
}

func (f *fakeProposals) SendTemplate(_ context.Context, mobile, templateID string) error {
	if f.err != nil {
		return f.err
	}
	f.mobile, f.template = mobile, templateID
	return nil
}

var errStoreDown = errors.New("store down")
