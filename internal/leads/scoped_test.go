package leads

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaddesk/leaddesk/internal/shared"
)

type stubLister map[Relation]Page

func (s stubLister) List(_ context.Context, q Query) (Page, error) {
	return s[q.Relation], nil
}

func TestScopedQueryMergesByIDNewestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lead := func(id int64, offset time.Duration, status Status) Lead {
		return Lead{ID: id, CreatedAt: base.Add(offset), Status: status}
	}
	lister := stubLister{
		RelationLeadBy: {
			Leads:       []Lead{lead(3, 3*time.Hour, StatusFollowup), lead(1, time.Hour, StatusFreshData)},
			TotalCount:  25,
			StatusCount: map[Status]int{StatusFollowup: 4, StatusFreshData: 21},
		},
		RelationCreatedBy: {
			Leads:       []Lead{{ID: 3, Name: "dup"}, lead(2, time.Hour, StatusFreshData)},
			TotalCount:  7,
			StatusCount: map[Status]int{StatusFollowup: 6},
		},
		RelationByTagAppointment: {
			Leads:       []Lead{lead(4, 2*time.Hour, StatusAppointmentGenerated)},
			TotalCount:  1,
			StatusCount: map[Status]int{StatusAppointmentGenerated: 1},
		},
	}
	queries, err := Compose(Filters{}, Scope{UserID: 9, Designation: shared.DesignationTelecaller})
	require.NoError(t, err)

	batch, err := NewScopedQuery(lister).Run(context.Background(), queries)
	require.NoError(t, err)

	var ids []int64
	for _, l := range batch.Leads {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []int64{3, 4, 2, 1}, ids)
	assert.Empty(t, batch.Leads[0].Name, "first occurrence wins")
	assert.Equal(t, 25, batch.TotalCount)
	assert.Equal(t, 3, batch.TotalPages)
	assert.Equal(t, 6, batch.StatusCount[StatusFollowup])
	assert.Equal(t, 21, batch.StatusCount[StatusFreshData])
	assert.Equal(t, 1, batch.StatusCount[StatusAppointmentGenerated])
}

func TestScopedQueryFailsWholeBatch(t *testing.T) {
	repo := newMemRepository()
	repo.listErr = map[Relation]error{RelationByTagAppointment: errStoreDown}
	_, err := repo.Create(context.Background(), Lead{Mobile: "9876543210", Status: StatusFreshData, LeadBy: 9, CreatedBy: 9})
	require.NoError(t, err)

	queries, err := Compose(Filters{}, Scope{UserID: 9, Designation: shared.DesignationBDE})
	require.NoError(t, err)

	batch, err := NewScopedQuery(repo).Run(context.Background(), queries)
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, batch.Leads)
	assert.Contains(t, err.Error(), "byTagAppointment")
}

func TestScopedQueryEmpty(t *testing.T) {
	batch, err := NewScopedQuery(stubLister{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Leads)
	assert.NotNil(t, batch.StatusCount)
}
