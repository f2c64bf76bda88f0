package masterdata

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaddesk/leaddesk/internal/platform/cache"
	"github.com/leaddesk/leaddesk/internal/shared"
)

type memoryRepo struct {
	rows      map[Kind]map[int64]Lookup
	nextID    int64
	listCalls int
	inUse     map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[Kind]map[int64]Lookup{}, nextID: 1, inUse: map[int64]bool{}}
}

func (m *memoryRepo) List(_ context.Context, kind Kind) ([]Lookup, error) {
	m.listCalls++
	var out []Lookup
	for _, l := range m.rows[kind] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, kind Kind, id int64) (Lookup, error) {
	l, ok := m.rows[kind][id]
	if !ok {
		return Lookup{}, shared.ErrNotFound
	}
	return l, nil
}

func (m *memoryRepo) Create(_ context.Context, kind Kind, l Lookup) (Lookup, error) {
	if m.rows[kind] == nil {
		m.rows[kind] = map[int64]Lookup{}
	}
	for _, existing := range m.rows[kind] {
		if strings.EqualFold(existing.Name, l.Name) {
			return Lookup{}, ErrDuplicateName
		}
	}
	l.ID = m.nextID
	m.nextID++
	m.rows[kind][l.ID] = l
	return l, nil
}

func (m *memoryRepo) Update(_ context.Context, kind Kind, l Lookup) (Lookup, error) {
	m.rows[kind][l.ID] = l
	return l, nil
}

func (m *memoryRepo) Delete(_ context.Context, kind Kind, id int64) error {
	if m.inUse[id] {
		return ErrInUse
	}
	if _, ok := m.rows[kind][id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.rows[kind], id)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	return NewService(repo, cache.NewVersioned(client, "lookups", time.Minute), slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "New Delhi", NormalizeName("  new   delhi "))
	assert.Equal(t, "Interior Designers", NormalizeName("INTERIOR designers"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("cities")
	assert.True(t, ok)
	assert.Equal(t, KindCity, k)
	_, ok = ParseKind("warehouses")
	assert.False(t, ok)
}

func TestCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	city, err := svc.Create(ctx, KindCity, LookupRequest{Name: "pune"})
	require.NoError(t, err)
	assert.Equal(t, "Pune", city.Name)
	assert.True(t, city.IsActive)

	_, err = svc.Create(ctx, KindCity, LookupRequest{Name: "PUNE"})
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, "A city with this name already exists", fe["name"])
}

func TestListIsCachedAndBumpedOnWrite(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, KindCategory, LookupRequest{Name: "Gyms"})
	require.NoError(t, err)

	names, err := svc.Names(ctx, KindCategory)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "Gyms"}, names)
	_, err = svc.List(ctx, KindCategory)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	inactive := false
	_, err = svc.Update(ctx, KindCategory, 1, LookupRequest{Name: "gyms and spas", IsActive: &inactive})
	require.NoError(t, err)

	items, err := svc.List(ctx, KindCategory)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Gyms And Spas", items[0].Name)
	assert.Equal(t, 2, repo.listCalls)

	exists, err := svc.Exists(ctx, KindCategory, 1)
	require.NoError(t, err)
	assert.False(t, exists, "inactive lookups are not selectable")
}

func TestDeleteInUseIsConflict(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	src, err := svc.Create(ctx, KindSource, LookupRequest{Name: "Justdial"})
	require.NoError(t, err)
	repo.inUse[src.ID] = true

	err = svc.Delete(ctx, KindSource, src.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)

	repo.inUse[src.ID] = false
	require.NoError(t, svc.Delete(ctx, KindSource, src.ID))
	assert.ErrorIs(t, svc.Delete(ctx, KindSource, src.ID), shared.ErrNotFound)
}
