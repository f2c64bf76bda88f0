package leads

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/leaddesk/leaddesk/internal/shared"
)

// Lister runs one query against the lead store.
type Lister interface {
	List(ctx context.Context, q Query) (Page, error)
}

// Batch is the merged outcome of a scoped query.
type Batch struct {
	Leads       []Lead
	TotalCount  int
	TotalPages  int
	StatusCount map[Status]int
}

// ScopedQuery fans a set of queries out concurrently and merges the pages by id.
type ScopedQuery struct {
	lister Lister
}

// NewScopedQuery returns a ScopedQuery over lister.
func NewScopedQuery(lister Lister) ScopedQuery {
	return ScopedQuery{lister: lister}
}

// Run executes queries concurrently. Any failure fails the whole batch and no
// partial result is returned. Leads are deduplicated by id, keeping the first
// occurrence in query order, then ordered newest first.
func (s ScopedQuery) Run(ctx context.Context, queries []Query) (Batch, error) {
	if len(queries) == 0 {
		return Batch{StatusCount: map[Status]int{}}, nil
	}
	pages := make([]Page, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			page, err := s.lister.List(gctx, q)
			if err != nil {
				return fmt.Errorf("scoped query %d (%s): %w", i, relationLabel(q.Relation), err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}
	return merge(queries, pages), nil
}

func merge(queries []Query, pages []Page) Batch {
	out := Batch{StatusCount: map[Status]int{}}
	seen := make(map[int64]struct{})
	for i, page := range pages {
		for _, lead := range page.Leads {
			if _, dup := seen[lead.ID]; dup {
				continue
			}
			seen[lead.ID] = struct{}{}
			out.Leads = append(out.Leads, lead)
		}
		if page.TotalCount > out.TotalCount {
			out.TotalCount = page.TotalCount
		}
		if tp := shared.NewPagination(queries[i].Page, queries[i].Limit, page.TotalCount).TotalPages; tp > out.TotalPages {
			out.TotalPages = tp
		}
		for status, n := range page.StatusCount {
			if n > out.StatusCount[status] {
				out.StatusCount[status] = n
			}
		}
	}
	sort.SliceStable(out.Leads, func(i, j int) bool {
		a, b := out.Leads[i], out.Leads[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out
}

func relationLabel(r Relation) string {
	if r == RelationNone {
		return "all"
	}
	return string(r)
}
