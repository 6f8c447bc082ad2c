package listing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Count describes one derived count: rows of Model grouped by Column.
// Where/Args narrow the counted rows further (e.g. entity_type = 'record').
type Count struct {
	Name   string
	Model  any
	Column string
	Where  string
	Args   []any
}

// Counts holds derived counts by name, then by parent id.
type Counts map[string]map[uuid.UUID]int64

// Get returns the count for id, zero when the parent has no rows.
func (c Counts) Get(name string, id uuid.UUID) int64 {
	return c[name][id]
}

type parentCount struct {
	ParentID uuid.UUID
	Total    int64
}

// CountByParent runs a single grouped count for all ids.
func CountByParent(ctx context.Context, db *gorm.DB, c Count, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := db.WithContext(ctx).Model(c.Model).
		Select(c.Column+" AS parent_id, COUNT(*) AS total").
		Where(c.Column+" IN ?", ids)
	if c.Where != "" {
		q = q.Where(c.Where, c.Args...)
	}

	var rows []parentCount
	if err := q.Group(c.Column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ParentID] = row.Total
	}
	return out, nil
}

// Enrich runs every count concurrently, one query each for the whole page.
// The first failure aborts the rest.
func Enrich(ctx context.Context, db *gorm.DB, ids []uuid.UUID, counts ...Count) (Counts, error) {
	result := make(Counts, len(counts))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			byParent, err := CountByParent(ctx, db, c, ids)
			if err != nil {
				return err
			}
			mu.Lock()
			result[c.Name] = byParent
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
