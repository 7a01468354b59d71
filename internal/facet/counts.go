package facet

import (
	"context"
	"fmt"
	"sync"
)

// WithCounts computes, for every value of every facet, how many users in
// the given population hold it. The count queries are independent
// read-only operations, so they are issued concurrently and joined once
// all complete. The returned structure parallels the input.
func WithCounts(ctx context.Context, counter ValueCounter, facets []Facet, userIDs []string) ([]FacetWithCounts, error) {
	result := make([]FacetWithCounts, len(facets))
	errs := make([][]error, len(facets))
	for i, f := range facets {
		result[i] = FacetWithCounts{
			Name:   f.Name,
			Values: make([]FacetValueCount, len(f.Values)),
		}
		errs[i] = make([]error, len(f.Values))
	}

	var wg sync.WaitGroup
	for i, f := range facets {
		for j, v := range f.Values {
			wg.Add(1)
			go func(i, j int, v FacetValue) {
				defer wg.Done()
				count, err := counter.CountUsersForValue(ctx, v.ID, userIDs)
				result[i].Values[j] = FacetValueCount{FacetValue: v, Count: count}
				errs[i][j] = err
			}(i, j, v)
		}
	}
	wg.Wait()

	for i := range errs {
		for j, err := range errs[i] {
			if err != nil {
				return nil, fmt.Errorf("counting users for value %d: %w", facets[i].Values[j].ID, err)
			}
		}
	}
	return result, nil
}
