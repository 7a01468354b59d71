package testutil

import (
	"context"

	"facets-go/internal/facet"
)

// StaticProvider returns a fixed batch of users on every Fetch, with the
// vocabulary derived the same way the real provider derives it.
type StaticProvider struct {
	Users []facet.User
	Err   error // returned instead of the batch when non-nil
}

func (p *StaticProvider) Fetch(_ context.Context) (*facet.Batch, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return &facet.Batch{
		Users:      p.Users,
		Vocabulary: facet.DeriveVocabulary(p.Users),
	}, nil
}

// ThreeUsers returns the canonical test population:
// (male, US), (female, US), (male, GB).
func ThreeUsers() []facet.User {
	return []facet.User{
		{ID: "user-1", Name: facet.Name{First: "Alan", Last: "Doe"}, Gender: "male", Nat: "US"},
		{ID: "user-2", Name: facet.Name{First: "Beth", Last: "Ray"}, Gender: "female", Nat: "US"},
		{ID: "user-3", Name: facet.Name{First: "Carl", Last: "Fox"}, Gender: "male", Nat: "GB"},
	}
}
