package facet

import "strings"

// ToUsers reshapes flat join rows into deduplicated User records.
// Rows are grouped by user identifier in order of first appearance; a
// group must contribute both a gender row and a nat row, otherwise it is
// dropped (no partial users). Pure: no I/O, deterministic for a given
// row order.
func ToUsers(rows []UserRow) []User {
	byUser := make(map[string][]UserRow)
	var order []string
	for _, r := range rows {
		if _, seen := byUser[r.UserID]; !seen {
			order = append(order, r.UserID)
		}
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	var users []User
	for _, id := range order {
		group := byUser[id]
		gender, okGender := findFacetRow(group, FacetGender)
		nat, okNat := findFacetRow(group, FacetNat)
		if !okGender || !okNat {
			continue
		}
		users = append(users, User{
			ID:     id,
			Name:   splitDisplayName(group[0].UserName),
			Gender: gender.FacetValue,
			Nat:    nat.FacetValue,
		})
	}
	return users
}

// ToFacets reshapes flat join rows into facets with their distinct
// values. Rows are grouped by facet name; within a group, values are
// deduplicated by facet-value identifier, preserving first appearance.
func ToFacets(rows []UserRow) []Facet {
	byFacet := make(map[string]*Facet)
	seen := make(map[string]map[int64]bool)
	var order []string
	for _, r := range rows {
		f, ok := byFacet[r.FacetName]
		if !ok {
			f = &Facet{Name: r.FacetName}
			byFacet[r.FacetName] = f
			seen[r.FacetName] = make(map[int64]bool)
			order = append(order, r.FacetName)
		}
		if seen[r.FacetName][r.FacetValueID] {
			continue
		}
		seen[r.FacetName][r.FacetValueID] = true
		f.Values = append(f.Values, FacetValue{ID: r.FacetValueID, Name: r.FacetValue})
	}

	facets := make([]Facet, 0, len(order))
	for _, name := range order {
		facets = append(facets, *byFacet[name])
	}
	return facets
}

func findFacetRow(rows []UserRow, facetName string) (UserRow, bool) {
	for _, r := range rows {
		if r.FacetName == facetName {
			return r, true
		}
	}
	return UserRow{}, false
}

// splitDisplayName splits a persisted display name back into first/last
// at the first space. A name without a space becomes first-only.
func splitDisplayName(s string) Name {
	first, last, found := strings.Cut(s, " ")
	if !found {
		return Name{First: s}
	}
	return Name{First: first, Last: last}
}
