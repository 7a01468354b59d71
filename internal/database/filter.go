package database

import "strings"

// Selection filtering lowers a set of selected facet-value identifiers
// into parameterized sub-conditions appended to the user join. Each
// selected identifier becomes an independent membership condition, so a
// matching user must hold every selected value (AND across values).
// Selecting two values of the same facet therefore yields the empty set.

// buildSelectionFilter returns the SQL fragment and its arguments for the
// given selection. An empty selection produces an empty fragment.
func buildSelectionFilter(selection []int64) (string, []any) {
	if len(selection) == 0 {
		return "", nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(selection))
	for _, id := range selection {
		sb.WriteString(" AND u.user_id IN (SELECT user_id FROM user_facets WHERE facet_value_id = ?)")
		args = append(args, id)
	}
	return sb.String(), args
}

// placeholders returns n comma-separated SQL placeholders: "?, ?, ?".
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
