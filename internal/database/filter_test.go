package database

import (
	"strings"
	"testing"
)

func TestBuildSelectionFilter(t *testing.T) {
	t.Run("empty selection produces no filter", func(t *testing.T) {
		clause, args := buildSelectionFilter(nil)
		if clause != "" {
			t.Errorf("clause = %q, want empty", clause)
		}
		if len(args) != 0 {
			t.Errorf("args = %v, want none", args)
		}
	})

	t.Run("one sub-condition per selected identifier", func(t *testing.T) {
		clause, args := buildSelectionFilter([]int64{3, 7, 11})

		if got := strings.Count(clause, "AND u.user_id IN"); got != 3 {
			t.Errorf("sub-condition count = %d, want 3", got)
		}
		if len(args) != 3 {
			t.Fatalf("args = %v, want 3 values", args)
		}
		for i, want := range []int64{3, 7, 11} {
			if args[i] != want {
				t.Errorf("args[%d] = %v, want %d", i, args[i], want)
			}
		}
	})

	t.Run("identifiers never appear in the SQL text", func(t *testing.T) {
		clause, _ := buildSelectionFilter([]int64{42})
		if strings.Contains(clause, "42") {
			t.Errorf("clause %q embeds the identifier, want a placeholder", clause)
		}
		if !strings.Contains(clause, "facet_value_id = ?") {
			t.Errorf("clause %q missing parameterized condition", clause)
		}
	})
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}

	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.want {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
