package facet

// The fixed facet taxonomy. Seeded once per session; never grown at runtime.
const (
	FacetGender = "gender"
	FacetNat    = "nat"
)

// FacetNames lists the seeded facets in display order.
var FacetNames = []string{FacetGender, FacetNat}

// Name is a user's display name split into its two components.
type Name struct {
	First string
	Last  string
}

// User is the domain view of one ingested user record.
// ID is the externally-stable string identifier assigned at fetch time;
// it never changes for the lifetime of the record.
type User struct {
	ID     string
	Name   Name
	Gender string
	Nat    string
}

// DisplayName returns the single-column form persisted in the store.
func (u User) DisplayName() string {
	if u.Name.Last == "" {
		return u.Name.First
	}
	return u.Name.First + " " + u.Name.Last
}

// FacetAssignment pairs a facet name with the value a user holds under it.
type FacetAssignment struct {
	Facet string
	Value string
}

// FacetAssignments returns the user's value for each seeded facet,
// in FacetNames order. Each user holds exactly one value per facet.
func (u User) FacetAssignments() []FacetAssignment {
	return []FacetAssignment{
		{Facet: FacetGender, Value: u.Gender},
		{Facet: FacetNat, Value: u.Nat},
	}
}

// FacetValue is one distinct value belonging to a facet, identified by
// its surrogate key in the store.
type FacetValue struct {
	ID   int64
	Name string
}

// Facet is a named categorical attribute together with its distinct
// observed values.
type Facet struct {
	Name   string
	Values []FacetValue
}

// FacetValueCount is a facet value carrying the number of users, within
// the active filter scope, that hold it.
type FacetValueCount struct {
	FacetValue
	Count int
}

// FacetWithCounts parallels Facet with a count per value.
type FacetWithCounts struct {
	Name   string
	Values []FacetValueCount
}

// UserRow is one flat join-result row: one per (user, facet) pair.
type UserRow struct {
	UserName     string
	UserID       string
	FacetName    string
	FacetValue   string
	FacetValueID int64
}

// FacetVocabulary is the distinct values observed for one facet across a
// batch, in order of first appearance.
type FacetVocabulary struct {
	Facet  string
	Values []string
}

// Batch is the output contract of a Provider: the fetched users plus the
// distinct facet-value vocabulary derived from them.
type Batch struct {
	Users      []User
	Vocabulary []FacetVocabulary
}

// View is the presentation-ready shape produced by one query cycle.
type View struct {
	Users  []User
	Facets []FacetWithCounts
}

// DeriveVocabulary computes, per seeded facet, the set of distinct values
// observed across the batch. Order of first appearance is preserved and
// duplicates are removed.
func DeriveVocabulary(users []User) []FacetVocabulary {
	vocab := make([]FacetVocabulary, 0, len(FacetNames))
	for _, name := range FacetNames {
		seen := make(map[string]bool)
		var values []string
		for _, u := range users {
			for _, a := range u.FacetAssignments() {
				if a.Facet != name || seen[a.Value] {
					continue
				}
				seen[a.Value] = true
				values = append(values, a.Value)
			}
		}
		vocab = append(vocab, FacetVocabulary{Facet: name, Values: values})
	}
	return vocab
}
