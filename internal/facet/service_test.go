package facet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"facets-go/internal/facet"
	"facets-go/internal/testutil"
)

// newTestService wires a Service over an in-memory store and a static
// three-user provider: (male, US), (female, US), (male, GB).
func newTestService(t *testing.T) *facet.Service {
	t.Helper()
	store := testutil.NewTestStore(t)
	provider := &testutil.StaticProvider{Users: testutil.ThreeUsers()}
	return facet.NewService(store, provider, facet.NewNopLogger(), testutil.FixedClock())
}

// initialized returns a Service with schema reset, taxonomy seeded, and
// the three-user batch ingested.
func initialized(t *testing.T) *facet.Service {
	t.Helper()
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	count, err := svc.Ingest(ctx)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("Ingest() count = %d, want 3", count)
	}
	return svc
}

// findValueID returns the identifier of the named value in the view's
// facet panel.
func findValueID(t *testing.T, view facet.View, facetName, valueName string) int64 {
	t.Helper()
	for _, f := range view.Facets {
		if f.Name != facetName {
			continue
		}
		for _, v := range f.Values {
			if v.Name == valueName {
				return v.ID
			}
		}
	}
	t.Fatalf("view has no value %s=%q", facetName, valueName)
	return 0
}

func countOf(t *testing.T, view facet.View, facetName, valueName string) int {
	t.Helper()
	for _, f := range view.Facets {
		if f.Name != facetName {
			continue
		}
		for _, v := range f.Values {
			if v.Name == valueName {
				return v.Count
			}
		}
	}
	t.Fatalf("view has no value %s=%q", facetName, valueName)
	return 0
}

func TestService_Query_Unfiltered(t *testing.T) {
	svc := initialized(t)

	view, err := svc.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(view.Users) != 3 {
		t.Fatalf("user count = %d, want 3", len(view.Users))
	}
	for _, u := range view.Users {
		if u.Gender == "" || u.Nat == "" {
			t.Errorf("user %s missing a facet value: %+v", u.ID, u)
		}
	}

	wantCounts := map[string]map[string]int{
		facet.FacetGender: {"male": 2, "female": 1},
		facet.FacetNat:    {"US": 2, "GB": 1},
	}
	for fname, values := range wantCounts {
		for vname, want := range values {
			if got := countOf(t, view, fname, vname); got != want {
				t.Errorf("count %s=%s = %d, want %d", fname, vname, got, want)
			}
		}
	}
}

func TestService_Query_FilteredByOneValue(t *testing.T) {
	svc := initialized(t)
	ctx := context.Background()

	initial, err := svc.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	maleID := findValueID(t, initial, facet.FacetGender, "male")

	view, err := svc.Query(ctx, []int64{maleID})
	if err != nil {
		t.Fatalf("Query(male) error = %v", err)
	}

	if len(view.Users) != 2 {
		t.Fatalf("filtered user count = %d, want 2", len(view.Users))
	}
	for _, u := range view.Users {
		if u.Gender != "male" {
			t.Errorf("filtered user %s has gender %q, want male", u.ID, u.Gender)
		}
	}

	// Counts are scoped to the filtered population; the facet panel still
	// lists every value, including those no filtered user holds.
	wantCounts := map[string]map[string]int{
		facet.FacetGender: {"male": 2, "female": 0},
		facet.FacetNat:    {"US": 1, "GB": 1},
	}
	for fname, values := range wantCounts {
		for vname, want := range values {
			if got := countOf(t, view, fname, vname); got != want {
				t.Errorf("count %s=%s = %d, want %d", fname, vname, got, want)
			}
		}
	}
}

func TestService_Query_IntersectionAcrossFacets(t *testing.T) {
	svc := initialized(t)
	ctx := context.Background()

	initial, err := svc.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	maleID := findValueID(t, initial, facet.FacetGender, "male")
	usID := findValueID(t, initial, facet.FacetNat, "US")

	view, err := svc.Query(ctx, []int64{maleID, usID})
	if err != nil {
		t.Fatalf("Query(male, US) error = %v", err)
	}

	if len(view.Users) != 1 {
		t.Fatalf("user count = %d, want 1", len(view.Users))
	}
	u := view.Users[0]
	if u.Gender != "male" || u.Nat != "US" {
		t.Errorf("user = %+v, want male/US", u)
	}
}

func TestService_Query_TwoValuesOfSameFacet(t *testing.T) {
	svc := initialized(t)
	ctx := context.Background()

	initial, err := svc.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	maleID := findValueID(t, initial, facet.FacetGender, "male")
	femaleID := findValueID(t, initial, facet.FacetGender, "female")

	view, err := svc.Query(ctx, []int64{maleID, femaleID})
	if err != nil {
		t.Fatalf("Query(male, female) error = %v", err)
	}
	if len(view.Users) != 0 {
		t.Errorf("user count = %d, want 0 (no user holds two genders)", len(view.Users))
	}
}

func TestService_Ingest_ProviderFailure(t *testing.T) {
	store := testutil.NewTestStore(t)
	provider := &testutil.StaticProvider{Err: errors.New("provider down")}
	svc := facet.NewService(store, provider, facet.NewNopLogger(), testutil.FixedClock())
	ctx := context.Background()

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	_, err := svc.Ingest(ctx)
	if !errors.Is(err, facet.ErrIngestion) {
		t.Fatalf("Ingest() error = %v, want ErrIngestion", err)
	}
}

// slowProvider moves the clock forward while fetching, so ingestion
// takes observable time.
type slowProvider struct {
	inner facet.Provider
	clock *testutil.StubClock
	d     time.Duration
}

func (p *slowProvider) Fetch(ctx context.Context) (*facet.Batch, error) {
	p.clock.Advance(p.d)
	return p.inner.Fetch(ctx)
}

// captureLogger records Info calls; everything else is discarded.
type captureLogger struct {
	facet.NopLogger
	mu   sync.Mutex
	msgs []string
	args [][]any
}

func (l *captureLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
	l.args = append(l.args, args)
}

func TestService_Ingest_LogsElapsed(t *testing.T) {
	store := testutil.NewTestStore(t)
	clock := testutil.FixedClock()
	provider := &slowProvider{
		inner: &testutil.StaticProvider{Users: testutil.ThreeUsers()},
		clock: clock,
		d:     250 * time.Millisecond,
	}
	logger := &captureLogger{}
	svc := facet.NewService(store, provider, logger, clock)
	ctx := context.Background()

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := svc.Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	var elapsed string
	for i, msg := range logger.msgs {
		if msg != "ingestion complete" {
			continue
		}
		args := logger.args[i]
		for j := 0; j+1 < len(args); j += 2 {
			if args[j] == "elapsed" {
				elapsed, _ = args[j+1].(string)
			}
		}
	}
	if elapsed != "250ms" {
		t.Errorf("logged elapsed = %q, want 250ms", elapsed)
	}
}

func TestService_Query_BeforeSchema(t *testing.T) {
	// Store without migrations applied: queries must surface ErrQuery.
	store := testutil.NewTestStore(t)
	svc := facet.NewService(store, &testutil.StaticProvider{}, facet.NewNopLogger(), testutil.FixedClock())

	// Drop the schema out from under the service.
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	_, err := svc.Query(context.Background(), nil)
	if !errors.Is(err, facet.ErrQuery) {
		t.Fatalf("Query() error = %v, want ErrQuery", err)
	}
}

func TestService_ReingestAfterReset(t *testing.T) {
	store := testutil.NewTestStore(t)
	provider := &testutil.StaticProvider{Users: testutil.ThreeUsers()}
	svc := facet.NewService(store, provider, facet.NewNopLogger(), testutil.FixedClock())
	ctx := context.Background()

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := svc.Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// Second session: different batch, full reset first.
	provider.Users = []facet.User{
		{ID: "user-9", Name: facet.Name{First: "Dana", Last: "Lee"}, Gender: "female", Nat: "FR"},
	}
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if _, err := svc.Ingest(ctx); err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}

	view, err := svc.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(view.Users) != 1 {
		t.Fatalf("user count = %d, want 1 (no residue of prior batch)", len(view.Users))
	}
	if view.Users[0].ID != "user-9" {
		t.Errorf("user = %s, want user-9", view.Users[0].ID)
	}
	for _, f := range view.Facets {
		for _, v := range f.Values {
			if v.Name == "male" || v.Name == "US" || v.Name == "GB" {
				t.Errorf("stale facet value %q survived reset", v.Name)
			}
		}
	}
}
