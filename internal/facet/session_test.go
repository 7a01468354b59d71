package facet_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"facets-go/internal/facet"
	"facets-go/internal/testutil"
)

func newStartedSession(t *testing.T) *facet.Session {
	t.Helper()
	session := facet.NewSession(newTestService(t))
	if _, err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return session
}

func TestSession_Start(t *testing.T) {
	t.Run("reaches Ready with the initial view", func(t *testing.T) {
		session := facet.NewSession(newTestService(t))

		if session.State() != facet.StateUninitialized {
			t.Fatalf("initial state = %s, want uninitialized", session.State())
		}

		view, err := session.Start(context.Background())
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		if session.State() != facet.StateReady {
			t.Errorf("state = %s, want ready", session.State())
		}
		if len(view.Users) != 3 {
			t.Errorf("user count = %d, want 3", len(view.Users))
		}
		if len(session.Selection()) != 0 {
			t.Errorf("selection = %v, want empty", session.Selection())
		}
	})

	t.Run("cannot start twice", func(t *testing.T) {
		session := newStartedSession(t)

		if _, err := session.Start(context.Background()); err == nil {
			t.Error("second Start() expected error, got nil")
		}
	})

	t.Run("provider failure moves to Errored", func(t *testing.T) {
		store := testutil.NewTestStore(t)
		provider := &testutil.StaticProvider{Err: errors.New("provider down")}
		svc := facet.NewService(store, provider, facet.NewNopLogger(), testutil.FixedClock())
		session := facet.NewSession(svc)

		_, err := session.Start(context.Background())
		if err == nil {
			t.Fatal("Start() expected error, got nil")
		}
		if session.State() != facet.StateErrored {
			t.Errorf("state = %s, want errored", session.State())
		}
		if !errors.Is(session.Err(), facet.ErrIngestion) {
			t.Errorf("Err() = %v, want ErrIngestion", session.Err())
		}
	})
}

func TestSession_Toggle(t *testing.T) {
	t.Run("adds then removes a selected value", func(t *testing.T) {
		session := newStartedSession(t)
		ctx := context.Background()
		maleID := findValueID(t, session.View(), facet.FacetGender, "male")

		view, err := session.Toggle(ctx, maleID)
		if err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
		if !reflect.DeepEqual(session.Selection(), []int64{maleID}) {
			t.Errorf("selection = %v, want [%d]", session.Selection(), maleID)
		}
		if len(view.Users) != 2 {
			t.Errorf("filtered user count = %d, want 2", len(view.Users))
		}

		view, err = session.Toggle(ctx, maleID)
		if err != nil {
			t.Fatalf("second Toggle() error = %v", err)
		}
		if len(session.Selection()) != 0 {
			t.Errorf("selection after double toggle = %v, want empty", session.Selection())
		}
		if len(view.Users) != 3 {
			t.Errorf("user count after double toggle = %d, want 3", len(view.Users))
		}
	})

	t.Run("double toggle restores the original view", func(t *testing.T) {
		session := newStartedSession(t)
		ctx := context.Background()
		original := session.View()
		maleID := findValueID(t, original, facet.FacetGender, "male")

		if _, err := session.Toggle(ctx, maleID); err != nil {
			t.Fatalf("Toggle() error = %v", err)
		}
		restored, err := session.Toggle(ctx, maleID)
		if err != nil {
			t.Fatalf("second Toggle() error = %v", err)
		}

		if !reflect.DeepEqual(restored, original) {
			t.Error("view after double toggle differs from the original view")
		}
	})

	t.Run("rejected before Start", func(t *testing.T) {
		session := facet.NewSession(newTestService(t))

		if _, err := session.Toggle(context.Background(), 1); err == nil {
			t.Error("Toggle() before Start expected error, got nil")
		}
	})
}

// gatedStore delays one armed ListUserRows call until released, letting
// tests hold a query cycle in flight while a newer one completes.
type gatedStore struct {
	facet.Store

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(inner facet.Store) *gatedStore {
	return &gatedStore{
		Store:   inner,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gatedStore) ListUserRows(ctx context.Context, selection []int64) ([]facet.UserRow, error) {
	g.mu.Lock()
	wait := g.armed
	g.armed = false
	g.mu.Unlock()
	if wait {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Store.ListUserRows(ctx, selection)
}

func TestSession_StaleQueryResponseDiscarded(t *testing.T) {
	store := newGatedStore(testutil.NewTestStore(t))
	provider := &testutil.StaticProvider{Users: testutil.ThreeUsers()}
	svc := facet.NewService(store, provider, facet.NewNopLogger(), testutil.FixedClock())
	session := facet.NewSession(svc)
	ctx := context.Background()

	initial, err := session.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	maleID := findValueID(t, initial, facet.FacetGender, "male")
	usID := findValueID(t, initial, facet.FacetNat, "US")

	// First toggle: its query blocks in the store until released.
	store.arm()
	firstDone := make(chan facet.View, 1)
	go func() {
		view, err := session.Toggle(ctx, maleID)
		if err != nil {
			t.Errorf("first Toggle() error = %v", err)
		}
		firstDone <- view
	}()
	<-store.entered

	// Second toggle supersedes the first while it is still in flight.
	newer, err := session.Toggle(ctx, usID)
	if err != nil {
		t.Fatalf("second Toggle() error = %v", err)
	}

	// Selection is {male, US}: only the male US user matches.
	if len(newer.Users) != 1 {
		t.Fatalf("user count = %d, want 1", len(newer.Users))
	}

	// Release the stale query. Its response must be discarded; the first
	// Toggle returns the newer view instead.
	close(store.release)
	stale := <-firstDone
	if !reflect.DeepEqual(stale, newer) {
		t.Error("superseded Toggle applied its stale view instead of keeping the newer one")
	}

	if session.State() != facet.StateReady {
		t.Errorf("state = %s, want ready", session.State())
	}
	if !reflect.DeepEqual(session.View(), newer) {
		t.Error("session view was overwritten by a stale response")
	}
}
