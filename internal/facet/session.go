package facet

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SessionState tracks where a session is in its lifecycle.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateSeeding
	StateIngesting
	StateReady
	StateQuerying
	StateErrored
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSeeding:
		return "seeding"
	case StateIngesting:
		return "ingesting"
	case StateReady:
		return "ready"
	case StateQuerying:
		return "querying"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Session owns the single view-model instance for one screen's lifetime:
// the current users, facets-with-counts, and facet-value selection. It
// sequences reset → seed → ingest on Start and re-runs a query cycle on
// every selection change.
//
// Lifecycle: Uninitialized → Seeding → Ingesting → Ready, with Ready
// re-entrant through Querying on each Toggle. A failure at any stage
// moves to Errored with the failure detail; there is no automatic retry.
//
// Rapid toggling can leave query responses in flight for a selection that
// is no longer current. Each cycle carries a generation tag; a response
// whose tag is no longer the latest is discarded rather than applied.
type Session struct {
	svc *Service

	mu         sync.Mutex
	state      SessionState
	selection  map[int64]bool
	generation uint64
	view       View
	err        error
}

// NewSession creates a Session in the Uninitialized state.
func NewSession(svc *Service) *Session {
	return &Session{
		svc:       svc,
		state:     StateUninitialized,
		selection: make(map[int64]bool),
	}
}

// Start runs the full initialization sequence and returns the initial
// unfiltered view. It may be called once per session.
func (s *Session) Start(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.state != StateUninitialized {
		state := s.state
		s.mu.Unlock()
		return View{}, fmt.Errorf("session already started (state %s)", state)
	}
	s.state = StateSeeding
	s.mu.Unlock()

	if err := s.svc.Initialize(ctx); err != nil {
		return View{}, s.fail(err)
	}

	s.setState(StateIngesting)
	if _, err := s.svc.Ingest(ctx); err != nil {
		return View{}, s.fail(err)
	}

	s.setState(StateQuerying)
	view, err := s.svc.Query(ctx, nil)
	if err != nil {
		return View{}, s.fail(err)
	}

	s.mu.Lock()
	s.view = view
	s.state = StateReady
	s.mu.Unlock()
	return view, nil
}

// Toggle adds valueID to the selection if absent, removes it if present,
// and runs a fresh query cycle with the updated selection. If another
// Toggle supersedes this one while its query is in flight, the stale
// result is discarded and the newer view is returned.
func (s *Session) Toggle(ctx context.Context, valueID int64) (View, error) {
	s.mu.Lock()
	if s.state != StateReady && s.state != StateQuerying {
		state := s.state
		s.mu.Unlock()
		return View{}, fmt.Errorf("session not ready for selection changes (state %s)", state)
	}
	if s.selection[valueID] {
		delete(s.selection, valueID)
	} else {
		s.selection[valueID] = true
	}
	s.generation++
	gen := s.generation
	selection := s.selectionLocked()
	s.state = StateQuerying
	s.mu.Unlock()

	view, err := s.svc.Query(ctx, selection)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// A newer Toggle superseded this cycle; keep whatever it applied.
		return s.view, nil
	}
	if err != nil {
		s.state = StateErrored
		s.err = err
		return View{}, err
	}
	s.view = view
	s.state = StateReady
	return view, nil
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure detail when the session is Errored, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// View returns the most recently applied view-model.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Selection returns the active facet-value identifiers in ascending order.
func (s *Session) Selection() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

func (s *Session) selectionLocked() []int64 {
	ids := make([]int64, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = StateErrored
	s.err = err
	s.mu.Unlock()
	return err
}
