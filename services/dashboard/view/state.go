package view

import (
	"context"
	"sync"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/render"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("view")

// Snapshot is an immutable copy of the view state
type Snapshot struct {
	Token         uint64               `json:"token"`
	SettledToken  uint64               `json:"settledToken"`
	State         common.ViewState     `json:"state"`
	StatusVisible bool                 `json:"statusVisible"`
	StatusClass   string               `json:"statusClass"`
	Selection     common.Selection     `json:"selection"`
	Metrics       []string             `json:"metrics"`
	Series        *common.SeriesResult `json:"-"`
	Chart         render.ChartData     `json:"chart"`
	Table         render.Table         `json:"table"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Settled returns true if the request identified by token completed or was superseded by a newer one
func (s Snapshot) Settled(token uint64) bool {
	if s.Token > token {
		return true
	}

	return s.Token == token && s.SettledToken == token
}

// State is the view-state container. It has a single writer (the controller loop) and any number
// of readers. Chart, table and status are always changed inside the same critical section.
type State struct {
	mut       sync.RWMutex
	snapshot  Snapshot
	statusSeq uint64
	changed   chan struct{}
	loc       *time.Location
}

// NewState creates an idle view state. Timestamps are rendered in the provided location.
func NewState(loc *time.Location) *State {
	if loc == nil {
		loc = time.UTC
	}

	s := &State{
		changed: make(chan struct{}),
		loc:     loc,
	}
	s.snapshot = Snapshot{
		State:     common.NewIdleState(),
		Metrics:   make([]string, 0),
		Chart:     render.EmptyChart(),
		Table:     render.EmptyTable(),
		UpdatedAt: time.Now(),
	}

	return s
}

// Snapshot returns a copy of the current view state. Slices inside are never mutated in place.
func (s *State) Snapshot() Snapshot {
	s.mut.RLock()
	defer s.mut.RUnlock()

	return s.snapshot
}

// SetMetrics replaces the selectable metric set
func (s *State) SetMetrics(metrics []string) {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.snapshot.Metrics = append(make([]string, 0, len(metrics)), metrics...)
	s.notifyLocked()
}

// SetSelection replaces the selection shown by the selectors
func (s *State) SetSelection(selection common.Selection) {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.snapshot.Selection = selection
	s.notifyLocked()
}

// BeginRequest records the newly issued token and transitions to Loading. The previous
// series stays visible until the completion of this request replaces or clears it.
func (s *State) BeginRequest(token uint64, selection common.Selection) uint64 {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.snapshot.Token = token
	s.snapshot.Selection = selection

	return s.setStatusLocked(common.NewLoadingState())
}

// ApplySeries applies the completion of request token. A non-empty series replaces the held one
// and both views; an empty series clears both views and transitions to Empty with the provided
// description. Completions of any other token than the latest issued one are dropped.
func (s *State) ApplySeries(token uint64, series *common.SeriesResult, emptyDescription string) (uint64, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if !s.isLatestLocked(token) {
		return 0, false
	}

	s.snapshot.SettledToken = token
	if series == nil || len(series.Points) == 0 {
		s.clearViewsLocked()
		return s.setStatusLocked(common.NewEmptyState(emptyDescription)), true
	}

	s.snapshot.Series = series
	s.snapshot.Chart = render.BuildChart(series, s.loc)
	s.snapshot.Table = render.BuildTable(series, s.loc)

	return s.setStatusLocked(common.NewSuccessState(len(series.Points))), true
}

// ApplyFailure applies a failed completion of request token: both views are cleared together
// and the provided state (Error) is shown. Stale tokens are dropped.
func (s *State) ApplyFailure(token uint64, state common.ViewState) (uint64, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if !s.isLatestLocked(token) {
		return 0, false
	}

	s.snapshot.SettledToken = token
	s.clearViewsLocked()

	return s.setStatusLocked(state), true
}

// ShowStatus shows a state that does not belong to a request (catalog outcomes) and clears the views
func (s *State) ShowStatus(state common.ViewState) uint64 {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.clearViewsLocked()

	return s.setStatusLocked(state)
}

// HideStatus hides the status indicator if it still shows the status identified by seq
func (s *State) HideStatus(seq uint64) bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	if seq != s.statusSeq || !s.snapshot.StatusVisible {
		return false
	}

	s.snapshot.StatusVisible = false
	s.notifyLocked()

	return true
}

// Wait blocks until the request token settled, or until the context is done
func (s *State) Wait(ctx context.Context, token uint64) (Snapshot, error) {
	for {
		s.mut.RLock()
		snapshot := s.snapshot
		changed := s.changed
		s.mut.RUnlock()

		if snapshot.Settled(token) {
			return snapshot, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return snapshot, ctx.Err()
		}
	}
}

func (s *State) isLatestLocked(token uint64) bool {
	if token == s.snapshot.Token {
		return true
	}

	log.Debug("dropping stale completion", "token", token, "latest", s.snapshot.Token)
	return false
}

func (s *State) clearViewsLocked() {
	s.snapshot.Series = nil
	s.snapshot.Chart = render.EmptyChart()
	s.snapshot.Table = render.EmptyTable()
}

func (s *State) setStatusLocked(state common.ViewState) uint64 {
	s.statusSeq++
	s.snapshot.State = state
	s.snapshot.StatusVisible = state.Kind != common.Idle
	s.snapshot.StatusClass = state.StatusClass()
	s.notifyLocked()

	return s.statusSeq
}

func (s *State) notifyLocked() {
	s.snapshot.UpdatedAt = time.Now()
	close(s.changed)
	s.changed = make(chan struct{})
}
