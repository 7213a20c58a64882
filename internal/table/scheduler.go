package table

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/bridge"
)

// DefaultResyncDebounce is the quiet period resync requests are coalesced
// over. A gap usually manifests as several back-to-back events each
// individually ahead of the local counter; the window collapses them into
// one snapshot fetch at the cost of a small bounded delay.
const DefaultResyncDebounce = 200 * time.Millisecond

// SnapshotSink receives the result of a snapshot fetch.
type SnapshotSink interface {
	OnSnapshot(state *bridge.Game, counter uint64)
}

// ResyncScheduler coalesces bursts of resync triggers into single
// snapshot fetches, one game at a time. Each registered game has a
// cancel-and-reschedule single-shot timer; while a fetch is outstanding
// further requests only mark a single trailing fetch.
type ResyncScheduler struct {
	fetcher  SnapshotFetcher
	reporter ErrorReporter
	clock    clockwork.Clock
	window   time.Duration

	mu    sync.Mutex
	games map[uuid.UUID]*resyncState
}

type resyncState struct {
	sink   SnapshotSink
	ctx    context.Context
	cancel context.CancelFunc

	timer    clockwork.Timer
	stopWait chan struct{}
	gen      uint64
	inFlight bool
	trailing bool
}

// stopTimer stops the pending timer, if any, and releases the goroutine
// waiting on it.
func (st *resyncState) stopTimer() {
	if st.timer != nil {
		stopAndDrainTimer(st.timer)
		st.timer = nil
	}
	if st.stopWait != nil {
		close(st.stopWait)
		st.stopWait = nil
	}
}

// NewResyncScheduler creates a scheduler. A zero window falls back to
// DefaultResyncDebounce.
func NewResyncScheduler(fetcher SnapshotFetcher, reporter ErrorReporter, clock clockwork.Clock, window time.Duration) *ResyncScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultResyncDebounce
	}
	return &ResyncScheduler{
		fetcher:  fetcher,
		reporter: reporter,
		clock:    clock,
		window:   window,
		games:    make(map[uuid.UUID]*resyncState),
	}
}

// Register binds a game to the sink its snapshots are applied to.
// Fetches for the game are cancelable through ctx: once it is done, a
// late-arriving response is discarded instead of applied.
func (s *ResyncScheduler) Register(ctx context.Context, game uuid.UUID, sink SnapshotSink) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.games[game]; ok {
		old.teardown()
	}
	s.games[game] = &resyncState{sink: sink, ctx: ctx, cancel: cancel}
}

// Cancel stops any pending debounce timer for the game, discards the
// effect of any in-flight fetch and forgets the game.
func (s *ResyncScheduler) Cancel(game uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.games[game]; ok {
		st.teardown()
		delete(s.games, game)
	}
}

func (st *resyncState) teardown() {
	st.stopTimer()
	st.cancel()
}

// Request schedules a fetch after the quiet window. Repeated requests
// within the window reset the timer rather than queueing fetches.
// Requests for unregistered games are dropped.
func (s *ResyncScheduler) Request(game uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.games[game]
	if !ok {
		return
	}
	st.stopTimer()
	st.gen++
	gen := st.gen
	timer := s.clock.NewTimer(s.window)
	stop := make(chan struct{})
	st.timer = timer
	st.stopWait = stop
	done := st.ctx.Done()
	go func() {
		select {
		case <-timer.Chan():
			s.timerFired(game, gen)
		case <-stop:
		case <-done:
			stopAndDrainTimer(timer)
		}
	}()
	log.Debug().Str("game", game.String()).Dur("window", s.window).Msg("resync scheduled")
}

// RequestNow bypasses the debounce window, still honoring the
// one-fetch-in-flight rule. Used for the initial fetch on view open and
// for explicit manual refresh.
func (s *ResyncScheduler) RequestNow(game uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.games[game]
	if !ok {
		return
	}
	st.stopTimer()
	st.gen++
	s.startFetchLocked(game, st)
}

func (s *ResyncScheduler) timerFired(game uuid.UUID, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.games[game]
	if !ok || st.gen != gen {
		// Superseded by a later request or by teardown.
		return
	}
	st.timer = nil
	st.stopWait = nil
	s.startFetchLocked(game, st)
}

func (s *ResyncScheduler) startFetchLocked(game uuid.UUID, st *resyncState) {
	if st.inFlight {
		st.trailing = true
		return
	}
	st.inFlight = true
	go s.fetch(game, st)
}

func (s *ResyncScheduler) fetch(game uuid.UUID, st *resyncState) {
	state, counter, err := s.fetcher.FetchState(st.ctx, game)
	switch {
	case st.ctx.Err() != nil:
		// The view moved on; a late response must not touch new state.
		log.Debug().Str("game", game.String()).Msg("discarding snapshot fetch for closed view")
	case err != nil:
		// The counter stays where it was, so the next event re-detects
		// the gap and re-triggers the resync.
		if s.reporter != nil {
			s.reporter.Report(fmt.Errorf("snapshot fetch for game %s: %w", game, err))
		}
	default:
		st.sink.OnSnapshot(state, counter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The game may have been re-registered while this fetch ran; its
	// in-flight accounting belongs to the registration that started it.
	if s.games[game] != st {
		return
	}
	st.inFlight = false
	if st.trailing {
		st.trailing = false
		st.inFlight = true
		go s.fetch(game, st)
	}
}

// stopAndDrainTimer stops a timer and drains its channel so a fired value
// cannot leak to a waiter that already gave up on it.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
