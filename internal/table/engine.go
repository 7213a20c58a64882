// Package table is the client-side state-reconciliation core for one
// bridge game view. The reconciliation engine owns a locally materialized
// copy of the server's game state and keeps it consistent using the
// cheapest safe operation: incremental event application when the
// per-game counter is contiguous, a debounced full snapshot fetch when it
// is not.
package table

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/bridge"
	"bridgeclient/internal/events"
)

// SnapshotFetcher requests the complete current state of a game together
// with the counter it was captured at.
type SnapshotFetcher interface {
	FetchState(ctx context.Context, game uuid.UUID) (*bridge.Game, uint64, error)
}

// ActionClient submits player actions to the server.
type ActionClient interface {
	Call(ctx context.Context, game uuid.UUID, call bridge.Call) error
	Play(ctx context.Context, game uuid.UUID, card bridge.Card) error
}

// ErrorReporter is the fire-and-forget sink for transport failures.
type ErrorReporter interface {
	Report(err error)
}

// ResultNotifier is the fire-and-forget sink for completed deal results,
// the UI-toast equivalent.
type ResultNotifier interface {
	Notify(result bridge.DealResult)
}

// Resyncer schedules a full snapshot fetch for a game.
type Resyncer interface {
	Request(game uuid.UUID)
}

// Subscription is one game's event feed.
type Subscription interface {
	Events() <-chan events.Event
	Close() error
}

// EventFeed opens per-game event subscriptions.
type EventFeed interface {
	Subscribe(ctx context.Context, game uuid.UUID) (Subscription, error)
}

// EventFeedFunc adapts a function to the EventFeed interface.
type EventFeedFunc func(ctx context.Context, game uuid.UUID) (Subscription, error)

// Subscribe calls f.
func (f EventFeedFunc) Subscribe(ctx context.Context, game uuid.UUID) (Subscription, error) {
	return f(ctx, game)
}

// Engine reconciles the locally materialized state of one game with the
// server's notion of truth. All mutation is serialized behind the
// engine's mutex; consumers only ever receive deep copies.
type Engine struct {
	gameID   uuid.UUID
	resync   Resyncer
	notifier ResultNotifier

	mu      sync.Mutex
	synced  bool
	counter uint64
	state   *bridge.Game
	updates chan struct{}
}

// NewEngine creates an engine for one game. The state starts empty and
// unsynced; every event arriving before the first snapshot triggers a
// resync, since there is no baseline to apply increments to.
func NewEngine(gameID uuid.UUID, resync Resyncer, notifier ResultNotifier) *Engine {
	return &Engine{
		gameID:   gameID,
		resync:   resync,
		notifier: notifier,
		state:    &bridge.Game{ID: gameID},
		updates:  make(chan struct{}, 1),
	}
}

// GameID returns the game this engine reconciles.
func (e *Engine) GameID() uuid.UUID {
	return e.gameID
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() *bridge.Game {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Counter returns the last applied counter.
func (e *Engine) Counter() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counter
}

// Updates returns a coalesced change-notification channel: it carries one
// token whenever the state has changed since the consumer last read it.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

func (e *Engine) signal() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// OnSnapshot unconditionally replaces the local state with an
// authoritative snapshot. It is always safe regardless of what was
// applied before, so it needs no counter comparison.
func (e *Engine) OnSnapshot(state *bridge.Game, counter uint64) {
	e.mu.Lock()
	e.state = state.Clone()
	e.state.ID = e.gameID
	e.counter = counter
	e.synced = true
	e.signal()
	e.mu.Unlock()
	log.Debug().
		Str("game", e.gameID.String()).
		Uint64("counter", counter).
		Msg("snapshot applied")
}

// OnEvent consumes one event from the push channel.
//
// An event whose counter is at most the last applied one is a duplicate
// or stale delivery and is silently discarded, which makes the engine
// idempotent under redelivery. An event that continues the sequence is
// applied. Anything further ahead means deliveries were missed; the event
// is not applied and not buffered. A snapshot fetch is scheduled instead,
// since the snapshot supersedes anything that could have been buffered.
func (e *Engine) OnEvent(ev events.Event) {
	if ev.Game != e.gameID {
		return
	}

	var needResync bool
	var ended *bridge.DealResult

	e.mu.Lock()
	switch {
	case !e.synced:
		needResync = true
	case ev.Counter <= e.counter:
		// Duplicate or stale delivery.
	case ev.Counter > e.counter+1:
		log.Debug().
			Str("game", e.gameID.String()).
			Uint64("have", e.counter).
			Uint64("got", ev.Counter).
			Msg("event gap detected")
		needResync = true
	default:
		payload, err := ev.Payload()
		if err != nil {
			// An event we cannot decode still advanced the server
			// counter; only a snapshot can restore consistency.
			log.Warn().Err(err).Str("game", e.gameID.String()).Msg("undecodable event payload")
			needResync = true
			break
		}
		ended = e.apply(payload)
		e.counter = ev.Counter
		e.signal()
	}
	e.mu.Unlock()

	if needResync {
		e.resync.Request(e.gameID)
	}
	if ended != nil && e.notifier != nil {
		e.notifier.Notify(*ended)
	}
}
