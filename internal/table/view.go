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

// ViewConfig wires a View to its collaborators.
type ViewConfig struct {
	Fetcher  SnapshotFetcher
	Actions  ActionClient
	Feed     EventFeed
	Reporter ErrorReporter
	Notifier ResultNotifier

	// Clock and ResyncDebounce tune the resync scheduler; zero values
	// select the real clock and DefaultResyncDebounce.
	Clock          clockwork.Clock
	ResyncDebounce time.Duration
}

// View ties one open game to its subscription, reconciliation engine and
// resync scheduling. Opening a different game tears the previous one down
// first: the old subscription is closed and late snapshot responses are
// discarded, so they can never be applied to the new game's state.
type View struct {
	feed      EventFeed
	scheduler *ResyncScheduler
	submitter *Submitter
	notifier  ResultNotifier

	mu     sync.Mutex
	open   bool
	gameID uuid.UUID
	engine *Engine
	sub    Subscription
	cancel context.CancelFunc
}

// NewView creates a closed view.
func NewView(config ViewConfig) *View {
	scheduler := NewResyncScheduler(config.Fetcher, config.Reporter, config.Clock, config.ResyncDebounce)
	return &View{
		feed:      config.Feed,
		scheduler: scheduler,
		submitter: NewSubmitter(config.Actions, scheduler, config.Reporter),
		notifier:  config.Notifier,
	}
}

// Open materializes the view for a game: a fresh engine, an event
// subscription feeding it, and an immediate snapshot fetch. Any
// previously open game is closed first.
func (v *View) Open(ctx context.Context, game uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeLocked()

	ctx, cancel := context.WithCancel(ctx)
	engine := NewEngine(game, v.scheduler, v.notifier)
	v.scheduler.Register(ctx, game, engine)

	sub, err := v.feed.Subscribe(ctx, game)
	if err != nil {
		v.scheduler.Cancel(game)
		cancel()
		return fmt.Errorf("open game %s: %w", game, err)
	}

	go pump(ctx, sub, engine)
	v.scheduler.RequestNow(game)
	v.submitter.Bind(game)

	v.open = true
	v.gameID = game
	v.engine = engine
	v.sub = sub
	v.cancel = cancel
	log.Info().Str("game", game.String()).Msg("game view opened")
	return nil
}

// pump feeds subscription events to the engine. One goroutine per open
// game is the only event-application path, which keeps all state
// mutation serialized.
func pump(ctx context.Context, sub Subscription, engine *Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			engine.OnEvent(ev)
		}
	}
}

// Close tears down the open game, if any.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeLocked()
}

func (v *View) closeLocked() {
	if !v.open {
		return
	}
	v.submitter.Unbind()
	v.scheduler.Cancel(v.gameID)
	if err := v.sub.Close(); err != nil {
		log.Warn().Err(err).Str("game", v.gameID.String()).Msg("closing event subscription failed")
	}
	v.cancel()
	v.open = false
	v.engine = nil
	v.sub = nil
	log.Info().Str("game", v.gameID.String()).Msg("game view closed")
}

// GameID returns the open game, if any.
func (v *View) GameID() (uuid.UUID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gameID, v.open
}

// State returns a deep copy of the current state, or nil when no game is
// open.
func (v *View) State() *bridge.Game {
	v.mu.Lock()
	engine := v.engine
	v.mu.Unlock()
	if engine == nil {
		return nil
	}
	return engine.Snapshot()
}

// Updates returns the open game's change-notification channel, or nil
// when no game is open.
func (v *View) Updates() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine == nil {
		return nil
	}
	return v.engine.Updates()
}

// Refresh forces an immediate snapshot fetch. A stale but idle view does
// not self-heal (no event traffic means no gap detection); this is the
// manual escape hatch.
func (v *View) Refresh() {
	v.mu.Lock()
	game, open := v.gameID, v.open
	v.mu.Unlock()
	if open {
		v.scheduler.RequestNow(game)
	}
}

// SubmitCall submits a call in the open game.
func (v *View) SubmitCall(ctx context.Context, call bridge.Call) error {
	return v.submitter.SubmitCall(ctx, call)
}

// SubmitCard submits a card play in the open game.
func (v *View) SubmitCard(ctx context.Context, card bridge.Card) error {
	return v.submitter.SubmitCard(ctx, card)
}
