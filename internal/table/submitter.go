package table

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/bridge"
)

// ErrNoOpenGame is returned when an action is submitted while no game
// view is open. The rejection is local; no request is sent.
var ErrNoOpenGame = errors.New("no open game")

// Submitter sends the local player's optimistic actions to the server.
// Success never mutates local state directly: the authoritative call,
// play and turn events arriving over the push channel are the sole source
// of the resulting change. A legality conflict means the local
// allowed-action set was stale, so it triggers a resync instead of being
// treated as an error.
type Submitter struct {
	actions  ActionClient
	resync   Resyncer
	reporter ErrorReporter

	mu     sync.Mutex
	gameID uuid.UUID
	open   bool
}

// NewSubmitter creates a submitter. Bind attaches it to an open game.
func NewSubmitter(actions ActionClient, resync Resyncer, reporter ErrorReporter) *Submitter {
	return &Submitter{actions: actions, resync: resync, reporter: reporter}
}

// Bind attaches the submitter to the currently open game.
func (s *Submitter) Bind(game uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameID = game
	s.open = true
}

// Unbind detaches the submitter; subsequent submissions are rejected
// locally.
func (s *Submitter) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

// SubmitCall submits a call in the open game.
func (s *Submitter) SubmitCall(ctx context.Context, call bridge.Call) error {
	return s.submit(ctx, "call", func(game uuid.UUID) error {
		return s.actions.Call(ctx, game, call)
	})
}

// SubmitCard submits a card play in the open game.
func (s *Submitter) SubmitCard(ctx context.Context, card bridge.Card) error {
	return s.submit(ctx, "play", func(game uuid.UUID) error {
		return s.actions.Play(ctx, game, card)
	})
}

func (s *Submitter) submit(ctx context.Context, kind string, send func(game uuid.UUID) error) error {
	s.mu.Lock()
	game, open := s.gameID, s.open
	s.mu.Unlock()
	if !open {
		return ErrNoOpenGame
	}

	err := send(game)
	switch {
	case err == nil:
	case errors.Is(err, bridge.ErrRuleViolation):
		// The server's turn or allowed-action set has moved on from
		// what this client believed; re-adopt a fresh snapshot.
		log.Debug().Str("game", game.String()).Str("action", kind).Msg("action conflicted with server state, resyncing")
		s.resync.Request(game)
	default:
		// The action is dropped; the player retries if they care.
		if s.reporter != nil {
			s.reporter.Report(fmt.Errorf("submit %s: %w", kind, err))
		}
	}
	return nil
}
