package table

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgeclient/internal/bridge"
)

// scriptedActions returns canned errors for submitted actions.
type scriptedActions struct {
	callErr error
	playErr error

	mu    sync.Mutex
	calls int
	plays int
}

func (a *scriptedActions) Call(ctx context.Context, game uuid.UUID, call bridge.Call) error {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.callErr
}

func (a *scriptedActions) Play(ctx context.Context, game uuid.UUID, card bridge.Card) error {
	a.mu.Lock()
	a.plays++
	a.mu.Unlock()
	return a.playErr
}

func TestSubmitterRejectsWhenNoGameOpen(t *testing.T) {
	actions := &scriptedActions{}
	sub := NewSubmitter(actions, &recordingResyncer{}, &recordingReporter{})

	err := sub.SubmitCall(context.Background(), bridge.PassCall())
	assert.ErrorIs(t, err, ErrNoOpenGame)
	assert.Zero(t, actions.calls)
}

func TestSubmitterRejectsAfterUnbind(t *testing.T) {
	actions := &scriptedActions{}
	sub := NewSubmitter(actions, &recordingResyncer{}, &recordingReporter{})
	sub.Bind(uuid.New())
	sub.Unbind()

	err := sub.SubmitCard(context.Background(), bridge.Card{Rank: bridge.Ace, Suit: bridge.SuitSpades})
	assert.ErrorIs(t, err, ErrNoOpenGame)
	assert.Zero(t, actions.plays)
}

func TestSubmitterSendsAndStaysQuietOnSuccess(t *testing.T) {
	actions := &scriptedActions{}
	resyncer := &recordingResyncer{}
	reporter := &recordingReporter{}
	sub := NewSubmitter(actions, resyncer, reporter)
	sub.Bind(uuid.New())

	require.NoError(t, sub.SubmitCall(context.Background(), bridge.PassCall()))

	// Success mutates nothing locally; the resulting events do.
	assert.Equal(t, 1, actions.calls)
	assert.Zero(t, resyncer.count())
	assert.Zero(t, reporter.count())
}

func TestSubmitterResyncsOnLegalityConflict(t *testing.T) {
	actions := &scriptedActions{
		playErr: fmt.Errorf("play command: %w", bridge.ErrRuleViolation),
	}
	resyncer := &recordingResyncer{}
	reporter := &recordingReporter{}
	sub := NewSubmitter(actions, resyncer, reporter)
	game := uuid.New()
	sub.Bind(game)

	err := sub.SubmitCard(context.Background(), bridge.Card{Rank: bridge.Two, Suit: bridge.SuitClubs})

	// A conflict is a staleness signal, not a caller-visible error.
	require.NoError(t, err)
	require.Equal(t, 1, resyncer.count())
	assert.Equal(t, game, resyncer.requests[0])
	assert.Zero(t, reporter.count())
}

func TestSubmitterReportsOtherFailures(t *testing.T) {
	errSend := errors.New("request timed out")
	actions := &scriptedActions{callErr: errSend}
	resyncer := &recordingResyncer{}
	reporter := &recordingReporter{}
	sub := NewSubmitter(actions, resyncer, reporter)
	sub.Bind(uuid.New())

	err := sub.SubmitCall(context.Background(), bridge.MakeBid(1, bridge.Notrump))

	require.NoError(t, err)
	assert.Zero(t, resyncer.count())
	require.Equal(t, 1, reporter.count())
	assert.ErrorIs(t, reporter.errs[0], errSend)
}
