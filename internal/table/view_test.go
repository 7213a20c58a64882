package table

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgeclient/internal/bridge"
	"bridgeclient/internal/events"
)

// fakeSub is a Subscription backed by a plain channel.
type fakeSub struct {
	ch chan events.Event

	mu     sync.Mutex
	closed bool
}

func newFakeSub() *fakeSub {
	return &fakeSub{ch: make(chan events.Event, 16)}
}

func (s *fakeSub) Events() <-chan events.Event { return s.ch }

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeFeed hands out fakeSubs and remembers them.
type fakeFeed struct {
	err error

	mu   sync.Mutex
	subs []*fakeSub
}

func (f *fakeFeed) Subscribe(ctx context.Context, game uuid.UUID) (Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub := newFakeSub()
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeFeed) sub(i int) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[i]
}

// funcFetcher scripts FetchState per call.
type funcFetcher struct {
	fn func(ctx context.Context, game uuid.UUID) (*bridge.Game, uint64, error)

	mu    sync.Mutex
	calls int
}

func (f *funcFetcher) FetchState(ctx context.Context, game uuid.UUID) (*bridge.Game, uint64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, game)
}

func (f *funcFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func snapshotFetcher() *funcFetcher {
	return &funcFetcher{fn: func(ctx context.Context, game uuid.UUID) (*bridge.Game, uint64, error) {
		return southState(game), 1, nil
	}}
}

func newTestView(fetcher SnapshotFetcher, feed EventFeed) *View {
	return NewView(ViewConfig{
		Fetcher:  fetcher,
		Actions:  &scriptedActions{},
		Feed:     feed,
		Reporter: &recordingReporter{},
	})
}

func TestViewOpenFetchesInitialSnapshot(t *testing.T) {
	feed := &fakeFeed{}
	view := newTestView(snapshotFetcher(), feed)
	game := uuid.New()

	require.NoError(t, view.Open(context.Background(), game))
	defer view.Close()

	id, open := view.GameID()
	assert.True(t, open)
	assert.Equal(t, game, id)
	require.Eventually(t, func() bool { return view.State() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, game, view.State().ID)
}

func TestViewAppliesEventsFromFeed(t *testing.T) {
	feed := &fakeFeed{}
	view := newTestView(snapshotFetcher(), feed)
	game := uuid.New()

	require.NoError(t, view.Open(context.Background(), game))
	defer view.Close()
	require.Eventually(t, func() bool { return view.State() != nil }, time.Second, time.Millisecond)

	feed.sub(0).ch <- mustEvent(t, game, events.TypeCall, 2, events.CallMade{
		Position: bridge.North,
		Call:     bridge.PassCall(),
	})

	require.Eventually(t, func() bool {
		state := view.State()
		return state != nil && len(state.Deal.Calls) == 1
	}, time.Second, time.Millisecond)
}

func TestViewOpenPropagatesSubscribeFailure(t *testing.T) {
	feed := &fakeFeed{err: errors.New("connection lost")}
	view := newTestView(snapshotFetcher(), feed)

	err := view.Open(context.Background(), uuid.New())
	require.Error(t, err)

	_, open := view.GameID()
	assert.False(t, open)
	assert.Nil(t, view.State())
	assert.ErrorIs(t, view.SubmitCall(context.Background(), bridge.PassCall()), ErrNoOpenGame)
}

func TestViewSwitchingGamesDiscardsOldGame(t *testing.T) {
	gameA := uuid.New()
	gameB := uuid.New()
	resultA := bridge.DealResult{Deal: uuid.New()}
	resultB := bridge.DealResult{Deal: uuid.New()}

	releaseA := make(chan struct{})
	fetcher := &funcFetcher{fn: func(ctx context.Context, game uuid.UUID) (*bridge.Game, uint64, error) {
		state := southState(game)
		if game == gameA {
			<-releaseA
			state.Results = []bridge.DealResult{resultA}
			return state, 111, nil
		}
		state.Results = []bridge.DealResult{resultB}
		return state, 222, nil
	}}
	feed := &fakeFeed{}
	view := newTestView(fetcher, feed)

	require.NoError(t, view.Open(context.Background(), gameA))
	require.NoError(t, view.Open(context.Background(), gameB))
	defer view.Close()

	assert.True(t, feed.sub(0).isClosed())
	require.Eventually(t, func() bool { return view.State() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, resultB, view.State().Results[0])

	// The late response for the first game must not leak into the second.
	close(releaseA)
	require.Never(t, func() bool {
		state := view.State()
		return state == nil || state.Results[0] != resultB
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestViewCloseTearsDown(t *testing.T) {
	feed := &fakeFeed{}
	view := newTestView(snapshotFetcher(), feed)
	game := uuid.New()

	require.NoError(t, view.Open(context.Background(), game))
	require.Eventually(t, func() bool { return view.State() != nil }, time.Second, time.Millisecond)
	view.Close()

	assert.True(t, feed.sub(0).isClosed())
	assert.Nil(t, view.State())
	_, open := view.GameID()
	assert.False(t, open)
	assert.ErrorIs(t, view.SubmitCard(context.Background(), bridge.Card{Rank: bridge.Ace, Suit: bridge.SuitSpades}), ErrNoOpenGame)
}

func TestViewRefreshFetchesAgain(t *testing.T) {
	fetcher := snapshotFetcher()
	view := newTestView(fetcher, &fakeFeed{})

	require.NoError(t, view.Open(context.Background(), uuid.New()))
	defer view.Close()
	require.Eventually(t, func() bool { return fetcher.callCount() == 1 }, time.Second, time.Millisecond)

	view.Refresh()
	require.Eventually(t, func() bool { return fetcher.callCount() == 2 }, time.Second, time.Millisecond)
}

func TestViewRefreshWithoutOpenGameIsNoop(t *testing.T) {
	fetcher := snapshotFetcher()
	view := newTestView(fetcher, &fakeFeed{})

	view.Refresh()

	require.Never(t, func() bool { return fetcher.callCount() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}
