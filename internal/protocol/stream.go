package protocol

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/events"
)

// streamBuffer is the capacity of a stream's delivery channel. A full
// buffer drops the event; the counter gap this leaves behind is detected
// by the engine and healed by a snapshot fetch.
const streamBuffer = 100

// Stream is one game's event subscription. Events delivers decoded
// events until Close; the channel is closed on teardown.
type Stream struct {
	ch  chan events.Event
	sub *nats.Subscription

	mu     sync.Mutex
	closed bool
}

// Subscribe opens the event subscription for a game. Reconnection and
// resubscription are handled by the underlying NATS connection; delivery
// across a reconnect may have gaps, which the engine is built to expect.
func (c *Client) Subscribe(game uuid.UUID) (*Stream, error) {
	s := &Stream{ch: make(chan events.Event, streamBuffer)}
	subject := fmt.Sprintf("%s%s.>", c.config.EventPrefix, game)
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		ev, err := events.Decode(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable event")
			return
		}
		s.deliver(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	s.sub = sub
	log.Debug().Str("game", game.String()).Str("subject", subject).Msg("event subscription opened")
	return s, nil
}

func (s *Stream) deliver(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		log.Warn().
			Str("game", ev.Game.String()).
			Str("type", string(ev.Type)).
			Uint64("counter", ev.Counter).
			Msg("event channel full, dropping event")
	}
}

// Events returns the delivery channel.
func (s *Stream) Events() <-chan events.Event {
	return s.ch
}

// Close ends delivery and closes the channel.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	return s.sub.Unsubscribe()
}
