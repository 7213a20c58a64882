package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/events"
)

// WSFeed delivers game events over a WebSocket connection to the web
// gateway instead of a NATS subscription. Browsers and clients behind
// restrictive networks use this path; the delivery contract is the same,
// including the possibility of gaps across reconnects.
type WSFeed struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewWSFeed creates a feed dialing the given gateway base URL, e.g.
// "ws://localhost:8080".
func NewWSFeed(baseURL string) *WSFeed {
	return &WSFeed{baseURL: baseURL, dialer: websocket.DefaultDialer}
}

// WSStream is one game's event feed over a WebSocket connection.
type WSStream struct {
	ch   chan events.Event
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// Subscribe dials the per-game event endpoint and starts the read loop.
func (f *WSFeed) Subscribe(ctx context.Context, game uuid.UUID) (*WSStream, error) {
	url := fmt.Sprintf("%s/api/v1/games/%s/ws", f.baseURL, game)
	conn, _, err := f.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	s := &WSStream{ch: make(chan events.Event, streamBuffer), conn: conn}
	go s.readLoop()
	log.Debug().Str("game", game.String()).Str("url", url).Msg("websocket event feed opened")
	return s, nil
}

func (s *WSStream) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				log.Warn().Err(err).Msg("websocket event feed read failed")
				s.closed = true
				close(s.ch)
			}
			s.mu.Unlock()
			return
		}
		ev, err := events.Decode(data)
		if err != nil {
			log.Warn().Err(err).Msg("dropping undecodable event")
			continue
		}
		s.deliver(ev)
	}
}

func (s *WSStream) deliver(ev events.Event) {
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

// Events returns the delivery channel. It is closed when the connection
// drops or Close is called.
func (s *WSStream) Events() <-chan events.Event {
	return s.ch
}

// Close tears down the connection and ends delivery.
func (s *WSStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.conn.Close()
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	return s.conn.Close()
}
