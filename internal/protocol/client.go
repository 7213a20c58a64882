// Package protocol implements the client side of the bridge server
// protocol: request/reply commands and the per-game event feed. Commands
// travel as JSON over NATS request/reply; events arrive over a NATS
// subscription or, alternatively, a WebSocket feed from the web gateway.
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"bridgeclient/internal/bridge"
)

const protocolVersion = "0.1"

// Config holds the transport settings for a client.
type Config struct {
	URL            string
	CommandPrefix  string // e.g. "bridge.cmd."
	EventPrefix    string // e.g. "bridge.events."
	RequestTimeout time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// DefaultConfig returns the default transport settings.
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		CommandPrefix:  "bridge.cmd.",
		EventPrefix:    "bridge.events.",
		RequestTimeout: 5 * time.Second,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
	}
}

// Client sends commands to the bridge server on behalf of one player and
// opens event subscriptions. It is safe for concurrent use.
type Client struct {
	nc     *nats.Conn
	config Config
	player uuid.UUID

	// One caller at a time performs the handshake; callers that queued up
	// behind it skip their own.
	handshakeMu      sync.Mutex
	handshakePending bool
}

// Connect dials the NATS server and performs the protocol handshake.
func Connect(config Config, player uuid.UUID) (*Client, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	c := NewClient(nc, config, player)
	ctx, cancel := context.WithTimeout(context.Background(), config.RequestTimeout)
	defer cancel()
	if err := c.Hello(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	return c, nil
}

// NewClient wraps an existing NATS connection. The caller is responsible
// for performing the handshake.
func NewClient(nc *nats.Conn, config Config, player uuid.UUID) *Client {
	return &Client{nc: nc, config: config, player: player, handshakePending: true}
}

// Player returns the player identity the client commands act as.
func (c *Client) Player() uuid.UUID {
	return c.player
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.nc.Close()
}

// Hello performs the protocol handshake with the server.
func (c *Client) Hello(ctx context.Context) error {
	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()
	if !c.handshakePending {
		return nil
	}
	err := c.request(ctx, "bridgehlo", map[string]any{
		"version": protocolVersion,
		"role":    "client",
	}, nil)
	if err != nil {
		return err
	}
	c.handshakePending = false
	return nil
}

// command sends a command, re-handshaking and retrying once if the server
// no longer recognizes the client.
func (c *Client) command(ctx context.Context, name string, args map[string]any, reply any) error {
	err := c.request(ctx, name, args, reply)
	if errors.Is(err, ErrUnknownClient) {
		c.handshakeMu.Lock()
		c.handshakePending = true
		c.handshakeMu.Unlock()
		if err := c.Hello(ctx); err != nil {
			return err
		}
		err = c.request(ctx, name, args, reply)
	}
	return err
}

func (c *Client) request(ctx context.Context, name string, args map[string]any, reply any) error {
	if args == nil {
		args = map[string]any{}
	}
	if _, ok := args["player"]; !ok {
		args["player"] = c.player
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()
	msg, err := c.nc.RequestWithContext(ctx, c.config.CommandPrefix+name, data)
	if err != nil {
		return fmt.Errorf("%s command: %w", name, err)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		return fmt.Errorf("unmarshal %s reply: %w", name, err)
	}
	if !statusOK(status.Status) {
		return errorFromStatus(status.Status)
	}
	if reply != nil {
		if err := json.Unmarshal(msg.Data, reply); err != nil {
			return fmt.Errorf("unmarshal %s reply: %w", name, err)
		}
	}
	return nil
}

// CreateGame asks the server to create a new game and returns its id.
func (c *Client) CreateGame(ctx context.Context) (uuid.UUID, error) {
	var reply struct {
		Game uuid.UUID `json:"game"`
	}
	if err := c.command(ctx, "game", nil, &reply); err != nil {
		return uuid.Nil, err
	}
	return reply.Game, nil
}

// Join seats the player in a game. A nil position lets the server choose
// a vacant seat. Returns the game id and the seat taken.
func (c *Client) Join(ctx context.Context, game uuid.UUID, position *bridge.Position) (uuid.UUID, bridge.Position, error) {
	args := map[string]any{"game": game}
	if position != nil {
		args["position"] = *position
	}
	var reply struct {
		Game     uuid.UUID       `json:"game"`
		Position bridge.Position `json:"position"`
	}
	if err := c.command(ctx, "join", args, &reply); err != nil {
		return uuid.Nil, "", err
	}
	return reply.Game, reply.Position, nil
}

// Leave removes the player from a game.
func (c *Client) Leave(ctx context.Context, game uuid.UUID) error {
	return c.command(ctx, "leave", map[string]any{"game": game}, nil)
}

// FetchState retrieves the complete game state as visible to the player,
// together with the running counter it was captured at. The fetch is
// idempotent and side-effect free on the server.
func (c *Client) FetchState(ctx context.Context, game uuid.UUID) (*bridge.Game, uint64, error) {
	args := map[string]any{
		"game": game,
		"get":  []string{"pubstate", "privstate", "self", "results", "players"},
	}
	var reply struct {
		Get struct {
			Pubstate  map[string]any       `json:"pubstate"`
			Privstate map[string]any       `json:"privstate"`
			Self      bridge.PlayerState   `json:"self"`
			Results   []bridge.DealResult  `json:"results"`
			Players   bridge.PlayersInGame `json:"players"`
		} `json:"get"`
		Counter uint64 `json:"counter"`
	}
	if err := c.command(ctx, "get", args, &reply); err != nil {
		return nil, 0, err
	}
	deal, err := decodeDeal(reply.Get.Pubstate, reply.Get.Privstate)
	if err != nil {
		return nil, 0, fmt.Errorf("get reply: %w", err)
	}
	state := &bridge.Game{
		ID:      game,
		Deal:    deal,
		Self:    reply.Get.Self,
		Results: reply.Get.Results,
		Players: reply.Get.Players,
	}
	return state, reply.Counter, nil
}

// Call submits a call in a game. A stale view surfaces as
// bridge.ErrRuleViolation.
func (c *Client) Call(ctx context.Context, game uuid.UUID, call bridge.Call) error {
	return c.command(ctx, "call", map[string]any{"game": game, "call": call}, nil)
}

// Play submits a card play in a game. A stale view surfaces as
// bridge.ErrRuleViolation.
func (c *Client) Play(ctx context.Context, game uuid.UUID, card bridge.Card) error {
	return c.command(ctx, "play", map[string]any{"game": game, "card": card}, nil)
}

// decodeDeal merges the public deal state with the player-private patch
// and decodes the result. The merged object carries the deal id under the
// "deal" key. A nil pubstate means no deal is ongoing.
func decodeDeal(pubstate, privstate map[string]any) (*bridge.Deal, error) {
	if pubstate == nil {
		return nil, nil
	}
	merged, ok := mergePatch(pubstate, privstate).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("merged deal state is not an object")
	}
	if id, ok := merged["deal"]; ok {
		merged["id"] = id
		delete(merged, "deal")
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal merged deal state: %w", err)
	}
	var deal bridge.Deal
	if err := json.Unmarshal(data, &deal); err != nil {
		return nil, fmt.Errorf("unmarshal deal state: %w", err)
	}
	return &deal, nil
}
