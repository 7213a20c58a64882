// Package events defines the counter-stamped event records delivered over
// the per-game push channel, and the typed payloads they carry.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"bridgeclient/internal/bridge"
)

// Type discriminates the event union. The values are the wire names used
// on the event channel.
type Type string

const (
	TypePlayer  Type = "player"  // a player was seated or left a seat
	TypeDeal    Type = "deal"    // a new deal started
	TypeTurn    Type = "turn"    // the turn moved to another seat
	TypeCall    Type = "call"    // a call was made during bidding
	TypeBidding Type = "bidding" // bidding settled into a contract
	TypePlay    Type = "play"    // a card was played
	TypeDummy   Type = "dummy"   // the dummy's hand was revealed
	TypeTrick   Type = "trick"   // a trick was completed
	TypeDealEnd Type = "dealend" // the deal ended with a result
)

// Event is the envelope common to every event on the push channel. The
// type-specific fields sit flat in the same JSON object and are decoded
// on demand with Payload.
//
// Counter is the server's per-game mutation counter. The transport does
// not guarantee ordered or complete delivery; the reconciliation engine
// imposes monotonicity itself.
type Event struct {
	Game    uuid.UUID `json:"game"`
	Type    Type      `json:"type"`
	Counter uint64    `json:"counter"`

	Raw json.RawMessage `json:"-"`
}

// PlayerSeated reports a seat being taken or vacated. A nil player means
// the seat is now vacant.
type PlayerSeated struct {
	Position bridge.Position `json:"position"`
	Player   *uuid.UUID      `json:"player"`
}

// DealStarted reports a new deal. It carries no prior deal content; the
// engine substitutes a fresh deal wholesale.
type DealStarted struct {
	Deal          uuid.UUID             `json:"deal"`
	Opener        *bridge.Position      `json:"opener,omitempty"`
	Vulnerability *bridge.Vulnerability `json:"vulnerability,omitempty"`
}

// TurnChanged reports the seat coming into turn, together with the
// actions allowed for the player in that seat.
type TurnChanged struct {
	Position     bridge.Position `json:"position"`
	AllowedCalls []bridge.Call   `json:"allowedCalls,omitempty"`
	AllowedCards []bridge.Card   `json:"allowedCards,omitempty"`
}

// CallMade reports a call added to the bidding.
type CallMade struct {
	Position bridge.Position `json:"position"`
	Call     bridge.Call     `json:"call"`
}

// BiddingSettled reports the declarer and contract once bidding is over.
// Both are nil for a passed-out deal.
type BiddingSettled struct {
	Declarer *bridge.Position `json:"declarer"`
	Contract *bridge.Contract `json:"contract"`
}

// CardPlayed reports a card played to the current trick.
type CardPlayed struct {
	Position bridge.Position `json:"position"`
	Card     bridge.Card     `json:"card"`
}

// DummyRevealed carries the dummy's full hand once the opening lead has
// been made.
type DummyRevealed struct {
	Position bridge.Position `json:"position"`
	Cards    []bridge.Card   `json:"cards"`
}

// TrickCompleted reports the winner of the trick just closed.
type TrickCompleted struct {
	Winner bridge.Position `json:"winner"`
}

// DealEnded reports the outcome of a deal. Score may be nil when the
// result is not yet available, in which case a later dealend event for
// the same deal amends it.
type DealEnded struct {
	Deal  uuid.UUID               `json:"deal"`
	Score *bridge.DuplicateResult `json:"score"`
}

// Decode parses a wire message into an event, retaining the raw bytes for
// payload decoding.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return ev, nil
}

// New builds an event from an envelope and a typed payload. The payload's
// fields are flattened next to the envelope fields, matching the wire
// format.
func New(game uuid.UUID, typ Type, counter uint64, payload any) (Event, error) {
	fields := map[string]any{}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return Event{}, fmt.Errorf("flatten %s payload: %w", typ, err)
		}
	}
	fields["game"] = game
	fields["type"] = typ
	fields["counter"] = counter
	raw, err := json.Marshal(fields)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", typ, err)
	}
	return Event{Game: game, Type: typ, Counter: counter, Raw: raw}, nil
}

// Payload decodes the type-specific fields of the event into the struct
// matching its type. Unknown event types return an error so that the
// engine can fall back to a resync rather than guessing.
func (e Event) Payload() (any, error) {
	raw := e.Raw
	if raw == nil {
		raw = json.RawMessage("{}")
	}
	decode := func(v any) (any, error) {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
		}
		return v, nil
	}
	switch e.Type {
	case TypePlayer:
		return decode(&PlayerSeated{})
	case TypeDeal:
		return decode(&DealStarted{})
	case TypeTurn:
		return decode(&TurnChanged{})
	case TypeCall:
		return decode(&CallMade{})
	case TypeBidding:
		return decode(&BiddingSettled{})
	case TypePlay:
		return decode(&CardPlayed{})
	case TypeDummy:
		return decode(&DummyRevealed{})
	case TypeTrick:
		return decode(&TrickCompleted{})
	case TypeDealEnd:
		return decode(&DealEnded{})
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.Type)
	}
}
