package bridge

import (
	"github.com/google/uuid"
)

// TricksPerDeal is the number of tricks played in a complete deal.
const TricksPerDeal = 13

// Hands holds the card lists of the four seats. A nil entry is a card the
// local player is not allowed to see; only its existence is known.
type Hands struct {
	North []*Card `json:"north"`
	East  []*Card `json:"east"`
	South []*Card `json:"south"`
	West  []*Card `json:"west"`
}

// Hand returns the card list of the given seat.
func (h *Hands) Hand(p Position) []*Card {
	switch p {
	case North:
		return h.North
	case East:
		return h.East
	case South:
		return h.South
	case West:
		return h.West
	}
	return nil
}

// SetHand replaces the card list of the given seat.
func (h *Hands) SetHand(p Position, cards []*Card) {
	switch p {
	case North:
		h.North = cards
	case East:
		h.East = cards
	case South:
		h.South = cards
	case West:
		h.West = cards
	}
}

// RemoveCard removes card from the seat's hand. The literal card is
// removed when present; otherwise the first unknown placeholder is
// removed, since a hidden hand shrinks by one on any play. Reports
// whether an entry was removed.
func (h *Hands) RemoveCard(p Position, card Card) bool {
	hand := h.Hand(p)
	for i, c := range hand {
		if c != nil && *c == card {
			h.SetHand(p, append(hand[:i:i], hand[i+1:]...))
			return true
		}
	}
	for i, c := range hand {
		if c == nil {
			h.SetHand(p, append(hand[:i:i], hand[i+1:]...))
			return true
		}
	}
	return false
}

func (h *Hands) clone() Hands {
	out := Hands{}
	for _, p := range Positions() {
		src := h.Hand(p)
		if src == nil {
			continue
		}
		dst := make([]*Card, len(src))
		for i, c := range src {
			if c != nil {
				cc := *c
				dst[i] = &cc
			}
		}
		out.SetHand(p, dst)
	}
	return out
}

// Deal is the public and private state of an ongoing or completed deal,
// as visible to the local player.
type Deal struct {
	ID             uuid.UUID          `json:"id"`
	PositionInTurn *Position          `json:"positionInTurn,omitempty"`
	Calls          []PositionCallPair `json:"calls"`
	Declarer       *Position          `json:"declarer,omitempty"`
	Contract       *Contract          `json:"contract,omitempty"`
	Cards          Hands              `json:"cards"`
	Tricks         []Trick            `json:"tricks"`
	Vulnerability  Vulnerability      `json:"vulnerability"`
}

// Clone returns a deep copy of the deal.
func (d *Deal) Clone() *Deal {
	if d == nil {
		return nil
	}
	out := &Deal{
		ID:            d.ID,
		Calls:         append([]PositionCallPair(nil), d.Calls...),
		Cards:         d.Cards.clone(),
		Vulnerability: d.Vulnerability,
	}
	if d.PositionInTurn != nil {
		p := *d.PositionInTurn
		out.PositionInTurn = &p
	}
	if d.Declarer != nil {
		p := *d.Declarer
		out.Declarer = &p
	}
	if d.Contract != nil {
		c := *d.Contract
		out.Contract = &c
	}
	out.Tricks = make([]Trick, len(d.Tricks))
	for i, t := range d.Tricks {
		out.Tricks[i] = Trick{Cards: append([]PositionCardPair(nil), t.Cards...)}
		if t.Winner != nil {
			w := *t.Winner
			out.Tricks[i].Winner = &w
		}
	}
	return out
}

// PlayerState is auxiliary information about the local player: the seat
// they occupy and the actions currently allowed. Both action lists are
// empty unless it is the local player's turn.
type PlayerState struct {
	Position     *Position `json:"position,omitempty"`
	AllowedCalls []Call    `json:"allowedCalls"`
	AllowedCards []Card    `json:"allowedCards"`
}

// HasTurn reports whether the local player has an action available.
func (s *PlayerState) HasTurn() bool {
	return len(s.AllowedCalls) > 0 || len(s.AllowedCards) > 0
}

func (s *PlayerState) clone() PlayerState {
	out := PlayerState{
		AllowedCalls: append([]Call(nil), s.AllowedCalls...),
		AllowedCards: append([]Card(nil), s.AllowedCards...),
	}
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	return out
}

// DuplicateResult is the scoring outcome of one deal. A passed-out deal
// has a nil partnership and zero score.
type DuplicateResult struct {
	Partnership *Partnership `json:"partnership"`
	Score       int          `json:"score"`
}

// DealResult pairs a deal with its outcome. Result is nil while the
// outcome is not yet known.
type DealResult struct {
	Deal   uuid.UUID        `json:"deal"`
	Result *DuplicateResult `json:"result"`
}

// Clone returns a deep copy of the result.
func (r DealResult) Clone() DealResult {
	out := DealResult{Deal: r.Deal}
	if r.Result != nil {
		res := *r.Result
		if r.Result.Partnership != nil {
			p := *r.Result.Partnership
			res.Partnership = &p
		}
		out.Result = &res
	}
	return out
}

// PlayersInGame identifies the player occupying each seat. A vacant seat
// is nil.
type PlayersInGame struct {
	North *uuid.UUID `json:"north"`
	East  *uuid.UUID `json:"east"`
	South *uuid.UUID `json:"south"`
	West  *uuid.UUID `json:"west"`
}

// Seat returns the player occupying the given seat, if any.
func (g *PlayersInGame) Seat(p Position) *uuid.UUID {
	switch p {
	case North:
		return g.North
	case East:
		return g.East
	case South:
		return g.South
	case West:
		return g.West
	}
	return nil
}

// SetSeat sets or clears the player occupying the given seat.
func (g *PlayersInGame) SetSeat(p Position, player *uuid.UUID) {
	switch p {
	case North:
		g.North = player
	case East:
		g.East = player
	case South:
		g.South = player
	case West:
		g.West = player
	}
}

func (g *PlayersInGame) clone() PlayersInGame {
	out := PlayersInGame{}
	for _, p := range Positions() {
		if id := g.Seat(p); id != nil {
			v := *id
			out.SetSeat(p, &v)
		}
	}
	return out
}

// Game is the materialized view of one game: the active deal, the local
// player's state, completed deal results and seating.
type Game struct {
	ID      uuid.UUID     `json:"id"`
	Deal    *Deal         `json:"deal,omitempty"`
	Self    PlayerState   `json:"self"`
	Results []DealResult  `json:"results"`
	Players PlayersInGame `json:"players"`
}

// Clone returns a deep copy of the game state. Consumers receive clones
// so that they can never mutate the reconciliation engine's copy.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := &Game{
		ID:      g.ID,
		Deal:    g.Deal.Clone(),
		Self:    g.Self.clone(),
		Players: g.Players.clone(),
	}
	if g.Results != nil {
		out.Results = make([]DealResult, len(g.Results))
		for i, r := range g.Results {
			out.Results[i] = r.Clone()
		}
	}
	return out
}
