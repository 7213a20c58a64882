package bridge

import "errors"

// ErrRuleViolation is returned when the server rejects a call or a card
// play because it does not match the current turn or allowed-action set.
// It signals that the client's view is stale, not that the transport
// failed.
var ErrRuleViolation = errors.New("rule violation")

// Position is one of the four seats at a bridge table.
type Position string

const (
	North Position = "north"
	East  Position = "east"
	South Position = "south"
	West  Position = "west"
)

// Positions returns the seats in play order starting from north.
func Positions() [4]Position {
	return [4]Position{North, East, South, West}
}

// Valid reports whether p names one of the four seats.
func (p Position) Valid() bool {
	switch p {
	case North, East, South, West:
		return true
	}
	return false
}

// Partnership identifies one of the two partnerships.
type Partnership string

const (
	NorthSouth Partnership = "northSouth"
	EastWest   Partnership = "eastWest"
)

// Partnership returns the partnership the seat belongs to.
func (p Position) Partnership() Partnership {
	if p == North || p == South {
		return NorthSouth
	}
	return EastWest
}

// CallType is the kind of a bidding action.
type CallType string

const (
	Pass     CallType = "pass"
	Double   CallType = "double"
	Redouble CallType = "redouble"
	BidCall  CallType = "bid"
)

// Strain is the denomination of a bid.
type Strain string

const (
	Clubs    Strain = "clubs"
	Diamonds Strain = "diamonds"
	Hearts   Strain = "hearts"
	Spades   Strain = "spades"
	Notrump  Strain = "notrump"
)

// Bid is a level and strain named during bidding.
type Bid struct {
	Level  int    `json:"level"`
	Strain Strain `json:"strain"`
}

// Call is a bidding action. Bid is populated if and only if Type is
// BidCall.
type Call struct {
	Type CallType `json:"type"`
	Bid  *Bid     `json:"bid,omitempty"`
}

// PassCall returns a pass.
func PassCall() Call {
	return Call{Type: Pass}
}

// MakeBid returns a bid call at the given level and strain.
func MakeBid(level int, strain Strain) Call {
	return Call{Type: BidCall, Bid: &Bid{Level: level, Strain: strain}}
}

// Doubling is the doubling status of a contract.
type Doubling string

const (
	Undoubled Doubling = "undoubled"
	Doubled   Doubling = "doubled"
	Redoubled Doubling = "redoubled"
)

// Contract is the final bid together with its doubling status.
type Contract struct {
	Bid      Bid      `json:"bid"`
	Doubling Doubling `json:"doubling"`
}

// Rank is a playing card rank.
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "jack"
	Queen Rank = "queen"
	King  Rank = "king"
	Ace   Rank = "ace"
)

// Suit is a playing card suit.
type Suit string

const (
	SuitClubs    Suit = "clubs"
	SuitDiamonds Suit = "diamonds"
	SuitHearts   Suit = "hearts"
	SuitSpades   Suit = "spades"
)

// Card is a playing card.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// PositionCallPair records which seat made a call.
type PositionCallPair struct {
	Position Position `json:"position"`
	Call     Call     `json:"call"`
}

// PositionCardPair records which seat played a card.
type PositionCardPair struct {
	Position Position `json:"position"`
	Card     Card     `json:"card"`
}

// Trick is one round of play. A complete trick has four cards and a
// winner.
type Trick struct {
	Cards  []PositionCardPair `json:"cards"`
	Winner *Position          `json:"winner,omitempty"`
}

// Vulnerability records which partnerships are vulnerable in the current
// deal.
type Vulnerability struct {
	NorthSouth bool `json:"northSouth"`
	EastWest   bool `json:"eastWest"`
}
