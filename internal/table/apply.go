package table

import (
	"bridgeclient/internal/bridge"
	"bridgeclient/internal/events"
)

// apply merges one event's semantic effect into the state. No legality
// checking happens here; the server asserted it before assigning the
// counter. Called with the engine lock held. Returns the deal result to
// surface when the event ended a deal.
func (e *Engine) apply(payload any) *bridge.DealResult {
	switch p := payload.(type) {
	case *events.PlayerSeated:
		e.state.Players.SetSeat(p.Position, p.Player)

	case *events.DealStarted:
		deal := &bridge.Deal{ID: p.Deal}
		if p.Vulnerability != nil {
			deal.Vulnerability = *p.Vulnerability
		}
		if p.Opener != nil {
			opener := *p.Opener
			deal.PositionInTurn = &opener
		}
		e.state.Deal = deal
		e.state.Self.AllowedCalls = nil
		e.state.Self.AllowedCards = nil

	case *events.TurnChanged:
		deal := e.deal()
		pos := p.Position
		deal.PositionInTurn = &pos
		if e.state.Self.Position != nil && pos == *e.state.Self.Position {
			e.state.Self.AllowedCalls = p.AllowedCalls
			e.state.Self.AllowedCards = p.AllowedCards
		} else {
			e.state.Self.AllowedCalls = nil
			e.state.Self.AllowedCards = nil
		}

	case *events.CallMade:
		deal := e.deal()
		deal.Calls = append(deal.Calls, bridge.PositionCallPair{Position: p.Position, Call: p.Call})

	case *events.BiddingSettled:
		deal := e.deal()
		deal.Declarer = p.Declarer
		deal.Contract = p.Contract
		deal.Tricks = append(deal.Tricks, bridge.Trick{})

	case *events.CardPlayed:
		deal := e.deal()
		if len(deal.Tricks) == 0 {
			deal.Tricks = append(deal.Tricks, bridge.Trick{})
		}
		trick := &deal.Tricks[len(deal.Tricks)-1]
		trick.Cards = append(trick.Cards, bridge.PositionCardPair{Position: p.Position, Card: p.Card})
		deal.Cards.RemoveCard(p.Position, p.Card)

	case *events.DummyRevealed:
		deal := e.deal()
		hand := make([]*bridge.Card, len(p.Cards))
		for i := range p.Cards {
			card := p.Cards[i]
			hand[i] = &card
		}
		deal.Cards.SetHand(p.Position, hand)

	case *events.TrickCompleted:
		deal := e.deal()
		if len(deal.Tricks) > 0 {
			winner := p.Winner
			deal.Tricks[len(deal.Tricks)-1].Winner = &winner
		}
		if len(deal.Tricks) < bridge.TricksPerDeal {
			deal.Tricks = append(deal.Tricks, bridge.Trick{})
		}

	case *events.DealEnded:
		result := e.recordResult(p)
		return &result
	}
	return nil
}

// deal returns the active deal, materializing an empty one if an event
// arrives for a deal the engine has not seen start.
func (e *Engine) deal() *bridge.Deal {
	if e.state.Deal == nil {
		e.state.Deal = &bridge.Deal{}
	}
	return e.state.Deal
}

// recordResult appends a deal result, or amends the existing entry when a
// result for the same deal was already recorded without a score. The
// server sends dealend twice in that order when scoring lags the end of
// play. The returned result is a deep copy; the notifier must not hold
// an alias into engine state.
func (e *Engine) recordResult(p *events.DealEnded) bridge.DealResult {
	for i := range e.state.Results {
		if e.state.Results[i].Deal == p.Deal && e.state.Results[i].Result == nil {
			e.state.Results[i].Result = p.Score
			return e.state.Results[i].Clone()
		}
	}
	result := bridge.DealResult{Deal: p.Deal, Result: p.Score}
	e.state.Results = append(e.state.Results, result)
	return result.Clone()
}
