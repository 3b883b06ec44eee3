package app

import (
	"blackjack/internal/app/betting"
	"blackjack/internal/domain"
)

// EventKind identifies emitted table events for host dispatch.
type EventKind string

const (
	EventBetChanged      EventKind = "bet_changed"
	EventBankrollChanged EventKind = "bankroll_changed"
	EventRoundStarted    EventKind = "round_started"
	EventCardDealt       EventKind = "card_dealt"
	EventDealerRevealed  EventKind = "dealer_revealed"
	EventDealerDrew      EventKind = "dealer_drew"
	EventRoundFinished   EventKind = "round_finished"
	EventBetSettled      EventKind = "bet_settled"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	RoundID    string
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type BetChangedPayload struct {
	Bet         domain.Chips
	Bankroll    domain.Chips
	Placed      []domain.Chips
	CanPlaceBet bool
}

type BankrollChangedPayload struct {
	Bankroll domain.Chips
	Delta    int64
	Reason   string
}

type RoundStartedPayload struct {
	Bet betting.BetState
}

type CardDealtPayload struct {
	Target string
	Card   domain.Card
	State  domain.GameState
}

type DealerRevealedPayload struct {
	Dealer domain.Hand
}

type DealerDrewPayload struct {
	Card          domain.Card
	Dealer        domain.Hand
	DeckRemaining int
}

type RoundFinishedPayload struct {
	Outcome domain.GameOutcome
	Player  domain.Hand
	Dealer  domain.Hand
}

type BetSettledPayload struct {
	Settlement betting.BetOutcome
}
