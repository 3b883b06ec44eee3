package domain

// Phase is the round stage derived from a GameState.
type Phase string

const (
	PhasePlacingBet Phase = "placing_bet"
	PhaseDealing    Phase = "dealing"
	PhasePlayerTurn Phase = "player_turn"
	PhaseRoundOver  Phase = "round_over"
)

// GameState is an immutable snapshot of one round.
type GameState struct {
	Deck   Deck
	Player Hand
	Dealer Hand
	Status RoundStatus
}

// Empty is the state before any card is dealt.
func Empty() GameState {
	return GameState{Deck: Deck{numberOfDecks: 1}, Status: InProgress()}
}

// CardsDealt counts cards on the table.
func (s GameState) CardsDealt() int {
	return s.Player.Len() + s.Dealer.Len()
}

// Phase derives the stage from the state's shape.
func (s GameState) Phase() Phase {
	switch n := s.CardsDealt(); {
	case n == 0:
		return PhasePlacingBet
	case n < 4:
		return PhaseDealing
	case s.Status.IsFinished():
		return PhaseRoundOver
	default:
		return PhasePlayerTurn
	}
}

// DealerUpCard returns the dealer's first face-up card.
func (s GameState) DealerUpCard() (Card, bool) {
	for _, c := range s.Dealer.cards {
		if c.FaceUp {
			return c, true
		}
	}
	return Card{}, false
}

// DealingDone reports that the initial deal is complete and the dealer
// holds two cards with exactly one showing.
func (s GameState) DealingDone() bool {
	if s.Dealer.Len() != 2 || s.Player.Len() < 2 {
		return false
	}
	up := 0
	for _, c := range s.Dealer.cards {
		if c.FaceUp {
			up++
		}
	}
	return up == 1
}

// UnseenCards is every card the player cannot see: the undrawn deck plus
// the dealer's face-down cards.
func (s GameState) UnseenCards() Deck {
	cards := s.Deck.Cards()
	for _, c := range s.Dealer.cards {
		if !c.FaceUp {
			cards = append(cards, c)
		}
	}
	return Deck{cards: cards, numberOfDecks: s.Deck.NumberOfDecks()}
}
