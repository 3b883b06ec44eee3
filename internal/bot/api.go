package bot

import (
	"context"

	"blackjack/internal/domain"
)

// Move represents the decision made by the AI.
type Move struct {
	Hit    bool
	Reason string
}

// View is what a seated player can see when deciding.
type View struct {
	Player   domain.Hand
	DealerUp domain.Card
	// Shoe is every card the player has not seen.
	Shoe domain.Deck
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	Decide(ctx context.Context, view View) (Move, error)
}
