package advisor

import "blackjack/internal/domain"

type result int

const (
	resultLoss result = iota
	resultPush
	resultWin
)

func (r result) credit() float64 {
	switch r {
	case resultWin:
		return 1
	case resultPush:
		return 0.5
	default:
		return 0
	}
}

// drawFunc yields the next card, or false when nothing is left.
type drawFunc func() (domain.Card, bool)

// playOut finishes one round: optionally one card for the player, then the
// dealer draws from his up-card until the rule stops him or cards run out.
// Both the hit and the stand branch go through here.
func playOut(player domain.Hand, upCard domain.Card, draw drawFunc, hit bool) result {
	if hit {
		if c, ok := draw(); ok {
			player = player.Add(c.WithFaceUp(true))
			if player.BestValue() > domain.BlackjackValue {
				return resultLoss
			}
		}
	}

	dealer := domain.NewHand(upCard.WithFaceUp(true))
	for domain.ShouldDealerDraw(dealer) {
		c, ok := draw()
		if !ok {
			break
		}
		dealer = dealer.Add(c.WithFaceUp(true))
	}
	return classify(player.BestValue(), dealer.BestValue())
}

func classify(player, dealer int) result {
	switch {
	case player > domain.BlackjackValue:
		return resultLoss
	case dealer > domain.BlackjackValue:
		return resultWin
	case player > dealer:
		return resultWin
	case player < dealer:
		return resultLoss
	default:
		return resultPush
	}
}

// visibleShoe removes the player's cards and the dealer's up-card from the shoe.
func visibleShoe(req Request) []domain.Card {
	seen := append(req.Player.Cards(), req.DealerUpCard)
	return req.Shoe.Without(seen...).Cards()
}
