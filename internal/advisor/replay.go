package advisor

import (
	"slices"

	"blackjack/internal/domain"
)

// replay plays both branches against the known upcoming order. Once it is
// exhausted the dealer continues from the top of the remaining shoe.
func (a *Advisor) replay(req Request) (hitProb, standProb float64) {
	rest := req.Shoe.Without(req.KnownUpcoming...).Cards()

	hit := playOut(req.Player, req.DealerUpCard, sequentialDraw(req.KnownUpcoming, rest), true)
	stand := playOut(req.Player, req.DealerUpCard, sequentialDraw(req.KnownUpcoming, rest), false)
	return hit.credit(), stand.credit()
}

func sequentialDraw(upcoming, shoe []domain.Card) drawFunc {
	queue := slices.Clone(upcoming)
	rest := slices.Clone(shoe)
	return func() (domain.Card, bool) {
		switch {
		case len(queue) > 0:
			c := queue[0]
			queue = queue[1:]
			return c, true
		case len(rest) > 0:
			c := rest[0]
			rest = rest[1:]
			return c, true
		default:
			return domain.Card{}, false
		}
	}
}
