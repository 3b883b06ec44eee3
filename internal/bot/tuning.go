package bot

import "blackjack/internal/domain"

// StrategyTuning holds the lowest totals a rule-based brain stands on,
// indexed by the dealer up-card value with the ace at 11.
type StrategyTuning struct {
	HardStand [12]int
	SoftStand [12]int
}

// DefaultTuning is basic strategy without doubling or splitting.
var DefaultTuning = StrategyTuning{
	//           -  -  2   3   4   5   6   7   8   9   10  A
	HardStand: [12]int{0, 0, 13, 13, 12, 12, 12, 17, 17, 17, 17, 17},
	SoftStand: [12]int{0, 0, 18, 18, 18, 18, 18, 18, 18, 19, 19, 19},
}

// upCardIndex maps the dealer up-card to its slot in the tuning tables.
func upCardIndex(c domain.Card) int {
	if c.Rank == domain.RankAce {
		return 11
	}
	return c.Rank.Value()
}

// isSoft reports a hand whose best total counts an ace as eleven.
func isSoft(h domain.Hand) bool {
	values := h.PossibleValues()
	best := h.BestValue()
	return best <= domain.BlackjackValue && best != values[0]
}
