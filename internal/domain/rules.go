package domain

// DealerStandValue is the total at which the dealer stops drawing. Soft 17
// is not special-cased: an ace and a six stand.
const DealerStandValue = 17

// ShouldDealerDraw reports whether the dealer takes another card.
func ShouldDealerDraw(dealer Hand) bool {
	return dealer.TotalValue() < DealerStandValue
}

// EvaluateResult settles the round from public information. A player
// blackjack or bust ends the round before the dealer's hole card matters.
func EvaluateResult(player, dealer Hand) RoundStatus {
	if player.IsBlackjack() {
		return Finished(OutcomePlayerBlackjack)
	}
	if player.BestValue() > BlackjackValue {
		return Finished(OutcomeDealerWin)
	}
	if dealer.HasFaceDown() || dealer.Len() < 2 {
		return InProgress()
	}

	p, d := player.BestValue(), dealer.BestValue()
	switch {
	case p > BlackjackValue && d <= BlackjackValue:
		return Finished(OutcomeDealerWin)
	case d > BlackjackValue && p <= BlackjackValue:
		return Finished(OutcomePlayerWin)
	case p > BlackjackValue && d > BlackjackValue:
		return Finished(OutcomePush)
	case p > d:
		return Finished(OutcomePlayerWin)
	case p < d:
		return Finished(OutcomeDealerWin)
	default:
		return Finished(OutcomePush)
	}
}
