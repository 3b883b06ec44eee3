package domain

// GameOutcome is the closed set of round results. OutcomePlaying is the
// in-progress sentinel and never settles.
type GameOutcome string

const (
	OutcomePlaying               GameOutcome = "playing"
	OutcomePlayerBlackjack       GameOutcome = "player_blackjack"
	OutcomePlayerBust            GameOutcome = "player_bust"
	OutcomePush                  GameOutcome = "push"
	OutcomeDealerWinAndBlackjack GameOutcome = "dealer_win_and_blackjack"
	OutcomePlayerWin             GameOutcome = "player_win"
	OutcomeDealerWin             GameOutcome = "dealer_win"
)

// PayoutRatio is the multiple of the locked bet returned to the player.
func (o GameOutcome) PayoutRatio() float64 {
	switch o {
	case OutcomePlayerBlackjack:
		return 2.5
	case OutcomePlayerWin:
		return 2.0
	case OutcomePush:
		return 1.0
	case OutcomePlayerBust, OutcomeDealerWin, OutcomeDealerWinAndBlackjack, OutcomePlaying:
		return 0
	default:
		return 0
	}
}

// Label is a short human-readable description.
func (o GameOutcome) Label() string {
	switch o {
	case OutcomePlayerBlackjack:
		return "Blackjack!"
	case OutcomePlayerBust:
		return "Player busts"
	case OutcomePush:
		return "Push"
	case OutcomeDealerWinAndBlackjack:
		return "Dealer wins with blackjack"
	case OutcomePlayerWin:
		return "Player wins"
	case OutcomeDealerWin:
		return "Dealer wins"
	default:
		return "Playing"
	}
}

// RoundStatus is either in progress or finished with a terminal outcome.
type RoundStatus struct {
	outcome GameOutcome
}

// InProgress is the status of an unsettled round.
func InProgress() RoundStatus { return RoundStatus{outcome: OutcomePlaying} }

// Finished wraps a terminal outcome. OutcomePlaying maps to InProgress.
func Finished(outcome GameOutcome) RoundStatus {
	if outcome == "" {
		outcome = OutcomePlaying
	}
	return RoundStatus{outcome: outcome}
}

// IsFinished reports a terminal status.
func (s RoundStatus) IsFinished() bool {
	return s.outcome != "" && s.outcome != OutcomePlaying
}

// Outcome returns the terminal outcome, or OutcomePlaying while in progress.
func (s RoundStatus) Outcome() GameOutcome {
	if s.outcome == "" {
		return OutcomePlaying
	}
	return s.outcome
}

func (s RoundStatus) String() string {
	if !s.IsFinished() {
		return "in_progress"
	}
	return "finished(" + string(s.outcome) + ")"
}
