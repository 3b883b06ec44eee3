// Package betting keeps the player's bankroll and the wager for the current round.
package betting

import (
	"errors"
	"slices"

	"blackjack/internal/domain"
)

var (
	ErrSettleUnfinished = errors.New("cannot settle a round that is still playing")
	ErrFundsOverflow    = errors.New("funds would exceed the largest payable amount")
)

// BetState is the wager for the current round.
type BetState struct {
	CurrentBet  domain.Chips
	CanPlaceBet bool
}

// BetOutcome is the result of settling a round.
type BetOutcome struct {
	Outcome     domain.GameOutcome
	Bet         domain.Chips
	Payout      domain.Chips
	NewBankroll domain.Bankroll
}

// Net is the bankroll change caused by the round, counting the bet as spent.
func (o BetOutcome) Net() int64 {
	return o.Payout.Amount() - o.Bet.Amount()
}

// Ledger owns the bankroll, the bet and the stack of placed chips.
// Money only moves between bankroll and bet until Settle pays out.
type Ledger struct {
	bankroll domain.Bankroll
	bet      BetState
	placed   []domain.Chips
}

// NewLedger opens a ledger with the initial balance and betting unlocked.
func NewLedger(initial domain.Chips) *Ledger {
	return &Ledger{
		bankroll: domain.NewBankroll(initial),
		bet:      BetState{CanPlaceBet: true},
	}
}

// Bankroll returns the funds not on the table.
func (l *Ledger) Bankroll() domain.Bankroll { return l.bankroll }

// BetState returns the current wager.
func (l *Ledger) BetState() BetState { return l.bet }

// PlacedChips returns the placed denominations, oldest first.
func (l *Ledger) PlacedChips() []domain.Chips { return slices.Clone(l.placed) }

// PlaceBet moves amount from bankroll to the bet. It does nothing and
// returns false when betting is locked, the bankroll cannot cover amount, or
// the best payout on the larger bet would not fit.
func (l *Ledger) PlaceBet(amount domain.Chips) bool {
	if !l.bet.CanPlaceBet || !l.bankroll.CanAfford(amount) {
		return false
	}
	bet, err := l.bet.CurrentBet.CheckedAdd(amount)
	if err != nil {
		return false
	}
	bankroll := l.bankroll.Sub(amount)
	if !payable(bankroll, bet) {
		return false
	}
	l.bankroll = bankroll
	l.bet.CurrentBet = bet
	l.placed = append(l.placed, amount)
	return true
}

// ClearBet returns the whole bet to the bankroll.
func (l *Ledger) ClearBet() bool {
	if !l.bet.CanPlaceBet {
		return false
	}
	l.bankroll = l.bankroll.Add(l.bet.CurrentBet)
	l.bet.CurrentBet = domain.Chips{}
	l.placed = nil
	return true
}

// UndoLastChip returns the most recently placed chip.
func (l *Ledger) UndoLastChip() bool {
	if !l.bet.CanPlaceBet || len(l.placed) == 0 {
		return false
	}
	last := l.placed[len(l.placed)-1]
	l.placed = l.placed[:len(l.placed)-1]
	l.bankroll = l.bankroll.Add(last)
	l.bet.CurrentBet = l.bet.CurrentBet.Sub(last)
	return true
}

// BuyIn credits the bankroll. It fails with ErrFundsOverflow, leaving the
// ledger untouched, when the new balance or the best payout on the current
// bet would not fit.
func (l *Ledger) BuyIn(amount domain.Chips) error {
	balance, err := l.bankroll.Balance().CheckedAdd(amount)
	if err != nil {
		return ErrFundsOverflow
	}
	bankroll := domain.NewBankroll(balance)
	if !payable(bankroll, l.bet.CurrentBet) {
		return ErrFundsOverflow
	}
	l.bankroll = bankroll
	return nil
}

// payable reports whether a blackjack payout on bet can be credited to
// bankroll without overflow.
func payable(bankroll domain.Bankroll, bet domain.Chips) bool {
	payout, err := bet.CheckedScale(domain.OutcomePlayerBlackjack.PayoutRatio())
	if err != nil {
		return false
	}
	_, err = bankroll.Balance().CheckedAdd(payout)
	return err == nil
}

// LockBet freezes the wager for the round.
func (l *Ledger) LockBet() BetState {
	l.bet.CanPlaceBet = false
	return l.bet
}

// Settle pays the locked bet by the outcome's ratio and reopens betting.
func (l *Ledger) Settle(outcome domain.GameOutcome) (BetOutcome, error) {
	if outcome == domain.OutcomePlaying || outcome == "" {
		return BetOutcome{}, ErrSettleUnfinished
	}
	bet := l.bet.CurrentBet
	payout := bet.Scale(outcome.PayoutRatio())
	l.bankroll = l.bankroll.Add(payout)
	l.bet = BetState{CanPlaceBet: true}
	l.placed = nil
	return BetOutcome{
		Outcome:     outcome,
		Bet:         bet,
		Payout:      payout,
		NewBankroll: l.bankroll,
	}, nil
}
