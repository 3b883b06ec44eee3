// Package wallet mirrors a table's bankroll into the persistent wallet.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"blackjack/internal/app/betting"
	"blackjack/internal/domain"
	"blackjack/internal/ports"
)

var ErrNotConfigured = errors.New("wallet service not configured")

const (
	ReasonSettlement = "round_settlement"
	ReasonBuyIn      = "buy_in"
	ReasonOpening    = "opening_balance"
)

// Service records bankroll movements against an EconomyPort.
type Service struct {
	economy ports.EconomyPort
}

// NewService constructs a wallet service. economy must be non-nil.
func NewService(economy ports.EconomyPort) *Service {
	return &Service{economy: economy}
}

// OpeningBalance returns the chips a player sits down with. A user with an
// empty wallet is credited fallback first so the wallet and bankroll agree.
func (s *Service) OpeningBalance(ctx context.Context, userID string, fallback domain.Chips) (domain.Chips, error) {
	if s == nil || s.economy == nil {
		return domain.Chips{}, ErrNotConfigured
	}
	balance, err := s.economy.GetBalance(ctx, userID)
	if err != nil {
		return domain.Chips{}, fmt.Errorf("failed to read wallet: %w", err)
	}
	if balance > 0 {
		return domain.NewChips(balance)
	}
	if fallback.IsZero() {
		return domain.Chips{}, nil
	}
	err = s.economy.UpdateBalances(ctx, []ports.WalletUpdate{{
		UserID:   userID,
		Amount:   fallback.Amount(),
		Metadata: map[string]interface{}{"reason": ReasonOpening},
	}})
	if err != nil {
		return domain.Chips{}, fmt.Errorf("failed to seed wallet: %w", err)
	}
	return fallback, nil
}

// RecordSettlement writes the net result of a settled round. Pushes and
// other zero-net rounds are not written.
func (s *Service) RecordSettlement(ctx context.Context, userID, matchID, roundID string, settled betting.BetOutcome) error {
	if s == nil || s.economy == nil {
		return ErrNotConfigured
	}
	net := settled.Net()
	if net == 0 {
		return nil
	}
	update := ports.WalletUpdate{
		UserID: userID,
		Amount: net,
		Metadata: map[string]interface{}{
			"match_id": matchID,
			"round_id": roundID,
			"outcome":  string(settled.Outcome),
			"reason":   ReasonSettlement,
		},
	}
	if err := s.economy.UpdateBalances(ctx, []ports.WalletUpdate{update}); err != nil {
		return fmt.Errorf("failed to record settlement: %w", err)
	}
	return nil
}

// RecordBuyIn credits a buy-in to the wallet.
func (s *Service) RecordBuyIn(ctx context.Context, userID, matchID string, amount domain.Chips) error {
	if s == nil || s.economy == nil {
		return ErrNotConfigured
	}
	if amount.IsZero() {
		return nil
	}
	update := ports.WalletUpdate{
		UserID: userID,
		Amount: amount.Amount(),
		Metadata: map[string]interface{}{
			"match_id": matchID,
			"reason":   ReasonBuyIn,
		},
	}
	if err := s.economy.UpdateBalances(ctx, []ports.WalletUpdate{update}); err != nil {
		return fmt.Errorf("failed to record buy-in: %w", err)
	}
	return nil
}
