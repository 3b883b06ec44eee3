package bot

import (
	"context"
	"fmt"

	"blackjack/internal/advisor"
	"blackjack/internal/domain"
)

// DealerBot plays the house rule: draw below 17.
type DealerBot struct{}

func (b *DealerBot) Decide(ctx context.Context, view View) (Move, error) {
	total := view.Player.BestValue()
	if total < domain.DealerStandValue {
		return Move{Hit: true, Reason: fmt.Sprintf("%d is below %d", total, domain.DealerStandValue)}, nil
	}
	return Move{Reason: fmt.Sprintf("%d stands", total)}, nil
}

// BasicBot follows the tuning tables against the dealer up-card.
type BasicBot struct {
	Tuning StrategyTuning
}

func (b *BasicBot) Decide(ctx context.Context, view View) (Move, error) {
	idx := upCardIndex(view.DealerUp)
	if idx < 2 || idx > 11 {
		return Move{}, advisor.ErrNoUpCard
	}
	total := view.Player.BestValue()
	threshold, kind := b.Tuning.HardStand[idx], "hard"
	if isSoft(view.Player) {
		threshold, kind = b.Tuning.SoftStand[idx], "soft"
	}
	if total < threshold {
		return Move{Hit: true, Reason: fmt.Sprintf("%s %d hits against %s", kind, total, view.DealerUp)}, nil
	}
	return Move{Reason: fmt.Sprintf("%s %d stands against %s", kind, total, view.DealerUp)}, nil
}

// AdvisorBot follows the strategy advisor's win-rate comparison.
type AdvisorBot struct {
	Advisor *advisor.Advisor
}

func (b *AdvisorBot) Decide(ctx context.Context, view View) (Move, error) {
	rec, err := b.Advisor.Recommend(ctx, advisor.Request{
		Player:       view.Player,
		DealerUpCard: view.DealerUp,
		Shoe:         view.Shoe,
	})
	if err != nil {
		return Move{}, err
	}
	return Move{Hit: rec.Action == advisor.ActionHit, Reason: rec.Reason}, nil
}
