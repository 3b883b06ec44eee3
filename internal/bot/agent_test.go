package bot

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/app/betting"
	"blackjack/internal/domain"
)

func newTable(t *testing.T, seed int64) *app.Table {
	t.Helper()
	bankroll, err := domain.NewChips(1000)
	if err != nil {
		t.Fatalf("NewChips() error = %v", err)
	}
	adv := advisor.New(advisor.Config{Simulations: 100, Workers: 1}, rand.New(rand.NewSource(seed)))
	return app.NewTable(app.NewService(rand.New(rand.NewSource(seed)), 1), betting.NewLedger(bankroll), advisor.NewAsync(adv))
}

func TestAgent_PlayRequiresPlayerTurn(t *testing.T) {
	agent, err := NewAgent("bot-1", BotLevelDealer, nil)
	if err != nil {
		t.Fatalf("NewAgent() error = %v", err)
	}
	if _, err := agent.Play(context.Background(), domain.Empty()); !errors.Is(err, ErrNotPlayerTurn) {
		t.Fatalf("Play() error = %v, want %v", err, ErrNotPlayerTurn)
	}
}

func TestAgent_PlayRoundFinishesEveryRound(t *testing.T) {
	for _, level := range []BotLevel{BotLevelDealer, BotLevelBasic, BotLevelAdvisor} {
		t.Run(level.String(), func(t *testing.T) {
			adv := advisor.New(advisor.Config{Simulations: 100, Workers: 1}, rand.New(rand.NewSource(1)))
			agent, err := NewAgent("bot-1", level, adv)
			if err != nil {
				t.Fatalf("NewAgent() error = %v", err)
			}
			table := newTable(t, 5)

			for round := 0; round < 10; round++ {
				if _, err := table.PlaceBet(10); err != nil {
					t.Fatalf("round %d: PlaceBet() error = %v", round, err)
				}
				if _, err := table.Deal(); err != nil {
					t.Fatalf("round %d: Deal() error = %v", round, err)
				}
				events, err := agent.PlayRound(context.Background(), table)
				if err != nil {
					t.Fatalf("round %d: PlayRound() error = %v", round, err)
				}
				if table.Phase() != domain.PhaseRoundOver {
					t.Fatalf("round %d: Phase() = %q, want round_over", round, table.Phase())
				}
				if len(events) > 0 && events[len(events)-1].Kind != app.EventBetSettled {
					t.Fatalf("round %d: last event = %q, want bet_settled", round, events[len(events)-1].Kind)
				}
				if _, err := table.Reset(); err != nil {
					t.Fatalf("round %d: Reset() error = %v", round, err)
				}
			}
		})
	}
}

func TestAgent_PlayRoundHonoursCancel(t *testing.T) {
	agent, _ := NewAgent("bot-1", BotLevelDealer, nil)
	table := newTable(t, 9)
	for table.Phase() != domain.PhasePlayerTurn {
		table.Reset()
		table.Deal()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := agent.PlayRound(ctx, table); !errors.Is(err, context.Canceled) {
		t.Fatalf("PlayRound() error = %v, want %v", err, context.Canceled)
	}
}
