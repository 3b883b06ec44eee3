package app

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"blackjack/internal/advisor"
	"blackjack/internal/app/betting"
	"blackjack/internal/domain"
)

func newTestTable(t *testing.T, seed int64, bankroll int64) *Table {
	t.Helper()
	chips, err := domain.NewChips(bankroll)
	if err != nil {
		t.Fatalf("NewChips() error = %v", err)
	}
	adv := advisor.New(advisor.Config{Simulations: 300, Workers: 2}, rand.New(rand.NewSource(seed)))
	return NewTable(NewService(rand.New(rand.NewSource(seed)), 1), betting.NewLedger(chips), advisor.NewAsync(adv))
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func findEvent(events []Event, kind EventKind) (Event, bool) {
	for _, ev := range events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

func TestTableBettingPhase(t *testing.T) {
	table := newTestTable(t, 1, 1000)

	if _, err := table.PlaceBet(-5); !errors.Is(err, domain.ErrNegativeChips) {
		t.Fatalf("PlaceBet(-5) error = %v, want %v", err, domain.ErrNegativeChips)
	}
	if _, err := table.PlaceBet(5000); !errors.Is(err, ErrBetRejected) {
		t.Fatalf("PlaceBet(5000) error = %v, want %v", err, ErrBetRejected)
	}
	events, err := table.PlaceBet(100)
	if err != nil {
		t.Fatalf("PlaceBet(100) error = %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventBetChanged {
		t.Fatalf("PlaceBet() events = %v, want [bet_changed]", kinds(events))
	}
	if _, err := table.UndoLastChip(); err != nil {
		t.Fatalf("UndoLastChip() error = %v", err)
	}
	if _, err := table.UndoLastChip(); !errors.Is(err, ErrBetRejected) {
		t.Fatalf("UndoLastChip() on empty stack error = %v, want %v", err, ErrBetRejected)
	}
	if snap := table.Snapshot(); snap.Bankroll.Balance().Amount() != 1000 || snap.Phase != domain.PhasePlacingBet {
		t.Fatalf("Snapshot() = %+v, want bankroll 1000 in placing_bet", snap)
	}
}

func TestTablePlaysRoundsToSettlement(t *testing.T) {
	table := newTestTable(t, 7, 1000)

	for round := 0; round < 20; round++ {
		before := table.Snapshot().Bankroll.Balance().Amount()
		if _, err := table.PlaceBet(10); err != nil {
			t.Fatalf("round %d: PlaceBet() error = %v", round, err)
		}

		events, err := table.Deal()
		if err != nil {
			t.Fatalf("round %d: Deal() error = %v", round, err)
		}
		if events[0].Kind != EventRoundStarted {
			t.Fatalf("round %d: first event = %q, want round_started", round, events[0].Kind)
		}
		dealt := 0
		for _, ev := range events {
			if ev.Kind == EventCardDealt {
				dealt++
			}
		}
		if dealt != 4 {
			t.Fatalf("round %d: card_dealt events = %d, want 4", round, dealt)
		}

		if table.Phase() == domain.PhasePlayerTurn {
			if _, err := table.PlaceBet(5); !errors.Is(err, ErrRoundInProgress) {
				t.Fatalf("round %d: PlaceBet() mid-round error = %v, want %v", round, err, ErrRoundInProgress)
			}
			if _, err := table.Reset(); !errors.Is(err, ErrRoundInProgress) {
				t.Fatalf("round %d: Reset() mid-round error = %v, want %v", round, err, ErrRoundInProgress)
			}
			for table.Phase() == domain.PhasePlayerTurn && table.State().Player.BestValue() < 12 {
				more, err := table.Hit()
				if err != nil {
					t.Fatalf("round %d: Hit() error = %v", round, err)
				}
				events = append(events, more...)
			}
			if table.Phase() == domain.PhasePlayerTurn {
				more, err := table.Stand()
				if err != nil {
					t.Fatalf("round %d: Stand() error = %v", round, err)
				}
				if more[0].Kind != EventDealerRevealed {
					t.Fatalf("round %d: Stand() first event = %q, want dealer_revealed", round, more[0].Kind)
				}
				events = append(events, more...)
			}
		}

		if table.Phase() != domain.PhaseRoundOver {
			t.Fatalf("round %d: Phase() = %q, want round_over", round, table.Phase())
		}
		ev, ok := findEvent(events, EventBetSettled)
		if !ok {
			t.Fatalf("round %d: no bet_settled in %v", round, kinds(events))
		}
		settled := ev.Payload.(BetSettledPayload).Settlement
		wantPayout := int64(float64(10) * settled.Outcome.PayoutRatio())
		if settled.Payout.Amount() != wantPayout {
			t.Fatalf("round %d: payout = %d, want %d for %s", round, settled.Payout.Amount(), wantPayout, settled.Outcome)
		}
		after := table.Snapshot()
		if got := after.Bankroll.Balance().Amount(); got != before-10+wantPayout {
			t.Fatalf("round %d: bankroll = %d, want %d", round, got, before-10+wantPayout)
		}
		if !after.Bet.CanPlaceBet || !after.Bet.CurrentBet.IsZero() {
			t.Fatalf("round %d: bet after settle = %+v", round, after.Bet)
		}
		if _, err := table.Hit(); !errors.Is(err, ErrRoundFinished) {
			t.Fatalf("round %d: Hit() after finish error = %v, want %v", round, err, ErrRoundFinished)
		}
		if _, err := table.Reset(); err != nil {
			t.Fatalf("round %d: Reset() error = %v", round, err)
		}
	}
}

func TestTableRejectsOverlappingCommands(t *testing.T) {
	table := newTestTable(t, 1, 1000)
	table.cmd.Lock()
	defer table.cmd.Unlock()

	if _, err := table.Deal(); !errors.Is(err, ErrCommandInFlight) {
		t.Fatalf("Deal() error = %v, want %v", err, ErrCommandInFlight)
	}
	if _, err := table.PlaceBet(10); !errors.Is(err, ErrCommandInFlight) {
		t.Fatalf("PlaceBet() error = %v, want %v", err, ErrCommandInFlight)
	}
}

func TestTableAdvise(t *testing.T) {
	table := newTestTable(t, 11, 1000)
	if _, _, err := table.Advise(context.Background()); !errors.Is(err, ErrNoAdvice) {
		t.Fatalf("Advise() before deal error = %v, want %v", err, ErrNoAdvice)
	}

	for table.Phase() != domain.PhasePlayerTurn {
		if _, err := table.Reset(); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if _, err := table.Deal(); err != nil {
			t.Fatalf("Deal() error = %v", err)
		}
	}

	token, ch, err := table.Advise(context.Background())
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if token != table.AdviceToken() {
		t.Fatalf("Advise() token = %d, want %d", token, table.AdviceToken())
	}

	var got []advisor.Recommendation
	timeout := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case rec, ok := <-ch:
			if !ok {
				done = true
				break
			}
			got = append(got, rec)
		case <-timeout:
			t.Fatalf("advice channel not closed")
		}
	}
	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("Advise() yielded %d values, want 1 or 2", len(got))
	}
	final := got[len(got)-1]
	if final.Action == advisor.ActionWaiting {
		t.Fatalf("final advice = %q, want a decision", final.Action)
	}
}

func TestTableCommandInvalidatesAdvice(t *testing.T) {
	table := newTestTable(t, 13, 1000)
	for table.Phase() != domain.PhasePlayerTurn {
		table.Reset()
		table.Deal()
	}
	token, _, err := table.Advise(context.Background())
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if _, err := table.Stand(); err != nil {
		t.Fatalf("Stand() error = %v", err)
	}
	if table.AdviceToken() == token {
		t.Fatalf("AdviceToken() unchanged after Stand()")
	}
}

func TestTableBuyIn(t *testing.T) {
	table := newTestTable(t, 1, 0)
	events, err := table.BuyIn(500)
	if err != nil {
		t.Fatalf("BuyIn() error = %v", err)
	}
	p := events[0].Payload.(BankrollChangedPayload)
	if p.Bankroll.Amount() != 500 || p.Delta != 500 {
		t.Fatalf("BuyIn() payload = %+v, want bankroll 500 delta 500", p)
	}
}

func TestTableBuyInOverflow(t *testing.T) {
	table := newTestTable(t, 1, math.MaxInt64-10)
	if _, err := table.BuyIn(100); !errors.Is(err, betting.ErrFundsOverflow) {
		t.Fatalf("BuyIn() error = %v, want %v", err, betting.ErrFundsOverflow)
	}
	if got := table.Snapshot().Bankroll.Balance().Amount(); got != math.MaxInt64-10 {
		t.Fatalf("Bankroll() = %d, want %d", got, int64(math.MaxInt64-10))
	}
}

func TestTableAdviceNeverOutlivesHit(t *testing.T) {
	for seed := int64(1); seed <= 100; seed++ {
		table := newTestTable(t, seed, 1000)
		for table.Phase() != domain.PhasePlayerTurn {
			table.Reset()
			table.Deal()
		}

		var (
			mu       sync.Mutex
			advised  domain.Hand
			token    uint64
			requests int
		)
		table.request = func(ctx context.Context, req advisor.Request) (uint64, <-chan advisor.Recommendation) {
			tok, ch := table.advice.Request(ctx, req)
			mu.Lock()
			advised, token = req.Player, tok
			requests++
			mu.Unlock()
			return tok, ch
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			table.Advise(context.Background())
		}()
		go func() {
			defer wg.Done()
			table.Hit()
		}()
		wg.Wait()

		mu.Lock()
		if requests == 1 && token == table.AdviceToken() {
			if got, want := advised.Len(), table.State().Player.Len(); got != want {
				t.Fatalf("seed %d: current advice is for a %d-card hand, table holds %d cards", seed, got, want)
			}
		}
		mu.Unlock()
	}
}
