package app

import (
	"context"
	"errors"
	"sync"

	"blackjack/internal/advisor"
	"blackjack/internal/app/betting"
	"blackjack/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCommandInFlight = errors.New("another command is in progress")
	ErrRoundInProgress = errors.New("round in progress")
	ErrBetRejected     = errors.New("bet change not accepted")
	ErrNoAdvice        = errors.New("advice is only available during the player's turn")
)

// Table is one player's seat against the dealer: it owns the round state,
// the betting ledger and the advisor, and runs one command at a time.
type Table struct {
	service *Service
	ledger  *betting.Ledger
	advice  *advisor.Async
	request func(context.Context, advisor.Request) (uint64, <-chan advisor.Recommendation)

	cmd sync.Mutex // held for the duration of a command

	mu      sync.RWMutex
	state   domain.GameState
	roundID string
}

// Snapshot is a consistent read of the table.
type Snapshot struct {
	RoundID  string
	State    domain.GameState
	Phase    domain.Phase
	Bet      betting.BetState
	Bankroll domain.Bankroll
	Placed   []domain.Chips
}

// NewTable wires a table from its collaborators.
func NewTable(service *Service, ledger *betting.Ledger, advice *advisor.Async) *Table {
	return &Table{
		service: service,
		ledger:  ledger,
		advice:  advice,
		request: advice.Request,
		state:   domain.Empty(),
	}
}

// Snapshot returns the current state, phase and ledger.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		RoundID:  t.roundID,
		State:    t.state,
		Phase:    t.state.Phase(),
		Bet:      t.ledger.BetState(),
		Bankroll: t.ledger.Bankroll(),
		Placed:   t.ledger.PlacedChips(),
	}
}

// State returns the current round state.
func (t *Table) State() domain.GameState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Phase returns the derived round phase.
func (t *Table) Phase() domain.Phase {
	return t.State().Phase()
}

// PlaceBet adds a chip of amount to the bet.
func (t *Table) PlaceBet(amount int64) ([]Event, error) {
	chips, err := domain.NewChips(amount)
	if err != nil {
		return nil, err
	}
	return t.betCommand(func() bool { return t.ledger.PlaceBet(chips) })
}

// ClearBet returns the whole bet to the bankroll.
func (t *Table) ClearBet() ([]Event, error) {
	return t.betCommand(t.ledger.ClearBet)
}

// UndoLastChip takes back the most recent chip.
func (t *Table) UndoLastChip() ([]Event, error) {
	return t.betCommand(t.ledger.UndoLastChip)
}

func (t *Table) betCommand(apply func() bool) ([]Event, error) {
	if !t.cmd.TryLock() {
		return nil, ErrCommandInFlight
	}
	defer t.cmd.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.roundActive() {
		return nil, ErrRoundInProgress
	}
	if !apply() {
		return nil, ErrBetRejected
	}
	return []Event{t.betChangedEvent()}, nil
}

// BuyIn credits the bankroll.
func (t *Table) BuyIn(amount int64) ([]Event, error) {
	chips, err := domain.NewChips(amount)
	if err != nil {
		return nil, err
	}
	if !t.cmd.TryLock() {
		return nil, ErrCommandInFlight
	}
	defer t.cmd.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ledger.BuyIn(chips); err != nil {
		return nil, err
	}
	return []Event{{
		Kind:    EventBankrollChanged,
		RoundID: t.roundID,
		Payload: BankrollChangedPayload{Bankroll: t.ledger.Bankroll().Balance(), Delta: amount, Reason: "buy_in"},
	}}, nil
}

// Deal locks the bet and deals a new round. An instant blackjack settles
// immediately.
func (t *Table) Deal() ([]Event, error) {
	if !t.cmd.TryLock() {
		return nil, ErrCommandInFlight
	}
	defer t.cmd.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.roundActive() {
		return nil, ErrRoundInProgress
	}
	t.advice.Invalidate()

	var final domain.GameState
	var dealt []Event
	prev := domain.Empty()
	roundID := uuid.NewString()
	for st, err := range t.service.NewRoundSteps() {
		if err != nil {
			return nil, err
		}
		if ev, ok := cardDealtEvent(roundID, prev, st); ok {
			dealt = append(dealt, ev)
		}
		prev, final = st, st
	}

	bet := t.ledger.LockBet()
	t.roundID = roundID
	t.state = final

	events := append([]Event{{Kind: EventRoundStarted, RoundID: roundID, Payload: RoundStartedPayload{Bet: bet}}}, dealt...)
	return t.finishIfOver(events)
}

// Hit deals the player one card.
func (t *Table) Hit() ([]Event, error) {
	if !t.cmd.TryLock() {
		return nil, ErrCommandInFlight
	}
	defer t.cmd.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.advice.Invalidate()

	next, err := t.service.PlayerHit(t.state)
	if err != nil {
		return nil, err
	}
	var events []Event
	if ev, ok := cardDealtEvent(t.roundID, t.state, next); ok {
		events = append(events, ev)
	}
	t.state = next
	return t.finishIfOver(events)
}

// Stand plays out the dealer's turn. The returned events carry each dealer
// step in order.
func (t *Table) Stand() ([]Event, error) {
	if !t.cmd.TryLock() {
		return nil, ErrCommandInFlight
	}
	defer t.cmd.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.advice.Invalidate()

	var events []Event
	prev := t.state
	final := t.state
	for st, err := range t.service.StandSteps(t.state) {
		if err != nil {
			return nil, err
		}
		switch {
		case prev.Dealer.HasFaceDown() && !st.Dealer.HasFaceDown():
			events = append(events, Event{Kind: EventDealerRevealed, RoundID: t.roundID, Payload: DealerRevealedPayload{Dealer: st.Dealer}})
		case st.Dealer.Len() > prev.Dealer.Len():
			c, _ := st.Dealer.Card(st.Dealer.Len() - 1)
			events = append(events, Event{Kind: EventDealerDrew, RoundID: t.roundID, Payload: DealerDrewPayload{Card: c, Dealer: st.Dealer, DeckRemaining: st.Deck.Len()}})
		}
		prev, final = st, st
	}
	t.state = final
	return t.finishIfOver(events)
}

// Reset clears a finished round back to the betting phase.
func (t *Table) Reset() ([]Event, error) {
	if !t.cmd.TryLock() {
		return nil, ErrCommandInFlight
	}
	defer t.cmd.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.roundActive() {
		return nil, ErrRoundInProgress
	}
	t.advice.Invalidate()
	t.state = domain.Empty()
	t.roundID = ""
	return []Event{t.betChangedEvent()}, nil
}

// Advise starts an asynchronous recommendation for the current hand. The
// channel yields the Waiting placeholder first, then the result, unless a
// later command supersedes it. The request is issued under mu so a command
// that changes the hand always invalidates it.
func (t *Table) Advise(ctx context.Context) (uint64, <-chan advisor.Recommendation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state := t.state
	if !state.DealingDone() || state.Status.IsFinished() {
		return 0, nil, ErrNoAdvice
	}
	upCard, _ := state.DealerUpCard()
	token, ch := t.request(ctx, advisor.Request{
		Player:       state.Player,
		DealerUpCard: upCard,
		Shoe:         state.UnseenCards(),
	})
	return token, ch, nil
}

// AdviceToken is the token of the newest advice request or invalidation.
func (t *Table) AdviceToken() uint64 { return t.advice.Token() }

// roundActive reports a dealt round that has not finished. Callers hold mu.
func (t *Table) roundActive() bool {
	return t.state.CardsDealt() > 0 && !t.state.Status.IsFinished()
}

// finishIfOver appends the result and settlement once the round is over.
// Callers hold mu.
func (t *Table) finishIfOver(events []Event) ([]Event, error) {
	if !t.state.Status.IsFinished() {
		return events, nil
	}
	outcome := t.state.Status.Outcome()
	settled, err := t.ledger.Settle(outcome)
	if err != nil {
		return events, err
	}
	return append(events,
		Event{Kind: EventRoundFinished, RoundID: t.roundID, Payload: RoundFinishedPayload{Outcome: outcome, Player: t.state.Player, Dealer: t.state.Dealer}},
		Event{Kind: EventBetSettled, RoundID: t.roundID, Payload: BetSettledPayload{Settlement: settled}},
	), nil
}

func (t *Table) betChangedEvent() Event {
	bet := t.ledger.BetState()
	return Event{
		Kind:    EventBetChanged,
		RoundID: t.roundID,
		Payload: BetChangedPayload{
			Bet:         bet.CurrentBet,
			Bankroll:    t.ledger.Bankroll().Balance(),
			Placed:      t.ledger.PlacedChips(),
			CanPlaceBet: bet.CanPlaceBet,
		},
	}
}

// cardDealtEvent describes the single card added between two states.
func cardDealtEvent(roundID string, prev, next domain.GameState) (Event, bool) {
	var target string
	var card domain.Card
	switch {
	case next.Player.Len() > prev.Player.Len():
		target = TargetPlayer
		card, _ = next.Player.Card(next.Player.Len() - 1)
	case next.Dealer.Len() > prev.Dealer.Len():
		target = TargetDealer
		card, _ = next.Dealer.Card(next.Dealer.Len() - 1)
	default:
		return Event{}, false
	}
	return Event{Kind: EventCardDealt, RoundID: roundID, Payload: CardDealtPayload{Target: target, Card: card, State: next}}, true
}
