package bot

import (
	"context"
	"errors"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/domain"
)

var ErrNotPlayerTurn = errors.New("not the player's turn")

// Agent represents an autonomous player at a table.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// NewAgent creates an agent with the brain for level.
func NewAgent(id string, level BotLevel, adv *advisor.Advisor) (*Agent, error) {
	brain, err := NewBrain(level, adv)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: id, Name: level.String(), Strategy: brain}, nil
}

// Play asks the agent for its next move in state.
func (a *Agent) Play(ctx context.Context, state domain.GameState) (Move, error) {
	if state.Phase() != domain.PhasePlayerTurn {
		return Move{}, ErrNotPlayerTurn
	}
	up, _ := state.DealerUpCard()
	return a.Strategy.Decide(ctx, View{
		Player:   state.Player,
		DealerUp: up,
		Shoe:     state.UnseenCards(),
	})
}

// PlayRound plays the player's turn on table to completion and returns
// every event it produced, including the dealer's turn and settlement.
func (a *Agent) PlayRound(ctx context.Context, table *app.Table) ([]app.Event, error) {
	var events []app.Event
	for table.Phase() == domain.PhasePlayerTurn {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		move, err := a.Play(ctx, table.State())
		if err != nil {
			return events, err
		}
		var step []app.Event
		if move.Hit {
			step, err = table.Hit()
		} else {
			step, err = table.Stand()
		}
		if err != nil {
			return events, err
		}
		events = append(events, step...)
	}
	return events, nil
}
