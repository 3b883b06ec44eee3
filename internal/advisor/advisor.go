// Package advisor estimates whether hitting or standing gives the better
// chance of beating the dealer, by Monte-Carlo simulation over the unseen
// shoe or by replaying a known card order.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"blackjack/internal/domain"
)

// DefaultSimulations is the Monte-Carlo iteration count when none is given.
const DefaultSimulations = 10000

var ErrNoUpCard = errors.New("dealer up-card is required")

// Action is the recommended player move.
type Action string

const (
	ActionHit        Action = "hit"
	ActionStand      Action = "stand"
	ActionImpossible Action = "impossible"
	ActionWaiting    Action = "waiting"
)

// Recommendation is an action with a human-readable reason and the
// estimated win probabilities (pushes count half).
type Recommendation struct {
	Action           Action
	Reason           string
	HitProbability   float64
	StandProbability float64
}

// Request describes the public information at the time of the query.
type Request struct {
	Player       domain.Hand
	DealerUpCard domain.Card
	// Shoe is every card the player has not seen. Visible cards are removed
	// from it before simulating.
	Shoe domain.Deck
	// KnownUpcoming switches to deterministic replay of this exact order.
	KnownUpcoming []domain.Card
	// Simulations overrides the advisor's iteration count when positive.
	Simulations int
}

// Config tunes the simulation.
type Config struct {
	Simulations int
	// Workers is the goroutine count; zero means runtime.NumCPU().
	Workers int
}

// Advisor runs recommendations. It is safe for concurrent use.
type Advisor struct {
	simulations int
	workers     int

	mu  sync.Mutex
	rng *rand.Rand
}

// New constructs an Advisor with provided rng or a time-seeded default.
// The rng only seeds the per-worker generators.
func New(cfg Config, rng *rand.Rand) *Advisor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Simulations <= 0 {
		cfg.Simulations = DefaultSimulations
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Advisor{simulations: cfg.Simulations, workers: cfg.Workers, rng: rng}
}

// Placeholder answers the cases that need no simulation. done is false when
// the hand is below 21 and the returned value is the Waiting placeholder.
func Placeholder(player domain.Hand) (rec Recommendation, done bool) {
	switch total := player.BestValue(); {
	case total > domain.BlackjackValue:
		return Recommendation{Action: ActionImpossible, Reason: "Already busted"}, true
	case total == domain.BlackjackValue:
		return Recommendation{Action: ActionStand, Reason: "You have 21"}, true
	default:
		return Recommendation{Action: ActionWaiting, Reason: "Simulation running…"}, false
	}
}

// Recommend computes the final recommendation synchronously.
func (a *Advisor) Recommend(ctx context.Context, req Request) (Recommendation, error) {
	if rec, done := Placeholder(req.Player); done {
		return rec, nil
	}
	if !req.DealerUpCard.Rank.Valid() {
		return Recommendation{}, ErrNoUpCard
	}
	if err := ctx.Err(); err != nil {
		return Recommendation{}, err
	}

	if len(req.KnownUpcoming) > 0 {
		hit, stand := a.replay(req)
		return Decide(hit, stand), nil
	}

	n := req.Simulations
	if n <= 0 {
		n = a.simulations
	}
	hit, stand, err := a.simulate(ctx, req, n)
	if err != nil {
		return Recommendation{}, err
	}
	return Decide(hit, stand), nil
}

// Decide applies the shared decision rule. Ties, other than both zero,
// prefer Stand.
func Decide(hitProb, standProb float64) Recommendation {
	rec := Recommendation{HitProbability: hitProb, StandProbability: standProb}
	hit, stand := pct(hitProb), pct(standProb)
	switch {
	case hitProb > standProb:
		rec.Action = ActionHit
		rec.Reason = fmt.Sprintf("Hit win-rate %s%% vs Stand %s%%", hit, stand)
	case standProb > hitProb:
		rec.Action = ActionStand
		rec.Reason = fmt.Sprintf("Stand win-rate %s%% vs Hit %s%%", stand, hit)
	case hitProb == 0 && standProb == 0:
		rec.Action = ActionImpossible
		rec.Reason = fmt.Sprintf("Cannot win this hand: Hit %s%% vs Stand %s%%", hit, stand)
	default:
		rec.Action = ActionStand
		rec.Reason = fmt.Sprintf("Equal outcomes, prefer Stand: Hit %s%% vs Stand %s%%", hit, stand)
	}
	return rec
}

func pct(p float64) string {
	return fmt.Sprintf("%.1f", p*100)
}

func (a *Advisor) nextSeed() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Int63()
}
