package advisor

import (
	"context"
	"math/rand"

	"blackjack/internal/domain"
)

// cancelCheckEvery is how many iterations a worker runs between context checks.
const cancelCheckEvery = 128

type tally struct {
	hitWins, hitPushes     int
	standWins, standPushes int
	runs                   int
}

func (t *tally) add(hit, stand result) {
	switch hit {
	case resultWin:
		t.hitWins++
	case resultPush:
		t.hitPushes++
	}
	switch stand {
	case resultWin:
		t.standWins++
	case resultPush:
		t.standPushes++
	}
	t.runs++
}

func (t *tally) merge(o tally) {
	t.hitWins += o.hitWins
	t.hitPushes += o.hitPushes
	t.standWins += o.standWins
	t.standPushes += o.standPushes
	t.runs += o.runs
}

// simulate splits n iterations across workers, each with its own rng seeded
// from the advisor, and merges the counts.
func (a *Advisor) simulate(ctx context.Context, req Request, n int) (hitProb, standProb float64, err error) {
	shoe := visibleShoe(req)

	workers := a.workers
	if n < workers {
		workers = n
	}
	perWorker := n / workers
	remaining := n % workers

	results := make(chan tally, workers)
	for w := 0; w < workers; w++ {
		runs := perWorker
		if w == 0 {
			runs += remaining
		}
		seed := a.nextSeed()
		go func(runs int, seed int64) {
			results <- runWorker(ctx, rand.New(rand.NewSource(seed)), req, shoe, runs)
		}(runs, seed)
	}

	var total tally
	for w := 0; w < workers; w++ {
		total.merge(<-results)
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	hitProb = (float64(total.hitWins) + 0.5*float64(total.hitPushes)) / float64(n)
	standProb = (float64(total.standWins) + 0.5*float64(total.standPushes)) / float64(n)
	return hitProb, standProb, nil
}

func runWorker(ctx context.Context, rng *rand.Rand, req Request, shoe []domain.Card, runs int) tally {
	var local tally
	hitBuf := make([]domain.Card, 0, len(shoe))
	standBuf := make([]domain.Card, 0, len(shoe))

	for i := 0; i < runs; i++ {
		if i%cancelCheckEvery == 0 && ctx.Err() != nil {
			return local
		}
		hitBuf = append(hitBuf[:0], shoe...)
		standBuf = append(standBuf[:0], shoe...)

		hit := playOut(req.Player, req.DealerUpCard, randomDraw(rng, &hitBuf), true)
		stand := playOut(req.Player, req.DealerUpCard, randomDraw(rng, &standBuf), false)
		local.add(hit, stand)
	}
	return local
}

// randomDraw picks uniformly without replacement from *cards.
func randomDraw(rng *rand.Rand, cards *[]domain.Card) drawFunc {
	return func() (domain.Card, bool) {
		s := *cards
		if len(s) == 0 {
			return domain.Card{}, false
		}
		i := rng.Intn(len(s))
		c := s[i]
		last := len(s) - 1
		s[i] = s[last]
		*cards = s[:last]
		return c, true
	}
}
