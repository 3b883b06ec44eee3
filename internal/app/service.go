package app

import (
	"errors"
	"iter"
	"math/rand"
	"time"

	"blackjack/internal/domain"
)

// Service contains the blackjack round transitions. Every method takes a
// GameState and returns a new one; nothing is mutated in place.
type Service struct {
	rng           *rand.Rand
	numberOfDecks int
}

// NewService constructs a Service with provided rng or a time-seeded default.
// numberOfDecks is clamped to 1..MaxDecks.
func NewService(rng *rand.Rand, numberOfDecks int) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	numberOfDecks = min(max(numberOfDecks, 1), MaxDecks)
	return &Service{rng: rng, numberOfDecks: numberOfDecks}
}

var (
	ErrRoundFinished   = errors.New("round already finished")
	ErrRoundNotStarted = errors.New("round has not been dealt")
)

// NumberOfDecks is the shoe size used for new rounds.
func (s *Service) NumberOfDecks() int { return s.numberOfDecks }

// Shoe returns a freshly shuffled shoe.
func (s *Service) Shoe() (domain.Deck, error) {
	shoe, err := domain.NewShoe(s.numberOfDecks)
	if err != nil {
		return domain.Deck{}, err
	}
	return shoe.Shuffled(s.rng), nil
}

// NewRound shuffles a fresh shoe and deals the opening hands.
func (s *Service) NewRound() (domain.GameState, error) {
	shoe, err := s.Shoe()
	if err != nil {
		return domain.Empty(), err
	}
	return s.NewRoundFrom(shoe)
}

// NewRoundFrom deals player, dealer, player, then the dealer's hole card
// face-down from the top of deck and evaluates the result, so an instant
// blackjack is already finished.
func (s *Service) NewRoundFrom(deck domain.Deck) (domain.GameState, error) {
	var player, dealer domain.Hand
	var err error
	steps := []struct {
		toPlayer bool
		faceUp   bool
	}{{true, true}, {false, true}, {true, true}, {false, false}}

	for _, step := range steps {
		if step.toPlayer {
			deck, player, err = domain.DealCard(deck, player, step.faceUp)
		} else {
			deck, dealer, err = domain.DealCard(deck, dealer, step.faceUp)
		}
		if err != nil {
			return domain.Empty(), err
		}
	}

	return domain.GameState{
		Deck:   deck,
		Player: player,
		Dealer: dealer,
		Status: domain.EvaluateResult(player, dealer),
	}, nil
}

// PlayerHit deals one face-up card to the player and re-evaluates. A bust
// finishes the round as a dealer win without a dealer turn.
func (s *Service) PlayerHit(state domain.GameState) (domain.GameState, error) {
	if err := checkPlayable(state); err != nil {
		return state, err
	}
	deck, player, err := domain.DealCard(state.Deck, state.Player, true)
	if err != nil {
		return state, err
	}
	return domain.GameState{
		Deck:   deck,
		Player: player,
		Dealer: state.Dealer,
		Status: domain.EvaluateResult(player, state.Dealer),
	}, nil
}

// PlayerStand reveals the hole card, lets the dealer draw to completion and
// evaluates the final result.
func (s *Service) PlayerStand(state domain.GameState) (domain.GameState, error) {
	if err := checkPlayable(state); err != nil {
		return state, err
	}
	deck, dealer := state.Deck, revealDealer(state.Dealer)
	for d, h := range DealerTurn(deck, dealer) {
		deck, dealer = d, h
	}
	return domain.GameState{
		Deck:   deck,
		Player: state.Player,
		Dealer: dealer,
		Status: domain.EvaluateResult(state.Player, dealer),
	}, nil
}

// DealerTurn yields the deck and dealer hand after each dealer draw, while
// the dealer should draw and the deck is not empty. It is a pure function
// of its inputs and can be ranged over any number of times.
func DealerTurn(deck domain.Deck, dealer domain.Hand) iter.Seq2[domain.Deck, domain.Hand] {
	return func(yield func(domain.Deck, domain.Hand) bool) {
		for domain.ShouldDealerDraw(dealer) && !deck.IsEmpty() {
			var err error
			deck, dealer, err = domain.DealCard(deck, dealer, true)
			if err != nil {
				return
			}
			if !yield(deck, dealer) {
				return
			}
		}
	}
}

// NewRoundSteps deals a new round from a fresh shoe as a sequence of states,
// one per card, followed by the evaluated state.
func (s *Service) NewRoundSteps() iter.Seq2[domain.GameState, error] {
	return func(yield func(domain.GameState, error) bool) {
		shoe, err := s.Shoe()
		if err != nil {
			yield(domain.Empty(), err)
			return
		}
		for st, err := range s.DealSteps(shoe) {
			if !yield(st, err) {
				return
			}
		}
	}
}

// DealSteps is NewRoundFrom unrolled: the state after each of the four
// opening cards, all carrying the post-deal deck and in progress, then the
// evaluated final state.
func (s *Service) DealSteps(deck domain.Deck) iter.Seq2[domain.GameState, error] {
	return func(yield func(domain.GameState, error) bool) {
		final, err := s.NewRoundFrom(deck)
		if err != nil {
			yield(final, err)
			return
		}

		player, dealer := final.Player.Cards(), final.Dealer.Cards()
		counts := [][2]int{{1, 0}, {1, 1}, {2, 1}, {2, 2}}
		for _, c := range counts {
			st := domain.GameState{
				Deck:   final.Deck,
				Player: domain.NewHand(player[:c[0]]...),
				Dealer: domain.NewHand(dealer[:c[1]]...),
				Status: domain.InProgress(),
			}
			if !yield(st, nil) {
				return
			}
		}
		yield(final, nil)
	}
}

// StandSteps is PlayerStand unrolled for an animator: the state with the hole
// card revealed, one state per dealer draw, then the final state from
// PlayerStand. Ranging to completion ends in exactly PlayerStand's result.
func (s *Service) StandSteps(state domain.GameState) iter.Seq2[domain.GameState, error] {
	return func(yield func(domain.GameState, error) bool) {
		if err := checkPlayable(state); err != nil {
			yield(state, err)
			return
		}

		step := state
		step.Dealer = revealDealer(state.Dealer)
		step.Status = domain.InProgress()
		if !yield(step, nil) {
			return
		}
		for deck, dealer := range DealerTurn(step.Deck, step.Dealer) {
			step.Deck, step.Dealer = deck, dealer
			if !yield(step, nil) {
				return
			}
		}

		yield(s.PlayerStand(state))
	}
}

func checkPlayable(state domain.GameState) error {
	if state.CardsDealt() == 0 {
		return ErrRoundNotStarted
	}
	if state.Status.IsFinished() {
		return ErrRoundFinished
	}
	return nil
}

func revealDealer(dealer domain.Hand) domain.Hand {
	for i := 0; i < dealer.Len(); i++ {
		dealer = domain.FlipCard(dealer, i)
	}
	return dealer
}
