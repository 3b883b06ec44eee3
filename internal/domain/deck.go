package domain

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrEmptyDeck        = errors.New("deck is empty")
	ErrInvalidDeckCount = errors.New("number of decks must be at least 1")
	ErrInvalidCard      = errors.New("invalid card")
	ErrTooManyCopies    = errors.New("more copies of a card than the decks hold")
)

// CardsPerDeck is the size of one standard pack.
const CardsPerDeck = 52

// Deck is the undrawn shoe: an ordered card sequence built from numberOfDecks packs.
// Index 0 is the top card.
type Deck struct {
	cards         []Card
	numberOfDecks int
}

// NewDeck builds a deck from an explicit card order. Every card must be
// valid and no rank and suit may appear more than numberOfDecks times.
func NewDeck(cards []Card, numberOfDecks int) (Deck, error) {
	if numberOfDecks < 1 {
		return Deck{}, ErrInvalidDeckCount
	}
	counts := make(map[Card]int, len(cards))
	for _, c := range cards {
		if !c.Rank.Valid() || c.Suit < SuitClubs || c.Suit > SuitSpades {
			return Deck{}, fmt.Errorf("%w: rank %d suit %d", ErrInvalidCard, c.Rank, c.Suit)
		}
		face := c.WithFaceUp(false)
		counts[face]++
		if counts[face] > numberOfDecks {
			return Deck{}, fmt.Errorf("%w: %s%s x%d in %d deck(s)", ErrTooManyCopies, c.Rank, c.Suit, counts[face], numberOfDecks)
		}
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return Deck{cards: out, numberOfDecks: numberOfDecks}, nil
}

// NewStandardDeck returns an ordered, face-down 52-card pack.
func NewStandardDeck() Deck {
	d, _ := NewShoe(1)
	return d
}

// NewShoe merges numberOfDecks ordered packs.
func NewShoe(numberOfDecks int) (Deck, error) {
	if numberOfDecks < 1 {
		return Deck{}, ErrInvalidDeckCount
	}
	cards := make([]Card, 0, CardsPerDeck*numberOfDecks)
	for n := 0; n < numberOfDecks; n++ {
		for _, s := range Suits {
			for r := RankAce; r <= RankKing; r++ {
				cards = append(cards, Card{Rank: r, Suit: s})
			}
		}
	}
	return Deck{cards: cards, numberOfDecks: numberOfDecks}, nil
}

// Shuffled returns a shuffled copy of the deck.
func (d Deck) Shuffled(rng *rand.Rand) Deck {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return Deck{cards: out, numberOfDecks: d.numberOfDecks}
}

// Len returns the number of undrawn cards.
func (d Deck) Len() int { return len(d.cards) }

// IsEmpty reports whether no cards remain.
func (d Deck) IsEmpty() bool { return len(d.cards) == 0 }

// NumberOfDecks is the pack count the shoe was built from.
func (d Deck) NumberOfDecks() int {
	if d.numberOfDecks < 1 {
		return 1
	}
	return d.numberOfDecks
}

// Cards returns a copy of the remaining cards, top first.
func (d Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Draw removes the top card and returns it with the smaller deck.
func (d Deck) Draw() (Card, Deck, error) {
	if len(d.cards) == 0 {
		return Card{}, d, ErrEmptyDeck
	}
	rest := make([]Card, len(d.cards)-1)
	copy(rest, d.cards[1:])
	return d.cards[0], Deck{cards: rest, numberOfDecks: d.numberOfDecks}, nil
}

// Contains reports whether a card of the same rank and suit is still undrawn.
func (d Deck) Contains(card Card) bool {
	for _, c := range d.cards {
		if c.SameFace(card) {
			return true
		}
	}
	return false
}

// Without removes one instance per given card, matching rank and suit.
// Cards that are not present are skipped.
func (d Deck) Without(cards ...Card) Deck {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	for _, rm := range cards {
		for i := range out {
			if out[i].SameFace(rm) {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return Deck{cards: out, numberOfDecks: d.numberOfDecks}
}
