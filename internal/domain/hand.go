package domain

import (
	"slices"
	"strings"
)

// BlackjackValue is the target total.
const BlackjackValue = 21

// Hand is an ordered, immutable run of cards.
type Hand struct {
	cards []Card
}

// NewHand copies the given cards into a hand.
func NewHand(cards ...Card) Hand {
	return Hand{cards: slices.Clone(cards)}
}

// Cards returns a copy of the hand's cards.
func (h Hand) Cards() []Card { return slices.Clone(h.cards) }

// Len returns the number of cards held.
func (h Hand) Len() int { return len(h.cards) }

// Card returns the card at index i.
func (h Hand) Card(i int) (Card, bool) {
	if i < 0 || i >= len(h.cards) {
		return Card{}, false
	}
	return h.cards[i], true
}

// Add returns a new hand with card appended.
func (h Hand) Add(card Card) Hand {
	out := make([]Card, len(h.cards), len(h.cards)+1)
	copy(out, h.cards)
	return Hand{cards: append(out, card)}
}

// HasFaceDown reports whether any card is still hidden.
func (h Hand) HasFaceDown() bool {
	for _, c := range h.cards {
		if !c.FaceUp {
			return true
		}
	}
	return false
}

// TotalValue is the single optimal total: face-down cards count zero, aces
// count one, and one ace is promoted by ten when that stays within 21.
func (h Hand) TotalValue() int {
	sum := 0
	hasAce := false
	for _, c := range h.cards {
		if !c.FaceUp {
			continue
		}
		sum += c.Rank.Value()
		if c.Rank == RankAce {
			hasAce = true
		}
	}
	if hasAce && sum+10 <= BlackjackValue {
		sum += 10
	}
	return sum
}

// PossibleValues enumerates every ace-as-1-or-11 total over face-up cards,
// ascending and without duplicates. An empty hand yields [0].
func (h Hand) PossibleValues() []int {
	values := []int{0}
	for _, c := range h.cards {
		if !c.FaceUp {
			continue
		}
		next := make([]int, 0, len(values)*2)
		for _, v := range values {
			next = append(next, v+c.Rank.Value())
			if c.Rank == RankAce {
				next = append(next, v+11)
			}
		}
		values = next
	}
	slices.Sort(values)
	return slices.Compact(values)
}

// BestValue is the highest possible value not above 21, or the lowest bust
// value when every combination busts.
func (h Hand) BestValue() int {
	values := h.PossibleValues()
	best := -1
	for _, v := range values {
		if v <= BlackjackValue && v > best {
			best = v
		}
	}
	if best >= 0 {
		return best
	}
	return values[0]
}

// IsBlackjack reports a two-card 21.
func (h Hand) IsBlackjack() bool {
	return len(h.cards) == 2 && h.BestValue() == BlackjackValue
}

// IsBust reports a best value above 21.
func (h Hand) IsBust() bool {
	return h.BestValue() > BlackjackValue
}

func (h Hand) String() string {
	parts := make([]string, len(h.cards))
	for i, c := range h.cards {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
