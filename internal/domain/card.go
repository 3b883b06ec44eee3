package domain

import "fmt"

// Suit is one of the four French suits.
type Suit int32

const (
	SuitClubs Suit = iota
	SuitDiamonds
	SuitHearts
	SuitSpades
)

// Suits lists every suit in deck-building order.
var Suits = [...]Suit{SuitClubs, SuitDiamonds, SuitHearts, SuitSpades}

func (s Suit) String() string {
	switch s {
	case SuitClubs:
		return "♣"
	case SuitDiamonds:
		return "♦"
	case SuitHearts:
		return "♥"
	case SuitSpades:
		return "♠"
	default:
		return "?"
	}
}

// Red reports whether the suit is printed in red.
func (s Suit) Red() bool {
	return s == SuitDiamonds || s == SuitHearts
}

// Rank is the face of a card, Ace through King.
type Rank int32

const (
	RankAce Rank = iota + 1
	RankTwo
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
)

// Value returns the hard blackjack value of the rank. Aces count 1 here;
// promotion to 11 is a hand-level decision.
func (r Rank) Value() int {
	switch {
	case r >= RankTen && r <= RankKing:
		return 10
	case r >= RankAce && r < RankTen:
		return int(r)
	default:
		return 0
	}
}

// Valid reports whether r is one of the thirteen ranks.
func (r Rank) Valid() bool {
	return r >= RankAce && r <= RankKing
}

func (r Rank) String() string {
	switch r {
	case RankAce:
		return "A"
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	default:
		if r.Valid() {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

// Card is an immutable playing card. Methods return modified copies.
type Card struct {
	Rank   Rank
	Suit   Suit
	FaceUp bool
}

// NewCard validates rank and suit.
func NewCard(rank Rank, suit Suit, faceUp bool) (Card, error) {
	if !rank.Valid() {
		return Card{}, fmt.Errorf("invalid rank %d", rank)
	}
	if suit < SuitClubs || suit > SuitSpades {
		return Card{}, fmt.Errorf("invalid suit %d", suit)
	}
	return Card{Rank: rank, Suit: suit, FaceUp: faceUp}, nil
}

// Flipped returns the card with its face toggled.
func (c Card) Flipped() Card {
	c.FaceUp = !c.FaceUp
	return c
}

// WithFaceUp returns the card with the given face orientation.
func (c Card) WithFaceUp(faceUp bool) Card {
	c.FaceUp = faceUp
	return c
}

// SameFace reports whether both cards are the same physical card type,
// ignoring orientation.
func (c Card) SameFace(other Card) bool {
	return c.Rank == other.Rank && c.Suit == other.Suit
}

func (c Card) String() string {
	if !c.FaceUp {
		return "??"
	}
	return c.Rank.String() + c.Suit.String()
}
