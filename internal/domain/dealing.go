package domain

// DealCard moves the top card of deck onto hand with the given orientation.
func DealCard(deck Deck, hand Hand, faceUp bool) (Deck, Hand, error) {
	card, rest, err := deck.Draw()
	if err != nil {
		return deck, hand, err
	}
	return rest, hand.Add(card.WithFaceUp(faceUp)), nil
}

// FlipCard turns the card at index face-up. Out-of-range indexes leave the
// hand unchanged.
func FlipCard(hand Hand, index int) Hand {
	if index < 0 || index >= len(hand.cards) {
		return hand
	}
	out := hand.Cards()
	out[index] = out[index].WithFaceUp(true)
	return Hand{cards: out}
}
