package app

// MaxDecks bounds the shoe size a table may be configured with.
const MaxDecks = 8

// Event targets for dealt cards.
const (
	TargetPlayer = "player"
	TargetDealer = "dealer"
)
