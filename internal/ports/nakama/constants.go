package nakama

const (
	// RpcCreateTable creates a single-seat blackjack match and returns its id.
	RpcCreateTable = "create_table"
	// RpcRecommend answers a one-off strategy question without a match.
	RpcRecommend = "recommend"

	// MatchNameBlackjack is the authoritative match handler name registered with Nakama.
	MatchNameBlackjack = "blackjack_table"

	// MatchLabelKey_OpenSeats is the label key clients filter on.
	MatchLabelKey_OpenSeats = "open"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpPlaceBet  int64 = 1
	OpClearBet  int64 = 2
	OpUndoChip  int64 = 3
	OpBuyIn     int64 = 4
	OpDeal      int64 = 5
	OpHit       int64 = 6
	OpStand     int64 = 7
	OpAdvise    int64 = 8
	OpResetHand int64 = 9

	// Server -> Client events
	OpSnapshot       int64 = 101
	OpTableEvent     int64 = 102
	OpRecommendation int64 = 103
	OpError          int64 = 104 // sent privately
)

// Error codes carried by OpError.
const (
	ErrCodeBadRequest = 400
	ErrCodeConflict   = 409
	ErrCodeInternal   = 500
)
