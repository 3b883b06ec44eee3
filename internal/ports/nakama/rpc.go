package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"blackjack/internal/advisor"
	"blackjack/internal/config"
	"blackjack/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// CreateTableResponse is the payload returned by RpcCreateTable.
type CreateTableResponse struct {
	MatchID string `json:"match_id"`
}

// RecommendResponse is the payload returned by RpcRecommend.
type RecommendResponse struct {
	Action string  `json:"action"`
	Reason string  `json:"reason"`
	Hit    float64 `json:"hit"`
	Stand  float64 `json:"stand"`
}

var errBadPayload = runtime.NewError("invalid payload", 3) // INVALID_ARGUMENT

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateTable, rpcCreateTable); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcRecommend, rpcRecommend)
}

func rpcCreateTable(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	// Each table seats one player, so there is nothing to search for.
	matchID, err := nk.MatchCreate(ctx, MatchNameBlackjack, map[string]interface{}{})
	if err != nil {
		logger.Error("rpcCreateTable [User:%s]: MatchCreate error: %v", userID, err)
		return "", err
	}

	logger.Info("rpcCreateTable [User:%s]: Created table %s", userID, matchID)
	b, _ := json.Marshal(CreateTableResponse{MatchID: matchID})
	return string(b), nil
}

func rpcRecommend(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	cfg := config.GetTableConfig()
	req, err := parseRecommendRequest([]byte(payload), cfg.NumberOfDecks)
	if err != nil {
		logger.Warn("rpcRecommend: %v", err)
		return "", errBadPayload
	}

	adv := advisor.New(advisor.Config{Simulations: cfg.Simulations, Workers: cfg.SimulationWorkers}, nil)
	rec, err := adv.Recommend(ctx, req)
	if err != nil {
		logger.Error("rpcRecommend: Recommend error: %v", err)
		return "", err
	}

	b, _ := json.Marshal(RecommendResponse{
		Action: string(rec.Action),
		Reason: rec.Reason,
		Hit:    rec.HitProbability,
		Stand:  rec.StandProbability,
	})
	return string(b), nil
}

// parseRecommendRequest reads {player, dealer_up, upcoming, decks}. decks
// falls back to defaultDecks when absent.
func parseRecommendRequest(data []byte, defaultDecks int) (advisor.Request, error) {
	s, err := decode(data)
	if err != nil {
		return advisor.Request{}, fmt.Errorf("decode: %w", err)
	}
	fields := s.GetFields()

	player, err := cardsFromValue(fields["player"])
	if err != nil {
		return advisor.Request{}, fmt.Errorf("player: %w", err)
	}
	if len(player) == 0 {
		return advisor.Request{}, errors.New("player hand is empty")
	}
	upValue, ok := fields["dealer_up"]
	if !ok {
		return advisor.Request{}, advisor.ErrNoUpCard
	}
	up, err := cardFromValue(upValue)
	if err != nil {
		return advisor.Request{}, fmt.Errorf("dealer_up: %w", err)
	}
	upcoming, err := cardsFromValue(fields["upcoming"])
	if err != nil {
		return advisor.Request{}, fmt.Errorf("upcoming: %w", err)
	}

	decks := defaultDecks
	if _, ok := fields["decks"]; ok {
		n, err := amountField(s, "decks")
		if err != nil {
			return advisor.Request{}, err
		}
		decks = int(n)
	}
	if decks > config.MaxDecks {
		return advisor.Request{}, fmt.Errorf("decks %d exceeds %d", decks, config.MaxDecks)
	}
	shoe, err := domain.NewShoe(decks)
	if err != nil {
		return advisor.Request{}, err
	}

	return advisor.Request{
		Player:        domain.NewHand(player...),
		DealerUpCard:  up,
		Shoe:          shoe,
		KnownUpcoming: upcoming,
	}, nil
}
