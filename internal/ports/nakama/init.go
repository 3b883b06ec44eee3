package nakama

import (
	"context"
	"database/sql"

	"blackjack/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

const tableConfigPath = "data/table_config.json"

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadTableConfig(tableConfigPath); err != nil {
		logger.Warn("InitModule: Could not load table config, using defaults: %v", err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameBlackjack, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(), nil
	}); err != nil {
		return err
	}

	logger.Info("Blackjack Go module loaded.")
	return nil
}
