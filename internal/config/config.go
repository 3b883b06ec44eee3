package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Environment variables that override file values.
const (
	EnvDecks           = "blackjack_decks"
	EnvSimulations     = "blackjack_simulations"
	EnvInitialBankroll = "blackjack_initial_bankroll"
)

const MaxDecks = 8

var ErrInvalidConfig = errors.New("invalid table config")

type TableConfig struct {
	InitialBankroll   int64   `json:"initial_bankroll"`
	NumberOfDecks     int     `json:"number_of_decks"`
	Simulations       int     `json:"simulations"`
	SimulationWorkers int     `json:"simulation_workers"` // 0 means one per CPU
	ChipDenominations []int64 `json:"chip_denominations"`
	TickRate          int     `json:"tick_rate"`
	// DealerStepTicks is how many match ticks pass between dealer draws.
	DealerStepTicks int    `json:"dealer_step_ticks"`
	WalletCurrency  string `json:"wallet_currency"`
}

var (
	cfg      *TableConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the built-in table configuration.
func Default() TableConfig {
	return TableConfig{
		InitialBankroll:   1000,
		NumberOfDecks:     1,
		Simulations:       10000,
		ChipDenominations: []int64{5, 25, 100, 500},
		TickRate:          5,
		DealerStepTicks:   2,
		WalletCurrency:    "chips",
	}
}

// Validate reports the first field outside its allowed range.
func (c TableConfig) Validate() error {
	switch {
	case c.InitialBankroll < 0:
		return fmt.Errorf("%w: initial_bankroll %d is negative", ErrInvalidConfig, c.InitialBankroll)
	case c.NumberOfDecks < 1 || c.NumberOfDecks > MaxDecks:
		return fmt.Errorf("%w: number_of_decks %d not in 1..%d", ErrInvalidConfig, c.NumberOfDecks, MaxDecks)
	case c.Simulations < 1:
		return fmt.Errorf("%w: simulations must be positive", ErrInvalidConfig)
	case c.SimulationWorkers < 0:
		return fmt.Errorf("%w: simulation_workers is negative", ErrInvalidConfig)
	case c.TickRate < 1:
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalidConfig)
	case c.DealerStepTicks < 1:
		return fmt.Errorf("%w: dealer_step_ticks must be positive", ErrInvalidConfig)
	case c.WalletCurrency == "":
		return fmt.Errorf("%w: wallet_currency is empty", ErrInvalidConfig)
	}
	for _, d := range c.ChipDenominations {
		if d <= 0 {
			return fmt.Errorf("%w: chip denomination %d", ErrInvalidConfig, d)
		}
	}
	return nil
}

// Parse decodes data over the defaults, applies environment overrides and
// validates the result.
func Parse(data []byte) (TableConfig, error) {
	c := Default()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c); err != nil {
			return TableConfig{}, fmt.Errorf("failed to unmarshal table config: %w", err)
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return TableConfig{}, err
	}
	if err := c.Validate(); err != nil {
		return TableConfig{}, err
	}
	return c, nil
}

// LoadTableConfig loads the table configuration from the given path. An
// empty path loads the defaults.
func LoadTableConfig(path string) error {
	loadOnce.Do(func() {
		var data []byte
		if path != "" {
			var err error
			data, err = os.ReadFile(path)
			if err != nil {
				loadErr = fmt.Errorf("failed to read table config: %w", err)
				return
			}
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetTableConfig returns the global table configuration, or the defaults
// when nothing was loaded.
func GetTableConfig() *TableConfig {
	if cfg == nil {
		d := Default()
		return &d
	}
	return cfg
}

// ApplyEnv overrides fields from the environment variables named by the
// Env constants. lookup has the shape of os.LookupEnv.
func (c *TableConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDecks); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvDecks, v)
		}
		c.NumberOfDecks = n
	}
	if v, ok := lookup(EnvSimulations); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvSimulations, v)
		}
		c.Simulations = n
	}
	if v, ok := lookup(EnvInitialBankroll); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvInitialBankroll, v)
		}
		c.InitialBankroll = n
	}
	return nil
}
