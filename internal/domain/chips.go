package domain

import (
	"errors"
	"math"
	"math/big"
	"strconv"
)

var (
	ErrNegativeChips = errors.New("chip amount must not be negative")
	ErrChipOverflow  = errors.New("chip amount exceeds the largest representable value")
)

// MaxChips is the largest representable amount.
const MaxChips = math.MaxInt64

// Chips is a non-negative amount of money.
type Chips struct {
	amount int64
}

// NewChips fails with ErrNegativeChips for amounts below zero.
func NewChips(amount int64) (Chips, error) {
	if amount < 0 {
		return Chips{}, ErrNegativeChips
	}
	return Chips{amount: amount}, nil
}

// Amount returns the integer value.
func (c Chips) Amount() int64 { return c.amount }

// IsZero reports an empty amount.
func (c Chips) IsZero() bool { return c.amount == 0 }

// Less reports c < other.
func (c Chips) Less(other Chips) bool { return c.amount < other.amount }

// Add returns c + other, saturating at MaxChips.
func (c Chips) Add(other Chips) Chips {
	sum, err := c.CheckedAdd(other)
	if err != nil {
		return Chips{amount: MaxChips}
	}
	return sum
}

// CheckedAdd returns c + other, or ErrChipOverflow when the sum does not fit.
func (c Chips) CheckedAdd(other Chips) (Chips, error) {
	if other.amount > MaxChips-c.amount {
		return Chips{}, ErrChipOverflow
	}
	return Chips{amount: c.amount + other.amount}, nil
}

// Sub returns c - other, floored at zero.
func (c Chips) Sub(other Chips) Chips {
	if other.amount >= c.amount {
		return Chips{}
	}
	return Chips{amount: c.amount - other.amount}
}

// Scale multiplies by ratio and truncates, saturating at MaxChips. Negative
// ratios yield zero.
func (c Chips) Scale(ratio float64) Chips {
	scaled, err := c.CheckedScale(ratio)
	if err != nil {
		return Chips{amount: MaxChips}
	}
	return scaled
}

// CheckedScale multiplies by ratio exactly and truncates toward zero. It
// returns ErrChipOverflow when the product does not fit.
func (c Chips) CheckedScale(ratio float64) (Chips, error) {
	if ratio <= 0 || math.IsNaN(ratio) {
		return Chips{}, nil
	}
	if math.IsInf(ratio, 1) {
		if c.amount == 0 {
			return Chips{}, nil
		}
		return Chips{}, ErrChipOverflow
	}
	r := new(big.Rat).SetFloat64(ratio)
	r.Mul(r, new(big.Rat).SetInt64(c.amount))
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !q.IsInt64() {
		return Chips{}, ErrChipOverflow
	}
	return Chips{amount: q.Int64()}, nil
}

func (c Chips) String() string { return strconv.FormatInt(c.amount, 10) }

// Bankroll is the player's running funds.
type Bankroll struct {
	balance Chips
}

// NewBankroll wraps an opening balance.
func NewBankroll(balance Chips) Bankroll { return Bankroll{balance: balance} }

// Balance returns the current funds.
func (b Bankroll) Balance() Chips { return b.balance }

// Add credits the bankroll.
func (b Bankroll) Add(c Chips) Bankroll { return Bankroll{balance: b.balance.Add(c)} }

// Sub debits the bankroll, flooring at zero.
func (b Bankroll) Sub(c Chips) Bankroll { return Bankroll{balance: b.balance.Sub(c)} }

// Scale multiplies the balance by ratio.
func (b Bankroll) Scale(ratio float64) Bankroll { return Bankroll{balance: b.balance.Scale(ratio)} }

// CanAfford reports whether the balance covers c.
func (b Bankroll) CanAfford(c Chips) bool { return !b.balance.Less(c) }
