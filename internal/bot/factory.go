package bot

import (
	"fmt"

	"blackjack/internal/advisor"
)

// BotLevel selects a brain.
type BotLevel int

const (
	BotLevelDealer BotLevel = iota
	BotLevelBasic
	BotLevelAdvisor
)

func (l BotLevel) String() string {
	switch l {
	case BotLevelDealer:
		return "dealer"
	case BotLevelBasic:
		return "basic"
	case BotLevelAdvisor:
		return "advisor"
	default:
		return fmt.Sprintf("BotLevel(%d)", int(l))
	}
}

// ParseLevel is the inverse of BotLevel.String.
func ParseLevel(s string) (BotLevel, error) {
	for l := BotLevelDealer; l <= BotLevelAdvisor; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown bot level: %q", s)
}

// NewBrain creates a new AI brain based on the specified level. adv is only
// used by BotLevelAdvisor and may be nil otherwise.
func NewBrain(level BotLevel, adv *advisor.Advisor) (Brain, error) {
	switch level {
	case BotLevelDealer:
		return &DealerBot{}, nil
	case BotLevelBasic:
		return &BasicBot{Tuning: DefaultTuning}, nil
	case BotLevelAdvisor:
		if adv == nil {
			return nil, fmt.Errorf("advisor brain needs an advisor")
		}
		return &AdvisorBot{Advisor: adv}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
