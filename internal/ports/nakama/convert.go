package nakama

import (
	"fmt"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/domain"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// encode marshals a JSON-shaped map through structpb so every payload on
// the wire goes through protojson.
func encode(m map[string]interface{}) ([]byte, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

// decode parses a client payload. An empty payload decodes to an empty struct.
func decode(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if len(data) == 0 {
		return s, nil
	}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// amountField reads a non-negative whole number from the payload.
func amountField(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%q must be a number", key)
	}
	if n.NumberValue != float64(int64(n.NumberValue)) {
		return 0, fmt.Errorf("%q must be a whole number", key)
	}
	return int64(n.NumberValue), nil
}

// cardToMap hides rank and suit of face-down cards.
func cardToMap(c domain.Card) map[string]interface{} {
	if !c.FaceUp {
		return map[string]interface{}{"face_up": false}
	}
	return map[string]interface{}{
		"rank":    int64(c.Rank),
		"suit":    int64(c.Suit),
		"face_up": true,
		"label":   c.String(),
	}
}

func cardFromValue(v *structpb.Value) (domain.Card, error) {
	fields := v.GetStructValue().GetFields()
	if fields == nil {
		return domain.Card{}, fmt.Errorf("card must be an object")
	}
	return domain.NewCard(
		domain.Rank(fields["rank"].GetNumberValue()),
		domain.Suit(fields["suit"].GetNumberValue()),
		true,
	)
}

func cardsFromValue(v *structpb.Value) ([]domain.Card, error) {
	if v == nil {
		return nil, nil
	}
	values := v.GetListValue().GetValues()
	out := make([]domain.Card, 0, len(values))
	for i, item := range values {
		c, err := cardFromValue(item)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// handToMap reports only what a player at the table can see.
func handToMap(h domain.Hand) map[string]interface{} {
	cards := make([]interface{}, 0, h.Len())
	var visible []domain.Card
	for _, c := range h.Cards() {
		cards = append(cards, cardToMap(c))
		if c.FaceUp {
			visible = append(visible, c)
		}
	}
	return map[string]interface{}{
		"cards": cards,
		"value": int64(domain.NewHand(visible...).BestValue()),
	}
}

func chipsList(chips []domain.Chips) []interface{} {
	out := make([]interface{}, len(chips))
	for i, c := range chips {
		out[i] = c.Amount()
	}
	return out
}

func snapshotToMap(snap app.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"round_id":       snap.RoundID,
		"phase":          string(snap.Phase),
		"outcome":        string(snap.State.Status.Outcome()),
		"player":         handToMap(snap.State.Player),
		"dealer":         handToMap(snap.State.Dealer),
		"deck_remaining": int64(snap.State.Deck.Len()),
		"bet":            snap.Bet.CurrentBet.Amount(),
		"can_place_bet":  snap.Bet.CanPlaceBet,
		"bankroll":       snap.Bankroll.Balance().Amount(),
		"placed":         chipsList(snap.Placed),
	}
}

func eventToMap(ev app.Event) (map[string]interface{}, error) {
	var payload map[string]interface{}
	switch p := ev.Payload.(type) {
	case app.BetChangedPayload:
		payload = map[string]interface{}{
			"bet":           p.Bet.Amount(),
			"bankroll":      p.Bankroll.Amount(),
			"placed":        chipsList(p.Placed),
			"can_place_bet": p.CanPlaceBet,
		}
	case app.BankrollChangedPayload:
		payload = map[string]interface{}{
			"bankroll": p.Bankroll.Amount(),
			"delta":    p.Delta,
			"reason":   p.Reason,
		}
	case app.RoundStartedPayload:
		payload = map[string]interface{}{"bet": p.Bet.CurrentBet.Amount()}
	case app.CardDealtPayload:
		payload = map[string]interface{}{
			"target": p.Target,
			"card":   cardToMap(p.Card),
			"player": handToMap(p.State.Player),
			"dealer": handToMap(p.State.Dealer),
		}
	case app.DealerRevealedPayload:
		payload = map[string]interface{}{"dealer": handToMap(p.Dealer)}
	case app.DealerDrewPayload:
		payload = map[string]interface{}{
			"card":           cardToMap(p.Card),
			"dealer":         handToMap(p.Dealer),
			"deck_remaining": int64(p.DeckRemaining),
		}
	case app.RoundFinishedPayload:
		payload = map[string]interface{}{
			"outcome": string(p.Outcome),
			"label":   p.Outcome.Label(),
			"player":  handToMap(p.Player),
			"dealer":  handToMap(p.Dealer),
		}
	case app.BetSettledPayload:
		payload = map[string]interface{}{
			"outcome":  string(p.Settlement.Outcome),
			"bet":      p.Settlement.Bet.Amount(),
			"payout":   p.Settlement.Payout.Amount(),
			"net":      p.Settlement.Net(),
			"bankroll": p.Settlement.NewBankroll.Balance().Amount(),
		}
	default:
		return nil, fmt.Errorf("unknown payload %T for event %s", ev.Payload, ev.Kind)
	}
	return map[string]interface{}{
		"kind":     string(ev.Kind),
		"round_id": ev.RoundID,
		"payload":  payload,
	}, nil
}

func recommendationToMap(rec advisor.Recommendation, token uint64) map[string]interface{} {
	return map[string]interface{}{
		"token":  int64(token),
		"action": string(rec.Action),
		"reason": rec.Reason,
		"hit":    rec.HitProbability,
		"stand":  rec.StandProbability,
	}
}
