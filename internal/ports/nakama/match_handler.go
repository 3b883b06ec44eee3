package nakama

import (
	"context"
	"database/sql"
	"errors"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/app/betting"
	"blackjack/internal/app/wallet"
	"blackjack/internal/config"
	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const labelPhaseWaiting = "waiting"

var errDealerActing = errors.New("dealer is acting")

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	MatchID   string                      `json:"match_id"`
	UserID    string                      `json:"user_id"` // Seated player, empty while the seat is open
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"`
	Config    config.TableConfig          `json:"-"`
	Table     *app.Table                  `json:"-"` // Nil until the player sits down
	Wallet    *wallet.Service             `json:"-"` // Nil when no economy is available

	// Dealer events are sent one per DealerStepTicks so clients can animate the draw.
	Pending      []app.Event `json:"-"`
	NextStepTick int64       `json:"next_step_tick"`

	Advice      <-chan advisor.Recommendation `json:"-"`
	AdviceToken uint64                        `json:"advice_token"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	if ms.UserID == "" {
		return 1
	}
	return 0
}

func (ms *MatchState) phase() string {
	if ms.Table == nil {
		return labelPhaseWaiting
	}
	return string(ms.Table.Phase())
}

// newMatchState builds the state for a table. economy may be nil.
func newMatchState(cfg config.TableConfig, matchID string, economy ports.EconomyPort) *MatchState {
	state := &MatchState{
		MatchID:   matchID,
		Presences: make(map[string]runtime.Presence),
		Config:    cfg,
	}
	if economy != nil {
		state.Wallet = wallet.NewService(economy)
	}
	return state
}

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing blackjack table.")

	cfg := *config.GetTableConfig()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if err := cfg.ApplyEnv(func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		}); err != nil {
			logger.Warn("MatchInit: Ignoring runtime env: %v", err)
			cfg = *config.GetTableConfig()
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("MatchInit: Invalid table config, using defaults: %v", err)
		cfg = config.Default()
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	var economy ports.EconomyPort
	if nk != nil {
		economy = NewNakamaEconomyAdapter(nk, cfg.WalletCurrency)
	}
	state := newMatchState(cfg, matchID, economy)

	label, err := encodeLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, cfg.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// The seated player may reconnect; anyone else is turned away.
	if matchState.UserID != "" && matchState.UserID != presence.GetUserId() {
		return state, false, "table_full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if matchState.UserID == "" {
			matchState.UserID = userID
			mh.seatPlayer(ctx, matchState, logger)
			logger.Info("MatchJoin: User %s sat down with %s chips.", userID, matchState.Table.Snapshot().Bankroll.Balance())
		} else if matchState.UserID != userID {
			logger.Warn("MatchJoin: User %s joined but the seat is taken.", userID)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.sendSnapshot(matchState, dispatcher, logger)
	return matchState
}

// seatPlayer opens the table with the player's wallet balance, seeding an
// empty wallet with the configured initial bankroll.
func (mh *matchHandler) seatPlayer(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Table != nil {
		return
	}
	opening, err := domain.NewChips(state.Config.InitialBankroll)
	if err != nil {
		opening = domain.Chips{}
	}
	if state.Wallet != nil {
		balance, err := state.Wallet.OpeningBalance(ctx, state.UserID, opening)
		if err != nil {
			logger.WithField("match_id", state.MatchID).Warn("seatPlayer: Using configured bankroll: %v", err)
		} else {
			opening = balance
		}
	}

	adv := advisor.New(advisor.Config{
		Simulations: state.Config.Simulations,
		Workers:     state.Config.SimulationWorkers,
	}, nil)
	state.Table = app.NewTable(
		app.NewService(nil, state.Config.NumberOfDecks),
		betting.NewLedger(opening),
		advisor.NewAsync(adv),
	)
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		if p.GetUserId() == matchState.UserID {
			logger.Info("MatchLeave: Player %s left, closing table.", p.GetUserId())
			return nil
		}
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		if msg.GetUserId() != matchState.UserID || matchState.Table == nil {
			logger.Warn("MatchLoop: Ignoring opcode %d from unseated user %s", msg.GetOpCode(), msg.GetUserId())
			continue
		}
		mh.handleCommand(ctx, matchState, dispatcher, logger, msg)
	}

	mh.drainDealerSteps(matchState, dispatcher, logger)
	mh.forwardAdvice(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) handleCommand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	op := msg.GetOpCode()

	if len(state.Pending) > 0 {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, errDealerActing.Error())
		return
	}

	var (
		events []app.Event
		err    error
		paced  bool
	)
	switch op {
	case OpPlaceBet, OpBuyIn:
		var amount int64
		amount, err = readAmount(msg.GetData())
		if err != nil {
			logger.Warn("handleCommand: Bad payload from %s for opcode %d: %v", senderID, op, err)
			mh.sendError(state, dispatcher, logger, senderID, ErrCodeBadRequest, err.Error())
			return
		}
		if op == OpPlaceBet {
			events, err = state.Table.PlaceBet(amount)
		} else if events, err = state.Table.BuyIn(amount); err == nil {
			mh.recordBuyIn(ctx, state, logger, amount)
		}
	case OpClearBet:
		events, err = state.Table.ClearBet()
	case OpUndoChip:
		events, err = state.Table.UndoLastChip()
	case OpDeal:
		events, err = state.Table.Deal()
	case OpHit:
		events, err = state.Table.Hit()
	case OpStand:
		events, err = state.Table.Stand()
		paced = true
	case OpResetHand:
		events, err = state.Table.Reset()
	case OpAdvise:
		mh.handleAdvise(ctx, state, dispatcher, logger, senderID)
		return
	default:
		logger.Warn("handleCommand: Unknown opcode received: %d", op)
		return
	}

	if err != nil {
		logger.Warn("handleCommand: User %s opcode %d rejected: %v", senderID, op, err)
		mh.sendError(state, dispatcher, logger, senderID, errorCode(err), err.Error())
		return
	}

	mh.recordSettlements(ctx, state, logger, events)
	if paced {
		mh.dispatchPaced(state, dispatcher, logger, events)
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
	mh.sendSnapshot(state, dispatcher, logger)
}

func (mh *matchHandler) handleAdvise(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID string) {
	token, ch, err := state.Table.Advise(ctx)
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, err.Error())
		return
	}
	state.Advice = ch
	state.AdviceToken = token
}

// forwardAdvice relays whatever the advisor has produced so far without
// blocking the loop. Results for superseded requests are dropped.
func (mh *matchHandler) forwardAdvice(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for state.Advice != nil {
		select {
		case rec, ok := <-state.Advice:
			if !ok {
				state.Advice = nil
				return
			}
			if state.AdviceToken != state.Table.AdviceToken() {
				continue
			}
			data, err := encode(recommendationToMap(rec, state.AdviceToken))
			if err != nil {
				logger.Error("forwardAdvice: Failed to marshal recommendation: %v", err)
				continue
			}
			dispatcher.BroadcastMessage(OpRecommendation, data, mh.playerPresences(state), nil, true)
		default:
			return
		}
	}
}

// dispatchPaced sends everything up to the dealer reveal now and queues the
// remaining dealer steps.
func (mh *matchHandler) dispatchPaced(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	split := 0
	for i, ev := range events {
		if ev.Kind == app.EventDealerRevealed {
			split = i + 1
			break
		}
	}
	for _, ev := range events[:split] {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	state.Pending = append(state.Pending, events[split:]...)
	state.NextStepTick = state.Tick + int64(state.Config.DealerStepTicks)
	if len(state.Pending) == 0 {
		mh.updateLabel(state, dispatcher, logger)
		mh.sendSnapshot(state, dispatcher, logger)
	}
}

func (mh *matchHandler) drainDealerSteps(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if len(state.Pending) == 0 || state.Tick < state.NextStepTick {
		return
	}
	ev := state.Pending[0]
	state.Pending = state.Pending[1:]
	mh.broadcastEvent(state, dispatcher, logger, ev)
	state.NextStepTick = state.Tick + int64(state.Config.DealerStepTicks)

	if len(state.Pending) == 0 {
		state.Pending = nil
		mh.updateLabel(state, dispatcher, logger)
		mh.sendSnapshot(state, dispatcher, logger)
	}
}

// recordSettlements writes each settled round to the wallet as it happens,
// independent of when the client sees it.
func (mh *matchHandler) recordSettlements(ctx context.Context, state *MatchState, logger runtime.Logger, events []app.Event) {
	if state.Wallet == nil {
		return
	}
	for _, ev := range events {
		p, ok := ev.Payload.(app.BetSettledPayload)
		if !ok {
			continue
		}
		if err := state.Wallet.RecordSettlement(ctx, state.UserID, state.MatchID, ev.RoundID, p.Settlement); err != nil {
			logger.WithField("match_id", state.MatchID).Error("recordSettlements: Round %s: %v", ev.RoundID, err)
		}
	}
}

func (mh *matchHandler) recordBuyIn(ctx context.Context, state *MatchState, logger runtime.Logger, amount int64) {
	if state.Wallet == nil {
		return
	}
	chips, err := domain.NewChips(amount)
	if err != nil {
		return
	}
	if err := state.Wallet.RecordBuyIn(ctx, state.UserID, state.MatchID, chips); err != nil {
		logger.WithField("match_id", state.MatchID).Error("recordBuyIn: %v", err)
	}
}

// broadcastEvent converts and dispatches an app event to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	m, err := eventToMap(ev)
	if err != nil {
		logger.Warn("broadcastEvent: %v", err)
		return
	}
	data, err := encode(m)
	if err != nil {
		logger.Error("broadcastEvent: Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(OpTableEvent, data, recipients, nil, true)
}

func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Table == nil {
		return
	}
	data, err := encode(snapshotToMap(state.Table.Snapshot()))
	if err != nil {
		logger.Error("sendSnapshot: Failed to marshal snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpSnapshot, data, mh.playerPresences(state), nil, true)
}

// sendError sends an error event to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := encode(map[string]interface{}{
		"code":    int64(code),
		"message": message,
	})
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) playerPresences(state *MatchState) []runtime.Presence {
	if p, ok := state.Presences[state.UserID]; ok {
		return []runtime.Presence{p}
	}
	return nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := encodeLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func encodeLabel(state *MatchState) (string, error) {
	data, err := encode(map[string]interface{}{
		MatchLabelKey_OpenSeats: int64(state.GetOpenSeatsCount()),
		"game":                  "blackjack",
		"phase":                 state.phase(),
	})
	return string(data), err
}

func readAmount(data []byte) (int64, error) {
	s, err := decode(data)
	if err != nil {
		return 0, err
	}
	return amountField(s, "amount")
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, app.ErrCommandInFlight), errors.Is(err, app.ErrRoundInProgress), errors.Is(err, app.ErrNoAdvice):
		return ErrCodeConflict
	case errors.Is(err, domain.ErrEmptyDeck):
		return ErrCodeInternal
	default:
		return ErrCodeBadRequest
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with grace %d", graceSeconds)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
