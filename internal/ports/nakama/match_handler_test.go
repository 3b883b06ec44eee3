package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/config"
	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// mockWallets implements WalletModule for testing.
type mockWallets struct {
	accounts map[string]*api.Account
	wallets  map[string]map[string]int64
}

func (m *mockWallets) AccountGetId(ctx context.Context, userID string) (*api.Account, error) {
	if acc, ok := m.accounts[userID]; ok {
		return acc, nil
	}
	return &api.Account{Wallet: "{}"}, nil
}

func (m *mockWallets) WalletUpdate(ctx context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, updateLedger bool) (map[string]int64, map[string]int64, error) {
	if m.wallets == nil {
		m.wallets = make(map[string]map[string]int64)
	}
	if _, ok := m.wallets[userID]; !ok {
		m.wallets[userID] = make(map[string]int64)
	}
	prev := make(map[string]int64)
	for k, v := range m.wallets[userID] {
		prev[k] = v
	}
	for k, v := range changeset {
		m.wallets[userID][k] += v
	}
	return prev, m.wallets[userID], nil
}

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode int64
	data   []byte
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent   []sentMessage
	labels []string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.sent = append(md.sent, sentMessage{opCode: opCode, data: append([]byte(nil), data...)})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labels = append(md.labels, label)
	return nil
}

// byOp decodes every message sent with opCode, in order.
func (md *mockDispatcher) byOp(t *testing.T, opCode int64) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, m := range md.sent {
		if m.opCode != opCode {
			continue
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(m.data, &decoded); err != nil {
			t.Fatalf("Failed to decode opcode %d payload: %v", opCode, err)
		}
		out = append(out, decoded)
	}
	return out
}

func (md *mockDispatcher) reset() { md.sent = nil }

type mockEconomy struct {
	balances map[string]int64
	updates  []ports.WalletUpdate
}

func (me *mockEconomy) GetBalance(ctx context.Context, userID string) (int64, error) {
	if balance, ok := me.balances[userID]; ok {
		return balance, nil
	}
	return 0, errors.New("balance not found")
}

func (me *mockEconomy) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	me.updates = append(me.updates, updates...)
	for _, u := range updates {
		me.balances[u.UserID] += u.Amount
	}
	return nil
}

type testPresence struct {
	userID string
}

func (p testPresence) GetHidden() bool                   { return false }
func (p testPresence) GetPersistence() bool              { return false }
func (p testPresence) GetUsername() string               { return p.userID }
func (p testPresence) GetStatus() string                 { return "" }
func (p testPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p testPresence) GetUserId() string                 { return p.userID }
func (p testPresence) GetSessionId() string              { return "session-" + p.userID }
func (p testPresence) GetNodeId() string                 { return "node" }

type testMatchData struct {
	testPresence
	opCode int64
	data   []byte
}

func (d testMatchData) GetOpCode() int64      { return d.opCode }
func (d testMatchData) GetData() []byte       { return d.data }
func (d testMatchData) GetReliable() bool     { return true }
func (d testMatchData) GetReceiveTime() int64 { return 0 }

func msg(userID string, opCode int64, payload string) runtime.MatchData {
	return testMatchData{testPresence: testPresence{userID: userID}, opCode: opCode, data: []byte(payload)}
}

func testConfig() config.TableConfig {
	cfg := config.Default()
	cfg.Simulations = 200
	cfg.SimulationWorkers = 2
	cfg.DealerStepTicks = 1
	return cfg
}

// seatedTable returns a match with user-1 seated and the dispatcher cleared.
func seatedTable(t *testing.T, economy *mockEconomy) (*matchHandler, *MatchState, *mockDispatcher) {
	t.Helper()
	handler := newMatchHandler()
	dispatcher := &mockDispatcher{}
	var port ports.EconomyPort
	if economy != nil {
		port = economy
	}
	state := newMatchState(testConfig(), "match-1", port)
	ctx := context.Background()

	_, ok, reason := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, testPresence{userID: "user-1"}, nil)
	if !ok {
		t.Fatalf("MatchJoinAttempt() rejected: %s", reason)
	}
	handler.MatchJoin(ctx, noopLogger{}, nil, nil, dispatcher, 0, state, []runtime.Presence{testPresence{userID: "user-1"}})
	if state.Table == nil {
		t.Fatal("Expected table after join")
	}
	dispatcher.reset()
	return handler, state, dispatcher
}

// dealToPlayerTurn deals until a round is waiting on the player.
func dealToPlayerTurn(t *testing.T, handler *matchHandler, state *MatchState, dispatcher *mockDispatcher) {
	t.Helper()
	ctx := context.Background()
	for i := 0; state.Table.Phase() != domain.PhasePlayerTurn; i++ {
		if i > 50 {
			t.Fatal("Never reached the player's turn")
		}
		handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, state.Tick+1, state, []runtime.MatchData{
			msg("user-1", OpResetHand, ""),
			msg("user-1", OpDeal, ""),
		})
	}
}

func TestMatchJoinAttempt_RejectsSecondPlayer(t *testing.T) {
	handler, state, dispatcher := seatedTable(t, nil)

	_, ok, reason := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, testPresence{userID: "user-2"}, nil)
	if ok || reason != "table_full" {
		t.Fatalf("MatchJoinAttempt() = %t, %q, want false, table_full", ok, reason)
	}
	_, ok, _ = handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, testPresence{userID: "user-1"}, nil)
	if !ok {
		t.Fatal("Expected the seated player to be allowed back in")
	}
}

func TestMatchJoin_SeedsEmptyWallet(t *testing.T) {
	economy := &mockEconomy{balances: map[string]int64{"user-1": 0}}
	_, state, _ := seatedTable(t, economy)

	if got := state.Table.Snapshot().Bankroll.Balance().Amount(); got != 1000 {
		t.Fatalf("Bankroll = %d, want 1000", got)
	}
	if len(economy.updates) != 1 || economy.updates[0].Amount != 1000 {
		t.Fatalf("Expected one opening credit of 1000, got %+v", economy.updates)
	}
}

func TestMatchJoin_UsesWalletBalance(t *testing.T) {
	economy := &mockEconomy{balances: map[string]int64{"user-1": 420}}
	_, state, _ := seatedTable(t, economy)

	if got := state.Table.Snapshot().Bankroll.Balance().Amount(); got != 420 {
		t.Fatalf("Bankroll = %d, want 420", got)
	}
	if len(economy.updates) != 0 {
		t.Fatalf("Expected no wallet writes, got %+v", economy.updates)
	}
}

func TestMatchLoop_PlaceBet(t *testing.T) {
	handler, state, dispatcher := seatedTable(t, nil)

	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		msg("user-1", OpPlaceBet, `{"amount": 25}`),
	})

	events := dispatcher.byOp(t, OpTableEvent)
	if len(events) != 1 || events[0]["kind"] != string(app.EventBetChanged) {
		t.Fatalf("Expected one bet_changed event, got %v", events)
	}
	snaps := dispatcher.byOp(t, OpSnapshot)
	if len(snaps) != 1 {
		t.Fatalf("Expected one snapshot, got %d", len(snaps))
	}
	if snaps[0]["bet"] != float64(25) || snaps[0]["bankroll"] != float64(975) {
		t.Fatalf("Snapshot bet/bankroll = %v/%v, want 25/975", snaps[0]["bet"], snaps[0]["bankroll"])
	}
}

func TestMatchLoop_BadPayloadSendsError(t *testing.T) {
	handler, state, dispatcher := seatedTable(t, nil)

	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		msg("user-1", OpPlaceBet, `{"amount": "lots"}`),
		msg("user-1", OpPlaceBet, `{"amount": 2.5}`),
	})

	errs := dispatcher.byOp(t, OpError)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(errs))
	}
	for _, e := range errs {
		if e["code"] != float64(ErrCodeBadRequest) {
			t.Fatalf("Error code = %v, want %d", e["code"], ErrCodeBadRequest)
		}
	}
}

func TestMatchLoop_IgnoresOtherUsers(t *testing.T) {
	handler, state, dispatcher := seatedTable(t, nil)

	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		msg("intruder", OpPlaceBet, `{"amount": 25}`),
	})
	if len(dispatcher.sent) != 0 {
		t.Fatalf("Expected no messages, got %d", len(dispatcher.sent))
	}
}

func TestMatchLoop_StandPacesDealerAndSettles(t *testing.T) {
	economy := &mockEconomy{balances: map[string]int64{"user-1": 1000}}
	handler, state, dispatcher := seatedTable(t, economy)
	ctx := context.Background()

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		msg("user-1", OpPlaceBet, `{"amount": 100}`),
	})
	dealToPlayerTurn(t, handler, state, dispatcher)
	economy.updates = nil
	dispatcher.reset()

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, state.Tick+1, state, []runtime.MatchData{
		msg("user-1", OpStand, ""),
	})
	events := dispatcher.byOp(t, OpTableEvent)
	if len(events) != 1 || events[0]["kind"] != string(app.EventDealerRevealed) {
		t.Fatalf("Expected only dealer_revealed on stand, got %v", events)
	}
	if len(state.Pending) < 2 {
		t.Fatalf("Expected queued dealer steps, got %d", len(state.Pending))
	}
	if len(dispatcher.byOp(t, OpSnapshot)) != 0 {
		t.Fatal("Snapshot must wait for the dealer to finish")
	}

	// Settlement is recorded immediately even though the client sees it later.
	settled := state.Pending[len(state.Pending)-1].Payload.(app.BetSettledPayload).Settlement
	if net := settled.Net(); net != 0 && (len(economy.updates) != 1 || economy.updates[0].Amount != net) {
		t.Fatalf("Wallet updates = %+v, want net %d", economy.updates, net)
	}

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, state.Tick+1, state, []runtime.MatchData{
		msg("user-1", OpResetHand, ""),
	})
	errs := dispatcher.byOp(t, OpError)
	if len(errs) != 1 || errs[0]["code"] != float64(ErrCodeConflict) {
		t.Fatalf("Expected a conflict while the dealer acts, got %v", errs)
	}

	for i := 0; len(state.Pending) > 0; i++ {
		if i > 20 {
			t.Fatal("Dealer queue never drained")
		}
		handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, state.Tick+1, state, nil)
	}

	events = dispatcher.byOp(t, OpTableEvent)
	last := events[len(events)-1]
	if last["kind"] != string(app.EventBetSettled) {
		t.Fatalf("Last event = %v, want bet_settled", last["kind"])
	}
	snaps := dispatcher.byOp(t, OpSnapshot)
	if len(snaps) != 1 || snaps[0]["phase"] != string(domain.PhaseRoundOver) {
		t.Fatalf("Expected one round_over snapshot after draining, got %v", snaps)
	}
}

func TestMatchLoop_AdviceForwarded(t *testing.T) {
	handler, state, dispatcher := seatedTable(t, nil)
	ctx := context.Background()

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.MatchData{
		msg("user-1", OpAdvise, ""),
	})
	if errs := dispatcher.byOp(t, OpError); len(errs) != 1 {
		t.Fatalf("Expected advice to be refused before dealing, got %v", errs)
	}

	dealToPlayerTurn(t, handler, state, dispatcher)
	dispatcher.reset()

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, state.Tick+1, state, []runtime.MatchData{
		msg("user-1", OpAdvise, ""),
	})
	recs := dispatcher.byOp(t, OpRecommendation)
	if len(recs) == 0 || recs[0]["action"] != string(advisor.ActionWaiting) {
		t.Fatalf("Expected the waiting placeholder first, got %v", recs)
	}

	deadline := time.Now().Add(10 * time.Second)
	for state.Advice != nil {
		if time.Now().After(deadline) {
			t.Fatal("Advice never completed")
		}
		time.Sleep(5 * time.Millisecond)
		handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, state.Tick+1, state, nil)
	}

	recs = dispatcher.byOp(t, OpRecommendation)
	if len(recs) != 2 {
		t.Fatalf("Expected placeholder and result, got %d", len(recs))
	}
	final := recs[1]["action"]
	if final != string(advisor.ActionHit) && final != string(advisor.ActionStand) && final != string(advisor.ActionImpossible) {
		t.Fatalf("Final action = %v", final)
	}
}

func TestMatchLeave_ClosesTable(t *testing.T) {
	handler, state, dispatcher := seatedTable(t, nil)

	got := handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state, []runtime.Presence{testPresence{userID: "user-1"}})
	if got != nil {
		t.Fatalf("MatchLeave() = %v, want nil to terminate", got)
	}
}

func TestMatchLabel(t *testing.T) {
	state := newMatchState(testConfig(), "match-1", nil)
	label, err := encodeLabel(state)
	if err != nil {
		t.Fatalf("encodeLabel() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(label), &decoded); err != nil {
		t.Fatalf("Failed to decode label: %v", err)
	}
	if decoded["open"] != float64(1) || decoded["game"] != "blackjack" || decoded["phase"] != labelPhaseWaiting {
		t.Fatalf("Label = %v", decoded)
	}
}

func TestNakamaEconomyAdapter(t *testing.T) {
	nk := &mockWallets{accounts: map[string]*api.Account{
		"user-1": {Wallet: `{"chips": 300, "gold": 9}`},
	}}
	adapter := NewNakamaEconomyAdapter(nk, "chips")

	balance, err := adapter.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if balance != 300 {
		t.Fatalf("GetBalance() = %d, want 300", balance)
	}

	err = adapter.UpdateBalances(context.Background(), []ports.WalletUpdate{
		{UserID: "user-1", Amount: 50},
		{UserID: "user-1", Amount: 0},
	})
	if err != nil {
		t.Fatalf("UpdateBalances() error = %v", err)
	}
	if got := nk.wallets["user-1"]["chips"]; got != 50 {
		t.Fatalf("chips change = %d, want 50", got)
	}
	if _, ok := nk.wallets["user-1"]["gold"]; ok {
		t.Fatal("Expected other currencies untouched")
	}
}
