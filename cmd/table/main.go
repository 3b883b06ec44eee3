package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"time"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/app/betting"
	"blackjack/internal/bot"
	"blackjack/internal/config"
	"blackjack/internal/domain"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

const dealerStepDelay = 450 * time.Millisecond

const (
	optHit     = "Hit"
	optStand   = "Stand"
	optAdvise  = "Ask for advice"
	optDeal    = "Deal"
	optUndo    = "Undo last chip"
	optClear   = "Clear bet"
	optBuyIn   = "Buy in"
	optQuit    = "Leave the table"
	betPrefix  = "Bet "
	buyInChips = 500
)

func main() {
	configFlag := flag.String("config", "", "path to a table config JSON file")
	decksFlag := flag.Int("decks", 0, "number of decks in the shoe (overrides config)")
	bankrollFlag := flag.Int64("bankroll", -1, "starting bankroll (overrides config)")
	simulationsFlag := flag.Int("simulations", 0, "advisor simulations per question (overrides config)")
	autoplayFlag := flag.Int("autoplay", 0, "let a bot play this many rounds and exit")
	brainFlag := flag.String("brain", "advisor", "bot brain for -autoplay: dealer, basic or advisor")
	seedFlag := flag.Int64("seed", 0, "shuffle seed; 0 picks one from the clock")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debugFlag {
		pterm.DefaultLogger.Level = pterm.LogLevelDebug
	}
	handler := pterm.NewSlogHandler(&pterm.DefaultLogger)
	logger := slog.New(handler)

	if err := config.LoadTableConfig(*configFlag); err != nil {
		logger.Error("could not load table config", "error", err)
		os.Exit(1)
	}
	cfg := *config.GetTableConfig()
	if *decksFlag > 0 {
		cfg.NumberOfDecks = *decksFlag
	}
	if *bankrollFlag >= 0 {
		cfg.InitialBankroll = *bankrollFlag
	}
	if *simulationsFlag > 0 {
		cfg.Simulations = *simulationsFlag
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid table settings", "error", err)
		os.Exit(1)
	}

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Debug("table settings", "decks", cfg.NumberOfDecks, "bankroll", cfg.InitialBankroll, "simulations", cfg.Simulations, "seed", seed)

	rng := rand.New(rand.NewSource(seed))
	bankroll, err := domain.NewChips(cfg.InitialBankroll)
	if err != nil {
		logger.Error("invalid bankroll", "error", err)
		os.Exit(1)
	}
	adv := advisor.New(advisor.Config{Simulations: cfg.Simulations, Workers: cfg.SimulationWorkers}, rand.New(rand.NewSource(rng.Int63())))
	table := app.NewTable(app.NewService(rng, cfg.NumberOfDecks), betting.NewLedger(bankroll), advisor.NewAsync(adv))

	printTitle(logger)
	ctx := context.Background()

	if *autoplayFlag > 0 {
		level, err := bot.ParseLevel(*brainFlag)
		if err != nil {
			logger.Error("unknown brain", "error", err)
			os.Exit(1)
		}
		if err := autoplay(ctx, logger, table, cfg, level, adv, *autoplayFlag); err != nil {
			logger.Error("autoplay stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := play(ctx, logger, table, cfg); err != nil {
		logger.Error("table closed", "error", err)
		os.Exit(1)
	}
	pterm.Println("Thank you for playing...")
}

func printTitle(logger *slog.Logger) {
	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Black", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("jack", pterm.FgRed.ToStyle()),
	).Srender()
	if err != nil {
		logger.Error(err.Error())
		return
	}
	pterm.Print(title)
}

// play runs the interactive table until the player leaves.
func play(ctx context.Context, logger *slog.Logger, table *app.Table, cfg config.TableConfig) error {
	area, _ := pterm.DefaultArea.Start()
	defer area.Stop()
	printState(table.Snapshot())

	for {
		snap := table.Snapshot()
		options := optionsFor(snap, cfg)
		choice, err := pterm.DefaultInteractiveSelect.WithDefaultText("Select your next action").WithOptions(options).Show()
		if err != nil {
			return err
		}

		var events []app.Event
		var extra []pterm.Panel
		switch {
		case choice == optQuit:
			return nil
		case choice == optHit:
			events, err = table.Hit()
		case choice == optStand:
			events, err = standAnimated(table, area)
		case choice == optAdvise:
			rec, adviceErr := waitForAdvice(ctx, table)
			if adviceErr != nil {
				err = adviceErr
				break
			}
			extra = append(extra, advicePanel(rec))
		case choice == optDeal:
			events, err = dealAnimated(table, area)
		case choice == optUndo:
			events, err = table.UndoLastChip()
		case choice == optClear:
			events, err = table.ClearBet()
		case choice == optBuyIn:
			events, err = table.BuyIn(buyInChips)
		case len(choice) > len(betPrefix) && choice[:len(betPrefix)] == betPrefix:
			amount, convErr := strconv.ParseInt(choice[len(betPrefix):], 10, 64)
			if convErr != nil {
				err = convErr
				break
			}
			events, err = table.PlaceBet(amount)
		}

		if err != nil {
			logger.Warn(err.Error())
			continue
		}
		for _, ev := range events {
			logger.Debug("event", "kind", ev.Kind, "round", ev.RoundID)
		}
		if settled, ok := settlementFrom(events); ok {
			extra = append(extra, settlementPanel(settled))
		}
		area.Update()
		printState(table.Snapshot(), extra...)

		if snap := table.Snapshot(); snap.Phase != domain.PhasePlayerTurn && snap.Bankroll.Balance().IsZero() && snap.Bet.CurrentBet.IsZero() {
			pterm.Error.Println("You are out of chips. Buy in to keep playing.")
		}
	}
}

func optionsFor(snap app.Snapshot, cfg config.TableConfig) []string {
	if snap.Phase == domain.PhasePlayerTurn {
		return []string{optHit, optStand, optAdvise, optQuit}
	}
	var options []string
	for _, d := range cfg.ChipDenominations {
		if d <= snap.Bankroll.Balance().Amount() {
			options = append(options, fmt.Sprintf("%s%d", betPrefix, d))
		}
	}
	options = append(options, optDeal)
	if len(snap.Placed) > 0 {
		options = append(options, optUndo, optClear)
	}
	return append(options, optBuyIn, optQuit)
}

// dealAnimated deals the opening cards, redrawing after each one.
func dealAnimated(table *app.Table, area *pterm.AreaPrinter) ([]app.Event, error) {
	events, err := table.Deal()
	if err != nil {
		return nil, err
	}
	snap := table.Snapshot()
	for _, ev := range events {
		p, ok := ev.Payload.(app.CardDealtPayload)
		if !ok {
			continue
		}
		frame := snap
		frame.State = p.State
		frame.Phase = domain.PhasePlayerTurn
		area.Update()
		printState(frame)
		time.Sleep(dealerStepDelay)
	}
	return events, nil
}

// standAnimated plays the dealer's turn, redrawing after every dealer step.
func standAnimated(table *app.Table, area *pterm.AreaPrinter) ([]app.Event, error) {
	events, err := table.Stand()
	if err != nil {
		return nil, err
	}
	snap := table.Snapshot()
	for _, ev := range events {
		var dealer domain.Hand
		switch p := ev.Payload.(type) {
		case app.DealerRevealedPayload:
			dealer = p.Dealer
		case app.DealerDrewPayload:
			dealer = p.Dealer
		default:
			continue
		}
		frame := snap
		frame.State.Dealer = dealer
		frame.Phase = domain.PhasePlayerTurn
		area.Update()
		printState(frame)
		time.Sleep(dealerStepDelay)
	}
	return events, nil
}

// waitForAdvice shows a spinner while the simulation runs.
func waitForAdvice(ctx context.Context, table *app.Table) (advisor.Recommendation, error) {
	token, ch, err := table.Advise(ctx)
	if err != nil {
		return advisor.Recommendation{}, err
	}
	var spinner *pterm.SpinnerPrinter
	var last advisor.Recommendation
	for rec := range ch {
		last = rec
		if rec.Action == advisor.ActionWaiting {
			spinner, _ = pterm.DefaultSpinner.Start(rec.Reason)
		}
	}
	if token != table.AdviceToken() || last.Action == advisor.ActionWaiting {
		if spinner != nil {
			spinner.Fail("advice was superseded")
		}
		return advisor.Recommendation{}, errors.New("advice was superseded")
	}
	switch {
	case spinner == nil:
	case last.Action == advisor.ActionImpossible:
		spinner.Warning(last.Reason)
	default:
		spinner.Success(last.Reason)
	}
	return last, nil
}

// autoplay lets a bot play rounds rounds at the smallest denomination.
func autoplay(ctx context.Context, logger *slog.Logger, table *app.Table, cfg config.TableConfig, level bot.BotLevel, adv *advisor.Advisor, rounds int) error {
	agent, err := bot.NewAgent("autoplay", level, adv)
	if err != nil {
		return err
	}
	bet := int64(0)
	if len(cfg.ChipDenominations) > 0 {
		bet = cfg.ChipDenominations[0]
	}

	start := table.Snapshot().Bankroll.Balance().Amount()
	tally := make(map[domain.GameOutcome]int)
	pterm.Info.Printfln("%s brain plays %d rounds at %d chips", pterm.LightCyan(agent.Name), rounds, bet)

	for round := 1; round <= rounds; round++ {
		if bet > 0 {
			if _, err := table.PlaceBet(bet); err != nil {
				pterm.Error.Printfln("Round %d: cannot cover the bet, stopping", round)
				break
			}
		}
		events, err := table.Deal()
		if err != nil {
			return err
		}
		more, err := agent.PlayRound(ctx, table)
		if err != nil {
			return err
		}
		events = append(events, more...)

		if settled, ok := settlementFrom(events); ok {
			tally[settled.Outcome]++
			logger.Debug("round settled", "round", round, "outcome", settled.Outcome, "net", settled.Net())
		}
		if _, err := table.Reset(); err != nil {
			return err
		}
	}

	end := table.Snapshot().Bankroll.Balance().Amount()
	rows := [][]string{{"Outcome", "Rounds"}}
	for _, o := range []domain.GameOutcome{
		domain.OutcomePlayerBlackjack, domain.OutcomePlayerWin, domain.OutcomePush,
		domain.OutcomeDealerWin, domain.OutcomeDealerWinAndBlackjack, domain.OutcomePlayerBust,
	} {
		rows = append(rows, []string{o.Label(), strconv.Itoa(tally[o])})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	if end >= start {
		pterm.Success.Printfln("Bankroll %d -> %d (%+d)", start, end, end-start)
	} else {
		pterm.Error.Printfln("Bankroll %d -> %d (%+d)", start, end, end-start)
	}
	return nil
}
