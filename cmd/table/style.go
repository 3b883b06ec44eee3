package main

import (
	"fmt"
	"strings"

	"blackjack/internal/advisor"
	"blackjack/internal/app"
	"blackjack/internal/app/betting"
	"blackjack/internal/domain"

	"github.com/pterm/pterm"
)

// cardString colours a card by suit and hides face-down cards.
func cardString(c domain.Card) string {
	if !c.FaceUp {
		return pterm.BgDarkGray.Sprint(" ?? ")
	}
	if c.Suit.Red() {
		return pterm.BgWhite.Sprint(pterm.Red(" " + c.String() + " "))
	}
	return pterm.BgWhite.Sprint(pterm.Black(" " + c.String() + " "))
}

func handString(h domain.Hand) string {
	if h.Len() == 0 {
		return pterm.FgDarkGray.Sprint("no cards")
	}
	parts := make([]string, 0, h.Len())
	for _, c := range h.Cards() {
		parts = append(parts, cardString(c))
	}
	return strings.Join(parts, " ")
}

// handPanel boxes one hand with its visible total.
func handPanel(title string, h domain.Hand) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	total := fmt.Sprintf("Total: %d", h.BestValue())
	if h.IsBust() {
		total = pterm.LightRed(total + " BUST")
	} else if h.IsBlackjack() {
		total = pterm.LightGreen(total + " BLACKJACK")
	}
	return pterm.Panel{Data: pbox.WithTitle(title).WithTitleTopLeft().Sprintf("%s\n%s", handString(h), total)}
}

func betPanel(snap app.Snapshot) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	chips := make([]string, len(snap.Placed))
	for i, c := range snap.Placed {
		chips[i] = c.String()
	}
	placed := pterm.FgDarkGray.Sprint("none")
	if len(chips) > 0 {
		placed = strings.Join(chips, " + ")
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|BET|")).WithTitleTopCenter().Sprintf(
		"Bet: %s\nChips: %s\nBankroll: %s\nPhase: %s",
		snap.Bet.CurrentBet, placed, snap.Bankroll.Balance(), snap.Phase)}
}

// settlementPanel announces the round result.
func settlementPanel(s betting.BetOutcome) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	title := pterm.LightRed("|DEALER WINS|")
	switch {
	case s.Net() > 0:
		title = pterm.LightGreen("|YOU WIN|")
	case s.Outcome == domain.OutcomePush:
		title = pterm.LightYellow("|PUSH|")
	}
	return pterm.Panel{Data: pbox.WithTitle(title).WithTitleTopCenter().Sprintf(
		"%s\nPayout: %s (net %+d)\nBankroll: %s",
		s.Outcome.Label(), s.Payout, s.Net(), s.NewBankroll.Balance())}
}

func advicePanel(rec advisor.Recommendation) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	action := strings.ToUpper(string(rec.Action))
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightCyan("|ADVICE|")).WithTitleTopCenter().Sprintf("%s\n%s", action, rec.Reason)}
}

// printState renders the table with optional extra panels on the bottom row.
func printState(snap app.Snapshot, additionalPanel ...pterm.Panel) {
	dashboard := []pterm.Panel{betPanel(snap)}
	dashboard = append(dashboard, additionalPanel...)

	pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{handPanel(pterm.LightMagenta("Dealer"), snap.State.Dealer)},
		{handPanel(pterm.LightCyan("You"), snap.State.Player)},
		dashboard,
	}).Render()
}

// settlementFrom finds the settlement among events, if the round ended.
func settlementFrom(events []app.Event) (betting.BetOutcome, bool) {
	for _, ev := range events {
		if p, ok := ev.Payload.(app.BetSettledPayload); ok {
			return p.Settlement, true
		}
	}
	return betting.BetOutcome{}, false
}
