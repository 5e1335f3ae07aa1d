package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dyike/WheelGo/consts"
)

// UI styles
var (
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true).
			Align(lipgloss.Center).
			Width(72)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true).
			Align(lipgloss.Center).
			Width(72).
			MarginBottom(1)

	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 2)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(20)
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner(w io.Writer) {
	banner := `
 _      __  __            __   _____
| | /| / / / /  ___  ___ / /  / ___/ ___
| |/ |/ / / _ \/ -_)/ -_) /  / (_ // _ \
|__/|__/ /_//_/\__/ \__/_/   \___/ \___/
`
	fmt.Fprintln(w, welcomeStyle.Render(banner))
	fmt.Fprintln(w, taglineStyle.Render("Options wheel backtester: cash-secured puts, covered calls, repeat"))
}

// ClearScreen clears the terminal screen
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[2J\033[H")
}

// renderSelections formats the selections for confirmation
func renderSelections(sel UserSelections) string {
	live := "off (Black-Scholes estimates)"
	if sel.LiveQuotes {
		live = "on"
	}
	lines := []string{
		keyStyle.Render("📊 Ticker") + sel.Ticker,
		keyStyle.Render("🎯 Put strike") + fmt.Sprintf("%.2f × open (calls at %.2f)", sel.StrikePct, 2-sel.StrikePct),
		keyStyle.Render("📅 Period") + sel.StartDate.Format(consts.DateLayout) + " → " + sel.EndDate.Format(consts.DateLayout),
		keyStyle.Render("💰 Capital") + "$" + sel.StartingCapital.StringFixed(2),
		keyStyle.Render("📦 Lot size") + fmt.Sprintf("%d shares", sel.LotSize),
		keyStyle.Render("📡 Live quotes") + live,
	}
	return summaryStyle.Render(strings.Join(lines, "\n"))
}
