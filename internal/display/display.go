package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dyike/WheelGo/consts"
	"github.com/dyike/WheelGo/models"
	"github.com/dyike/WheelGo/pkg/wheel"
	"github.com/shopspring/decimal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(22)

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	sparkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// ResultsDisplay renders backtest results
type ResultsDisplay struct {
	w      io.Writer
	ticker string
}

// NewResultsDisplay creates a new results display handler
func NewResultsDisplay(w io.Writer, ticker string) *ResultsDisplay {
	return &ResultsDisplay{
		w:      w,
		ticker: ticker,
	}
}

// DisplayBacktestResults shows the summary panel, equity curve and, when showActions is set, the full trail
func (d *ResultsDisplay) DisplayBacktestResults(res *wheel.Result, showActions bool) {
	fmt.Fprintln(d.w, titleStyle.Render(fmt.Sprintf("Wheel backtest: %s @ %.0f%%  (%s to %s)",
		d.ticker,
		res.Params.StrikePct*100,
		res.Params.StartDate.Format(consts.DateLayout),
		res.Params.EndDate.Format(consts.DateLayout),
	)))
	fmt.Fprintln(d.w, RenderSummary(res.Summary))

	if len(res.EquityCurve) > 0 {
		fmt.Fprintln(d.w, "Equity  "+sparkStyle.Render(Sparkline(res.EquityCurve, 60)))
	}
	if res.SkippedWeeks > 0 {
		fmt.Fprintf(d.w, "%d of %d weeks skipped (insufficient cash)\n", res.SkippedWeeks, res.Weeks)
	}

	if showActions {
		fmt.Fprintln(d.w)
		fmt.Fprintln(d.w, RenderActionsTable(res.Records))
	}
}

// RenderSummary formats the simulation summary as a bordered panel
func RenderSummary(s models.SimulationSummary) string {
	ret := fmt.Sprintf("%+.2f%%", s.TotalReturnPct)
	if s.TotalReturnPct >= 0 {
		ret = gainStyle.Render(ret)
	} else {
		ret = lossStyle.Render(ret)
	}

	lines := []string{
		row("Starting Capital", money(s.StartingCapital)),
		row("Ending Balance", money(s.EndingCapital)),
		row("Total Return", ret),
		row("Premium Collected", money(s.PremiumCollected)),
		"",
		row("Puts Sold", strconv.Itoa(s.PutsSold)),
		row("Puts Expired", strconv.Itoa(s.PutsExpired)),
		row("Assignments", strconv.Itoa(s.Assignments)),
		row("Calls Sold", strconv.Itoa(s.CallsSold)),
		row("Calls Expired", strconv.Itoa(s.CallsExpired)),
		row("Call-Aways", strconv.Itoa(s.CallAways)),
		"",
		row("Shares Held at End", strconv.Itoa(s.SharesHeldAtEnd)),
		row("Cash at End", money(s.CashAtEnd)),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the equity curve in at most width runes, sampling evenly when the
// curve is longer. A flat curve renders at the lowest tick.
func Sparkline(curve []models.EquityPoint, width int) string {
	if len(curve) == 0 || width <= 0 {
		return ""
	}

	n := len(curve)
	if n > width {
		n = width
	}
	values := make([]float64, n)
	for i := range values {
		idx := i
		switch {
		case len(curve) <= width:
		case width == 1:
			idx = len(curve) - 1
		default:
			idx = i * (len(curve) - 1) / (width - 1)
		}
		values[i] = curve[idx].Value.InexactFloat64()
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		tick := 0
		if hi > lo {
			tick = int((v - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		b.WriteRune(sparkTicks[tick])
	}
	return b.String()
}

// RenderActionsTable lists every action record
func RenderActionsTable(records []models.ActionRecord) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		strike := ""
		if !r.Strike.IsZero() {
			strike = money(r.Strike)
		}
		premium := ""
		if r.Action.IsSale() {
			premium = money(r.Premium)
			if r.PremiumSource == models.PremiumSourceMarket {
				premium += " *"
			}
		}
		rows = append(rows, []string{
			r.Date.Format(consts.DateLayout),
			r.Action.DisplayName(),
			money(r.StockPrice),
			strike,
			premium,
			strconv.Itoa(r.SharesHeldAfter),
			money(r.CashAfter),
			money(r.PortfolioValueAfter),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers("Date", "Action", "Stock Price", "Strike", "Premium", "Shares Held", "Cash Balance", "Portfolio Value").
		Rows(rows...).
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerCellStyle
			}
			if c >= 2 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		}).
		String()
}

// SweepRow is one line of a parameter sweep comparison
type SweepRow struct {
	StrikePct float64
	Summary   models.SimulationSummary
	Err       error
}

// RenderSweepTable compares sweep runs side by side
func RenderSweepTable(rows []SweepRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Err != nil {
			data = append(data, []string{fmt.Sprintf("%.2f", r.StrikePct), "error", r.Err.Error(), "", "", "", ""})
			continue
		}
		s := r.Summary
		data = append(data, []string{
			fmt.Sprintf("%.2f", r.StrikePct),
			money(s.EndingCapital),
			fmt.Sprintf("%+.2f%%", s.TotalReturnPct),
			money(s.PremiumCollected),
			strconv.Itoa(s.PutsSold + s.CallsSold),
			strconv.Itoa(s.Assignments),
			strconv.Itoa(s.CallAways),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Strike %", "Ending Balance", "Return", "Premium", "Options Sold", "Assignments", "Call-Aways").
		Rows(data...).
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle.Align(lipgloss.Right)
		}).
		String()
}

// RunRow is one saved backtest in the history listing
type RunRow struct {
	ID            string
	Ticker        string
	StrikePct     float64
	Start         string
	End           string
	EndingCapital decimal.Decimal
	ReturnPct     float64
	Source        string
	CreatedAt     time.Time
}

// RenderRunsTable lists saved runs, newest first as given
func RenderRunsTable(rows []RunRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.ID,
			r.Ticker,
			fmt.Sprintf("%.2f", r.StrikePct),
			r.Start + " → " + r.End,
			money(r.EndingCapital),
			fmt.Sprintf("%+.2f%%", r.ReturnPct),
			r.Source,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Run", "Ticker", "Strike %", "Period", "Ending Balance", "Return", "Source", "Saved").
		Rows(data...).
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		}).
		String()
}

// DisplayError shows an error message
func DisplayError(w io.Writer, err error) {
	fmt.Fprintln(w, lossStyle.Render("❌ Error: "+err.Error()))
}

// DisplayInfo shows an info message
func DisplayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Render("ℹ️  "+message))
}

// DisplaySuccess shows a success message
func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("✅ "+message))
}

func money(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
