package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/vadiminshakov/hodlbook/internal/domain"
	"github.com/vadiminshakov/hodlbook/internal/services/market/indicators"
)

const cardsPerRow = 3

// Holdings renders one card per asset plus portfolio totals. Dormant assets
// (nothing held, nothing realized) are hidden.
func Holdings(snapshot domain.PortfolioSnapshot, valued domain.ValuedPortfolio, currency string) string {
	var cards []string
	for _, a := range valued.Assets {
		if pos, ok := snapshot.Position(a.Asset); ok && pos.IsDormant() {
			continue
		}
		cards = append(cards, holdingCard(a, currency))
	}

	var b strings.Builder
	b.WriteString(Title("HOLDINGS"))
	b.WriteString("\n")

	if len(cards) == 0 {
		b.WriteString(Muted("No holdings yet. Add a transaction with `hodlbook add`."))
		b.WriteString("\n")
		return b.String()
	}

	for i := 0; i < len(cards); i += cardsPerRow {
		end := i + cardsPerRow
		if end > len(cards) {
			end = len(cards)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(Totals(valued, currency))
	return b.String()
}

func holdingCard(a domain.ValuedAsset, currency string) string {
	lines := []string{
		assetStyle.Render(strings.ToUpper(a.Asset)),
		row("Quantity", Quantity(a.QuantityHeld)),
		row("Avg cost", Money(a.AverageCost, currency)),
		row("Price", Money(a.CurrentPrice, currency)),
		row("Value", Money(a.CurrentValue, currency)),
		row("Unrealized", pnlStyle(a.UnrealizedPnl).Render(SignedMoney(a.UnrealizedPnl, currency))),
		row("Realized", pnlStyle(a.RealizedPnl).Render(SignedMoney(a.RealizedPnl, currency))),
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label)) + " " + value
}

// Totals renders the portfolio summary line.
func Totals(valued domain.ValuedPortfolio, currency string) string {
	return strings.Join([]string{
		row("Total value", Money(valued.TotalValue, currency)),
		row("Unrealized", pnlStyle(valued.TotalUnrealizedPnl).Render(SignedMoney(valued.TotalUnrealizedPnl, currency))),
		row("Realized", pnlStyle(valued.TotalRealizedPnl).Render(SignedMoney(valued.TotalRealizedPnl, currency))),
	}, "\n") + "\n"
}

// Transactions renders the ledger as a table, in the given order.
func Transactions(txs []domain.Transaction, currency string) string {
	if len(txs) == 0 {
		return Muted("No transactions recorded.") + "\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(highlight)).
		Headers("ID", "DATE", "ACTION", "ASSET", "QUANTITY", "UNIT PRICE", "TOTAL")

	for _, tx := range txs {
		t.Row(
			shortID(tx.ID),
			tx.Date.String(),
			strings.ToUpper(tx.Action.String()),
			tx.Asset,
			Quantity(tx.Quantity),
			Money(tx.UnitPrice, currency),
			Money(tx.Total(), currency),
		)
	}
	return t.String() + "\n"
}

// shortID first uuid group; enough to tell rows apart on screen.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// History renders the portfolio value series as a sparkline and a table.
func History(points []domain.HistoryPoint, currency string) string {
	var b strings.Builder
	b.WriteString(Title("PORTFOLIO VALUE"))
	b.WriteString("\n")

	if len(points) == 0 {
		b.WriteString(Muted("No price history available."))
		b.WriteString("\n")
		return b.String()
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.TotalValue
	}
	b.WriteString(gainStyle.Render(Sparkline(values)))
	b.WriteString("\n")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(highlight)).
		Headers("DATE", "VALUE")
	for _, p := range points {
		t.Row(p.Date.String(), Money(p.TotalValue, currency))
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// CoinChart renders a coin price series with its EMA and RSI.
func CoinChart(asset string, points []indicators.ChartPoint, change float64, currency string) string {
	var b strings.Builder
	b.WriteString(Title(strings.ToUpper(asset)))
	b.WriteString("\n")

	if len(points) == 0 {
		b.WriteString(Muted("No price history available."))
		b.WriteString("\n")
		return b.String()
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	b.WriteString(pnlStyle(change).Render(Sparkline(prices)))
	b.WriteString("  ")
	b.WriteString(pnlStyle(change).Render(Percent(change)))
	b.WriteString("\n")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(highlight)).
		Headers("DATE", "PRICE", "EMA", "RSI")
	for _, p := range points {
		ema, rsi := "-", "-"
		if p.EMA != nil {
			ema = Money(*p.EMA, currency)
		}
		if p.RSI != nil {
			rsi = fmt.Sprintf("%.1f", *p.RSI)
		}
		t.Row(p.Date.String(), Money(p.Price, currency), ema, rsi)
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}
