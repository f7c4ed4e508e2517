package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
)

// styles
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	sentinelStyle = lipgloss.NewStyle().Faint(true)
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func (a *App) View() string {
	var body string
	switch a.state {
	case viewCategories:
		body = a.renderBuckets("Categories", billing.ByCategory)
	case viewProjects:
		body = a.renderBuckets("Projects", billing.ByProject)
	case viewProducts:
		body = a.renderBuckets("Products", billing.ByProduct)
	case viewInvoices:
		body = a.renderInvoices()
	case viewSettings:
		body = a.renderSettings()
	default:
		body = a.renderDashboard()
	}
	out := body + "\n\n" + a.renderFooter()
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderDashboard() string {
	items := a.windowItems()
	summary := billing.Summarize(items)
	series := billing.BuildMonthlySeries(items)
	fc := billing.ComputeTrendAndForecast(series)

	title := titleStyle.Render("DigitalOcean Billing — " + a.window.Label())
	out := title + "\n"
	out += fmt.Sprintf("Total: %s   Charges: %s   Discounts: %s   Items: %d\n",
		a.amount(summary.Total),
		billing.FormatAmount(a.currency, summary.Charges),
		a.amount(summary.Discounts),
		summary.Items)
	out += "\n" + barChart{Title: "Monthly spend", Currency: a.currency, Data: series}.Render(a.width, a.height-10) + "\n"
	out += fmt.Sprintf("\nTrend: %s %s", trendArrow(fc.TrendDirection), string(fc.TrendDirection))
	if fc.TrendDirection == billing.TrendUp || fc.TrendDirection == billing.TrendDown {
		out += fmt.Sprintf(" %.1f%%", fc.TrendPercent)
	}
	out += fmt.Sprintf("\nNext month: %s (%s)", a.amount(fc.ForecastAmount), fc.Confidence)
	return out
}

func (a *App) renderBuckets(name string, dim billing.Dimension) string {
	buckets := a.currentBuckets(dim)
	title := titleStyle.Render(fmt.Sprintf("%s — %s", name, a.window.Label()))
	if a.drillLabel != "" {
		return a.renderDrill(title, dim)
	}
	out := title + "\n"
	if len(buckets) == 0 {
		return out + "(no data in window)"
	}
	for i, b := range buckets {
		marker := " "
		if i == a.cursor {
			marker = "▶"
		}
		label := b.Label
		if billing.IsSentinelLabel(label) {
			label = sentinelStyle.Render(label)
		}
		out += fmt.Sprintf("%s %-40s %14s\n", marker, label, a.amount(b.Total))
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderDrill(title string, dim billing.Dimension) string {
	items := billing.ItemsForBucket(a.windowItems(), dim, a.drillLabel)
	out := title + "\n" + titleStyle.Render("▸ "+a.drillLabel) + "\n"
	if len(items) == 0 {
		return out + "(no line items)"
	}
	shown := items
	if limit := a.height - 8; limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, it := range shown {
		out += fmt.Sprintf("  %-10s %-44s %12s\n",
			billing.FormatMonth(it.InvoicePeriod),
			truncate(it.Description(), 44),
			a.amount(billing.ExtractAmount(it)))
	}
	if len(items) > len(shown) {
		out += fmt.Sprintf("  (+%d more)\n", len(items)-len(shown))
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderInvoices() string {
	invoices := a.windowInvoices()
	title := titleStyle.Render("Invoices — " + a.window.Label())
	out := title + "\n"
	if len(invoices) == 0 {
		return out + "(no invoices in window)"
	}
	for i, inv := range invoices {
		marker := " "
		if i == a.cursor {
			marker = "▶"
		}
		out += fmt.Sprintf("%s %-10s %-38s %12s\n", marker, billing.FormatMonth(inv.Period), inv.UUID, a.amount(inv.Amount))
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderSettings() string {
	title := titleStyle.Render("Settings")
	out := title + "\n"
	out += fmt.Sprintf("Account:    %s\n", a.accountID)
	out += fmt.Sprintf("Token env:  %s\n", a.cfg.API.TokenEnv)
	out += fmt.Sprintf("API:        %s\n", a.cfg.API.BaseURL)
	out += fmt.Sprintf("Cache:      %s\n", a.cfg.Database.Path)
	out += fmt.Sprintf("Window:     %s\n", a.window.Label())
	out += "\n[enter] Save current window as default  [backspace] Clear cached billing data"
	return out
}

func (a *App) renderFooter() string {
	var parts []string
	for _, b := range a.keys.help() {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
	}
	return sentinelStyle.Render(strings.Join(parts, "  "))
}

// amount styles net-negative values so discounts stand out.
func (a *App) amount(v float64) string {
	s := billing.FormatAmount(a.currency, v)
	if v < 0 {
		return negativeStyle.Render(s)
	}
	return s
}

func trendArrow(d billing.TrendDirection) string {
	switch d {
	case billing.TrendUp:
		return "↑"
	case billing.TrendDown:
		return "↓"
	case billing.TrendFlat:
		return "→"
	default:
		return "·"
	}
}

// truncate shortens by runes so multibyte provider text never splits mid-rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
