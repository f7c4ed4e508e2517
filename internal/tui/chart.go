package tui

import (
	"fmt"
	"strings"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
)

// barChart renders the monthly series as horizontal bars. Bar length scales
// with magnitude so a discount-dominated negative month still gets a visible
// bar, drawn with a different rune.
type barChart struct {
	Title    string
	Currency string
	Data     []billing.MonthPoint
}

func (c barChart) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if len(c.Data) == 0 {
		return c.Title + "\n(no data)"
	}
	maxV := 0.0
	for _, p := range c.Data {
		if v := abs(p.Total); v > maxV {
			maxV = v
		}
	}
	if maxV <= 0 {
		maxV = 1
	}
	barWidth := width - 30
	if barWidth < 8 {
		barWidth = 8
	}
	lines := []string{c.Title}
	for _, p := range c.Data {
		w := int(abs(p.Total) / maxV * float64(barWidth))
		if w < 1 {
			w = 1
		}
		bar := strings.Repeat("█", w)
		if p.Total < 0 {
			bar = strings.Repeat("▒", w)
		}
		lines = append(lines, fmt.Sprintf("%-8s %-*s %12s", billing.FormatMonth(p.Label), barWidth, bar, billing.FormatAmount(c.Currency, p.Total)))
		if len(lines) >= height {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
