package tui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
)

func TestChartScalesBarsByMagnitude(t *testing.T) {
	c := barChart{Title: "Monthly spend", Currency: "$", Data: []billing.MonthPoint{
		{Label: "2024-04", Total: 50},
		{Label: "2024-05", Total: 100},
	}}
	out := c.Render(80, 20)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if strings.Count(lines[2], "█") <= strings.Count(lines[1], "█") {
		t.Errorf("larger month should get the longer bar:\n%s", out)
	}
	if !strings.Contains(lines[2], "$100.00") {
		t.Errorf("missing amount column in %q", lines[2])
	}
}

func TestChartRendersNegativeMonthsDistinctly(t *testing.T) {
	c := barChart{Title: "Monthly spend", Currency: "$", Data: []billing.MonthPoint{
		{Label: "2024-04", Total: 80},
		{Label: "2024-05", Total: -40},
	}}
	out := c.Render(80, 20)
	if !strings.Contains(out, "▒") {
		t.Fatalf("negative month should use the hollow bar rune:\n%s", out)
	}
	if !strings.Contains(out, "-$40.00") {
		t.Errorf("missing signed amount in:\n%s", out)
	}
}

func TestChartEmptyAndDegenerate(t *testing.T) {
	if out := (barChart{Title: "Monthly spend"}).Render(80, 20); !strings.Contains(out, "(no data)") {
		t.Errorf("empty chart = %q", out)
	}
	if out := (barChart{Data: []billing.MonthPoint{{Label: "2024-05", Total: 1}}}).Render(0, 0); out != "" {
		t.Errorf("zero-size chart = %q", out)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	cases := []struct {
		s    string
		n    int
		want string
	}{
		{"droplet", 10, "droplet"},
		{"droplet-fra1", 8, "droplet…"},
		{"Gutschrift für Fehlüberweisung", 14, "Gutschrift fü…"},
		{"東京リージョン転送量", 4, "東京リ…"},
		{"東京", 1, "東"},
		{"droplet", 0, ""},
	}
	for _, tc := range cases {
		got := truncate(tc.s, tc.n)
		if got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.s, tc.n, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8 %q", tc.s, tc.n, got)
		}
	}
}

func TestTrendArrow(t *testing.T) {
	cases := map[billing.TrendDirection]string{
		billing.TrendUp:      "↑",
		billing.TrendDown:    "↓",
		billing.TrendFlat:    "→",
		billing.TrendUnknown: "·",
	}
	for dir, want := range cases {
		if got := trendArrow(dir); got != want {
			t.Errorf("trendArrow(%s) = %q, want %q", dir, got, want)
		}
	}
}
