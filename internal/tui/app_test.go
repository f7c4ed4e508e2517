package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/config"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/service"
)

func syncResultWith(invoices, items, skipped int) service.SyncResult {
	res := service.SyncResult{Skipped: skipped}
	for i := 0; i < invoices; i++ {
		res.Invoices = append(res.Invoices, billing.Invoice{})
	}
	for i := 0; i < items; i++ {
		res.Items = append(res.Items, billing.LineItem{})
	}
	return res
}

func testApp() *App {
	cfg := config.Config{}
	cfg.API.TokenEnv = "DIGITALOCEAN_TOKEN"
	cfg.UI.CurrencySymbol = "$"
	cfg.UI.DefaultWindow = "last6Months"
	a := New(context.Background(), cfg, Services{}, zerolog.Nop())
	a.now = func() time.Time {
		return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	}
	return a
}

func testItem(period, product, project, desc string, usd float64) billing.LineItem {
	return billing.LineItem{
		InvoiceID:     "inv-" + period,
		InvoicePeriod: period,
		Fields: []billing.Field{
			{Key: "product", Value: product},
			{Key: "project_name", Value: project},
			{Key: "description", Value: desc},
			{Key: "USD", Value: usd},
		},
	}
}

func testItems() []billing.LineItem {
	return []billing.LineItem{
		testItem("2024-03", "Droplets", "website", "web-1 (s-1vcpu-1gb)", 40),
		testItem("2024-04", "Droplets", "website", "web-1 (s-1vcpu-1gb)", 50),
		testItem("2024-05", "Spaces", "", "assets bucket", 60),
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDashboardViewShowsSummaryAndForecast(t *testing.T) {
	a := testApp()
	a.items = testItems()

	out := ansi.Strip(a.View())
	if !strings.Contains(out, "DigitalOcean Billing — 6 Months") {
		t.Fatalf("missing title in:\n%s", out)
	}
	if !strings.Contains(out, "Total: $150.00") {
		t.Fatalf("missing summary total in:\n%s", out)
	}
	if !strings.Contains(out, "Monthly spend") {
		t.Fatal("missing chart title")
	}
	if !strings.Contains(out, "Trend: ↑ Up") {
		t.Fatalf("missing upward trend in:\n%s", out)
	}
	if !strings.Contains(out, "Next month:") {
		t.Fatal("missing forecast line")
	}
}

func TestBucketViewSortsAndShowsSentinels(t *testing.T) {
	a := testApp()
	a.items = testItems()
	a.state = viewProjects

	out := ansi.Strip(a.View())
	if !strings.Contains(out, "Projects — 6 Months") {
		t.Fatalf("missing title in:\n%s", out)
	}
	websiteAt := strings.Index(out, "website")
	unassignedAt := strings.Index(out, billing.LabelUnassigned)
	if websiteAt < 0 || unassignedAt < 0 {
		t.Fatalf("missing bucket rows in:\n%s", out)
	}
	if websiteAt > unassignedAt {
		t.Error("expected website ($90) sorted above Unassigned ($60)")
	}
}

func TestWindowCyclingChangesVisibleData(t *testing.T) {
	a := testApp()
	a.items = append(testItems(), testItem("2023-01", "Volumes", "old", "legacy volume", 500))
	a.state = viewProducts

	out := ansi.Strip(a.View())
	if strings.Contains(out, "Volumes") {
		t.Fatal("2023-01 item should be outside the six month window")
	}

	// cycle last6Months -> last12Months -> allTime
	_, _ = a.Update(keyRune('w'))
	_, _ = a.Update(keyRune('w'))
	if a.window != billing.WindowAllTime {
		t.Fatalf("window = %s after two cycles", a.window)
	}
	out = ansi.Strip(a.View())
	if !strings.Contains(out, "Volumes") {
		t.Fatalf("allTime should include the 2023-01 item in:\n%s", out)
	}
}

func TestDrillDownShowsBucketItems(t *testing.T) {
	a := testApp()
	a.items = testItems()
	a.state = viewProducts
	// Droplets is the top bucket ($90), cursor starts there
	_, _ = a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if a.drillLabel != "Droplets" {
		t.Fatalf("drillLabel = %q", a.drillLabel)
	}
	out := ansi.Strip(a.View())
	if !strings.Contains(out, "web-1 (s-1vcpu-1gb)") {
		t.Fatalf("missing drilled line item in:\n%s", out)
	}
	// esc returns to the bucket table
	_, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if a.drillLabel != "" {
		t.Error("esc should clear drill state")
	}
}

func TestTabCyclesViews(t *testing.T) {
	a := testApp()
	order := []appState{viewCategories, viewProjects, viewProducts, viewInvoices, viewSettings, viewDashboard}
	for _, want := range order {
		_, _ = a.Update(tea.KeyMsg{Type: tea.KeyTab})
		if a.state != want {
			t.Fatalf("state = %s, want %s", a.state, want)
		}
	}
}

func TestInvoicesViewUsesInvoiceWindow(t *testing.T) {
	a := testApp()
	a.invoices = []billing.Invoice{
		{UUID: "aaa", Period: "2024-05", Amount: 60},
		{UUID: "bbb", Period: "2024-04", Amount: 50},
	}
	a.state = viewInvoices
	a.window = billing.WindowLastMonth

	out := ansi.Strip(a.View())
	if !strings.Contains(out, "aaa") {
		t.Fatalf("missing latest-month invoice in:\n%s", out)
	}
	if strings.Contains(out, "bbb") {
		t.Fatal("lastMonth should anchor to the latest invoice month only")
	}
}

func TestSettingsViewNeverShowsToken(t *testing.T) {
	t.Setenv("DIGITALOCEAN_TOKEN", "secret-token-value")
	a := testApp()
	a.state = viewSettings
	out := ansi.Strip(a.View())
	if strings.Contains(out, "secret-token-value") {
		t.Fatal("settings view must not render the token")
	}
	if !strings.Contains(out, "DIGITALOCEAN_TOKEN") {
		t.Fatal("settings view should name the token env var")
	}
}

func TestSettingsEnterSavesDefaultWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("DOBILL_CONFIG", path)
	t.Setenv("DIGITALOCEAN_TOKEN", "secret-token-value")

	a := testApp()
	a.state = viewSettings
	_, _ = a.Update(keyRune('w')) // last6Months -> last12Months

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter in settings should emit a save command")
	}
	msg := cmd()
	status, ok := msg.(statusMsg)
	if !ok {
		t.Fatalf("save returned %T (%v)", msg, msg)
	}
	if !strings.Contains(string(status), "12 Months") {
		t.Errorf("status = %q", status)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(raw), "last12Months") {
		t.Errorf("saved config missing window:\n%s", raw)
	}
	if strings.Contains(string(raw), "secret-token-value") {
		t.Error("saved config must never contain the token")
	}
}

func TestSettingsBackspaceClearsCache(t *testing.T) {
	a := testApp()
	a.state = viewSettings

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if cmd == nil {
		t.Fatal("backspace in settings should emit a reset command")
	}
	if _, ok := cmd().(errMsg); !ok {
		t.Fatal("reset without a maintenance service should report an error")
	}
}

func TestSyncMessageUpdatesStatus(t *testing.T) {
	a := testApp()
	model, cmd := a.Update(syncDoneMsg{result: syncResultWith(2, 7, 1)})
	a = model.(*App)
	if !strings.Contains(a.status, "synced 2 invoices, 7 line items") || !strings.Contains(a.status, "1 skipped") {
		t.Fatalf("status = %q", a.status)
	}
	if cmd == nil {
		t.Fatal("sync completion should emit a data message")
	}
}
