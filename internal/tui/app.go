// Package tui is the terminal dashboard: window cycling, per-dimension bucket
// views, invoice listing, and sync/export actions layered over the billing
// pipeline.
package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/config"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/service"
)

// App ties together views.
type App struct {
	ctx      context.Context
	cfg      config.Config
	services Services
	keys     keyMap
	log      zerolog.Logger

	state     appState
	window    billing.Window
	invoices  []billing.Invoice
	items     []billing.LineItem
	accountID string

	cursor     int
	drillLabel string
	width      int
	height     int
	syncing    bool
	status     string
	currency   string

	now func() time.Time
}

type Services struct {
	Sync        *service.SyncService
	Maintenance *service.MaintenanceService
}

type appState string

const (
	viewDashboard  appState = "dashboard"
	viewCategories appState = "categories"
	viewProjects   appState = "projects"
	viewProducts   appState = "products"
	viewInvoices   appState = "invoices"
	viewSettings   appState = "settings"
)

// viewOrder drives tab cycling.
var viewOrder = []appState{
	viewDashboard,
	viewCategories,
	viewProjects,
	viewProducts,
	viewInvoices,
	viewSettings,
}

func New(ctx context.Context, cfg config.Config, services Services, log zerolog.Logger) *App {
	return &App{
		ctx:       ctx,
		cfg:       cfg,
		services:  services,
		keys:      defaultKeyMap(),
		log:       log,
		state:     viewDashboard,
		window:    billing.ParseWindow(cfg.UI.DefaultWindow),
		accountID: cfg.API.AccountID(),
		currency:  cfg.UI.CurrencySymbol,
		width:     100,
		height:    32,
		now:       time.Now,
	}
}

func (a *App) Init() tea.Cmd {
	return a.loadCached()
}

// commands

func (a *App) loadCached() tea.Cmd {
	return func() tea.Msg {
		invoices, items, ok, err := a.services.Sync.LoadCached(a.ctx, a.accountID)
		if err != nil {
			return errMsg{err}
		}
		if !ok {
			return cacheMissMsg{}
		}
		return dataMsg{invoices: invoices, items: items, cached: true}
	}
}

func (a *App) syncCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := a.services.Sync.Sync(a.ctx, a.accountID)
		if err != nil {
			return errMsg{err}
		}
		return syncDoneMsg{result: res}
	}
}

func (a *App) exportCmd() tea.Cmd {
	window := a.window
	state := a.state
	items := billing.FilterLineItems(a.items, window, a.now())
	return func() tea.Msg {
		path := fmt.Sprintf("dobill-%s-%s.csv", state, window)
		var err error
		switch state {
		case viewCategories, viewProjects, viewProducts:
			dim := dimensionFor(state)
			buckets := billing.SortedBuckets(billing.Aggregate(items, dim))
			err = service.ExportFile(path, func(w io.Writer) error {
				return service.WriteBucketsCSV(w, string(dim), buckets)
			})
		default:
			series := billing.BuildMonthlySeries(items)
			err = service.ExportFile(path, func(w io.Writer) error {
				return service.WriteSeriesCSV(w, series)
			})
		}
		if err != nil {
			return errMsg{err}
		}
		return exportDoneMsg{path: path}
	}
}

// saveDefaultsCmd persists the active window as the startup default.
func (a *App) saveDefaultsCmd() tea.Cmd {
	a.cfg.UI.DefaultWindow = string(a.window)
	cfg := a.cfg
	label := a.window.Label()
	return func() tea.Msg {
		if err := config.Save(cfg); err != nil {
			return errMsg{err}
		}
		return statusMsg("saved " + label + " as default window")
	}
}

func (a *App) resetCmd() tea.Cmd {
	return func() tea.Msg {
		if a.services.Maintenance == nil {
			return errMsg{fmt.Errorf("maintenance not configured")}
		}
		if err := a.services.Maintenance.Reset(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("cache cleared, press s to sync")
	}
}

// update

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
	case tea.KeyMsg:
		return a.handleKey(m)
	case dataMsg:
		a.invoices = m.invoices
		a.items = m.items
		a.cursor = 0
		if m.cached {
			a.status = fmt.Sprintf("loaded %d line items from cache", len(m.items))
		}
	case cacheMissMsg:
		a.syncing = true
		a.status = "no cached data, syncing..."
		return a, a.syncCmd()
	case syncDoneMsg:
		a.syncing = false
		a.status = fmt.Sprintf("synced %d invoices, %d line items", len(m.result.Invoices), len(m.result.Items))
		if m.result.Skipped > 0 {
			a.status += fmt.Sprintf(" (%d skipped)", m.result.Skipped)
		}
		return a, func() tea.Msg {
			return dataMsg{invoices: m.result.Invoices, items: m.result.Items}
		}
	case exportDoneMsg:
		a.status = "exported " + m.path
	case statusMsg:
		a.status = string(m)
	case errMsg:
		a.syncing = false
		a.status = "error: " + m.Error()
		a.log.Error().Err(m.error).Msg("ui action failed")
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(m, a.keys.Back):
		if a.drillLabel != "" {
			a.drillLabel = ""
			return a, nil
		}
		a.state = viewDashboard
		a.status = ""
	case key.Matches(m, a.keys.NextView):
		a.cycleView(1)
	case key.Matches(m, a.keys.PrevView):
		a.cycleView(-1)
	case key.Matches(m, a.keys.Dashboard):
		a.state = viewDashboard
		a.drillLabel = ""
	case key.Matches(m, a.keys.Settings):
		a.state = viewSettings
		a.drillLabel = ""
	case key.Matches(m, a.keys.Window):
		a.cycleWindow()
	case key.Matches(m, a.keys.Sync):
		if a.syncing {
			return a, nil
		}
		a.syncing = true
		a.status = "syncing..."
		return a, a.syncCmd()
	case key.Matches(m, a.keys.Export):
		return a, a.exportCmd()
	case key.Matches(m, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.cursor < a.cursorMax() {
			a.cursor++
		}
	case key.Matches(m, a.keys.Select):
		if a.state == viewSettings {
			return a, a.saveDefaultsCmd()
		}
		if dim, ok := a.bucketDimension(); ok {
			buckets := a.currentBuckets(dim)
			if a.cursor < len(buckets) {
				a.drillLabel = buckets[a.cursor].Label
			}
		}
	}
	if a.state == viewSettings && (m.Type == tea.KeyBackspace || m.Type == tea.KeyDelete) {
		return a, a.resetCmd()
	}
	return a, nil
}

func (a *App) cycleView(step int) {
	a.drillLabel = ""
	a.cursor = 0
	for i, v := range viewOrder {
		if v == a.state {
			a.state = viewOrder[(i+step+len(viewOrder))%len(viewOrder)]
			return
		}
	}
	a.state = viewDashboard
}

func (a *App) cycleWindow() {
	a.drillLabel = ""
	a.cursor = 0
	for i, w := range billing.Windows {
		if w == a.window {
			a.window = billing.Windows[(i+1)%len(billing.Windows)]
			return
		}
	}
	a.window = billing.Windows[0]
}

// data derivation for the active view

func (a *App) windowItems() []billing.LineItem {
	return billing.FilterLineItems(a.items, a.window, a.now())
}

func (a *App) windowInvoices() []billing.Invoice {
	return billing.FilterInvoices(a.invoices, a.window, a.now())
}

func (a *App) bucketDimension() (billing.Dimension, bool) {
	dim := dimensionFor(a.state)
	return dim, dim != ""
}

func dimensionFor(state appState) billing.Dimension {
	switch state {
	case viewCategories:
		return billing.ByCategory
	case viewProjects:
		return billing.ByProject
	case viewProducts:
		return billing.ByProduct
	}
	return ""
}

func (a *App) currentBuckets(dim billing.Dimension) []billing.Bucket {
	return billing.SortedBuckets(billing.Aggregate(a.windowItems(), dim))
}

func (a *App) cursorMax() int {
	if dim, ok := a.bucketDimension(); ok {
		return len(a.currentBuckets(dim)) - 1
	}
	if a.state == viewInvoices {
		return len(a.windowInvoices()) - 1
	}
	return 0
}

// messages

type dataMsg struct {
	invoices []billing.Invoice
	items    []billing.LineItem
	cached   bool
}

type cacheMissMsg struct{}

type syncDoneMsg struct {
	result service.SyncResult
}

type exportDoneMsg struct {
	path string
}

type statusMsg string

type errMsg struct{ error }
