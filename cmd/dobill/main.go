package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/config"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/database"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/database/repository"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/doclient"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/logging"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/service"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	token := cfg.Token()
	if token == "" {
		log.Fatalf("no API token: set %s", cfg.API.TokenEnv)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	logger, closeLog := logging.Open(cfg.UI.LogPath)
	defer closeLog()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	client := doclient.New(cfg.API.BaseURL, token, logger)
	syncSvc := &service.SyncService{
		API:      client,
		Accounts: repository.NewAccountRepo(db),
		Cache:    repository.NewCacheRepo(db),
		Log:      logger,
	}
	maintenance := &service.MaintenanceService{DB: db}

	p := tea.NewProgram(tui.New(ctx, cfg,
		tui.Services{Sync: syncSvc, Maintenance: maintenance},
		logger,
	), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
