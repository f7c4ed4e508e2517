package repository

import "time"

// Account represents a DigitalOcean account (or team) row.
type Account struct {
	ID        string
	Name      string
	Team      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Data types stored in cache_entries. One payload per (account, type).
const (
	DataInvoices  = "invoices"
	DataLineItems = "line_items"
	DataSummary   = "summary"
)

// CacheEntry holds one cached JSON payload for an account.
type CacheEntry struct {
	AccountID string
	DataType  string
	Payload   []byte
	UpdatedAt time.Time
}
