// Package service orchestrates the collaborators around the billing core:
// syncing invoice data from the API into the local cache and exporting
// computed views.
package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/database/repository"
)

// BillingAPI is the slice of the API client the sync needs.
type BillingAPI interface {
	ListInvoices(ctx context.Context) ([]billing.Invoice, error)
	InvoiceCSV(ctx context.Context, invoiceUUID string) ([]byte, error)
}

// SyncService pulls the full invoice history for an account, flattens every
// per-invoice CSV into line items, and caches both lists as JSON.
type SyncService struct {
	API      BillingAPI
	Accounts *repository.AccountRepo
	Cache    *repository.CacheRepo
	Log      zerolog.Logger
}

type SyncResult struct {
	Invoices []billing.Invoice
	Items    []billing.LineItem
	Skipped  int // invoices whose CSV fetch failed
	Errors   []error
}

// Sync lists invoices then fetches each invoice's CSV concurrently, joining
// before parsing. A failed fetch is logged and skipped; it never aborts the
// rest. Parsed results are cached under the account.
func (s *SyncService) Sync(ctx context.Context, account string) (SyncResult, error) {
	res := SyncResult{}

	invoices, err := s.API.ListInvoices(ctx)
	if err != nil {
		return res, fmt.Errorf("list invoices: %w", err)
	}
	res.Invoices = invoices

	// Fan out the CSV fetches, barrier join before any parsing.
	bodies := make([][]byte, len(invoices))
	fetchErrs := make([]error, len(invoices))
	var wg sync.WaitGroup
	for i, inv := range invoices {
		wg.Add(1)
		go func(i int, inv billing.Invoice) {
			defer wg.Done()
			bodies[i], fetchErrs[i] = s.API.InvoiceCSV(ctx, inv.UUID)
		}(i, inv)
	}
	wg.Wait()

	describedSchema := false
	for i, inv := range invoices {
		if fetchErrs[i] != nil {
			s.Log.Warn().Str("invoice", inv.UUID).Err(fetchErrs[i]).Msg("invoice csv fetch failed, skipping")
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Errorf("invoice %s: %w", inv.UUID, fetchErrs[i]))
			continue
		}
		items, err := s.parseInvoiceCSV(bodies[i], inv, &describedSchema)
		if err != nil {
			s.Log.Warn().Str("invoice", inv.UUID).Err(err).Msg("invoice csv unparseable, skipping")
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Errorf("invoice %s: %w", inv.UUID, err))
			continue
		}
		res.Items = append(res.Items, items...)
	}

	if err := s.cache(ctx, account, res); err != nil {
		return res, err
	}
	s.Log.Info().
		Str("account", account).
		Int("invoices", len(res.Invoices)).
		Int("items", len(res.Items)).
		Int("skipped", res.Skipped).
		Msg("sync complete")
	return res, nil
}

// parseInvoiceCSV flattens one invoice export into line items. The first row
// is the header; each data row becomes an ordered key/value record with
// numeric-looking cells coerced to float64. The header is described in the
// log once per sync.
func (s *SyncService) parseInvoiceCSV(data []byte, inv billing.Invoice, described *bool) ([]billing.LineItem, error) {
	csvr := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if !*described {
		s.Log.Debug().Strs("columns", header).Msg("invoice csv schema")
		*described = true
	}

	var items []billing.LineItem
	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fields := make([]billing.Field, 0, len(rec))
		for j, cell := range rec {
			if j >= len(header) {
				break
			}
			fields = append(fields, billing.Field{Key: header[j], Value: coerce(cell)})
		}
		items = append(items, billing.LineItem{
			InvoiceID:     inv.UUID,
			InvoicePeriod: inv.Period,
			InvoiceTotal:  inv.Amount,
			Fields:        fields,
		})
	}
	return items, nil
}

// coerce turns numeric-looking cells into float64 and leaves everything else
// as the trimmed string.
func coerce(cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// accountKey maps the configured account name to a stable row id.
func accountKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("account:"+key)).String()
}

func (s *SyncService) cache(ctx context.Context, account string, res SyncResult) error {
	accountID := accountKey(account)
	if err := s.Accounts.Upsert(ctx, repository.Account{ID: accountID, Name: account}); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	invPayload, err := json.Marshal(res.Invoices)
	if err != nil {
		return fmt.Errorf("marshal invoices: %w", err)
	}
	if err := s.Cache.Put(ctx, accountID, repository.DataInvoices, invPayload); err != nil {
		return fmt.Errorf("cache invoices: %w", err)
	}
	itemPayload, err := json.Marshal(res.Items)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}
	if err := s.Cache.Put(ctx, accountID, repository.DataLineItems, itemPayload); err != nil {
		return fmt.Errorf("cache line items: %w", err)
	}
	return nil
}

// LoadCached returns the last synced invoices and line items for an account,
// with ok=false when nothing has been cached yet.
func (s *SyncService) LoadCached(ctx context.Context, account string) ([]billing.Invoice, []billing.LineItem, bool, error) {
	accountID := accountKey(account)
	invEntry, ok, err := s.Cache.Get(ctx, accountID, repository.DataInvoices)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	itemEntry, ok, err := s.Cache.Get(ctx, accountID, repository.DataLineItems)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	var invoices []billing.Invoice
	if err := json.Unmarshal(invEntry.Payload, &invoices); err != nil {
		return nil, nil, false, fmt.Errorf("cached invoices: %w", err)
	}
	var items []billing.LineItem
	if err := json.Unmarshal(itemEntry.Payload, &items); err != nil {
		return nil, nil, false, fmt.Errorf("cached line items: %w", err)
	}
	return invoices, items, true, nil
}
