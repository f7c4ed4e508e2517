package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/database"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/database/repository"
	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/logging"
)

type fakeAPI struct {
	invoices []billing.Invoice
	csvs     map[string]string
	fail     map[string]error
}

func (f *fakeAPI) ListInvoices(ctx context.Context) ([]billing.Invoice, error) {
	return f.invoices, nil
}

func (f *fakeAPI) InvoiceCSV(ctx context.Context, uuid string) ([]byte, error) {
	if err, ok := f.fail[uuid]; ok {
		return nil, err
	}
	return []byte(f.csvs[uuid]), nil
}

func newSyncService(t *testing.T, api BillingAPI) *SyncService {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))
	return &SyncService{
		API:      api,
		Accounts: repository.NewAccountRepo(db),
		Cache:    repository.NewCacheRepo(db),
		Log:      zerolog.Nop(),
	}
}

func TestSyncFlattensInvoices(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &fakeAPI{
		invoices: []billing.Invoice{
			{UUID: "aaa", Period: "2024-05", Amount: 120.50},
			{UUID: "bbb", Period: "2024-04", Amount: 98.00},
		},
		csvs: map[string]string{
			"aaa": strings.Join([]string{
				"product,name,USD,project_name",
				"Droplets,web-1,100.00,website",
				"Spaces,assets,20.50,website",
			}, "\n"),
			"bbb": strings.Join([]string{
				"product,name,USD,project_name",
				"Droplets,web-1,98.00,",
			}, "\n"),
		},
	}
	svc := newSyncService(t, api)

	res, err := svc.Sync(ctx, "acct-1")
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, 0, res.Skipped)
	require.Len(t, res.Invoices, 2)
	require.Len(t, res.Items, 3)

	first := res.Items[0]
	require.Equal(t, "aaa", first.InvoiceID)
	require.Equal(t, "2024-05", first.InvoicePeriod)
	require.Equal(t, 120.50, first.InvoiceTotal)
	require.Equal(t, "Droplets", first.Product())

	// numeric-looking cells arrive as floats
	amt, ok := first.Get("USD")
	require.True(t, ok)
	require.Equal(t, 100.00, amt)

	require.Equal(t, 100.00, billing.ExtractAmount(first))
}

func TestSyncSkipsFailedFetch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &fakeAPI{
		invoices: []billing.Invoice{
			{UUID: "aaa", Period: "2024-05"},
			{UUID: "bbb", Period: "2024-04"},
			{UUID: "ccc", Period: "2024-03"},
		},
		csvs: map[string]string{
			"aaa": "product,USD\nDroplets,10.00",
			"ccc": "product,USD\nSpaces,5.00",
		},
		fail: map[string]error{"bbb": errors.New("boom")},
	}
	svc := newSyncService(t, api)

	res, err := svc.Sync(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	require.Len(t, res.Items, 2)
	for _, it := range res.Items {
		require.NotEqual(t, "bbb", it.InvoiceID)
	}
}

func TestSyncSkipsMalformedCSV(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &fakeAPI{
		invoices: []billing.Invoice{
			{UUID: "aaa", Period: "2024-05"},
			{UUID: "bbb", Period: "2024-04"},
		},
		csvs: map[string]string{
			"aaa": "product,USD\n\"unterminated,10.00",
			"bbb": "product,USD\nDroplets,7.00",
		},
	}
	svc := newSyncService(t, api)

	res, err := svc.Sync(ctx, "acct-1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Len(t, res.Items, 1)
	require.Equal(t, "bbb", res.Items[0].InvoiceID)
}

func TestSyncCacheRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &fakeAPI{
		invoices: []billing.Invoice{{UUID: "aaa", Period: "2024-05", Amount: 10.00}},
		csvs: map[string]string{
			"aaa": "product,description,USD\nDroplets,web-1 (s-1vcpu-1gb),10.00",
		},
	}
	svc := newSyncService(t, api)

	_, err := svc.Sync(ctx, "acct-1")
	require.NoError(t, err)

	invoices, items, ok, err := svc.LoadCached(ctx, "acct-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, invoices, 1)
	require.Len(t, items, 1)
	require.Equal(t, "aaa", items[0].InvoiceID)
	require.Equal(t, 10.00, billing.ExtractAmount(items[0]))
	require.Equal(t, "Droplets", items[0].Product())
}

func TestSyncLogsCompletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &fakeAPI{
		invoices: []billing.Invoice{{UUID: "aaa", Period: "2024-05"}},
		csvs:     map[string]string{"aaa": "product,USD\nDroplets,10.00"},
	}
	svc := newSyncService(t, api)
	var buf bytes.Buffer
	svc.Log = logging.NewWithWriter(&buf)

	_, err := svc.Sync(ctx, "acct-1")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "sync complete")
	require.Contains(t, buf.String(), "invoices=1")
}

func TestLoadCachedMiss(t *testing.T) {
	t.Parallel()
	svc := newSyncService(t, &fakeAPI{})
	_, _, ok, err := svc.LoadCached(context.Background(), "acct-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCoerce(t *testing.T) {
	t.Parallel()
	require.Equal(t, 12.5, coerce(" 12.5 "))
	require.Equal(t, -3.0, coerce("-3"))
	require.Equal(t, "2024-09-01", coerce("2024-09-01"))
	require.Equal(t, "web-1", coerce("web-1"))
	require.Equal(t, "", coerce("  "))
}
