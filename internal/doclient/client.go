// Package doclient is the HTTP retrieval collaborator: a thin client for the
// DigitalOcean customer billing API. It lists invoices (following pagination
// links until exhausted) and fetches per-invoice CSV exports. All shape
// tolerance for the records themselves lives in the billing core, not here.
package doclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.digitalocean.com"

const perPage = 200

// Client talks to the DigitalOcean billing API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a client. An empty baseURL selects production.
func New(baseURL, token string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

type invoiceListResponse struct {
	Invoices []struct {
		InvoiceUUID   string `json:"invoice_uuid"`
		Amount        string `json:"amount"`
		InvoicePeriod string `json:"invoice_period"`
		UpdatedAt     string `json:"updated_at"`
	} `json:"invoices"`
	Links struct {
		Pages struct {
			Next string `json:"next"`
		} `json:"pages"`
	} `json:"links"`
}

// ListInvoices returns every invoice on the account, following the "next"
// pagination link until exhausted.
func (c *Client) ListInvoices(ctx context.Context) ([]billing.Invoice, error) {
	url := fmt.Sprintf("%s/v2/customers/my/invoices?per_page=%d", c.baseURL, perPage)
	var out []billing.Invoice
	pages := 0
	for url != "" {
		pages++
		var page invoiceListResponse
		if err := c.getJSON(ctx, url, &page); err != nil {
			return nil, fmt.Errorf("list invoices page %d: %w", pages, err)
		}
		for _, raw := range page.Invoices {
			inv := billing.Invoice{
				UUID:   raw.InvoiceUUID,
				Period: raw.InvoicePeriod,
			}
			if amt, ok := billing.ParseMoneyValue(raw.Amount); ok {
				inv.Amount = amt
			}
			if t, err := time.Parse(time.RFC3339, raw.UpdatedAt); err == nil {
				inv.CreatedAt = t
			}
			out = append(out, inv)
		}
		url = page.Links.Pages.Next
	}
	c.log.Debug().Int("invoices", len(out)).Int("pages", pages).Msg("listed invoices")
	return out, nil
}

// InvoiceCSV fetches the raw CSV export for one invoice.
func (c *Client) InvoiceCSV(ctx context.Context, invoiceUUID string) ([]byte, error) {
	url := fmt.Sprintf("%s/v2/customers/my/invoices/%s/csv", c.baseURL, invoiceUUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s csv: %w", invoiceUUID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read invoice %s csv: %w", invoiceUUID, err)
	}
	c.log.Debug().Str("invoice", invoiceUUID).Int("bytes", len(body)).Msg("fetched invoice csv")
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("api status %d: %s", resp.StatusCode, msg)
}
