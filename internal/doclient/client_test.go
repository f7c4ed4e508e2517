package doclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestListInvoicesFollowsPagination(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v2/customers/my/invoices" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		switch r.URL.Query().Get("page") {
		case "", "1":
			next := fmt.Sprintf("http://%s/v2/customers/my/invoices?per_page=200&page=2", r.Host)
			fmt.Fprintf(w, `{
				"invoices": [
					{"invoice_uuid": "aaa", "amount": "120.50", "invoice_period": "2024-05", "updated_at": "2024-06-01T00:00:00Z"},
					{"invoice_uuid": "bbb", "amount": "98.00", "invoice_period": "2024-04", "updated_at": "2024-05-01T00:00:00Z"}
				],
				"links": {"pages": {"next": %q}}
			}`, next)
		case "2":
			fmt.Fprint(w, `{
				"invoices": [
					{"invoice_uuid": "ccc", "amount": "77.25", "invoice_period": "2024-03", "updated_at": "2024-04-01T00:00:00Z"}
				],
				"links": {"pages": {}}
			}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123", zerolog.Nop())
	invs, err := c.ListInvoices(context.Background())
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if len(invs) != 3 {
		t.Fatalf("got %d invoices, want 3", len(invs))
	}
	if invs[0].UUID != "aaa" || invs[0].Amount != 120.50 || invs[0].Period != "2024-05" {
		t.Errorf("first invoice = %+v", invs[0])
	}
	if invs[2].UUID != "ccc" {
		t.Errorf("last invoice = %+v", invs[2])
	}
	if invs[0].CreatedAt.IsZero() {
		t.Error("expected updated_at to be parsed")
	}
}

func TestListInvoicesSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"id": "unauthorized", "message": "Unable to authenticate you"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", zerolog.Nop())
	if _, err := c.ListInvoices(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestInvoiceCSV(t *testing.T) {
	body := "product,amount\nDroplets,12.00\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/customers/my/invoices/aaa/csv" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	got, err := c.InvoiceCSV(context.Background(), "aaa")
	if err != nil {
		t.Fatalf("InvoiceCSV: %v", err)
	}
	if string(got) != body {
		t.Errorf("csv body = %q", got)
	}
}

func TestInvoiceCSVNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", zerolog.Nop())
	if _, err := c.InvoiceCSV(context.Background(), "zzz"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
