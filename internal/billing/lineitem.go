// Package billing is the aggregation and forecasting core. Every function here
// is pure: it takes already-materialized records and returns new values, so
// callers may invoke them repeatedly and concurrently without coordination.
package billing

import (
	"strings"
	"time"
)

// Field is one raw key/value pair from a provider record, in delivery order.
// Values arrive as strings or numbers depending on how the export was
// tokenized; both are handled downstream.
type Field struct {
	Key   string
	Value any
}

// LineItem is one billed unit of work: the raw provider record plus the tags
// of the invoice it belongs to. The field set is not fixed across records, so
// everything beyond the invoice tags is derived on demand.
type LineItem struct {
	InvoiceID     string
	InvoicePeriod string
	// InvoiceTotal is the owning invoice's provider-reported total. Carried
	// for diagnostics only; it is never a candidate for amount extraction.
	InvoiceTotal float64

	Fields []Field
}

// Invoice is one billing period statement. Line items reference it by UUID
// and may arrive from a separate fetch.
type Invoice struct {
	UUID      string
	Period    string // calendar label, e.g. "2024-09"
	Amount    float64
	CreatedAt time.Time
}

// Get returns the first field whose key matches name, case-insensitively.
func (li LineItem) Get(name string) (any, bool) {
	for _, f := range li.Fields {
		if strings.EqualFold(f.Key, name) {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString returns the field value rendered as a trimmed string, or "" when
// the field is absent or empty.
func (li LineItem) GetString(name string) string {
	v, ok := li.Get(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

func (li LineItem) firstString(names ...string) string {
	for _, n := range names {
		if s := li.GetString(n); s != "" {
			return s
		}
	}
	return ""
}

// Description returns the free-text description, if any.
func (li LineItem) Description() string {
	return li.firstString("description")
}

// Category returns the raw category attribute, without any fallback chain.
// Aggregation applies its own chain on top of this.
func (li LineItem) Category() string {
	return li.firstString("category")
}

// Product returns the product attribute, if any.
func (li LineItem) Product() string {
	return li.firstString("product")
}

// Project returns the project/resource grouping label, if any.
func (li LineItem) Project() string {
	return li.firstString("project_name", "project")
}

// ResourceID returns the resource identifier, if any.
func (li LineItem) ResourceID() string {
	return li.firstString("resource_id", "resource_uuid")
}

// dateFieldOrder is the priority order for deriving an item's effective date.
var dateFieldOrder = []string{"invoice_period", "start", "created_at", "date"}

// EffectiveDate derives the item's date from whichever known date field is
// present, in priority order. The boolean is false when no field parses; the
// time-window filter treats that as include-by-default.
func (li LineItem) EffectiveDate() (time.Time, bool) {
	if li.InvoicePeriod != "" {
		if t, ok := parsePeriodOrDate(li.InvoicePeriod); ok {
			return t, true
		}
	}
	for _, name := range dateFieldOrder {
		s := li.GetString(name)
		if s == "" {
			continue
		}
		if t, ok := parsePeriodOrDate(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// EffectiveDate resolves an invoice's calendar position: the period label when
// it parses, otherwise the created timestamp.
func (inv Invoice) EffectiveDate() (time.Time, bool) {
	if t, ok := parsePeriodOrDate(inv.Period); ok {
		return t, true
	}
	if !inv.CreatedAt.IsZero() {
		return inv.CreatedAt, true
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

var monthLayouts = []string{
	"2006-01",
	"2006-1",
	"January 2006",
	"Jan 2006",
}

// parsePeriodOrDate accepts full dates as well as bare month labels
// ("2024-9", "January 2024"), normalizing months to their first day in UTC.
func parsePeriodOrDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
