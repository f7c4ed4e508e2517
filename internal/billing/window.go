package billing

import "time"

// Window is a named relative time range applied before aggregation.
type Window string

const (
	WindowLastMonth    Window = "lastMonth"
	WindowLast3Months  Window = "last3Months"
	WindowLast6Months  Window = "last6Months"
	WindowLast12Months Window = "last12Months"
	WindowAllTime      Window = "allTime"
)

// Windows lists all windows in presentation order.
var Windows = []Window{
	WindowLastMonth,
	WindowLast3Months,
	WindowLast6Months,
	WindowLast12Months,
	WindowAllTime,
}

// Label returns a short human-readable name for the window.
func (w Window) Label() string {
	switch w {
	case WindowLastMonth:
		return "Last Month"
	case WindowLast3Months:
		return "3 Months"
	case WindowLast6Months:
		return "6 Months"
	case WindowLast12Months:
		return "12 Months"
	default:
		return "All Time"
	}
}

// ParseWindow maps a window name to a Window. Unrecognized names fall back
// to the six-month window.
func ParseWindow(s string) Window {
	for _, w := range Windows {
		if string(w) == s {
			return w
		}
	}
	return WindowLast6Months
}

// allTimeFloor rejects corrupt invoice dates; anything before it is treated
// as garbage rather than history.
var allTimeFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// lookBackMonths returns the nominal month count for a bounded window.
func lookBackMonths(w Window) int {
	switch w {
	case WindowLastMonth:
		return 1
	case WindowLast3Months:
		return 3
	case WindowLast6Months:
		return 6
	case WindowLast12Months:
		return 12
	default:
		return 0
	}
}

// FilterInvoices selects the invoices inside the window. lastMonth is
// anchored to the most recent invoice's calendar month, not to now: if no
// invoice falls in that exact month the result is empty, with no silent
// fallback. Bounded windows subtract one extra month beyond the nominal range
// to tolerate invoices still arriving for the edge month, and allTime keeps a
// fixed epoch floor to reject corrupt dates.
func FilterInvoices(invoices []Invoice, w Window, now time.Time) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	switch w {
	case WindowLastMonth:
		anchor, ok := latestInvoiceDate(invoices)
		if !ok {
			return out
		}
		for _, inv := range invoices {
			d, ok := inv.EffectiveDate()
			if ok && d.Year() == anchor.Year() && d.Month() == anchor.Month() {
				out = append(out, inv)
			}
		}
	case WindowAllTime:
		for _, inv := range invoices {
			d, ok := inv.EffectiveDate()
			if ok && !d.Before(allTimeFloor) {
				out = append(out, inv)
			}
		}
	default:
		// truncate to the month start so an invoice labeled only with the
		// edge month's period ("2024-02") still clears the buffer
		c := now.AddDate(0, -(lookBackMonths(w) + 1), 0)
		cutoff := time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, time.UTC)
		for _, inv := range invoices {
			d, ok := inv.EffectiveDate()
			if ok && !d.Before(cutoff) {
				out = append(out, inv)
			}
		}
	}
	return out
}

func latestInvoiceDate(invoices []Invoice) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, inv := range invoices {
		d, ok := inv.EffectiveDate()
		if !ok {
			continue
		}
		if !found || d.After(latest) {
			latest = d
			found = true
		}
	}
	return latest, found
}

// FilterLineItems selects the line items inside the window. Unlike invoice
// filtering every window is a fixed look-back from now (line items are
// queried interactively, invoices arrive in monthly batches), allTime is
// unfiltered, and items whose date cannot be determined are included rather
// than silently hidden.
func FilterLineItems(items []LineItem, w Window, now time.Time) []LineItem {
	if w == WindowAllTime {
		out := make([]LineItem, len(items))
		copy(out, items)
		return out
	}
	cutoff := now.AddDate(0, -lookBackMonths(w), 0)
	out := make([]LineItem, 0, len(items))
	for _, li := range items {
		d, ok := li.EffectiveDate()
		if !ok {
			// fail-open: under-filtering beats hiding data with no diagnostic
			out = append(out, li)
			continue
		}
		if !d.Before(cutoff) {
			out = append(out, li)
		}
	}
	return out
}
