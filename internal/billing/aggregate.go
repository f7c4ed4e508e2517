package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Dimension selects the bucketing attribute for aggregation.
type Dimension string

const (
	ByCategory Dimension = "category"
	ByProject  Dimension = "project"
	ByProduct  Dimension = "product"
	ByMonth    Dimension = "month"
)

// Sentinel labels for records missing the source attribute.
const (
	LabelUnknown    = "Unknown"
	LabelUnassigned = "Unassigned"
)

// Bucket is one aggregation cell for presentation: a label with its signed
// running total.
type Bucket struct {
	Label string
	Total float64
}

// MonthPoint is one (period label, total) pair of a monthly series.
type MonthPoint struct {
	Label string
	Total float64
}

// Aggregate sums signed amounts into labeled buckets for the dimension.
// Discounts subtract; accumulation is commutative, so input order never
// changes the totals. Items with no derivable month are excluded from the
// month dimension but still count everywhere else.
func Aggregate(items []LineItem, dim Dimension) map[string]float64 {
	totals := make(map[string]float64)
	for _, li := range items {
		label, ok := bucketLabel(li, dim)
		if !ok {
			continue
		}
		totals[label] += ExtractAmount(li)
	}
	return totals
}

func bucketLabel(li LineItem, dim Dimension) (string, bool) {
	switch dim {
	case ByMonth:
		m, ok := monthLabel(li)
		return m, ok
	case ByProject:
		if p := li.Project(); p != "" {
			return p, true
		}
		return LabelUnassigned, true
	case ByProduct:
		if p := li.Product(); p != "" {
			return p, true
		}
		return LabelUnknown, true
	default:
		return categoryLabel(li), true
	}
}

// categoryLabel resolves the category bucket. An explicit category attribute
// always wins, even for discount rows: a "Contract Discount" line carrying
// category "Compute" nets against Compute rather than opening a separate
// discount bucket. Only category-less discounts fall into the discount
// taxonomy.
func categoryLabel(li LineItem) string {
	if c := li.Category(); c != "" {
		return c
	}
	if IsDiscount(li) {
		return DiscountCategory(li)
	}
	for _, field := range []string{"name", "product", "group_description", "description"} {
		if v := li.GetString(field); v != "" {
			return v
		}
	}
	return LabelUnknown
}

// monthLabel derives the YYYY-MM bucket: an explicit period field first, then
// the invoice period tag, then any start-date field.
func monthLabel(li LineItem) (string, bool) {
	for _, source := range []string{li.GetString("period"), li.InvoicePeriod, li.GetString("invoice_period"), li.GetString("start"), li.GetString("date")} {
		if source == "" {
			continue
		}
		if t, ok := parsePeriodOrDate(source); ok {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}

// SortedBuckets orders buckets by descending total for presentation, with an
// ascending label tie-break so equal totals render deterministically.
func SortedBuckets(totals map[string]float64) []Bucket {
	out := make([]Bucket, 0, len(totals))
	for label, total := range totals {
		out = append(out, Bucket{Label: label, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// IsSentinelLabel reports whether a label is a placeholder rather than a
// provider dimension value. Presentation distinguishes these visually but
// does not order them specially.
func IsSentinelLabel(label string) bool {
	switch label {
	case LabelUnknown, LabelUnassigned, "No Project Data", DefaultDiscountCategory:
		return true
	}
	return false
}

// BuildMonthlySeries aggregates by month and sorts chronologically — by
// parsed calendar date, never by string order, so "2024-2" precedes
// "2024-10" and "January 2024" sorts into the same domain.
func BuildMonthlySeries(items []LineItem) []MonthPoint {
	totals := Aggregate(items, ByMonth)
	out := make([]MonthPoint, 0, len(totals))
	for label, total := range totals {
		out = append(out, MonthPoint{Label: label, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, iok := parsePeriodOrDate(out[i].Label)
		tj, jok := parsePeriodOrDate(out[j].Label)
		if iok && jok && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// SortMonthLabels normalizes and orders raw month labels chronologically.
func SortMonthLabels(labels []string) []string {
	out := make([]string, len(labels))
	copy(out, labels)
	sort.Slice(out, func(i, j int) bool {
		ti, iok := parsePeriodOrDate(out[i])
		tj, jok := parsePeriodOrDate(out[j])
		if iok && jok && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i] < out[j]
	})
	return out
}

// MatchesLabel is the single label-match policy used for bucket drill-down:
// case-insensitive exact match, then bidirectional substring containment,
// then a levenshtein distance of at most 2 to absorb minor provider spelling
// drift. Applied consistently everywhere labels are compared.
func MatchesLabel(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return a == b
	}
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return levenshtein.ComputeDistance(a, b) <= 2
}

// ItemsForBucket returns the line items contributing to a bucket label under
// the drill-down match policy.
func ItemsForBucket(items []LineItem, dim Dimension, label string) []LineItem {
	out := make([]LineItem, 0)
	for _, li := range items {
		got, ok := bucketLabel(li, dim)
		if ok && MatchesLabel(got, label) {
			out = append(out, li)
		}
	}
	return out
}

// Summary is the headline roll-up for a filtered item set.
type Summary struct {
	Total     float64
	Charges   float64
	Discounts float64
	Items     int
}

// Summarize nets charges and discounts across the item set. Discounts stay
// signed: Total == Charges + Discounts.
func Summarize(items []LineItem) Summary {
	s := Summary{Items: len(items)}
	for _, li := range items {
		amt := ExtractAmount(li)
		s.Total += amt
		if amt < 0 {
			s.Discounts += amt
		} else {
			s.Charges += amt
		}
	}
	return s
}

// FormatMonth renders a YYYY-MM label as "Jan 2006" for display.
func FormatMonth(label string) string {
	if t, ok := parsePeriodOrDate(label); ok {
		return t.Format("Jan 2006")
	}
	return label
}

// FormatAmount renders a signed amount with a currency symbol, keeping the
// sign in front of the symbol.
func FormatAmount(symbol string, v float64) string {
	if v < 0 {
		return fmt.Sprintf("-%s%.2f", symbol, -v)
	}
	return fmt.Sprintf("%s%.2f", symbol, v)
}
