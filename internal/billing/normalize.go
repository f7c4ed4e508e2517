package billing

import (
	"fmt"
	"strconv"
	"strings"
)

// primaryCurrencyField is the provider's literal currency column. When present
// it always wins amount extraction.
const primaryCurrencyField = "USD"

// amountFieldOrder is the fixed fallback order checked after the currency
// column.
var amountFieldOrder = []string{"amount", "cost", "price", "charge"}

// amountDenyList names fields that must never be read as a line-item amount.
// The invoice's own total is an order-of-magnitude larger number that would
// corrupt every aggregate it touched.
var amountDenyList = map[string]bool{
	"hours":          true,
	"invoice_amount": true,
	"invoice_total":  true,
}

// ExtractAmount returns the signed monetary value of a record. It never fails:
// records with no recognizable amount contribute 0. Negative values are
// discounts/credits and are preserved, not dropped.
func ExtractAmount(li LineItem) float64 {
	if v, ok := li.Get(primaryCurrencyField); ok {
		if f, ok := parseMoney(v); ok {
			return f
		}
	}
	for _, name := range amountFieldOrder {
		if v, ok := li.Get(name); ok {
			if f, ok := parseMoney(v); ok {
				return f
			}
		}
	}
	// Last resort: scan remaining fields in delivery order for anything
	// currency-like, then for any plain number. Signed values are acceptable
	// at every step; selecting only positives would make discounts invisible.
	for _, f := range li.Fields {
		if amountDenyList[strings.ToLower(f.Key)] {
			continue
		}
		s := strings.TrimSpace(stringify(f.Value))
		if !strings.ContainsAny(s, "$-") {
			continue
		}
		if v, ok := parseMoneyStrict(s); ok {
			return v
		}
	}
	for _, f := range li.Fields {
		if amountDenyList[strings.ToLower(f.Key)] {
			continue
		}
		if v, ok := parseMoneyStrict(strings.TrimSpace(stringify(f.Value))); ok {
			return v
		}
	}
	return 0
}

// discountKeywords flag a record as a discount/credit regardless of sign.
var discountKeywords = []string{"discount", "credit", "refund", "rebate", "adjustment"}

// discountTextFields are the attributes scanned for discount keywords.
var discountTextFields = []string{"description", "category", "product", "name"}

// IsDiscount reports whether a record is a discount/credit: either its
// extracted amount is negative, or one of its text attributes carries a
// discount keyword. The OR matters: a $0.00 "Contract Discount" line still
// classifies as a discount.
func IsDiscount(li LineItem) bool {
	if ExtractAmount(li) < 0 {
		return true
	}
	for _, field := range discountTextFields {
		text := strings.ToLower(li.GetString(field))
		if text == "" {
			continue
		}
		for _, kw := range discountKeywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

// discountRule maps a substring to a discount taxonomy label. Rules are
// evaluated top to bottom, first match wins.
type discountRule struct {
	substring string
	label     string
}

var discountRules = []discountRule{
	{"iaas", "IaaS Discount"},
	{"paas", "PaaS Discount"},
	{"contract", "Contract Discount"},
}

// DefaultDiscountCategory is the taxonomy fallback for discounts that match
// no rule.
const DefaultDiscountCategory = "Discounts"

// DiscountCategory maps a discount record to the small fixed discount
// taxonomy by substring match on description, category, then product.
func DiscountCategory(li LineItem) string {
	for _, rule := range discountRules {
		for _, field := range []string{"description", "category", "product"} {
			if strings.Contains(strings.ToLower(li.GetString(field)), rule.substring) {
				return rule.label
			}
		}
	}
	return DefaultDiscountCategory
}

// ParseMoneyValue exposes the lenient money parser for collaborators that
// receive monetary strings outside a line item, such as invoice list totals.
func ParseMoneyValue(v any) (float64, bool) {
	return parseMoney(v)
}

// parseMoney converts a raw field value to a signed float. String values may
// carry currency decoration: every character that is not a digit or decimal
// point is stripped, and a minus sign appearing before the first digit makes
// the result negative ("-$1,779.55" parses to -1779.55).
func parseMoney(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return 0, false
	}
	var b strings.Builder
	neg := false
	seenDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '-' && !seenDigit:
			neg = true
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// parseMoneyStrict accepts only values that are a money string in full:
// optional leading minus and dollar sign, digits with optional thousands
// separators and decimal point. Date-like strings ("2024-09-01") do not
// qualify, which keeps the fallback scan from misreading them as amounts.
func parseMoneyStrict(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
