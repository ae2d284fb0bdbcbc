package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fixed category-to-prefix table, checked exact first, then by substring in
// declaration order so the result is deterministic.
var categoryPrefixes = []struct {
	category string
	prefix   string
}{
	{"beverages", "BEVG"},
	{"groceries", "GROC"},
	{"snacks", "SNAC"},
	{"dairy", "DAIR"},
	{"cleaning", "CLEA"},
	{"electronics", "ELEC"},
	{"stationery", "STAT"},
	{"clothing", "CLOT"},
}

const fallbackSkuPrefix = "ITEM"

var (
	vatFactor    = decimal.RequireFromString("1.18")
	marginFactor = decimal.RequireFromString("1.30")
)

// RecommendedFinalPrice applies the standard markup (18% tax, 30% margin) to a
// cost price, rounded to 2 decimals. Used when the caller supplies no selling
// price.
func RecommendedFinalPrice(costPrice decimal.Decimal) decimal.Decimal {
	return costPrice.Mul(vatFactor).Mul(marginFactor).Round(2)
}

// GenerateSku builds the structured catalog identifier:
// prefix + sequence segment + cost segment + final-price segment, upper-cased.
// It is best-effort human-meaningful, not unique: collisions are expected
// under concurrent load and must be handled by the caller.
//
// A nil sequenceNumber falls back to the low-order 3 digits of the current
// time in milliseconds (bulk import path, where global ordering is
// unnecessary and sequence contention must be avoided).
func GenerateSku(category string, costPrice decimal.Decimal, sequenceNumber *int, finalPriceOverride *decimal.Decimal) string {
	var sequenceSegment string
	if sequenceNumber != nil {
		sequenceSegment = fmt.Sprintf("%03d", *sequenceNumber)
	} else {
		sequenceSegment = fmt.Sprintf("%03d", time.Now().UnixMilli()%1000)
	}
	return assembleSku(category, costPrice, sequenceSegment, finalPriceOverride)
}

// GenerateSkuDisambiguated is the collision-retry variant: the sequence
// segment is replaced with a caller-supplied randomized disambiguator.
func GenerateSkuDisambiguated(category string, costPrice decimal.Decimal, disambiguator int, finalPriceOverride *decimal.Decimal) string {
	sequenceSegment := fmt.Sprintf("%03d", disambiguator%1000)
	return assembleSku(category, costPrice, sequenceSegment, finalPriceOverride)
}

func assembleSku(category string, costPrice decimal.Decimal, sequenceSegment string, finalPriceOverride *decimal.Decimal) string {
	finalPrice := RecommendedFinalPrice(costPrice)
	if finalPriceOverride != nil {
		finalPrice = *finalPriceOverride
	}
	sku := skuPrefix(category) + sequenceSegment + priceSegment(costPrice) + priceSegment(finalPrice)
	return strings.ToUpper(sku)
}

// priceSegment renders an amount as a 2-digit zero-padded integer segment,
// growing to 3 digits once the rounded value reaches 100. Amounts past 999
// wrap to their low-order three digits so the segment never exceeds 3 digits.
func priceSegment(amount decimal.Decimal) string {
	n := amount.Round(0).IntPart()
	if n < 0 {
		n = 0
	}
	n %= 1000
	return fmt.Sprintf("%02d", n)
}

// skuPrefix resolves the 4-character prefix for a category: table match first
// (exact, then substring either way), then the first four alphanumerics of the
// category itself padded with X, then the generic ITEM prefix.
func skuPrefix(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return fallbackSkuPrefix
	}
	for _, entry := range categoryPrefixes {
		if c == entry.category {
			return entry.prefix
		}
	}
	for _, entry := range categoryPrefixes {
		if strings.Contains(c, entry.category) || strings.Contains(entry.category, c) {
			return entry.prefix
		}
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(c) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 4 {
				break
			}
		}
	}
	prefix := b.String()
	if prefix == "" {
		return fallbackSkuPrefix
	}
	for len(prefix) < 4 {
		prefix += "X"
	}
	return prefix
}
