package utils

import (
	"regexp"
	"strings"
)

var nonAlphanumericRe = regexp.MustCompile(`[^A-Za-z0-9]`)

// NormalizeBarcode strips every character that is not a letter or digit and
// lower-cases the remainder. An empty result means "no barcode" and must never
// be used as a match key.
func NormalizeBarcode(s string) string {
	return strings.ToLower(nonAlphanumericRe.ReplaceAllString(s, ""))
}

// NormalizeName trims surrounding whitespace and lower-cases. An empty result
// is invalid input for matching purposes.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
