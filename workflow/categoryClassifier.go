package workflow

import "strings"

// keywordSet pairs a category label with the free-text keywords that imply it.
// Sets are checked in order: the first set wins when a product matches both.
type keywordSet struct {
	label    string
	keywords []string
}

var classifierSets = []keywordSet{
	{
		label: "beverages",
		keywords: []string{
			"juice", "soda", "cola", "water", "beer", "wine", "drink",
			"coffee", "tea", "energy",
			"jugo", "gaseosa", "agua", "cerveza", "vino", "bebida",
			"cafe", "café", "refresco",
		},
	},
	{
		label: "groceries",
		keywords: []string{
			"rice", "sugar", "flour", "oil", "pasta", "noodle", "bread",
			"snack", "cookie", "chocolate", "milk", "cheese", "salt",
			"arroz", "azucar", "azúcar", "harina", "aceite", "fideo",
			"pan", "galleta", "leche", "queso", "sal",
		},
	},
}

// ClassifyCategory maps free-text name/barcode to a coarse category by keyword
// matching. Returns "" when nothing matches. Used only to pick a sku prefix
// when the caller supplies no explicit category.
func ClassifyCategory(name, barcode string) string {
	haystack := strings.ToLower(name + " " + barcode)
	for _, set := range classifierSets {
		for _, keyword := range set.keywords {
			if strings.Contains(haystack, keyword) {
				return set.label
			}
		}
	}
	return ""
}
