package workflow

import "testing"

func TestClassifyCategory(t *testing.T) {
	cases := []struct {
		name     string
		barcode  string
		expected string
	}{
		{"Orange Juice 1L", "", "beverages"},
		{"Cola Zero 500ml", "", "beverages"},
		{"Arroz Premium 5kg", "", "groceries"},
		{"Whole Wheat Bread", "", "groceries"},
		{"Café Molido", "", "beverages"},
		{"Blue Mug", "", ""},
		{"Screwdriver Set", "", ""},
		{"", "agua-mineral-001", "beverages"},
	}
	for _, tc := range cases {
		got := ClassifyCategory(tc.name, tc.barcode)
		if got != tc.expected {
			t.Fatalf("ClassifyCategory(%q, %q) expected %q, got %q", tc.name, tc.barcode, tc.expected, got)
		}
	}
}

// A product matching both keyword sets classifies into the first set, so the
// result never depends on map iteration or keyword order within a set.
func TestClassifyCategory_FirstSetWinsOnOverlap(t *testing.T) {
	got := ClassifyCategory("Coffee Milk Drink", "")
	if got != "beverages" {
		t.Fatalf("expected beverages to win over groceries, got %q", got)
	}
}
