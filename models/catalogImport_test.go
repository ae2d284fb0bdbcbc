package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseImportRows_EnglishHeaders(t *testing.T) {
	rows := [][]string{
		{"Name", "Barcode", "Category", "SKU", "Quantity", "Cost", "Final Price"},
		{"Blue Mug", "123-456", "", "", "4", "25", ""},
		{"Orange Juice 1L", "789", "Beverages", "BEVG00125", "12", "1.50", "3.99"},
	}

	records, failures, err := ParseImportRows(rows)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, records, 2)

	mug := records[0]
	require.Equal(t, 2, mug.RowNumber)
	require.Equal(t, "Blue Mug", mug.Name)
	require.Equal(t, "123-456", mug.Barcode)
	require.Equal(t, 4, mug.Quantity)
	require.Equal(t, "25", mug.CostPrice.String())
	require.True(t, mug.SellingPrice.IsZero())

	juice := records[1]
	require.Equal(t, 3, juice.RowNumber)
	require.Equal(t, "Beverages", juice.Category)
	require.Equal(t, "BEVG00125", juice.Sku)
	require.Equal(t, "3.99", juice.SellingPrice.String())
}

func TestParseImportRows_SpanishHeaders(t *testing.T) {
	rows := [][]string{
		{"Nombre", "Código de barras", "Categoría", "Cantidad", "Costo", "Precio de venta"},
		{"Arroz Premium 5kg", "777-888", "Abarrotes", "10", "3,500", "5,200"},
	}

	records, failures, err := ParseImportRows(rows)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "Arroz Premium 5kg", rec.Name)
	require.Equal(t, "777-888", rec.Barcode)
	require.Equal(t, "Abarrotes", rec.Category)
	require.Equal(t, 10, rec.Quantity)
	require.Equal(t, "3500", rec.CostPrice.String())
	require.Equal(t, "5200", rec.SellingPrice.String())
}

func TestParseImportRows_BadNumericCellBecomesRowError(t *testing.T) {
	rows := [][]string{
		{"Name", "Quantity", "Cost"},
		{"Blue Mug", "4", "25"},
		{"Broken Row", "not-a-number", "10"},
		{"Red Mug", "2", "12"},
	}

	records, failures, err := ParseImportRows(rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, failures, 1)

	require.Equal(t, 3, failures[0].RowNumber)
	require.Contains(t, failures[0].Message, "row 3")
	require.Contains(t, failures[0].Message, "quantity")
	require.Equal(t, "Broken Row", failures[0].Record.Name)
}

func TestParseImportRows_FractionalQuantityBecomesRowError(t *testing.T) {
	rows := [][]string{
		{"Name", "Quantity"},
		{"Blue Mug", "4.5"},
		{"Red Mug", "4.00"}, // integral value with decimal formatting is fine
	}

	records, failures, err := ParseImportRows(rows)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, failures, 1)

	require.Equal(t, 2, failures[0].RowNumber)
	require.Contains(t, failures[0].Message, "whole number")
	require.Equal(t, 4, records[0].Quantity)
}

func TestParseImportRows_MissingNameColumn(t *testing.T) {
	rows := [][]string{
		{"Barcode", "Quantity"},
		{"123", "4"},
	}
	_, _, err := ParseImportRows(rows)
	require.Error(t, err)
	require.Contains(t, err.Error(), "name column")
}

func TestParseImportRows_EmptySheet(t *testing.T) {
	_, _, err := ParseImportRows(nil)
	require.Error(t, err)
}

func TestParseImportRows_SkipsBlankRowsKeepsNumbering(t *testing.T) {
	rows := [][]string{
		{"Name", "Quantity"},
		{"Blue Mug", "4"},
		{"", ""},
		{"Red Mug", "2"},
	}

	records, failures, err := ParseImportRows(rows)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, records, 2)

	// Row numbers track the spreadsheet, not the record slice.
	require.Equal(t, 2, records[0].RowNumber)
	require.Equal(t, 4, records[1].RowNumber)
}

func TestParseImportRows_ShortRowsReadAsEmptyCells(t *testing.T) {
	rows := [][]string{
		{"Name", "Barcode", "Quantity", "Cost"},
		{"Blue Mug"}, // excelize trims trailing empty cells
	}

	records, failures, err := ParseImportRows(rows)
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, records, 1)
	require.Equal(t, "Blue Mug", records[0].Name)
	require.Equal(t, 0, records[0].Quantity)
	require.True(t, records[0].CostPrice.IsZero())
}

func TestResolveImportColumns_FirstVariantWins(t *testing.T) {
	// Both "price" and "final price" are present; the earlier variant in the
	// accepted list ("final price") wins for the price field.
	columns := resolveImportColumns([]string{"Name", "Price", "Final Price"})
	require.Equal(t, 0, columns["name"])
	require.Equal(t, 2, columns["price"])
}
