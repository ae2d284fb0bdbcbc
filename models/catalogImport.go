package models

import (
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// IncomingRecord is one product row handed to the reconciliation engine,
// whether it came from a form submission or a spreadsheet row. It is consumed
// once and discarded.
type IncomingRecord struct {
	RowNumber      int             `json:"rowNumber"`
	Name           string          `json:"name"`
	Barcode        string          `json:"barcode"`
	Category       string          `json:"category"`
	Sku            string          `json:"sku"`
	CostPrice      decimal.Decimal `json:"costPrice"`
	SellingPrice   decimal.Decimal `json:"sellingPrice"`
	Quantity       int             `json:"quantity"`
	MinStockLevel  int             `json:"minStockLevel"`
	SequenceNumber *int            `json:"-"`
}

// ImportRowError is a row that could not even be parsed into an IncomingRecord.
type ImportRowError struct {
	RowNumber int
	Message   string
	Record    IncomingRecord
}

// Accepted header-name variants per logical field, first variant found wins,
// case-insensitive. English plus the Spanish headers the store staff's
// spreadsheets actually use.
var importHeaderVariants = map[string][]string{
	"name":     {"name", "product name", "product", "item", "nombre", "producto", "articulo", "artículo"},
	"barcode":  {"barcode", "bar code", "code", "codigo de barras", "código de barras", "codigo", "código", "ean", "upc"},
	"category": {"category", "categoria", "categoría", "rubro"},
	"sku":      {"sku", "identifier", "codigo interno", "código interno"},
	"quantity": {"quantity", "qty", "stock", "units", "cantidad", "unidades"},
	"cost":     {"cost", "cost price", "unit cost", "costo", "precio de costo", "costo unitario"},
	"price":    {"final price", "selling price", "sale price", "price", "precio final", "precio de venta", "precio"},
}

// resolveImportColumns maps logical fields to column indexes by scanning the
// header row against the accepted variants.
func resolveImportColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	columns := make(map[string]int)
	for field, variants := range importHeaderVariants {
		for _, variant := range variants {
			found := -1
			for i, h := range normalized {
				if h == variant {
					found = i
					break
				}
			}
			if found >= 0 {
				columns[field] = found
				break
			}
		}
	}
	return columns
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseImportRows turns raw sheet rows (header first) into IncomingRecords.
// Rows whose numeric cells cannot be parsed are reported as ImportRowErrors
// instead of aborting the batch. Row numbers follow the spreadsheet: the
// header is row 1, so the first data row is row 2.
func ParseImportRows(rows [][]string) ([]IncomingRecord, []ImportRowError, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("the sheet is empty")
	}

	columns := resolveImportColumns(rows[0])
	if _, ok := columns["name"]; !ok {
		return nil, nil, errors.New("no product name column found in the header row")
	}

	records := make([]IncomingRecord, 0, len(rows)-1)
	failures := make([]ImportRowError, 0)

	for idx, row := range rows[1:] {
		rowNumber := idx + 2

		record := IncomingRecord{
			RowNumber: rowNumber,
			Name:      cellAt(row, colOrMissing(columns, "name")),
			Barcode:   cellAt(row, colOrMissing(columns, "barcode")),
			Category:  cellAt(row, colOrMissing(columns, "category")),
			Sku:       cellAt(row, colOrMissing(columns, "sku")),
		}

		// Skip fully blank trailing rows spreadsheets tend to carry.
		if record.Name == "" && record.Barcode == "" && rowIsBlank(row) {
			continue
		}

		var parseErr error
		if raw := cellAt(row, colOrMissing(columns, "quantity")); raw != "" {
			qty, err := utils.ParseDecimal(raw)
			if err != nil {
				parseErr = fmt.Errorf("could not parse quantity in row %d: %v", rowNumber, err)
			} else if !qty.IsInteger() {
				parseErr = fmt.Errorf("quantity must be a whole number in row %d: got %s", rowNumber, qty.String())
			} else {
				record.Quantity = int(qty.IntPart())
			}
		}
		if parseErr == nil {
			if raw := cellAt(row, colOrMissing(columns, "cost")); raw != "" {
				cost, err := utils.ParseDecimal(raw)
				if err != nil {
					parseErr = fmt.Errorf("could not parse cost price in row %d: %v", rowNumber, err)
				} else {
					record.CostPrice = cost
				}
			}
		}
		if parseErr == nil {
			if raw := cellAt(row, colOrMissing(columns, "price")); raw != "" {
				price, err := utils.ParseDecimal(raw)
				if err != nil {
					parseErr = fmt.Errorf("could not parse final price in row %d: %v", rowNumber, err)
				} else {
					record.SellingPrice = price
				}
			}
		}

		if parseErr != nil {
			failures = append(failures, ImportRowError{
				RowNumber: rowNumber,
				Message:   parseErr.Error(),
				Record:    record,
			})
			continue
		}

		records = append(records, record)
	}

	return records, failures, nil
}

// ParseImportSheet reads the first sheet of an xlsx workbook into records.
func ParseImportSheet(f *excelize.File) ([]IncomingRecord, []ImportRowError, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("the workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	return ParseImportRows(rows)
}

func colOrMissing(columns map[string]int, field string) int {
	if idx, ok := columns[field]; ok {
		return idx
	}
	return -1
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
