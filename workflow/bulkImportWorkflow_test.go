package workflow

import (
	"context"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
)

func TestImportBatch_PartialFailureKeepsSiblingsAlive(t *testing.T) {
	store := newFakeCatalogStore()
	r := newTestReconciler(store)

	records := []models.IncomingRecord{
		{RowNumber: 2, Name: "Blue Mug", Barcode: "111", Quantity: 4, SequenceNumber: intPtr(1)},
		{RowNumber: 3, Name: "Red Mug", Barcode: "222", Quantity: 2, SequenceNumber: intPtr(2)},
		{RowNumber: 4, Name: "", Barcode: "", Quantity: 1, SequenceNumber: intPtr(3)}, // missing name
		{RowNumber: 5, Name: "Green Mug", Barcode: "333", Quantity: 1, SequenceNumber: intPtr(4)},
		{RowNumber: 6, Name: "Plate", Barcode: "444", Quantity: 7, SequenceNumber: intPtr(5)},
	}

	report := ImportBatch(context.Background(), r, records, nil)

	if report.SuccessCount != 4 {
		t.Fatalf("expected 4 successes, got %d", report.SuccessCount)
	}
	if len(report.FailedRows) != 1 {
		t.Fatalf("expected 1 failed row, got %d", len(report.FailedRows))
	}
	if report.FailedRows[0].RowNumber != 4 {
		t.Fatalf("expected failure at row 4, got row %d", report.FailedRows[0].RowNumber)
	}
	if len(report.Errors) != 1 || !strings.HasPrefix(report.Errors[0], "row 4:") {
		t.Fatalf("expected a single 'row 4:' error, got %v", report.Errors)
	}
	if store.itemCount() != 4 {
		t.Fatalf("expected 4 items inserted, got %d", store.itemCount())
	}
}

func TestImportBatch_SameBarcodeRowsFoldIntoOneItem(t *testing.T) {
	store := newFakeCatalogStore()
	r := newTestReconciler(store)

	records := []models.IncomingRecord{
		{RowNumber: 2, Name: "Blue Mug", Barcode: "123-456", Quantity: 4,
			CostPrice: decimal.RequireFromString("25")},
		{RowNumber: 3, Name: "Blue Mug", Barcode: "123456", Quantity: 6},
		{RowNumber: 4, Name: "Blue Mug restock", Barcode: "123 456", Quantity: 5},
	}

	report := ImportBatch(context.Background(), r, records, nil)

	if report.SuccessCount != 3 {
		t.Fatalf("expected 3 successes, got %d: %v", report.SuccessCount, report.Errors)
	}
	if store.itemCount() != 1 {
		t.Fatalf("rows sharing a barcode must reconcile into one item, got %d", store.itemCount())
	}
	item, _ := store.FindByBarcode(context.Background(), "123456")
	if item.StockQuantity != 15 {
		t.Fatalf("expected quantity 4+6+5=15, got %d", item.StockQuantity)
	}
}

// A row with a barcode and a barcode-less row with the same name both resolve
// to one item through the name lookup. They must run in one group; run
// concurrently, both lookups would see "not found" and insert twice.
func TestImportBatch_BarcodeAndBarcodelessRowsSharingNameFoldIntoOneItem(t *testing.T) {
	for run := 0; run < 50; run++ {
		store := newFakeCatalogStore()
		r := newTestReconciler(store)

		records := []models.IncomingRecord{
			{RowNumber: 2, Name: "Blue Mug", Barcode: "123-456", Quantity: 4,
				CostPrice: decimal.RequireFromString("25"), SequenceNumber: intPtr(1)},
			{RowNumber: 3, Name: "Blue Mug", Quantity: 6, SequenceNumber: intPtr(2)},
		}
		report := ImportBatch(context.Background(), r, records, nil)

		if report.SuccessCount != 2 {
			t.Fatalf("run=%d expected 2 successes, got %d: %v", run, report.SuccessCount, report.Errors)
		}
		if store.itemCount() != 1 {
			t.Fatalf("run=%d rows sharing a name must reconcile into one item, got %d", run, store.itemCount())
		}
		item, _ := store.FindByName(context.Background(), "blue mug")
		if item.StockQuantity != 10 {
			t.Fatalf("run=%d expected quantity 4+6=10, got %d", run, item.StockQuantity)
		}
	}
}

func TestGroupByMatchKey_UnionsBarcodeAndNameKeys(t *testing.T) {
	records := []models.IncomingRecord{
		{RowNumber: 2, Name: "Blue Mug", Barcode: "111"},
		{RowNumber: 3, Name: "Blue Mug"},              // shares the name with row 2
		{RowNumber: 4, Name: "Mug Restock", Barcode: "1 1 1"}, // shares the barcode with row 2
		{RowNumber: 5, Name: "mug restock"},           // shares the name with row 4, transitive
		{RowNumber: 6, Name: "Plate"},
	}

	groups := groupByMatchKey(records)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 4 {
		t.Fatalf("expected the connected rows in one group, got %d rows", len(groups[0]))
	}
	for i, rowNumber := range []int{2, 3, 4, 5} {
		if groups[0][i].RowNumber != rowNumber {
			t.Fatalf("group must preserve original row order, got %+v", groups[0])
		}
	}
	if len(groups[1]) != 1 || groups[1][0].RowNumber != 6 {
		t.Fatalf("unconnected row must stay alone: %+v", groups[1])
	}
}

func TestImportBatch_FoldsParseFailuresSortedByRow(t *testing.T) {
	store := newFakeCatalogStore()
	r := newTestReconciler(store)

	records := []models.IncomingRecord{
		{RowNumber: 5, Name: "", Quantity: 1}, // reconciliation failure
	}
	parseFailures := []models.ImportRowError{
		{RowNumber: 3, Message: "could not parse quantity in row 3: bad syntax"},
	}

	report := ImportBatch(context.Background(), r, records, parseFailures)

	if report.SuccessCount != 0 {
		t.Fatalf("expected 0 successes, got %d", report.SuccessCount)
	}
	if len(report.FailedRows) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(report.FailedRows))
	}
	if report.FailedRows[0].RowNumber != 3 || report.FailedRows[1].RowNumber != 5 {
		t.Fatalf("failures not sorted by row number: %+v", report.FailedRows)
	}
}

func TestImportBatch_CancelledContextFailsRemainingRows(t *testing.T) {
	store := newFakeCatalogStore()
	r := newTestReconciler(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []models.IncomingRecord{
		{RowNumber: 2, Name: "Blue Mug", Quantity: 1},
		{RowNumber: 3, Name: "Red Mug", Quantity: 1},
	}
	report := ImportBatch(ctx, r, records, nil)

	if report.SuccessCount != 0 {
		t.Fatalf("expected no successes under a cancelled context, got %d", report.SuccessCount)
	}
	if len(report.FailedRows) != 2 {
		t.Fatalf("expected both rows reported, got %d", len(report.FailedRows))
	}
	for _, failure := range report.FailedRows {
		if failure.Error != "import cancelled" {
			t.Fatalf("expected 'import cancelled', got %q", failure.Error)
		}
	}
	if store.insertCalls != 0 {
		t.Fatalf("cancelled batch must not touch the store, got %d inserts", store.insertCalls)
	}
}

func TestGroupByMatchKey(t *testing.T) {
	records := []models.IncomingRecord{
		{RowNumber: 2, Name: "Blue Mug", Barcode: "111"},
		{RowNumber: 3, Name: "Red Mug"},
		{RowNumber: 4, Name: "Blue Mug v2", Barcode: "1-1-1"}, // same normalized barcode
		{RowNumber: 5, Name: "red mug "},                      // same normalized name
		{RowNumber: 6, Name: "", Barcode: ""},                 // keyless, own bucket
		{RowNumber: 7, Name: "", Barcode: ""},                 // keyless, own bucket
	}

	groups := groupByMatchKey(records)

	if len(groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].RowNumber != 2 || groups[0][1].RowNumber != 4 {
		t.Fatalf("barcode group wrong: %+v", groups[0])
	}
	if len(groups[1]) != 2 || groups[1][0].RowNumber != 3 || groups[1][1].RowNumber != 5 {
		t.Fatalf("name group wrong: %+v", groups[1])
	}
	if len(groups[2]) != 1 || len(groups[3]) != 1 {
		t.Fatalf("keyless rows must stay in their own buckets: %+v", groups[2:])
	}
}

// Name-keyed rows in one group run sequentially, so repeated runs always end
// with a single item and the full summed quantity.
func TestImportBatch_DeterministicUnderRepeatedRuns(t *testing.T) {
	for run := 0; run < 50; run++ {
		store := newFakeCatalogStore()
		r := newTestReconciler(store)

		records := []models.IncomingRecord{
			{RowNumber: 2, Name: "Blue Mug", Quantity: 1, SequenceNumber: intPtr(1)},
			{RowNumber: 3, Name: "blue mug", Quantity: 2, SequenceNumber: intPtr(2)},
			{RowNumber: 4, Name: " BLUE MUG ", Quantity: 3, SequenceNumber: intPtr(3)},
			{RowNumber: 5, Name: "Plate", Quantity: 4, SequenceNumber: intPtr(4)},
		}
		report := ImportBatch(context.Background(), r, records, nil)

		if report.SuccessCount != 4 {
			t.Fatalf("run=%d expected 4 successes, got %d: %v", run, report.SuccessCount, report.Errors)
		}
		if store.itemCount() != 2 {
			t.Fatalf("run=%d expected 2 items, got %d", run, store.itemCount())
		}
		item, _ := store.FindByName(context.Background(), "blue mug")
		if item.StockQuantity != 6 {
			t.Fatalf("run=%d expected quantity 6, got %d", run, item.StockQuantity)
		}
	}
}
