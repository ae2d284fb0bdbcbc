package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

type FailedRow struct {
	RowNumber int                   `json:"rowNumber"`
	Error     string                `json:"error"`
	Record    models.IncomingRecord `json:"recordSnapshot"`
}

// ImportReport aggregates a batch: how many rows merged or created, and one
// entry per failed row. Failures never abort sibling rows.
type ImportReport struct {
	SuccessCount int         `json:"successCount"`
	Errors       []string    `json:"errors"`
	FailedRows   []FailedRow `json:"failedRows"`
}

// ImportBatch fans the records out to the reconciler. Rows that could match
// the same item would race each other's lookup-then-insert and produce
// duplicate items, so rows connected through either match key (a shared
// normalized barcode or a shared normalized name, transitively) are grouped
// before dispatch: groups run concurrently, rows inside a group sequentially,
// in their original order.
//
// parseFailures are rows the sheet parser already rejected; they are folded
// into the report alongside reconciliation failures.
func ImportBatch(ctx context.Context, r *Reconciler, records []models.IncomingRecord, parseFailures []models.ImportRowError) *ImportReport {
	logger := config.GetLogger()
	report := &ImportReport{
		Errors:     []string{},
		FailedRows: []FailedRow{},
	}

	groups := groupByMatchKey(records)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group []models.IncomingRecord) {
			defer wg.Done()
			for _, rec := range group {
				if ctx.Err() != nil {
					mu.Lock()
					report.FailedRows = append(report.FailedRows, FailedRow{
						RowNumber: rec.RowNumber,
						Error:     "import cancelled",
						Record:    rec,
					})
					mu.Unlock()
					continue
				}

				_, err := r.Reconcile(ctx, rec)

				mu.Lock()
				if err != nil {
					config.LogError(logger, "bulkImportWorkflow.go", "ImportBatch",
						fmt.Sprintf("row %d", rec.RowNumber), rec.Name, err)
					report.FailedRows = append(report.FailedRows, FailedRow{
						RowNumber: rec.RowNumber,
						Error:     err.Error(),
						Record:    rec,
					})
				} else {
					report.SuccessCount++
				}
				mu.Unlock()
			}
		}(group)
	}
	wg.Wait()

	for _, failure := range parseFailures {
		report.FailedRows = append(report.FailedRows, FailedRow{
			RowNumber: failure.RowNumber,
			Error:     failure.Message,
			Record:    failure.Record,
		})
	}

	sort.Slice(report.FailedRows, func(i, j int) bool {
		return report.FailedRows[i].RowNumber < report.FailedRows[j].RowNumber
	})
	for _, failure := range report.FailedRows {
		report.Errors = append(report.Errors, fmt.Sprintf("row %d: %s", failure.RowNumber, failure.Error))
	}
	return report
}

// groupByMatchKey buckets records by the keys the reconciler can match on.
// A row carries up to two keys (normalized barcode and normalized name); rows
// connected through any shared key, transitively, must end up in the same
// bucket. A row with a barcode and a barcode-less row with the same name can
// both resolve to one item, so keys are unioned before the bucketing pass.
// Records with no key at all (invalid rows) each get their own bucket so they
// still fail independently.
func groupByMatchKey(records []models.IncomingRecord) [][]models.IncomingRecord {
	parent := make(map[string]string)

	var find func(key string) string
	find = func(key string) string {
		p, ok := parent[key]
		if !ok || p == key {
			parent[key] = key
			return key
		}
		root := find(p)
		parent[key] = root
		return root
	}
	union := func(a, b string) {
		rootA, rootB := find(a), find(b)
		if rootA != rootB {
			parent[rootB] = rootA
		}
	}

	for _, rec := range records {
		keys := matchKeys(rec)
		for i := 1; i < len(keys); i++ {
			union(keys[0], keys[i])
		}
	}

	index := make(map[string]int)
	groups := make([][]models.IncomingRecord, 0, len(records))
	for _, rec := range records {
		keys := matchKeys(rec)
		if len(keys) == 0 {
			groups = append(groups, []models.IncomingRecord{rec})
			continue
		}
		root := find(keys[0])
		if i, ok := index[root]; ok {
			groups[i] = append(groups[i], rec)
			continue
		}
		index[root] = len(groups)
		groups = append(groups, []models.IncomingRecord{rec})
	}
	return groups
}

func matchKeys(rec models.IncomingRecord) []string {
	var keys []string
	if barcode := utils.NormalizeBarcode(rec.Barcode); barcode != "" {
		keys = append(keys, "b:"+barcode)
	}
	if name := utils.NormalizeName(rec.Name); name != "" {
		keys = append(keys, "n:"+name)
	}
	return keys
}
