// import-catalog runs a catalog xlsx import from the command line,
// bypassing the HTTP layer. Useful for backfills and large one-off loads.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/import-catalog -file products.xlsx -business <businessId>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"bitbucket.org/mmdatafocus/retail_backend/workflow"
	"github.com/xuri/excelize/v2"
)

func main() {
	filePath := flag.String("file", "", "path to the .xlsx file to import")
	businessID := flag.String("business", "", "business id to import into")
	flag.Parse()

	if *filePath == "" || *businessID == "" {
		fmt.Fprintln(os.Stderr, "usage: import-catalog -file <products.xlsx> -business <businessId>")
		os.Exit(1)
	}

	f, err := excelize.OpenFile(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *filePath, err)
		os.Exit(1)
	}
	defer f.Close()

	records, parseFailures, err := models.ParseImportSheet(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse sheet: %v\n", err)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := db.AutoMigrate(&models.CatalogItem{}); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessID)

	r := workflow.NewReconciler(models.NewCatalogStore(db))
	report := workflow.ImportBatch(ctx, r, records, parseFailures)

	fmt.Printf("imported %d of %d rows\n", report.SuccessCount, len(records)+len(parseFailures))
	for _, msg := range report.Errors {
		fmt.Printf("  %s\n", msg)
	}
	if len(report.FailedRows) > 0 {
		os.Exit(2)
	}
}
