package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"bitbucket.org/mmdatafocus/retail_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const maxImportSizeBytes int64 = 10 * 1024 * 1024

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Sku           string          `json:"sku"`
	Category      string          `json:"category"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	StockQuantity int             `json:"stockQuantity"`
	MinStockLevel int             `json:"minStockLevel"`
}

type createProductResponse struct {
	ID                    int             `json:"id"`
	Merged                bool            `json:"merged"`
	Sku                   string          `json:"sku"`
	RecommendedFinalPrice decimal.Decimal `json:"recommendedFinalPrice"`
	SellingPrice          decimal.Decimal `json:"sellingPrice"`
	LowStock              bool            `json:"lowStock"`
}

func newReconciler() *workflow.Reconciler {
	r := workflow.NewReconciler(models.NewCatalogStore(config.GetDB()))
	r.Notify = models.PublishCatalogChange
	return r
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		user, err := models.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.Username, user.BusinessId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// createProductHandler is the single-record entry point: one synchronous
// reconcile call, merge-or-create.
func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var bindErrs validator.ValidationErrors
			if errors.As(err, &bindErrs) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":  "validation failed",
					"fields": utils.ProcessValidationErrors(err),
				})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not ready"})
			return
		}

		ctx := c.Request.Context()
		reconciler := newReconciler()

		rec := models.IncomingRecord{
			Name:          req.Name,
			Barcode:       req.Description,
			Category:      req.Category,
			Sku:           req.Sku,
			CostPrice:     req.CostPrice,
			SellingPrice:  req.SellingPrice,
			Quantity:      req.StockQuantity,
			MinStockLevel: req.MinStockLevel,
		}

		// Manual entry gets an ordered sequence number; only bulk rows fall
		// back to the timestamp segment.
		if req.Sku == "" {
			if count, err := reconciler.Store.Count(ctx); err == nil {
				seq := int(count) + 1
				rec.SequenceNumber = &seq
			}
		}

		result, err := reconciler.Reconcile(ctx, rec)
		if err != nil {
			var validationErr *workflow.ValidationError
			switch {
			case errors.As(err, &validationErr):
				c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
			case errors.Is(err, workflow.ErrSkuExhausted):
				config.LogError(logger, "catalogHandlers.go", "createProductHandler", "sku exhausted", req.Name, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			default:
				config.LogError(logger, "catalogHandlers.go", "createProductHandler", "reconcile", req.Name, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save product"})
			}
			return
		}

		sellingPrice := req.SellingPrice
		if !sellingPrice.GreaterThan(decimal.Zero) {
			sellingPrice = workflow.RecommendedFinalPrice(req.CostPrice)
		}

		c.JSON(http.StatusOK, gin.H{"data": createProductResponse{
			ID:                    result.ItemID,
			Merged:                result.Action == workflow.ActionMerged,
			Sku:                   result.Sku,
			RecommendedFinalPrice: workflow.RecommendedFinalPrice(req.CostPrice),
			SellingPrice:          sellingPrice,
			LowStock:              lowStockAfter(c, result.ItemID),
		}})
	}
}

// importProductsHandler is the bulk entry point: parse the uploaded xlsx,
// reconcile every row independently, and always answer 200 with the report —
// callers inspect successCount/errors, not the status code.
func importProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not ready"})
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "catalog.import")
		defer span.End()
		businessId, _ := utils.GetBusinessIdFromContext(ctx)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type: only .xlsx files are allowed"})
			return
		}
		if fileHeader.Size > maxImportSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		f, err := excelize.OpenReader(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to open Excel file: %v", err)})
			return
		}
		defer f.Close()

		records, parseFailures, err := models.ParseImportSheet(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// One import at a time per business: two simultaneous uploads of the
		// same sheet would race each other's lookups.
		release, err := utils.BusinessLock(ctx, businessId, "import", "catalogHandlers.go", "importProductsHandler")
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		defer release()

		jobId := uuid.NewString()
		report := workflow.ImportBatch(ctx, newReconciler(), records, parseFailures)

		username, _ := utils.GetUsernameFromContext(ctx)
		userId, _ := utils.GetUserIdFromContext(ctx)
		logger.WithFields(logrus.Fields{
			"business_id":   businessId,
			"username":      username,
			"user_id":       userId,
			"job_id":        jobId,
			"rows":          len(records),
			"success_count": report.SuccessCount,
			"failed_count":  len(report.FailedRows),
		}).Info("[catalog.import]")

		if err := config.SetRedisObject("ImportReport:"+businessId, report, 24*time.Hour); err != nil {
			config.LogError(logger, "catalogHandlers.go", "importProductsHandler", "cache report", businessId, err)
		}

		go archiveImportFile(businessId, jobId, fileHeader)

		c.JSON(http.StatusOK, gin.H{
			"jobId":        jobId,
			"successCount": report.SuccessCount,
			"errors":       report.Errors,
			"failedRows":   report.FailedRows,
		})
	}
}

func lastImportReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, _ := utils.GetBusinessIdFromContext(c.Request.Context())

		var report workflow.ImportReport
		exists, err := config.GetRedisObject("ImportReport:"+businessId, &report)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read report"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "no import report found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": report})
	}
}

func lowStockAfter(c *gin.Context, itemId int) bool {
	db := config.GetDB()
	if db == nil {
		return false
	}
	var item models.CatalogItem
	if err := db.WithContext(c.Request.Context()).Take(&item, itemId).Error; err != nil {
		return false
	}
	return item.StockQuantity < item.MinStockLevel
}
