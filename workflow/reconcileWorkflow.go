package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// DefaultMaxSkuRetries bounds the regenerate-and-retry loop after a generated
// sku collides. The initial insert is not counted as a retry.
const DefaultMaxSkuRetries = 3

const defaultMinStockLevel = 10

// ErrSkuExhausted is terminal for a record: every generated sku collided and
// the retry budget is spent. The orchestrator never retries past it.
var ErrSkuExhausted = errors.New("could not generate a unique sku after retries")

// ValidationError rejects a record before any store mutation happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type ReconcileAction string

const (
	ActionMerged  ReconcileAction = "merged"
	ActionCreated ReconcileAction = "created"
)

type ReconcileResult struct {
	Action ReconcileAction `json:"action"`
	ItemID int             `json:"itemId"`
	Sku    string          `json:"sku"`
}

// Reconciler decides, for each incoming record, whether it is a new catalog
// item or a restock of an existing one. Lookups go by normalized barcode
// first, then exact normalized name; a match merges quantity and prices, a
// miss inserts with a generated sku and a bounded collision-retry loop.
type Reconciler struct {
	Store         models.CatalogLookup
	MaxSkuRetries int

	// Notify, when set, is invoked after a successful commit with the touched
	// item. The server wires it to the Pub/Sub catalog event publisher.
	Notify func(ctx context.Context, item *models.CatalogItem, action string)

	now          func() time.Time
	disambiguate func() int
}

func NewReconciler(store models.CatalogLookup) *Reconciler {
	return &Reconciler{
		Store:         store,
		MaxSkuRetries: DefaultMaxSkuRetries,
		now:           time.Now,
		disambiguate:  func() int { return rand.Intn(1000) },
	}
}

// Reconcile runs one record through the merge-or-insert decision. Exactly one
// store mutation happens per successful call, inside a single transaction;
// zero mutations happen on validation failure.
func (r *Reconciler) Reconcile(ctx context.Context, rec models.IncomingRecord) (ReconcileResult, error) {
	name := utils.NormalizeName(rec.Name)
	if name == "" {
		return ReconcileResult{}, &ValidationError{Field: "name", Message: "product name is required"}
	}
	if rec.Quantity < 0 {
		return ReconcileResult{}, &ValidationError{Field: "quantity", Message: "quantity cannot be negative"}
	}

	barcode := utils.NormalizeBarcode(rec.Barcode)

	var result ReconcileResult
	var touched *models.CatalogItem
	err := r.Store.Transaction(ctx, func(store models.CatalogLookup) error {
		var existing *models.CatalogItem
		var err error

		// An empty barcode is never a match key: without this guard every
		// barcode-less row would merge into one "no barcode" bucket.
		if barcode != "" {
			existing, err = store.FindByBarcode(ctx, barcode)
			if err != nil {
				return fmt.Errorf("barcode lookup failed: %w", err)
			}
		}
		if existing == nil {
			existing, err = store.FindByName(ctx, name)
			if err != nil {
				return fmt.Errorf("name lookup failed: %w", err)
			}
		}

		if existing != nil {
			result, err = r.merge(ctx, store, existing, rec)
			touched = existing
			return err
		}
		touched, result, err = r.insert(ctx, store, rec, name, barcode)
		return err
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	if r.Notify != nil && touched != nil {
		r.Notify(ctx, touched, string(result.Action))
	}
	return result, nil
}

// merge folds the incoming record into the matched item: the quantity is
// always additive, prices are overwritten only by a strictly positive incoming
// value, and the id never changes.
func (r *Reconciler) merge(ctx context.Context, store models.CatalogLookup, item *models.CatalogItem, rec models.IncomingRecord) (ReconcileResult, error) {
	item.StockQuantity += rec.Quantity
	if rec.SellingPrice.GreaterThan(decimal.Zero) {
		item.Price = rec.SellingPrice
	}
	if rec.CostPrice.GreaterThan(decimal.Zero) {
		item.Cost = rec.CostPrice
	}
	item.UpdatedAt = r.now()

	if err := store.Update(ctx, item); err != nil {
		return ReconcileResult{}, fmt.Errorf("merge update failed: %w", err)
	}
	return ReconcileResult{
		Action: ActionMerged,
		ItemID: item.ID,
		Sku:    utils.DereferencePtr(item.Sku),
	}, nil
}

func (r *Reconciler) insert(ctx context.Context, store models.CatalogLookup, rec models.IncomingRecord, name, barcode string) (*models.CatalogItem, ReconcileResult, error) {
	category := rec.Category
	if category == "" {
		category = ClassifyCategory(rec.Name, rec.Barcode)
	}

	sellingPrice := rec.SellingPrice
	if !sellingPrice.GreaterThan(decimal.Zero) {
		sellingPrice = RecommendedFinalPrice(rec.CostPrice)
	}
	minStock := rec.MinStockLevel
	if minStock <= 0 {
		minStock = defaultMinStockLevel
	}

	item := &models.CatalogItem{
		Name:              strings.TrimSpace(rec.Name),
		Description:       rec.Barcode,
		Category:          category,
		Price:             sellingPrice,
		Cost:              rec.CostPrice,
		StockQuantity:     rec.Quantity,
		MinStockLevel:     minStock,
		NormalizedName:    name,
		NormalizedBarcode: barcode,
		UpdatedAt:         r.now(),
	}

	// An explicit sku is used verbatim; a collision on it is terminal, not
	// retried.
	if rec.Sku != "" {
		item.Sku = &rec.Sku
		if err := store.Insert(ctx, item); err != nil {
			if errors.Is(err, models.ErrDuplicateSku) {
				return nil, ReconcileResult{}, &ValidationError{Field: "sku", Message: fmt.Sprintf("sku %q already exists", rec.Sku)}
			}
			return nil, ReconcileResult{}, fmt.Errorf("insert failed: %w", err)
		}
		return item, ReconcileResult{Action: ActionCreated, ItemID: item.ID, Sku: rec.Sku}, nil
	}

	maxRetries := r.MaxSkuRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxSkuRetries
	}

	sku := GenerateSku(category, rec.CostPrice, rec.SequenceNumber, &sellingPrice)
	for attempt := 0; ; attempt++ {
		item.ID = 0
		item.Sku = &sku
		err := store.Insert(ctx, item)
		if err == nil {
			return item, ReconcileResult{Action: ActionCreated, ItemID: item.ID, Sku: sku}, nil
		}
		if !errors.Is(err, models.ErrDuplicateSku) {
			return nil, ReconcileResult{}, fmt.Errorf("insert failed: %w", err)
		}
		if attempt >= maxRetries {
			return nil, ReconcileResult{}, ErrSkuExhausted
		}
		sku = GenerateSkuDisambiguated(category, rec.CostPrice, r.disambiguate(), &sellingPrice)
	}
}
