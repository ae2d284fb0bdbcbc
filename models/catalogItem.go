package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrDuplicateSku is returned by Insert when the store rejects the row for a
// sku uniqueness violation. Callers regenerate and retry.
var ErrDuplicateSku = errors.New("duplicate sku")

// CatalogItem is the persisted product record. Description carries the external
// scan code (barcode) as free text; Sku is unique per business only when
// non-null. NormalizedName/NormalizedBarcode are shadow columns maintained by
// the reconciliation engine so lookups hit an index instead of running string
// functions in SQL.
type CatalogItem struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"index;not null;uniqueIndex:idx_catalog_items_business_sku" json:"business_id"`
	Name              string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description       string          `gorm:"size:100" json:"description"`
	Sku               *string         `gorm:"size:100;uniqueIndex:idx_catalog_items_business_sku" json:"sku"`
	Category          string          `gorm:"size:100" json:"category"`
	Price             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Cost              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	StockQuantity     int             `gorm:"not null;default:0" json:"stock_quantity"`
	MinStockLevel     int             `gorm:"not null;default:10" json:"min_stock_level"`
	NormalizedName    string          `gorm:"size:100;index" json:"-"`
	NormalizedBarcode string          `gorm:"size:100;index" json:"-"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// GormCatalogStore backs the reconciliation engine with the shared gorm handle.
// All lookups are scoped to the business id carried in the context; tools that
// run without one (cmd/) see the whole table.
type GormCatalogStore struct {
	db *gorm.DB
}

func NewCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{db: db}
}

// Transaction runs fn against a store bound to a single DB transaction, so a
// row's lookup and mutation cannot interleave with another writer's.
func (s *GormCatalogStore) Transaction(ctx context.Context, fn func(store CatalogLookup) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormCatalogStore{db: tx})
	})
}

// FindByBarcode returns the lowest-id item whose normalized barcode matches,
// or nil when none does. Callers must never pass an empty key.
func (s *GormCatalogStore) FindByBarcode(ctx context.Context, normalizedBarcode string) (*CatalogItem, error) {
	return s.findOne(ctx, "normalized_barcode = ?", normalizedBarcode)
}

// FindByName returns the lowest-id item whose normalized name matches, or nil.
// Ordering by id keeps the tie-break deterministic when several items share a
// normalized name.
func (s *GormCatalogStore) FindByName(ctx context.Context, normalizedName string) (*CatalogItem, error) {
	return s.findOne(ctx, "normalized_name = ?", normalizedName)
}

func (s *GormCatalogStore) findOne(ctx context.Context, condition string, value string) (*CatalogItem, error) {
	var item CatalogItem
	query := s.db.WithContext(ctx).Where(condition, value)
	if businessId, ok := utils.GetBusinessIdFromContext(ctx); ok && businessId != "" {
		query = query.Where("business_id = ?", businessId)
	}
	err := query.Order("id ASC").First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Insert creates the row, mapping a sku uniqueness violation to ErrDuplicateSku.
func (s *GormCatalogStore) Insert(ctx context.Context, item *CatalogItem) error {
	if businessId, ok := utils.GetBusinessIdFromContext(ctx); ok && item.BusinessId == "" {
		item.BusinessId = businessId
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return ErrDuplicateSku
		}
		return err
	}
	return nil
}

// Update persists the merge fields of an existing item. The id never changes.
func (s *GormCatalogStore) Update(ctx context.Context, item *CatalogItem) error {
	return s.db.WithContext(ctx).Model(&CatalogItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"stock_quantity": item.StockQuantity,
			"price":          item.Price,
			"cost":           item.Cost,
			"updated_at":     item.UpdatedAt,
		}).Error
}

// Count returns the number of catalog items for the business in context. The
// single-entry path uses it to derive the next sku sequence number.
func (s *GormCatalogStore) Count(ctx context.Context) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&CatalogItem{})
	if businessId, ok := utils.GetBusinessIdFromContext(ctx); ok && businessId != "" {
		query = query.Where("business_id = ?", businessId)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CatalogLookup is the store surface the reconciliation engine needs. Declared
// here next to the gorm implementation; the workflow package consumes it and
// tests supply an in-memory fake.
type CatalogLookup interface {
	Transaction(ctx context.Context, fn func(store CatalogLookup) error) error
	FindByBarcode(ctx context.Context, normalizedBarcode string) (*CatalogItem, error)
	FindByName(ctx context.Context, normalizedName string) (*CatalogItem, error)
	Insert(ctx context.Context, item *CatalogItem) error
	Update(ctx context.Context, item *CatalogItem) error
	Count(ctx context.Context) (int64, error)
}

func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
