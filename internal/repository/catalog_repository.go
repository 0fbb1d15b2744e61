package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pim-service/internal/importer"
	"pim-service/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL     = 5 * time.Minute // Single product cache
	ProductListCacheTTL = 2 * time.Minute // Product list cache (shorter due to frequent changes)

	cacheKeyPrefix = "pim:products:"
)

// CatalogRepository is the persistence layer for products, variants and
// their satellite records. It implements importer.Store for the import
// pipeline and serves the CRUD handlers directly.
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ importer.Store = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	return &CatalogRepository{
		db:    db,
		redis: redisClient,
	}
}

// Transaction runs fn against a repository bound to one database transaction
func (r *CatalogRepository) Transaction(ctx context.Context, fn func(importer.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CatalogRepository{db: tx, redis: r.redis})
	})
}

// generateListCacheKey creates a deterministic cache key for list queries
func generateListCacheKey(prefix string, params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, prefix, hex.EncodeToString(hash[:]))
}

// invalidateProductCaches invalidates all caches related to a product
func (r *CatalogRepository) invalidateProductCaches(ctx context.Context, productID uuid.UUID) {
	if r.redis == nil {
		return
	}
	productKey := fmt.Sprintf("%sproduct:%s", cacheKeyPrefix, productID.String())
	_ = r.redis.Del(ctx, productKey+":true", productKey+":false").Err()

	iter := r.redis.Scan(ctx, 0, cacheKeyPrefix+"list:*", 100).Iterator()
	for iter.Next(ctx) {
		_ = r.redis.Del(ctx, iter.Val()).Err()
	}
}

// Product lookups used by the import pipeline.
// Find methods translate gorm's not-found error into (nil, nil).

// FindProductByParentSKU finds a product by its parent SKU
func (r *CatalogRepository) FindProductByParentSKU(ctx context.Context, parentSKU string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("parent_sku = ?", parentSKU).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByName finds a product by exact name, case-insensitively
func (r *CatalogRepository) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct creates a new product
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(product).Error
	if err == nil {
		r.invalidateProductCaches(ctx, product.ID)
	}
	return err
}

// UpdateProduct saves all fields of a product
func (r *CatalogRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(product).Error
	if err == nil {
		r.invalidateProductCaches(ctx, product.ID)
	}
	return err
}

// FindVariantBySKU finds a variant by its unique SKU
func (r *CatalogRepository) FindVariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantByAttributeTriple finds a variant of a product whose attribute
// rows match every given key/value pair. Callers only pass non-empty values,
// so an absent attribute never widens the match.
func (r *CatalogRepository) FindVariantByAttributeTriple(ctx context.Context, productID uuid.UUID, attrs map[string]string) (*models.ProductVariant, error) {
	if len(attrs) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Model(&models.ProductVariant{}).Where("product_id = ?", productID)
	for key, value := range attrs {
		query = query.Where(
			"EXISTS (SELECT 1 FROM variant_attributes va WHERE va.variant_id = product_variants.id AND va.attribute_key = ? AND LOWER(va.value) = LOWER(?))",
			key, value)
	}

	var variant models.ProductVariant
	err := query.First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// CreateVariant creates a new product variant
func (r *CatalogRepository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(variant).Error
	if err == nil {
		r.invalidateProductCaches(ctx, variant.ProductID)
	}
	return err
}

// UpdateVariant saves all fields of a variant
func (r *CatalogRepository) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	variant.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(variant).Error
	if err == nil {
		r.invalidateProductCaches(ctx, variant.ProductID)
	}
	return err
}

// UpsertProductAttribute inserts or overwrites one (product, key) attribute
func (r *CatalogRepository) UpsertProductAttribute(ctx context.Context, attr *models.ProductAttribute) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "attribute_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "data_type", "category", "updated_at"}),
	}).Create(attr).Error
}

// UpsertVariantAttribute inserts or overwrites one (variant, key) attribute
func (r *CatalogRepository) UpsertVariantAttribute(ctx context.Context, attr *models.VariantAttribute) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "attribute_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "data_type", "category", "updated_at"}),
	}).Create(attr).Error
}

// VariantBarcodeCount counts the barcodes attached to a variant
func (r *CatalogRepository) VariantBarcodeCount(ctx context.Context, variantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Barcode{}).Where("variant_id = ?", variantID).Count(&count).Error
	return count, err
}

// CreateBarcode attaches a barcode to a variant
func (r *CatalogRepository) CreateBarcode(ctx context.Context, barcode *models.Barcode) error {
	if barcode.ID == uuid.Nil {
		barcode.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(barcode).Error
}

// ClaimPoolBarcode marks the oldest unused pool entry as used by a variant.
// Rows are locked with SKIP LOCKED so concurrent imports never claim the same
// code. Returns (nil, nil) when the pool is empty.
func (r *CatalogRepository) ClaimPoolBarcode(ctx context.Context, variantID uuid.UUID) (*models.BarcodePoolEntry, error) {
	var entry models.BarcodePoolEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("used = ?", false).
		Order("created_at ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry.Used = true
	entry.UsedByVariantID = &variantID
	entry.UsedAt = &now
	if err := r.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// AvailablePoolCount counts the unused barcode pool entries
func (r *CatalogRepository) AvailablePoolCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BarcodePoolEntry{}).Where("used = ?", false).Count(&count).Error
	return count, err
}

// UpsertPricing inserts or overwrites the (variant, marketplace) price row
func (r *CatalogRepository) UpsertPricing(ctx context.Context, pricing *models.Pricing) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "marketplace"}},
		DoUpdates: clause.AssignmentColumns([]string{"retail_price", "cost_price", "updated_at"}),
	}).Create(pricing).Error
}

// UpsertMarketplaceVariant inserts or overwrites a marketplace listing
func (r *CatalogRepository) UpsertMarketplaceVariant(ctx context.Context, mv *models.MarketplaceVariant) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "marketplace"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "price_override", "updated_at"}),
	}).Create(mv).Error
}

// UpsertMarketplaceBarcode inserts or overwrites a marketplace identifier
func (r *CatalogRepository) UpsertMarketplaceBarcode(ctx context.Context, mb *models.MarketplaceBarcode) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "marketplace"}, {Name: "identifier_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(mb).Error
}

// NextUniqueSlug derives a URL slug from a product name, appending a numeric
// suffix on collision. Soft-deleted products still occupy their slug.
func (r *CatalogRepository) NextUniqueSlug(ctx context.Context, name string) (string, error) {
	base := generateSlug(name)
	if base == "" {
		base = "product"
	}

	slug := base
	for i := 2; ; i++ {
		var count int64
		err := r.db.WithContext(ctx).Model(&models.Product{}).Unscoped().Where("slug = ?", slug).Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		if i > 50 {
			// pathological collision run, fall back to a random suffix
			return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// generateSlug converts a name to a URL-friendly slug
func generateSlug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Handler-facing catalog queries

// ProductListQuery are the filters accepted by GetProducts
type ProductListQuery struct {
	Page            int
	Limit           int
	Search          string
	Status          string
	IncludeVariants bool
}

type productListPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// GetProducts retrieves products with filters and pagination, cached briefly
func (r *CatalogRepository) GetProducts(ctx context.Context, q ProductListQuery) ([]models.Product, int64, error) {
	cacheKey := generateListCacheKey("list", q)
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var page productListPage
			if err := json.Unmarshal([]byte(val), &page); err == nil {
				return page.Products, page.Total, nil
			}
		}
	}

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(slug) LIKE ?", pattern, pattern)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.IncludeVariants {
		query = query.Preload("Variants")
	}

	var products []models.Product
	offset := (q.Page - 1) * q.Limit
	err := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(productListPage{Products: products, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductListCacheTTL)
		}
	}

	return products, total, nil
}

// GetProductByID retrieves a product by ID with caching
func (r *CatalogRepository) GetProductByID(ctx context.Context, productID uuid.UUID, includeVariants bool) (*models.Product, error) {
	cacheKey := fmt.Sprintf("%sproduct:%s:%v", cacheKeyPrefix, productID.String(), includeVariants)

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	query := r.db.WithContext(ctx).Where("id = ?", productID)
	if includeVariants {
		query = query.Preload("Variants")
	}
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// DeleteProduct soft deletes a product and its cache entries
func (r *CatalogRepository) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	err := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", productID).Error
	if err == nil {
		r.invalidateProductCaches(ctx, productID)
	}
	return err
}

// GetVariantsByProduct lists the variants of one product
func (r *CatalogRepository) GetVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("sku ASC").Find(&variants).Error
	return variants, err
}

// GetVariantAttributes lists the attribute rows of one variant
func (r *CatalogRepository) GetVariantAttributes(ctx context.Context, variantID uuid.UUID) ([]models.VariantAttribute, error) {
	var attrs []models.VariantAttribute
	err := r.db.WithContext(ctx).Where("variant_id = ?", variantID).Order("attribute_key ASC").Find(&attrs).Error
	return attrs, err
}

// GetProductAttributes lists the attribute rows of one product
func (r *CatalogRepository) GetProductAttributes(ctx context.Context, productID uuid.UUID) ([]models.ProductAttribute, error) {
	var attrs []models.ProductAttribute
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("attribute_key ASC").Find(&attrs).Error
	return attrs, err
}

// LoadPoolCodes inserts pre-provisioned GS1 codes into the barcode pool.
// Codes already present are ignored; returns how many were actually added.
func (r *CatalogRepository) LoadPoolCodes(ctx context.Context, codes []string) (int64, error) {
	entries := make([]models.BarcodePoolEntry, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		entries = append(entries, models.BarcodePoolEntry{ID: uuid.New(), Code: code})
	}
	if len(entries) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&entries)
	return result.RowsAffected, result.Error
}

// PoolStats reports total and used barcode pool counts
func (r *CatalogRepository) PoolStats(ctx context.Context) (total, used int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.BarcodePoolEntry{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.WithContext(ctx).Model(&models.BarcodePoolEntry{}).Where("used = ?", true).Count(&used).Error; err != nil {
		return 0, 0, err
	}
	return total, used, nil
}
