package importer

import (
	"context"

	"github.com/google/uuid"
	"pim-service/internal/models"
)

// Store is the persistence surface the import pipeline runs against.
// Find methods return (nil, nil) when nothing matches. Implemented by
// repository.CatalogRepository and mocked in tests.
type Store interface {
	FindProductByParentSKU(ctx context.Context, parentSKU string) (*models.Product, error)
	FindProductByName(ctx context.Context, name string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error

	FindVariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, error)
	FindVariantByAttributeTriple(ctx context.Context, productID uuid.UUID, attrs map[string]string) (*models.ProductVariant, error)
	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	UpdateVariant(ctx context.Context, variant *models.ProductVariant) error

	UpsertProductAttribute(ctx context.Context, attr *models.ProductAttribute) error
	UpsertVariantAttribute(ctx context.Context, attr *models.VariantAttribute) error

	VariantBarcodeCount(ctx context.Context, variantID uuid.UUID) (int64, error)
	CreateBarcode(ctx context.Context, barcode *models.Barcode) error
	ClaimPoolBarcode(ctx context.Context, variantID uuid.UUID) (*models.BarcodePoolEntry, error)
	AvailablePoolCount(ctx context.Context) (int64, error)

	UpsertPricing(ctx context.Context, pricing *models.Pricing) error
	UpsertMarketplaceVariant(ctx context.Context, mv *models.MarketplaceVariant) error
	UpsertMarketplaceBarcode(ctx context.Context, mb *models.MarketplaceBarcode) error

	NextUniqueSlug(ctx context.Context, name string) (string, error)

	// Transaction runs fn against a store bound to one database transaction.
	// An error returned by fn rolls the whole transaction back.
	Transaction(ctx context.Context, fn func(Store) error) error
}
