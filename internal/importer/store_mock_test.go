package importer

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"pim-service/internal/models"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

// Ensure MockStore implements the interface
var _ Store = (*MockStore)(nil)

func (m *MockStore) FindProductByParentSKU(ctx context.Context, parentSKU string) (*models.Product, error) {
	args := m.Called(ctx, parentSKU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockStore) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockStore) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	if args.Error(0) == nil && product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockStore) FindVariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductVariant), args.Error(1)
}

func (m *MockStore) FindVariantByAttributeTriple(ctx context.Context, productID uuid.UUID, attrs map[string]string) (*models.ProductVariant, error) {
	args := m.Called(ctx, productID, attrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductVariant), args.Error(1)
}

func (m *MockStore) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	args := m.Called(ctx, variant)
	if args.Error(0) == nil && variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockStore) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *MockStore) UpsertProductAttribute(ctx context.Context, attr *models.ProductAttribute) error {
	args := m.Called(ctx, attr)
	return args.Error(0)
}

func (m *MockStore) UpsertVariantAttribute(ctx context.Context, attr *models.VariantAttribute) error {
	args := m.Called(ctx, attr)
	return args.Error(0)
}

func (m *MockStore) VariantBarcodeCount(ctx context.Context, variantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, variantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CreateBarcode(ctx context.Context, barcode *models.Barcode) error {
	args := m.Called(ctx, barcode)
	return args.Error(0)
}

func (m *MockStore) ClaimPoolBarcode(ctx context.Context, variantID uuid.UUID) (*models.BarcodePoolEntry, error) {
	args := m.Called(ctx, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BarcodePoolEntry), args.Error(1)
}

func (m *MockStore) AvailablePoolCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) UpsertPricing(ctx context.Context, pricing *models.Pricing) error {
	args := m.Called(ctx, pricing)
	return args.Error(0)
}

func (m *MockStore) UpsertMarketplaceVariant(ctx context.Context, mv *models.MarketplaceVariant) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

func (m *MockStore) UpsertMarketplaceBarcode(ctx context.Context, mb *models.MarketplaceBarcode) error {
	args := m.Called(ctx, mb)
	return args.Error(0)
}

func (m *MockStore) NextUniqueSlug(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// Transaction runs fn against the mock itself, no transactional behavior
func (m *MockStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}
