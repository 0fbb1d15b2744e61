package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"pim-service/internal/models"
)

// recordingNotifier captures events for assertions
type recordingNotifier struct {
	products  []Action
	variants  []Action
	completed int
}

func (n *recordingNotifier) ProductChanged(ctx context.Context, product *models.Product, action Action) {
	n.products = append(n.products, action)
}

func (n *recordingNotifier) VariantChanged(ctx context.Context, variant *models.ProductVariant, action Action) {
	n.variants = append(n.variants, action)
}

func (n *recordingNotifier) ImportCompleted(ctx context.Context, result *models.CommitResult) {
	n.completed++
}

func newTestCommitter(store *MockStore, notifier Notifier) *Committer {
	extractor := NewAttributeExtractor()
	return NewCommitter(store, NewIdentityResolver(extractor), NewSimilarityGrouper(extractor), extractor, notifier, testLogger())
}

func TestCommitCreatesProductAndVariant(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU,Barcode,Retail Price\nTest Shade,100-001,5012345678900,29.99\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU, 2: FieldBarcode, 3: FieldRetailPrice},
		models.ImportSettings{
			Mode:                     models.ImportModeCreateOnly,
			SmartAttributeExtraction: true,
			AutoAssignBarcodes:       true,
			AutoCreateParents:        true,
		})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Test Shade").Return(nil, nil)
	store.On("NextUniqueSlug", mock.Anything, "Test Shade").Return("test-shade", nil)
	store.On("CreateProduct", mock.Anything, mock.Anything).Return(nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").Return(nil, nil)
	store.On("CreateVariant", mock.Anything, mock.Anything).Return(nil)
	store.On("VariantBarcodeCount", mock.Anything, mock.Anything).Return(int64(0), nil)
	store.On("CreateBarcode", mock.Anything, mock.MatchedBy(func(b *models.Barcode) bool {
		return b.Value == "5012345678900" && b.PoolID == nil
	})).Return(nil)
	store.On("UpsertPricing", mock.Anything, mock.MatchedBy(func(p *models.Pricing) bool {
		return p.Marketplace == MarketplaceWebsite && p.RetailPrice == 29.99
	})).Return(nil)

	notifier := &recordingNotifier{}
	result, err := newTestCommitter(store, notifier).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.SheetsProcessed)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 1, result.VariantsCreated)
	assert.Empty(t, result.Errors)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "ClaimPoolBarcode", mock.Anything, mock.Anything)

	assert.Equal(t, []Action{ActionCreate}, notifier.products)
	assert.Equal(t, []Action{ActionCreate}, notifier.variants)
	assert.Equal(t, 1, notifier.completed)
}

func TestCommitIsIdempotentInCreateOnlyMode(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nTest Shade,100-001\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{Mode: models.ImportModeCreateOnly, AutoCreateParents: true})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Test Shade").
		Return(&models.Product{ID: uuid.New(), Name: "Test Shade"}, nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").
		Return(&models.ProductVariant{ID: uuid.New(), SKU: "100-001"}, nil)

	result, err := newTestCommitter(store, nil).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ProductsSkipped)
	assert.Equal(t, 1, result.VariantsSkipped)
	assert.Equal(t, 0, result.ProductsCreated)
	assert.Equal(t, 0, result.VariantsCreated)

	store.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateVariant", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpdateVariant", mock.Anything, mock.Anything)
}

func TestCommitUpdateExistingNeverCreates(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nBrand New Product,999-001\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{Mode: models.ImportModeUpdateExisting, AutoCreateParents: true})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Brand New Product").Return(nil, nil)
	store.On("FindVariantBySKU", mock.Anything, "999-001").Return(nil, nil)

	result, err := newTestCommitter(store, nil).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ProductsSkipped)
	assert.Equal(t, 1, result.VariantsSkipped)
	store.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateVariant", mock.Anything, mock.Anything)
}

func TestCommitTwoPhaseGrouping(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nAurora Blind Blue 120x160,100-001\nAurora Blind Red 120x160,100-002\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{
			Mode:                     models.ImportModeCreateOrUpdate,
			SmartAttributeExtraction: true,
			AutoAssignBarcodes:       true,
			AutoGenerateParentMode:   true,
		})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Aurora Blind").Return(nil, nil)
	store.On("FindProductByParentSKU", mock.Anything, "100").Return(nil, nil)
	store.On("NextUniqueSlug", mock.Anything, "Aurora Blind").Return("aurora-blind", nil)
	store.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return p.AutoGenerated && p.ParentSKU != nil && *p.ParentSKU == "100"
	})).Return(nil)
	store.On("FindVariantBySKU", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("FindVariantByAttributeTriple", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	store.On("CreateVariant", mock.Anything, mock.Anything).Return(nil)
	store.On("UpsertVariantAttribute", mock.Anything, mock.Anything).Return(nil)
	store.On("VariantBarcodeCount", mock.Anything, mock.Anything).Return(int64(0), nil)
	store.On("ClaimPoolBarcode", mock.Anything, mock.Anything).
		Return(&models.BarcodePoolEntry{ID: uuid.New(), Code: "5000000000001"}, nil)
	store.On("CreateBarcode", mock.Anything, mock.MatchedBy(func(b *models.Barcode) bool {
		return b.PoolID != nil
	})).Return(nil)

	result, err := newTestCommitter(store, nil).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 2, result.VariantsCreated)
	assert.Empty(t, result.Errors)

	store.AssertNumberOfCalls(t, "CreateProduct", 1)
	store.AssertNumberOfCalls(t, "CreateVariant", 2)
	// colour, width and drop for each of the two variants
	store.AssertNumberOfCalls(t, "UpsertVariantAttribute", 6)
	store.AssertNumberOfCalls(t, "CreateBarcode", 2)
}

func TestCommitRowFailureDoesNotAbortSheet(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nShade One,100-001\nShade Two,200-001\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{Mode: models.ImportModeCreateOnly, AutoCreateParents: true})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("NextUniqueSlug", mock.Anything, "Shade One").Return("shade-one", nil)
	store.On("NextUniqueSlug", mock.Anything, "Shade Two").Return("shade-two", nil)
	store.On("CreateProduct", mock.Anything, mock.Anything).Return(nil)
	store.On("FindVariantBySKU", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("CreateVariant", mock.Anything, mock.MatchedBy(func(v *models.ProductVariant) bool {
		return v.SKU == "100-001"
	})).Return(nil)
	store.On("CreateVariant", mock.Anything, mock.MatchedBy(func(v *models.ProductVariant) bool {
		return v.SKU == "200-001"
	})).Return(errors.New(`duplicate key value violates unique constraint "idx_product_variants_sku"`))
	store.On("VariantBarcodeCount", mock.Anything, mock.Anything).Return(int64(0), nil)

	notifier := &recordingNotifier{}
	result, err := newTestCommitter(store, notifier).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	// one bad row never aborts the sheet
	assert.NoError(t, err)
	assert.Equal(t, 1, result.SheetsProcessed)
	assert.Equal(t, 1, result.VariantsCreated)
	// the failed row's parent create was rolled back with it
	assert.Equal(t, 1, result.ProductsCreated)
	if assert.Len(t, result.Errors, 1) {
		assert.Equal(t, "ROW_FAILED", result.Errors[0].Code)
		assert.Equal(t, 3, result.Errors[0].Row)
		assert.Contains(t, result.Errors[0].Message, "duplicate key")
	}

	// rolled-back changes publish no events
	assert.Equal(t, []Action{ActionCreate}, notifier.products)
	assert.Equal(t, []Action{ActionCreate}, notifier.variants)
}

func TestCommitPoolExhaustionDegradesSilently(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nTest Shade,100-001\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{
			Mode:               models.ImportModeCreateOrUpdate,
			AutoAssignBarcodes: true,
			AutoCreateParents:  true,
		})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Test Shade").Return(nil, nil)
	store.On("NextUniqueSlug", mock.Anything, "Test Shade").Return("test-shade", nil)
	store.On("CreateProduct", mock.Anything, mock.Anything).Return(nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").Return(nil, nil)
	store.On("CreateVariant", mock.Anything, mock.Anything).Return(nil)
	store.On("VariantBarcodeCount", mock.Anything, mock.Anything).Return(int64(0), nil)
	store.On("ClaimPoolBarcode", mock.Anything, mock.Anything).Return(nil, nil)

	result, err := newTestCommitter(store, nil).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.VariantsCreated)
	assert.Empty(t, result.Errors)
	store.AssertNotCalled(t, "CreateBarcode", mock.Anything, mock.Anything)
}

func TestCommitParentMissingIsRowError(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nOrphan Variant,100-001\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{
			Mode:              models.ImportModeCreateOrUpdate,
			AutoCreateParents: false,
		})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Orphan Variant").Return(nil, nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").Return(nil, nil)

	result, err := newTestCommitter(store, nil).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 0, result.VariantsCreated)
	if assert.Len(t, result.Errors, 1) {
		assert.Equal(t, "PARENT_NOT_FOUND", result.Errors[0].Code)
		assert.Equal(t, 2, result.Errors[0].Row)
	}
	store.AssertNotCalled(t, "CreateVariant", mock.Anything, mock.Anything)
}

func TestCommitExplicitParentRows(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU,Is Parent,Description\nShade Range,,yes,The range parent\nShade Range,100-001,no,\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU, 2: FieldIsParent, 3: FieldDescription},
		models.ImportSettings{
			Mode:              models.ImportModeCreateOrUpdate,
			AutoCreateParents: true,
		})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Shade Range").Return(nil, nil)
	store.On("NextUniqueSlug", mock.Anything, "Shade Range").Return("shade-range", nil)
	store.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return !p.AutoGenerated && p.Description != nil && *p.Description == "The range parent"
	})).Return(nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").Return(nil, nil)
	store.On("CreateVariant", mock.Anything, mock.Anything).Return(nil)
	store.On("VariantBarcodeCount", mock.Anything, mock.Anything).Return(int64(0), nil)

	result, err := newTestCommitter(store, nil).Commit(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 1, result.VariantsCreated)
	// the variant row reuses the parent created two lines earlier
	store.AssertNumberOfCalls(t, "CreateProduct", 1)
	store.AssertNumberOfCalls(t, "FindProductByName", 1)
}

func TestDetectAttributeType(t *testing.T) {
	assert.Equal(t, models.AttributeTypeBoolean, detectAttributeType("true"))
	assert.Equal(t, models.AttributeTypeBoolean, detectAttributeType("Yes"))
	assert.Equal(t, models.AttributeTypeBoolean, detectAttributeType("0"))
	assert.Equal(t, models.AttributeTypeNumber, detectAttributeType("12.5"))
	assert.Equal(t, models.AttributeTypeNumber, detectAttributeType("-3"))
	assert.Equal(t, models.AttributeTypeJSON, detectAttributeType(`{"a":1}`))
	assert.Equal(t, models.AttributeTypeJSON, detectAttributeType(`[1,2,3]`))
	assert.Equal(t, models.AttributeTypeString, detectAttributeType("hello"))
	assert.Equal(t, models.AttributeTypeString, detectAttributeType("{not json"))
}

func TestBarcodeType(t *testing.T) {
	assert.Equal(t, "EAN13", barcodeType("5012345678900"))
	assert.Equal(t, "UPC", barcodeType("501234567890"))
	assert.Equal(t, "EAN8", barcodeType("50123456"))
	assert.Equal(t, "GTIN14", barcodeType("50123456789012"))
}
