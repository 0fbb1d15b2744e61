package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"pim-service/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// writeCSV spools CSV content to a temp file and returns a session-ready path
func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func csvSession(path string, mapping map[int]string, settings models.ImportSettings) ImportSession {
	return ImportSession{
		ID:         uuid.New(),
		FilePath:   path,
		Format:     models.ImportFormatCSV,
		Worksheets: []string{"Sheet1"},
		Mapping:    mapping,
		Settings:   settings,
	}
}

func newTestPlanner(store *MockStore) *Planner {
	extractor := NewAttributeExtractor()
	return NewPlanner(store, NewIdentityResolver(extractor), NewSimilarityGrouper(extractor), testLogger())
}

func TestPlanNewProductAndVariant(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU,Retail Price\nTest Shade,100-001,29.99\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU, 2: FieldRetailPrice},
		models.ImportSettings{
			Mode:                     models.ImportModeCreateOnly,
			SmartAttributeExtraction: true,
			AutoAssignBarcodes:       true,
			AutoCreateParents:        true,
		})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Test Shade").Return(nil, nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").Return(nil, nil)
	store.On("AvailablePoolCount", mock.Anything).Return(int64(0), nil)

	result, err := newTestPlanner(store).Plan(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ValidRows)
	assert.Equal(t, 0, result.ErrorRows)
	assert.Equal(t, 1, result.ProductsToCreate)
	assert.Equal(t, 1, result.VariantsToCreate)
	assert.Equal(t, 1, result.BarcodesNeeded)
	assert.Equal(t, int64(0), result.BarcodesAvailable)

	// needing more codes than the pool holds is a hard dry-run error
	if assert.Len(t, result.Errors, 1) {
		assert.Equal(t, "BARCODE_POOL_EXHAUSTED", result.Errors[0].Code)
		assert.Contains(t, result.Errors[0].Message, "1 are needed")
	}
}

func TestPlanExistingRecordsSkippedInCreateOnly(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nTest Shade,100-001\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{Mode: models.ImportModeCreateOnly, AutoAssignBarcodes: true})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Test Shade").
		Return(&models.Product{ID: uuid.New(), Name: "Test Shade"}, nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").
		Return(&models.ProductVariant{ID: uuid.New(), SKU: "100-001"}, nil)
	store.On("AvailablePoolCount", mock.Anything).Return(int64(5), nil)

	result, err := newTestPlanner(store).Plan(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ProductsToSkip)
	assert.Equal(t, 1, result.VariantsToSkip)
	assert.Equal(t, 0, result.BarcodesNeeded)
	assert.Empty(t, result.Errors)
}

func TestPlanGroupedModeCountsOneParentPerGroup(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nTest Shade Blue,100-001\nTest Shade Red,100-002\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{
			Mode:                     models.ImportModeCreateOrUpdate,
			SmartAttributeExtraction: true,
			AutoAssignBarcodes:       true,
			AutoGenerateParentMode:   true,
		})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Test Shade").Return(nil, nil)
	store.On("FindProductByParentSKU", mock.Anything, "100").Return(nil, nil)
	store.On("FindVariantBySKU", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("AvailablePoolCount", mock.Anything).Return(int64(10), nil)

	result, err := newTestPlanner(store).Plan(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 1, result.ProductsToCreate)
	assert.Equal(t, 2, result.VariantsToCreate)
	assert.Equal(t, 2, result.BarcodesNeeded)
	assert.Empty(t, result.Errors)
	store.AssertNumberOfCalls(t, "FindProductByName", 1)
}

func TestPlanInvalidRowsReportedNotClassified(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU,Price\n,100-001,29.99\nGood Product,100-002,notaprice\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU, 2: FieldRetailPrice},
		models.ImportSettings{Mode: models.ImportModeCreateOrUpdate})

	store := new(MockStore)
	store.On("AvailablePoolCount", mock.Anything).Return(int64(0), nil)

	result, err := newTestPlanner(store).Plan(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 0, result.ValidRows)
	assert.Equal(t, 2, result.ErrorRows)
	assert.Len(t, result.Errors, 2)
	store.AssertNotCalled(t, "FindProductByName", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "FindVariantBySKU", mock.Anything, mock.Anything)
}

func TestPlanGroupedParentFoundBySKUPrefix(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nTest Shade Blue,100-001\nTest Shade Red,100-002\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{
			Mode:                     models.ImportModeCreateOrUpdate,
			SmartAttributeExtraction: true,
			AutoGenerateParentMode:   true,
		})

	// the parent was renamed after its original import but still carries
	// the SKU prefix, so it must classify as an update, not a create
	existing := &models.Product{ID: uuid.New(), Name: "Renamed Shade"}

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Test Shade").Return(nil, nil)
	store.On("FindProductByParentSKU", mock.Anything, "100").Return(existing, nil)
	store.On("FindVariantBySKU", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("FindVariantByAttributeTriple", mock.Anything, existing.ID, mock.Anything).Return(nil, nil)
	store.On("AvailablePoolCount", mock.Anything).Return(int64(10), nil)

	result, err := newTestPlanner(store).Plan(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 0, result.ProductsToCreate)
	assert.Equal(t, 1, result.ProductsToUpdate)
	assert.Equal(t, 2, result.VariantsToCreate)
}

func TestPlanPredictsMissingParent(t *testing.T) {
	path := writeCSV(t, "Product Name,SKU\nOrphan Variant,100-001\n")
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{Mode: models.ImportModeCreateOrUpdate, AutoCreateParents: false})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, "Orphan Variant").Return(nil, nil)
	store.On("FindVariantBySKU", mock.Anything, "100-001").Return(nil, nil)
	store.On("AvailablePoolCount", mock.Anything).Return(int64(0), nil)

	result, err := newTestPlanner(store).Plan(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, 0, result.VariantsToCreate)
	assert.Equal(t, 1, result.ProductsToSkip)
	if assert.Len(t, result.Errors, 1) {
		assert.Equal(t, "PARENT_NOT_FOUND", result.Errors[0].Code)
	}
}

func TestPlanCapsInspectedRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("Product Name,SKU\n")
	for i := 1; i <= DryRunRowCap+20; i++ {
		fmt.Fprintf(&b, "Product %d,%03d-001\n", i, i)
	}
	path := writeCSV(t, b.String())
	session := csvSession(path,
		map[int]string{0: FieldProductName, 1: FieldVariantSKU},
		models.ImportSettings{Mode: models.ImportModeCreateOrUpdate, AutoCreateParents: true})

	store := new(MockStore)
	store.On("FindProductByName", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("FindVariantBySKU", mock.Anything, mock.Anything).Return(nil, nil)
	store.On("AvailablePoolCount", mock.Anything).Return(int64(0), nil)

	result, err := newTestPlanner(store).Plan(context.Background(), session, OpenWorkbook(path, models.ImportFormatCSV))

	assert.NoError(t, err)
	assert.Equal(t, DryRunRowCap, result.ValidRows)
	if assert.Len(t, result.Warnings, 1) {
		assert.Contains(t, result.Warnings[0], "first 100")
	}
}
