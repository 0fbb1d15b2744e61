package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pim-service/internal/models"
)

func TestValidateRequiredFields(t *testing.T) {
	v := NewRowValidator()
	settings := models.ImportSettings{Mode: models.ImportModeCreateOrUpdate}

	// an empty row reads as an implicit parent, so only the name is required
	errs := v.Validate(MappedRow{Sheet: "Sheet1", RowNum: 2}, settings)
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "REQUIRED", errs[0].Code)
		assert.Equal(t, FieldProductName, errs[0].Column)
	}

	// an explicit non-parent row with no SKU fails both checks
	errs = v.Validate(MappedRow{IsParent: "no"}, settings)
	codes := errorCodes(errs)
	assert.Len(t, errs, 2)
	assert.Contains(t, codes, "REQUIRED")
}

func TestValidateParentRowNeedsNoSKU(t *testing.T) {
	v := NewRowValidator()
	settings := models.ImportSettings{Mode: models.ImportModeCreateOrUpdate}

	errs := v.Validate(MappedRow{ProductName: "Parent Product", IsParent: "yes"}, settings)
	assert.Empty(t, errs)

	// implicit parent: no is_parent column, no SKU
	errs = v.Validate(MappedRow{ProductName: "Parent Product"}, settings)
	assert.Empty(t, errs)
}

func TestValidateAutoGenerateModeRequiresSKU(t *testing.T) {
	v := NewRowValidator()
	settings := models.ImportSettings{
		Mode:                   models.ImportModeCreateOrUpdate,
		AutoGenerateParentMode: true,
	}

	errs := v.Validate(MappedRow{ProductName: "Variant Without SKU"}, settings)

	if assert.Len(t, errs, 1) {
		assert.Equal(t, FieldVariantSKU, errs[0].Column)
		assert.Equal(t, "REQUIRED", errs[0].Code)
	}
}

func TestValidateNumericFields(t *testing.T) {
	v := NewRowValidator()
	settings := models.ImportSettings{Mode: models.ImportModeCreateOrUpdate}

	row := MappedRow{
		ProductName:   "Product",
		VariantSKU:    "100-001",
		RetailPrice:   "abc",
		StockLevel:    "12",
		PackageWeight: "heavy",
	}

	errs := v.Validate(row, settings)

	assert.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, "INVALID_NUMBER", e.Code)
	}
}

func TestValidateRowPositionCarried(t *testing.T) {
	v := NewRowValidator()
	settings := models.ImportSettings{Mode: models.ImportModeCreateOrUpdate}

	errs := v.Validate(MappedRow{Sheet: "Curtains", RowNum: 14, VariantSKU: "100-001"}, settings)

	if assert.Len(t, errs, 1) {
		assert.Equal(t, "Curtains", errs[0].Sheet)
		assert.Equal(t, 14, errs[0].Row)
		assert.Equal(t, FieldProductName, errs[0].Column)
	}
}

func TestIsParentRow(t *testing.T) {
	assert.True(t, IsParentRow(MappedRow{IsParent: "true"}))
	assert.True(t, IsParentRow(MappedRow{IsParent: "YES"}))
	assert.True(t, IsParentRow(MappedRow{IsParent: "Parent"}))
	assert.True(t, IsParentRow(MappedRow{IsParent: "1"}))
	assert.True(t, IsParentRow(MappedRow{}))
	assert.False(t, IsParentRow(MappedRow{VariantSKU: "100-001"}))
	assert.False(t, IsParentRow(MappedRow{IsParent: "no", VariantSKU: ""}))
}

func errorCodes(errs []models.ImportRowError) []string {
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	return codes
}
