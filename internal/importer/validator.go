package importer

import (
	"fmt"
	"strconv"
	"strings"

	"pim-service/internal/models"
)

// RowValidator checks a mapped row against required-field and type
// constraints. A row with any error is excluded from commit; soft
// create/update/skip classification happens in resolution, not here.
type RowValidator struct{}

// NewRowValidator returns a RowValidator
func NewRowValidator() *RowValidator {
	return &RowValidator{}
}

// numericFields are always validated when present
var numericFields = []struct {
	Field string
	Get   func(MappedRow) string
}{
	{FieldRetailPrice, func(r MappedRow) string { return r.RetailPrice }},
	{FieldCostPrice, func(r MappedRow) string { return r.CostPrice }},
	{FieldStockLevel, func(r MappedRow) string { return r.StockLevel }},
	{FieldPackageLength, func(r MappedRow) string { return r.PackageLength }},
	{FieldPackageWidth, func(r MappedRow) string { return r.PackageWidth }},
	{FieldPackageHeight, func(r MappedRow) string { return r.PackageHeight }},
	{FieldPackageWeight, func(r MappedRow) string { return r.PackageWeight }},
}

// Validate returns the hard failures for one row. Parent rows are allowed an
// empty variant_sku; every other row must carry one.
func (v *RowValidator) Validate(row MappedRow, settings models.ImportSettings) []models.ImportRowError {
	var errs []models.ImportRowError

	if row.ProductName == "" {
		errs = append(errs, rowError(row, FieldProductName, "REQUIRED", "product name is required"))
	}
	// In auto-generate-parent mode every row is a variant row, so the
	// implicit empty-SKU parent convention does not apply.
	isParent := !settings.AutoGenerateParentMode && IsParentRow(row)
	if row.VariantSKU == "" && !isParent {
		errs = append(errs, rowError(row, FieldVariantSKU, "REQUIRED", "variant SKU is required"))
	}

	for _, nf := range numericFields {
		value := nf.Get(row)
		if value == "" {
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			errs = append(errs, rowError(row, nf.Field, "INVALID_NUMBER",
				fmt.Sprintf("%s must be a valid number, got %q", nf.Field, value)))
		}
	}

	return errs
}

// IsParentRow reports whether a row describes a parent product: an explicit
// truthy is_parent value, or implicitly an empty variant SKU.
func IsParentRow(row MappedRow) bool {
	switch strings.ToLower(strings.TrimSpace(row.IsParent)) {
	case "true", "1", "yes", "parent":
		return true
	}
	return row.IsParent == "" && row.VariantSKU == ""
}

func rowError(row MappedRow, column, code, message string) models.ImportRowError {
	return models.ImportRowError{
		Sheet:   row.Sheet,
		Row:     row.RowNum,
		Column:  column,
		Code:    code,
		Message: message,
	}
}
