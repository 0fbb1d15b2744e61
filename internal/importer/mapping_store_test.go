package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pim-service/internal/models"
)

func TestHeaderSignatureIgnoresOrderAndCase(t *testing.T) {
	a := HeaderSignature([]string{"Product Name", "SKU", "Barcode"})
	b := HeaderSignature([]string{"barcode", "sku", "  product name "})

	assert.Equal(t, a, b)
}

func TestHeaderSignatureDistinguishesHeaderSets(t *testing.T) {
	a := HeaderSignature([]string{"Product Name", "SKU"})
	b := HeaderSignature([]string{"Product Name", "SKU", "Barcode"})
	c := HeaderSignature([]string{"Product Name", "EAN"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMappingRoundTrip(t *testing.T) {
	headers := []string{"Product", "SKU", "Colour", "Price"}
	confirmed := map[int]string{
		0: FieldProductName,
		1: FieldVariantSKU,
		2: FieldVariantColor,
		3: FieldRetailPrice,
	}

	columns, matched := rebindColumns(headers, columnsByName(headers, confirmed))

	assert.Equal(t, confirmed, columns)
	assert.Equal(t, 4, matched)
}

func TestMappingRebindSurvivesReorderAndRename(t *testing.T) {
	saved := columnsByName(
		[]string{"Product", "SKU", "Colour", "Price"},
		map[int]string{0: FieldProductName, 1: FieldVariantSKU, 2: FieldVariantColor, 3: FieldRetailPrice})

	// reordered columns keep every entry
	columns, matched := rebindColumns([]string{"SKU", "Price", "Product", "Colour"}, saved)
	assert.Equal(t, 4, matched)
	assert.Equal(t, FieldVariantSKU, columns[0])
	assert.Equal(t, FieldRetailPrice, columns[1])
	assert.Equal(t, FieldProductName, columns[2])
	assert.Equal(t, FieldVariantColor, columns[3])

	// a renamed column loses only its own entry
	columns, matched = rebindColumns([]string{"Product", "SKU", "Shade", "Price"}, saved)
	assert.Equal(t, 3, matched)
	assert.Equal(t, "", columns[2])
	assert.Equal(t, FieldProductName, columns[0])
}

func TestMappingRebindDropsUnknownSavedFields(t *testing.T) {
	saved := models.JSON{
		"product": FieldProductName,
		"legacy":  "a_field_that_no_longer_exists",
		"count":   float64(3), // JSONB numbers decode as float64
	}

	columns, matched := rebindColumns([]string{"Product", "Legacy", "Count"}, saved)

	assert.Equal(t, 1, matched)
	assert.Equal(t, FieldProductName, columns[0])
	assert.Equal(t, "", columns[1])
	assert.Equal(t, "", columns[2])
}

func TestMappingOverlapThreshold(t *testing.T) {
	saved := columnsByName(
		[]string{"Product", "SKU", "Colour", "Price"},
		map[int]string{0: FieldProductName, 1: FieldVariantSKU, 2: FieldVariantColor, 3: FieldRetailPrice})

	current := func(headers ...string) map[string]bool {
		set := make(map[string]bool, len(headers))
		for _, h := range headers {
			set[normalizeHeader(h)] = true
		}
		return set
	}

	// 3 of 4 saved headers survive: 0.75, above the recall threshold
	assert.GreaterOrEqual(t, mappingOverlap(current("Product", "SKU", "Price", "Extra"), saved), mappingRecallOverlap)
	// 2 of 4: 0.5, below it
	assert.Less(t, mappingOverlap(current("Product", "SKU"), saved), mappingRecallOverlap)
	assert.Zero(t, mappingOverlap(current("Product"), models.JSON{}))
}
