package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderMapperGuess(t *testing.T) {
	mapper := NewHeaderMapper()

	tests := []struct {
		header string
		field  string
	}{
		{"Product Name", FieldProductName},
		{"Title", FieldProductName},
		{"Parent SKU", FieldParentSKU},
		{"Parent Name", FieldParentName},
		{"Is Parent", FieldIsParent},
		{"SKU", FieldVariantSKU},
		{"Item Code", FieldVariantSKU},
		{"EAN", FieldBarcode},
		{"Barcode", FieldBarcode},
		{"Colour", FieldVariantColor},
		{"Color", FieldVariantColor},
		{"Width (mm)", FieldVariantWidth},
		{"Drop", FieldVariantDrop},
		{"Package Width", FieldPackageWidth},
		{"Package Weight", FieldPackageWeight},
		{"Cost Price", FieldCostPrice},
		{"RRP", FieldRetailPrice},
		{"Price", FieldRetailPrice},
		{"Stock Level", FieldStockLevel},
		{"Qty", FieldStockLevel},
		{"Status", FieldStatus},
		{"Description", FieldDescription},
		{"Chain Length", VariantAttributeFieldPrefix + "chain_length"},
		{"Material", AttributeFieldPrefix + "material"},
		{"Fire Rating", AttributeFieldPrefix + "fire_rating"},
		{"Child Safety", AttributeFieldPrefix + "child_safety"},
		{"eBay Title", "ebay_title"},
		{"eBay Business Outlet Title", "ebay_bo_title"},
		{"Amazon Price", "amazon_price"},
		{"Amazon FBA Price", "amazon_fba_price"},
		{"FBA ASIN", "amazon_fba_asin"},
		{"ASIN", "amazon_asin"},
		{"eBay Item Number", "ebay_item_id"},
		{"OnBuy Product ID", "onbuy_product_id"},
		{"Feature 2", "feature_2"},
		{"Detail 3", "detail_3"},
		{"Feature 9", "feature_5"},
		{"", ""},
		{"Internal Notes Ref#", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.field, mapper.Guess(tt.header))
		})
	}
}

func TestHeaderMapperCompoundsWinOverBareWords(t *testing.T) {
	mapper := NewHeaderMapper()

	// "Package Width" must not land on the variant width field
	assert.Equal(t, FieldPackageWidth, mapper.Guess("Package Width"))
	assert.Equal(t, FieldVariantWidth, mapper.Guess("Width"))

	// "Parent SKU" must not land on the variant SKU field
	assert.Equal(t, FieldParentSKU, mapper.Guess("Parent SKU"))
	assert.Equal(t, FieldVariantSKU, mapper.Guess("Variant SKU"))

	// "Cost Price" must not land on retail price
	assert.Equal(t, FieldCostPrice, mapper.Guess("Cost Price"))
	assert.Equal(t, FieldRetailPrice, mapper.Guess("Retail Price"))
}

func TestProposeMapping(t *testing.T) {
	mapper := NewHeaderMapper()

	mapping := mapper.ProposeMapping([]string{"Product Name", "SKU", "Mystery Column"})

	assert.Equal(t, FieldProductName, mapping[0])
	assert.Equal(t, FieldVariantSKU, mapping[1])
	assert.Equal(t, "", mapping[2])
	assert.Len(t, mapping, 3)
}
