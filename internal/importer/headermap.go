package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HeaderMapper guesses a semantic field for a raw spreadsheet column header.
// Guesses are advisory only: commit independently validates that required
// fields are mapped before running.
type HeaderMapper struct{}

// NewHeaderMapper returns a HeaderMapper using the built-in rule tables
func NewHeaderMapper() *HeaderMapper {
	return &HeaderMapper{}
}

var (
	featureNumberPattern = regexp.MustCompile(`feature\s*(\d+)`)
	detailNumberPattern  = regexp.MustCompile(`detail\s*(\d+)`)
)

// keywordRule maps a header substring to a semantic field. Rules are
// evaluated in slice order, so more specific entries must come first.
type keywordRule struct {
	Keyword string
	Field   string
}

// Marketplace compound patterns, most specific first ("ebay business outlet
// title" must win over "ebay title").
var marketplaceCompoundRules = []keywordRule{
	{"ebay business outlet title", "ebay_bo_title"},
	{"ebay business outlet description", "ebay_bo_description"},
	{"ebay business outlet price", "ebay_bo_price"},
	{"ebay bo title", "ebay_bo_title"},
	{"ebay bo description", "ebay_bo_description"},
	{"ebay bo price", "ebay_bo_price"},
	{"amazon fba title", "amazon_fba_title"},
	{"amazon fba price", "amazon_fba_price"},
	{"ebay title", "ebay_title"},
	{"ebay description", "ebay_description"},
	{"ebay price", "ebay_price"},
	{"amazon title", "amazon_title"},
	{"amazon description", "amazon_description"},
	{"amazon price", "amazon_price"},
	{"onbuy title", "onbuy_title"},
	{"onbuy description", "onbuy_description"},
	{"onbuy price", "onbuy_price"},
	{"website title", "website_title"},
	{"web title", "website_title"},
	{"website description", "website_description"},
}

// Marketplace identifier patterns, most specific first
var marketplaceIdentifierRules = []keywordRule{
	{"fba asin", "amazon_fba_asin"},
	{"asin", "amazon_asin"},
	{"ebay business outlet item", "ebay_bo_item_id"},
	{"ebay bo item", "ebay_bo_item_id"},
	{"ebay item", "ebay_item_id"},
	{"onbuy product", "onbuy_product_id"},
	{"website product id", "website_product_id"},
}

// Domain attribute keywords mapped into the attribute_* family
var attributeKeywordRules = []keywordRule{
	{"material", AttributeFieldPrefix + "material"},
	{"fabric", AttributeFieldPrefix + "fabric"},
	{"fire rating", AttributeFieldPrefix + "fire_rating"},
	{"child safety", AttributeFieldPrefix + "child_safety"},
	{"certification", AttributeFieldPrefix + "certification"},
	{"mount", AttributeFieldPrefix + "mount"},
	{"operation", AttributeFieldPrefix + "operation"},
	{"motorised", AttributeFieldPrefix + "motorised"},
	{"motorized", AttributeFieldPrefix + "motorised"},
	{"light filter", AttributeFieldPrefix + "light_filter"},
	{"finish", AttributeFieldPrefix + "finish"},
}

// Variant-specific attribute patterns. Compounds before bare words so
// "package width" never lands on variant_width.
var variantAttributeRules = []keywordRule{
	{"chain length", VariantAttributeFieldPrefix + "chain_length"},
	{"package length", FieldPackageLength},
	{"package width", FieldPackageWidth},
	{"package height", FieldPackageHeight},
	{"package weight", FieldPackageWeight},
	{"width (mm)", FieldVariantWidth},
	{"width mm", FieldVariantWidth},
	{"drop (mm)", FieldVariantDrop},
	{"drop mm", FieldVariantDrop},
	{"width", FieldVariantWidth},
	{"drop", FieldVariantDrop},
}

// Flat keyword table, the last resort. Order matters: "cost price" contains
// "price", "parent sku" contains "sku".
var flatKeywordRules = []keywordRule{
	{"parent sku", FieldParentSKU},
	{"parent name", FieldParentName},
	{"is parent", FieldIsParent},
	{"parent", FieldParentName},
	{"barcode", FieldBarcode},
	{"ean", FieldBarcode},
	{"gtin", FieldBarcode},
	{"upc", FieldBarcode},
	{"sku", FieldVariantSKU},
	{"item code", FieldVariantSKU},
	{"colour", FieldVariantColor},
	{"color", FieldVariantColor},
	{"size", FieldVariantSize},
	{"cost", FieldCostPrice},
	{"rrp", FieldRetailPrice},
	{"retail", FieldRetailPrice},
	{"price", FieldRetailPrice},
	{"stock", FieldStockLevel},
	{"quantity", FieldStockLevel},
	{"qty", FieldStockLevel},
	{"weight", FieldPackageWeight},
	{"description", FieldDescription},
	{"status", FieldStatus},
	{"product", FieldProductName},
	{"title", FieldProductName},
	{"name", FieldProductName},
}

// Guess maps one raw header to a semantic field name, or "" when no rule
// matches. Rule groups run in priority order; first match wins.
func (m *HeaderMapper) Guess(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return ""
	}

	if field := numberedFieldGuess(h); field != "" {
		return field
	}
	for _, groups := range [][]keywordRule{
		marketplaceCompoundRules,
		marketplaceIdentifierRules,
		attributeKeywordRules,
		variantAttributeRules,
		flatKeywordRules,
	} {
		for _, rule := range groups {
			if strings.Contains(h, rule.Keyword) {
				return rule.Field
			}
		}
	}
	return ""
}

// ProposeMapping guesses a field for every column of a header row
func (m *HeaderMapper) ProposeMapping(headers []string) map[int]string {
	mapping := make(map[int]string, len(headers))
	for i, h := range headers {
		mapping[i] = m.Guess(h)
	}
	return mapping
}

func numberedFieldGuess(h string) string {
	if match := featureNumberPattern.FindStringSubmatch(h); match != nil {
		return fmt.Sprintf("feature_%d", clampFieldNumber(match[1]))
	}
	if match := detailNumberPattern.FindStringSubmatch(h); match != nil {
		return fmt.Sprintf("detail_%d", clampFieldNumber(match[1]))
	}
	return ""
}

func clampFieldNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}
