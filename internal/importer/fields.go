package importer

import (
	"fmt"
	"sort"
	"strings"

	"pim-service/internal/models"
)

// Semantic field names a spreadsheet column can be mapped to. Columns mapped
// to "" are ignored during commit but stay visible for manual assignment.
const (
	FieldProductName = "product_name"
	FieldParentName  = "parent_name"
	FieldParentSKU   = "parent_sku"
	FieldIsParent    = "is_parent"
	FieldDescription = "description"
	FieldStatus      = "status"

	FieldVariantSKU   = "variant_sku"
	FieldVariantColor = "variant_color"
	FieldVariantSize  = "variant_size"
	FieldVariantWidth = "variant_width"
	FieldVariantDrop  = "variant_drop"
	FieldStockLevel   = "stock_level"
	FieldBarcode      = "barcode"

	FieldRetailPrice   = "retail_price"
	FieldCostPrice     = "cost_price"
	FieldPackageLength = "package_length"
	FieldPackageWidth  = "package_width"
	FieldPackageHeight = "package_height"
	FieldPackageWeight = "package_weight"
)

// Prefixes of the two free-form attribute field families
const (
	AttributeFieldPrefix        = "attribute_"
	VariantAttributeFieldPrefix = "variant_attribute_"
)

// Marketplace names used for pricing, listings and identifiers
const (
	MarketplaceWebsite   = "website"
	MarketplaceEbay      = "ebay"
	MarketplaceEbayBO    = "ebay_bo"
	MarketplaceAmazon    = "amazon"
	MarketplaceAmazonFBA = "amazon_fba"
	MarketplaceOnBuy     = "onbuy"
)

// Marketplaces lists every marketplace with per-channel fields
func Marketplaces() []string {
	return []string{
		MarketplaceWebsite,
		MarketplaceEbay,
		MarketplaceEbayBO,
		MarketplaceAmazon,
		MarketplaceAmazonFBA,
		MarketplaceOnBuy,
	}
}

// marketplaceFieldKind classifies what a marketplace-scoped field carries
type marketplaceFieldKind int

const (
	marketplaceTitle marketplaceFieldKind = iota
	marketplaceDescription
	marketplacePrice
	marketplaceIdentifier
)

type marketplaceField struct {
	Marketplace    string
	Kind           marketplaceFieldKind
	IdentifierType string // only for marketplaceIdentifier
}

// marketplaceFieldTable maps semantic field names to their marketplace slot.
// Identifier types follow the channel's own vocabulary (ASIN, item id, ...).
var marketplaceFieldTable = map[string]marketplaceField{
	"website_title":       {MarketplaceWebsite, marketplaceTitle, ""},
	"website_description": {MarketplaceWebsite, marketplaceDescription, ""},
	"ebay_title":          {MarketplaceEbay, marketplaceTitle, ""},
	"ebay_description":    {MarketplaceEbay, marketplaceDescription, ""},
	"ebay_price":          {MarketplaceEbay, marketplacePrice, ""},
	"ebay_item_id":        {MarketplaceEbay, marketplaceIdentifier, "item_id"},
	"ebay_bo_title":       {MarketplaceEbayBO, marketplaceTitle, ""},
	"ebay_bo_description": {MarketplaceEbayBO, marketplaceDescription, ""},
	"ebay_bo_price":       {MarketplaceEbayBO, marketplacePrice, ""},
	"ebay_bo_item_id":     {MarketplaceEbayBO, marketplaceIdentifier, "item_id"},
	"amazon_title":        {MarketplaceAmazon, marketplaceTitle, ""},
	"amazon_description":  {MarketplaceAmazon, marketplaceDescription, ""},
	"amazon_price":        {MarketplaceAmazon, marketplacePrice, ""},
	"amazon_asin":         {MarketplaceAmazon, marketplaceIdentifier, "asin"},
	"amazon_fba_title":    {MarketplaceAmazonFBA, marketplaceTitle, ""},
	"amazon_fba_price":    {MarketplaceAmazonFBA, marketplacePrice, ""},
	"amazon_fba_asin":     {MarketplaceAmazonFBA, marketplaceIdentifier, "asin"},
	"onbuy_title":         {MarketplaceOnBuy, marketplaceTitle, ""},
	"onbuy_description":   {MarketplaceOnBuy, marketplaceDescription, ""},
	"onbuy_price":         {MarketplaceOnBuy, marketplacePrice, ""},
	"onbuy_product_id":    {MarketplaceOnBuy, marketplaceIdentifier, "product_id"},
	"website_product_id":  {MarketplaceWebsite, marketplaceIdentifier, "product_id"},
}

// attributeCategoryTable maps attribute keys to their category. Keys not
// listed fall back to "general".
var attributeCategoryTable = map[string]models.AttributeCategory{
	"material":      models.AttributeCategoryPhysical,
	"fabric":        models.AttributeCategoryPhysical,
	"colour_group":  models.AttributeCategoryPhysical,
	"finish":        models.AttributeCategoryPhysical,
	"chain_length":  models.AttributeCategoryPhysical,
	"mount":         models.AttributeCategoryFunctional,
	"operation":     models.AttributeCategoryFunctional,
	"motorised":     models.AttributeCategoryFunctional,
	"light_filter":  models.AttributeCategoryFunctional,
	"fire_rating":   models.AttributeCategoryCompliance,
	"child_safety":  models.AttributeCategoryCompliance,
	"certification": models.AttributeCategoryCompliance,
}

// AttributeCategoryFor returns the category for an attribute key
func AttributeCategoryFor(key string) models.AttributeCategory {
	if cat, ok := attributeCategoryTable[strings.ToLower(key)]; ok {
		return cat
	}
	return models.AttributeCategoryGeneral
}

// MarketplaceFields collects everything mapped for one variant on one channel
type MarketplaceFields struct {
	Title          string
	Description    string
	Price          string
	Identifier     string
	IdentifierType string
}

// MappedRow is one raw spreadsheet row after the column mapping has been
// applied. It is ephemeral and recomputed per row.
type MappedRow struct {
	Sheet  string
	RowNum int

	ProductName string
	ParentName  string
	ParentSKU   string
	IsParent    string
	Description string
	Status      string
	Features    [5]string
	Details     [5]string

	VariantSKU    string
	VariantColor  string
	VariantSize   string
	VariantWidth  string
	VariantDrop   string
	StockLevel    string
	Barcode       string
	RetailPrice   string
	CostPrice     string
	PackageLength string
	PackageWidth  string
	PackageHeight string
	PackageWeight string

	Marketplace       map[string]MarketplaceFields
	Attributes        map[string]string
	VariantAttributes map[string]string
}

// BuildMappedRow applies a column-index->field mapping to one raw row.
// This is the single place raw cells become typed row fields.
func BuildMappedRow(sheet string, rowNum int, mapping map[int]string, raw []string) MappedRow {
	row := MappedRow{
		Sheet:             sheet,
		RowNum:            rowNum,
		Marketplace:       make(map[string]MarketplaceFields),
		Attributes:        make(map[string]string),
		VariantAttributes: make(map[string]string),
	}

	for idx, field := range mapping {
		if field == "" || idx < 0 || idx >= len(raw) {
			continue
		}
		value := strings.TrimSpace(raw[idx])
		if value == "" {
			continue
		}
		row.assign(field, value)
	}

	return row
}

func (r *MappedRow) assign(field, value string) {
	switch field {
	case FieldProductName:
		r.ProductName = value
	case FieldParentName:
		r.ParentName = value
	case FieldParentSKU:
		r.ParentSKU = value
	case FieldIsParent:
		r.IsParent = value
	case FieldDescription:
		r.Description = value
	case FieldStatus:
		r.Status = value
	case FieldVariantSKU:
		r.VariantSKU = value
	case FieldVariantColor:
		r.VariantColor = value
	case FieldVariantSize:
		r.VariantSize = value
	case FieldVariantWidth:
		r.VariantWidth = value
	case FieldVariantDrop:
		r.VariantDrop = value
	case FieldStockLevel:
		r.StockLevel = value
	case FieldBarcode:
		r.Barcode = value
	case FieldRetailPrice:
		r.RetailPrice = value
	case FieldCostPrice:
		r.CostPrice = value
	case FieldPackageLength:
		r.PackageLength = value
	case FieldPackageWidth:
		r.PackageWidth = value
	case FieldPackageHeight:
		r.PackageHeight = value
	case FieldPackageWeight:
		r.PackageWeight = value
	default:
		r.assignDynamic(field, value)
	}
}

func (r *MappedRow) assignDynamic(field, value string) {
	if n, ok := numberedField(field, "feature_"); ok {
		r.Features[n-1] = value
		return
	}
	if n, ok := numberedField(field, "detail_"); ok {
		r.Details[n-1] = value
		return
	}
	if mf, ok := marketplaceFieldTable[field]; ok {
		slot := r.Marketplace[mf.Marketplace]
		switch mf.Kind {
		case marketplaceTitle:
			slot.Title = value
		case marketplaceDescription:
			slot.Description = value
		case marketplacePrice:
			slot.Price = value
		case marketplaceIdentifier:
			slot.Identifier = value
			slot.IdentifierType = mf.IdentifierType
		}
		r.Marketplace[mf.Marketplace] = slot
		return
	}
	// variant_attribute_ must be tested before attribute_: both are prefixes
	if key, ok := strings.CutPrefix(field, VariantAttributeFieldPrefix); ok && key != "" {
		r.VariantAttributes[key] = value
		return
	}
	if key, ok := strings.CutPrefix(field, AttributeFieldPrefix); ok && key != "" {
		r.Attributes[key] = value
	}
}

// numberedField parses fields like feature_3 / detail_2, clamped to 1..5
func numberedField(field, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(field, prefix)
	if !ok || len(rest) != 1 || rest[0] < '1' || rest[0] > '5' {
		return 0, false
	}
	return int(rest[0] - '0'), true
}

// FeatureList returns the populated features in order
func (r *MappedRow) FeatureList() []string {
	var out []string
	for _, f := range r.Features {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// DetailList returns the populated details in order
func (r *MappedRow) DetailList() []string {
	var out []string
	for _, d := range r.Details {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Fields returns the full mapping vocabulary for the mapping UI and templates
func Fields() []models.ImportTemplateColumn {
	cols := []models.ImportTemplateColumn{
		{Name: FieldProductName, Description: "Product name", Required: true, Type: "string", Example: "Aurora Roller Shade"},
		{Name: FieldParentName, Description: "Explicit parent product name", Type: "string", Example: "Aurora Roller Shade"},
		{Name: FieldParentSKU, Description: "Parent product SKU", Type: "string", Example: "100"},
		{Name: FieldIsParent, Description: "Row is a parent product (true/1/yes/parent)", Type: "boolean", Example: "no"},
		{Name: FieldDescription, Description: "Product description", Type: "string", Example: ""},
		{Name: FieldStatus, Description: "active, inactive or discontinued", Type: "string", Example: "active"},
		{Name: FieldVariantSKU, Description: "Unique variant SKU", Required: true, Type: "string", Example: "100-001"},
		{Name: FieldVariantColor, Description: "Variant colour", Type: "string", Example: "White"},
		{Name: FieldVariantSize, Description: "Variant size label", Type: "string", Example: "100x160"},
		{Name: FieldVariantWidth, Description: "Width in mm", Type: "number", Example: "1000"},
		{Name: FieldVariantDrop, Description: "Drop in mm", Type: "number", Example: "1600"},
		{Name: FieldStockLevel, Description: "Stock on hand", Type: "number", Example: "25"},
		{Name: FieldBarcode, Description: "Explicit barcode (type auto-detected)", Type: "string", Example: "5012345678900"},
		{Name: FieldRetailPrice, Description: "Website retail price", Type: "number", Example: "29.99"},
		{Name: FieldCostPrice, Description: "Cost price", Type: "number", Example: "11.50"},
		{Name: FieldPackageLength, Description: "Package length (cm)", Type: "number", Example: "110"},
		{Name: FieldPackageWidth, Description: "Package width (cm)", Type: "number", Example: "12"},
		{Name: FieldPackageHeight, Description: "Package height (cm)", Type: "number", Example: "12"},
		{Name: FieldPackageWeight, Description: "Package weight (kg)", Type: "number", Example: "2.4"},
	}
	for i := 1; i <= 5; i++ {
		cols = append(cols, models.ImportTemplateColumn{
			Name: fmt.Sprintf("feature_%d", i), Description: fmt.Sprintf("Feature bullet %d", i), Type: "string",
		})
	}
	for i := 1; i <= 5; i++ {
		cols = append(cols, models.ImportTemplateColumn{
			Name: fmt.Sprintf("detail_%d", i), Description: fmt.Sprintf("Detail line %d", i), Type: "string",
		})
	}
	for _, name := range sortedMarketplaceFieldNames() {
		cols = append(cols, models.ImportTemplateColumn{
			Name: name, Description: "Marketplace field", Type: "string",
		})
	}
	cols = append(cols,
		models.ImportTemplateColumn{Name: AttributeFieldPrefix + "*", Description: "Free-form product attribute family", Type: "string", Example: "attribute_material"},
		models.ImportTemplateColumn{Name: VariantAttributeFieldPrefix + "*", Description: "Free-form variant attribute family", Type: "string", Example: "variant_attribute_chain_length"},
	)
	return cols
}

func sortedMarketplaceFieldNames() []string {
	names := make([]string, 0, len(marketplaceFieldTable))
	for name := range marketplaceFieldTable {
		names = append(names, name)
	}
	// deterministic order for templates and docs
	sort.Strings(names)
	return names
}

// KnownField reports whether a field name belongs to the vocabulary,
// including the numbered and free-form families
func KnownField(field string) bool {
	switch field {
	case FieldProductName, FieldParentName, FieldParentSKU, FieldIsParent,
		FieldDescription, FieldStatus, FieldVariantSKU, FieldVariantColor,
		FieldVariantSize, FieldVariantWidth, FieldVariantDrop, FieldStockLevel,
		FieldBarcode, FieldRetailPrice, FieldCostPrice, FieldPackageLength,
		FieldPackageWidth, FieldPackageHeight, FieldPackageWeight:
		return true
	}
	if _, ok := marketplaceFieldTable[field]; ok {
		return true
	}
	if _, ok := numberedField(field, "feature_"); ok {
		return true
	}
	if _, ok := numberedField(field, "detail_"); ok {
		return true
	}
	if key, ok := strings.CutPrefix(field, VariantAttributeFieldPrefix); ok {
		return key != ""
	}
	if key, ok := strings.CutPrefix(field, AttributeFieldPrefix); ok {
		return key != ""
	}
	return false
}
