package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductStatus represents the lifecycle status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// AttributeDataType declares how an attribute value should be interpreted
type AttributeDataType string

const (
	AttributeTypeString  AttributeDataType = "string"
	AttributeTypeNumber  AttributeDataType = "number"
	AttributeTypeBoolean AttributeDataType = "boolean"
	AttributeTypeJSON    AttributeDataType = "json"
)

// AttributeCategory groups attributes for display and filtering
type AttributeCategory string

const (
	AttributeCategoryPhysical   AttributeCategory = "physical"
	AttributeCategoryFunctional AttributeCategory = "functional"
	AttributeCategoryCompliance AttributeCategory = "compliance"
	AttributeCategoryGeneral    AttributeCategory = "general"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// JSONArray type for PostgreSQL JSONB (array)
type JSONArray []interface{}

func (j JSONArray) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONArray, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Product represents a product line. A product with ParentSKU == nil is
// itself a parent; children are associated through ProductVariant.ProductID,
// never through a parent_sku chain.
type Product struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name          string            `json:"name" gorm:"not null;index"`
	Slug          string            `json:"slug" gorm:"not null;uniqueIndex"`
	ParentSKU     *string           `json:"parentSku,omitempty" gorm:"column:parent_sku;index"`
	Description   *string           `json:"description,omitempty"`
	Features      *JSONArray        `json:"features,omitempty" gorm:"type:jsonb"` // up to 5
	Details       *JSONArray        `json:"details,omitempty" gorm:"type:jsonb"`  // up to 5
	Status        ProductStatus     `json:"status" gorm:"not null;default:'active';index"`
	AutoGenerated bool              `json:"autoGenerated" gorm:"not null;default:false;index"`
	Variants      []*ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	DeletedAt     *gorm.DeletedAt   `json:"deletedAt,omitempty" gorm:"index"`
}

// ProductVariant represents a concrete sellable SKU under a parent product.
// Color/width/drop live in VariantAttribute rows, not columns.
type ProductVariant struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID     uuid.UUID       `json:"productId" gorm:"type:uuid;not null;index"`
	SKU           string          `json:"sku" gorm:"not null;uniqueIndex"`
	StockLevel    int             `json:"stockLevel" gorm:"not null;default:0"`
	PackageLength *float64        `json:"packageLength,omitempty"`
	PackageWidth  *float64        `json:"packageWidth,omitempty"`
	PackageHeight *float64        `json:"packageHeight,omitempty"`
	PackageWeight *float64        `json:"packageWeight,omitempty"`
	Status        ProductStatus   `json:"status" gorm:"not null;default:'active'"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeletedAt     *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// ProductAttribute is a key-value attribute scoped to a product.
// Upserted by (product_id, attribute_key).
type ProductAttribute struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID         `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_product_attribute_key"`
	Key       string            `json:"key" gorm:"column:attribute_key;not null;uniqueIndex:idx_product_attribute_key"`
	Value     string            `json:"value" gorm:"not null"`
	DataType  AttributeDataType `json:"dataType" gorm:"not null;default:'string'"`
	Category  AttributeCategory `json:"category" gorm:"not null;default:'general'"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// VariantAttribute is a key-value attribute scoped to a variant.
// Upserted by (variant_id, attribute_key). The (color, width, drop) triple
// doubles as the variant identity fallback when no SKU is available.
type VariantAttribute struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VariantID uuid.UUID         `json:"variantId" gorm:"type:uuid;not null;uniqueIndex:idx_variant_attribute_key"`
	Key       string            `json:"key" gorm:"column:attribute_key;not null;uniqueIndex:idx_variant_attribute_key"`
	Value     string            `json:"value" gorm:"not null"`
	DataType  AttributeDataType `json:"dataType" gorm:"not null;default:'string'"`
	Category  AttributeCategory `json:"category" gorm:"not null;default:'general'"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Barcode belongs to exactly one variant. PoolID is set when the value was
// drawn from the GS1 pool rather than supplied in the import file.
type Barcode struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VariantID uuid.UUID  `json:"variantId" gorm:"type:uuid;not null;index"`
	Value     string     `json:"value" gorm:"not null;uniqueIndex"`
	Type      string     `json:"type" gorm:"not null;default:'EAN13'"`
	PoolID    *uuid.UUID `json:"poolId,omitempty" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"createdAt"`
}

// BarcodePoolEntry is a pre-provisioned GS1 code awaiting assignment.
// An entry is marked used exactly once and is never released back.
type BarcodePoolEntry struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Code            string     `json:"code" gorm:"not null;uniqueIndex"`
	Used            bool       `json:"used" gorm:"not null;default:false;index"`
	UsedByVariantID *uuid.UUID `json:"usedByVariantId,omitempty" gorm:"type:uuid"`
	UsedAt          *time.Time `json:"usedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Pricing holds one row per (variant, marketplace) pair.
type Pricing struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VariantID   uuid.UUID `json:"variantId" gorm:"type:uuid;not null;uniqueIndex:idx_pricing_variant_marketplace"`
	Marketplace string    `json:"marketplace" gorm:"not null;uniqueIndex:idx_pricing_variant_marketplace"`
	RetailPrice float64   `json:"retailPrice" gorm:"not null"`
	CostPrice   *float64  `json:"costPrice,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarketplaceVariant is a per-marketplace listing for a variant, created only
// when the corresponding mapped title field is non-empty.
type MarketplaceVariant struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VariantID     uuid.UUID `json:"variantId" gorm:"type:uuid;not null;uniqueIndex:idx_marketplace_variant"`
	Marketplace   string    `json:"marketplace" gorm:"not null;uniqueIndex:idx_marketplace_variant"`
	Title         string    `json:"title" gorm:"not null"`
	Description   *string   `json:"description,omitempty"`
	PriceOverride *float64  `json:"priceOverride,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MarketplaceBarcode is a per-marketplace identifier (ASIN, eBay item id, ...)
// keyed by (variant, marketplace, identifier_type).
type MarketplaceBarcode struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VariantID      uuid.UUID `json:"variantId" gorm:"type:uuid;not null;uniqueIndex:idx_marketplace_barcode"`
	Marketplace    string    `json:"marketplace" gorm:"not null;uniqueIndex:idx_marketplace_barcode"`
	IdentifierType string    `json:"identifierType" gorm:"not null;uniqueIndex:idx_marketplace_barcode"`
	Value          string    `json:"value" gorm:"not null"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ImportMapping is the persisted mapping memory: a confirmed column->field
// mapping plus import settings, keyed by a signature of the header list.
type ImportMapping struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HeaderSignature string    `json:"headerSignature" gorm:"not null;uniqueIndex"`
	Columns         JSON      `json:"columns" gorm:"type:jsonb;not null"`
	Settings        JSON      `json:"settings" gorm:"type:jsonb"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the ProductVariant model
func (ProductVariant) TableName() string {
	return "product_variants"
}

// TableName returns the table name for the ProductAttribute model
func (ProductAttribute) TableName() string {
	return "product_attributes"
}

// TableName returns the table name for the VariantAttribute model
func (VariantAttribute) TableName() string {
	return "variant_attributes"
}

// TableName returns the table name for the Barcode model
func (Barcode) TableName() string {
	return "barcodes"
}

// TableName returns the table name for the BarcodePoolEntry model
func (BarcodePoolEntry) TableName() string {
	return "barcode_pool"
}

// TableName returns the table name for the Pricing model
func (Pricing) TableName() string {
	return "pricing"
}

// TableName returns the table name for the MarketplaceVariant model
func (MarketplaceVariant) TableName() string {
	return "marketplace_variants"
}

// TableName returns the table name for the MarketplaceBarcode model
func (MarketplaceBarcode) TableName() string {
	return "marketplace_barcodes"
}

// TableName returns the table name for the ImportMapping model
func (ImportMapping) TableName() string {
	return "import_mappings"
}
