package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
	ImportFormatXLS  ImportFormat = "xls"
)

// ImportMode controls how existing records are treated during commit
type ImportMode string

const (
	ImportModeCreateOnly     ImportMode = "create_only"
	ImportModeUpdateExisting ImportMode = "update_existing"
	ImportModeCreateOrUpdate ImportMode = "create_or_update"
)

// Valid reports whether the mode is one of the three supported values
func (m ImportMode) Valid() bool {
	switch m {
	case ImportModeCreateOnly, ImportModeUpdateExisting, ImportModeCreateOrUpdate:
		return true
	}
	return false
}

// ImportStep is the wizard step a session is currently on.
// Steps are strictly forward-progressing except an explicit go-back.
type ImportStep int

const (
	StepUpload ImportStep = iota + 1
	StepWorksheets
	StepMapping
	StepDryRun
	StepCommit
)

// ImportSettings are the feature toggles attached to an import session
type ImportSettings struct {
	Mode                     ImportMode `json:"mode"`
	SmartAttributeExtraction bool       `json:"smartAttributeExtraction"`
	AutoAssignBarcodes       bool       `json:"autoAssignBarcodes"`
	AutoCreateParents        bool       `json:"autoCreateParents"`
	AutoGenerateParentMode   bool       `json:"autoGenerateParentMode"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Sheet   string `json:"sheet,omitempty"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DryRunResult is the outcome of a bounded read-only import simulation
type DryRunResult struct {
	ValidRows         int              `json:"validRows"`
	ErrorRows         int              `json:"errorRows"`
	Errors            []ImportRowError `json:"errors,omitempty"`
	Warnings          []string         `json:"warnings,omitempty"`
	ProductsToCreate  int              `json:"productsToCreate"`
	ProductsToUpdate  int              `json:"productsToUpdate"`
	ProductsToSkip    int              `json:"productsToSkip"`
	VariantsToCreate  int              `json:"variantsToCreate"`
	VariantsToUpdate  int              `json:"variantsToUpdate"`
	VariantsToSkip    int              `json:"variantsToSkip"`
	BarcodesNeeded    int              `json:"barcodesNeeded"`
	BarcodesAvailable int64            `json:"barcodesAvailable"`
}

// CommitResult is the outcome of a full import commit
type CommitResult struct {
	SheetsProcessed int              `json:"sheetsProcessed"`
	TotalSheets     int              `json:"totalSheets"`
	ProductsCreated int              `json:"productsCreated"`
	ProductsUpdated int              `json:"productsUpdated"`
	ProductsSkipped int              `json:"productsSkipped"`
	VariantsCreated int              `json:"variantsCreated"`
	VariantsUpdated int              `json:"variantsUpdated"`
	VariantsSkipped int              `json:"variantsSkipped"`
	Errors          []ImportRowError `json:"errors,omitempty"`
	ProcessingMs    int64            `json:"processingMs"`
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, boolean
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// SelectWorksheetsRequest selects the worksheets to import (wizard step 2)
type SelectWorksheetsRequest struct {
	Worksheets []string `json:"worksheets" binding:"required,min=1"`
}

// ConfirmMappingRequest confirms the column mapping and settings (step 3)
type ConfirmMappingRequest struct {
	Columns  map[int]string `json:"columns" binding:"required"`
	Settings ImportSettings `json:"settings"`
}

// LoadPoolRequest uploads pre-provisioned GS1 codes into the barcode pool
type LoadPoolRequest struct {
	Codes []string `json:"codes" binding:"required,min=1"`
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name        string        `json:"name" binding:"required"`
	ParentSKU   *string       `json:"parentSku,omitempty"`
	Description *string       `json:"description,omitempty"`
	Features    []string      `json:"features,omitempty"`
	Details     []string      `json:"details,omitempty"`
	Status      ProductStatus `json:"status,omitempty"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name        *string        `json:"name,omitempty"`
	ParentSKU   *string        `json:"parentSku,omitempty"`
	Description *string        `json:"description,omitempty"`
	Features    []string       `json:"features,omitempty"`
	Details     []string       `json:"details,omitempty"`
	Status      *ProductStatus `json:"status,omitempty"`
}

// CreateVariantRequest represents a request to create a product variant
type CreateVariantRequest struct {
	SKU           string            `json:"sku" binding:"required"`
	StockLevel    *int              `json:"stockLevel,omitempty"`
	PackageLength *float64          `json:"packageLength,omitempty"`
	PackageWidth  *float64          `json:"packageWidth,omitempty"`
	PackageHeight *float64          `json:"packageHeight,omitempty"`
	PackageWeight *float64          `json:"packageWeight,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// PaginationInfo describes list pagination state
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
