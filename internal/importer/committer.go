package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"pim-service/internal/models"
)

// Notifier receives catalog-change notifications after a commit transaction
// succeeds. Implemented by events.Publisher; a nil Notifier disables events.
type Notifier interface {
	ProductChanged(ctx context.Context, product *models.Product, action Action)
	VariantChanged(ctx context.Context, variant *models.ProductVariant, action Action)
	ImportCompleted(ctx context.Context, result *models.CommitResult)
}

// Committer applies a confirmed import to the catalog. The whole run executes
// inside one database transaction: a storage failure rolls everything back,
// while per-row input problems are recorded and the run continues.
type Committer struct {
	store     Store
	resolver  *IdentityResolver
	grouper   *SimilarityGrouper
	extractor *AttributeExtractor
	validator *RowValidator
	notifier  Notifier
	logger    *logrus.Entry
}

// NewCommitter returns a Committer. notifier may be nil.
func NewCommitter(store Store, resolver *IdentityResolver, grouper *SimilarityGrouper, extractor *AttributeExtractor, notifier Notifier, logger *logrus.Logger) *Committer {
	return &Committer{
		store:     store,
		resolver:  resolver,
		grouper:   grouper,
		extractor: extractor,
		validator: NewRowValidator(),
		notifier:  notifier,
		logger:    logger.WithField("component", "import-committer"),
	}
}

// pendingEvent is a catalog change buffered until the transaction commits
type pendingEvent struct {
	product *models.Product
	variant *models.ProductVariant
	action  Action
}

// commitRun carries the mutable state of one commit transaction
type commitRun struct {
	tx       Store
	settings models.ImportSettings
	result   *models.CommitResult
	events   []pendingEvent
}

// Commit processes every selected worksheet. Returns the commit result; a
// non-nil error means the transaction rolled back and nothing was written.
func (c *Committer) Commit(ctx context.Context, session ImportSession, wb *Workbook) (*models.CommitResult, error) {
	start := time.Now()
	result := &models.CommitResult{TotalSheets: len(session.Worksheets)}
	run := &commitRun{settings: session.Settings, result: result}

	err := c.store.Transaction(ctx, func(tx Store) error {
		run.tx = tx
		for _, sheet := range session.Worksheets {
			rows, err := c.loadRows(wb, sheet, session.Mapping)
			if err != nil {
				return fmt.Errorf("worksheet %q: %w", sheet, err)
			}
			valid := c.validateRows(rows, session.Settings, result)

			if session.Settings.AutoGenerateParentMode {
				if err := c.commitGrouped(ctx, run, valid); err != nil {
					return err
				}
			} else {
				if err := c.commitStandard(ctx, run, valid); err != nil {
					return err
				}
			}
			result.SheetsProcessed++
		}
		return nil
	})
	result.ProcessingMs = time.Since(start).Milliseconds()
	if err != nil {
		return result, err
	}

	c.publish(ctx, run)

	c.logger.WithFields(logrus.Fields{
		"sheets":          result.SheetsProcessed,
		"productsCreated": result.ProductsCreated,
		"variantsCreated": result.VariantsCreated,
		"errors":          len(result.Errors),
		"durationMs":      result.ProcessingMs,
	}).Info("import committed")

	return result, nil
}

func (c *Committer) loadRows(wb *Workbook, sheet string, mapping map[int]string) ([]MappedRow, error) {
	var rows []MappedRow
	err := wb.ReadDataRows(sheet, 0, func(rowNum int, cells []string) error {
		rows = append(rows, BuildMappedRow(sheet, rowNum, mapping, cells))
		return nil
	})
	return rows, err
}

func (c *Committer) validateRows(rows []MappedRow, settings models.ImportSettings, result *models.CommitResult) []MappedRow {
	valid := make([]MappedRow, 0, len(rows))
	for _, row := range rows {
		if errs := c.validator.Validate(row, settings); len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}
		valid = append(valid, row)
	}
	return valid
}

// commitGrouped is the two-phase flow for flat variant-only sheets: phase one
// resolves or creates every inferred parent, phase two attaches variants.
// Creating all parents first means a variant row never races its own parent.
func (c *Committer) commitGrouped(ctx context.Context, run *commitRun, rows []MappedRow) error {
	groups := c.grouper.Group(rows)

	parents := make(map[string]*models.Product, len(groups))
	for _, group := range groups {
		product, err := c.ensureGroupParent(ctx, run, group)
		if err != nil {
			return err
		}
		parents[group.Key] = product
	}

	for _, group := range groups {
		parent := parents[group.Key]
		for _, row := range group.Products {
			row := row
			c.containRow(ctx, run, row, func() error {
				return c.commitVariantRow(ctx, run, parent, row)
			})
		}
	}
	return nil
}

// containRow runs one row's writes inside a nested transaction. A failing row
// rolls back only its own writes and is recorded against its row number; the
// sheet keeps going. Errors outside any row's scope still abort the import.
func (c *Committer) containRow(ctx context.Context, run *commitRun, row MappedRow, fn func() error) {
	snapshot := *run.result
	eventsLen := len(run.events)
	outer := run.tx

	err := outer.Transaction(ctx, func(rowTx Store) error {
		run.tx = rowTx
		return fn()
	})
	run.tx = outer
	if err == nil {
		return
	}

	*run.result = snapshot
	run.events = run.events[:eventsLen]
	run.result.Errors = append(run.result.Errors, models.ImportRowError{
		Sheet: row.Sheet, Row: row.RowNum,
		Code:    "ROW_FAILED",
		Message: err.Error(),
	})
	c.logger.WithError(err).WithFields(logrus.Fields{
		"sheet": row.Sheet,
		"row":   row.RowNum,
	}).Warn("row rolled back, continuing with the sheet")
}

// ensureGroupParent resolves one group's parent product, creating it as an
// auto-generated product when the mode allows.
func (c *Committer) ensureGroupParent(ctx context.Context, run *commitRun, group ParentGroup) (*models.Product, error) {
	product, err := c.resolver.ResolveGroupParent(ctx, run.tx, group)
	if err != nil {
		return nil, err
	}

	switch ResolveAction(run.settings.Mode, product != nil) {
	case ActionCreate:
		product = &models.Product{
			Name:          group.Parent.Name,
			Description:   optionalString(group.Parent.Description),
			Features:      jsonArray(group.Parent.Features),
			Details:       jsonArray(group.Parent.Details),
			Status:        models.ProductStatusActive,
			AutoGenerated: true,
		}
		if group.Parent.SKUPrefix != "" {
			product.ParentSKU = &group.Parent.SKUPrefix
		}
		if err := c.createProduct(ctx, run, product); err != nil {
			return nil, err
		}
	case ActionUpdate:
		c.applyParentInfo(product, group.Parent)
		if err := run.tx.UpdateProduct(ctx, product); err != nil {
			return nil, err
		}
		run.result.ProductsUpdated++
		run.events = append(run.events, pendingEvent{product: product, action: ActionUpdate})
	default:
		run.result.ProductsSkipped++
	}
	return product, nil
}

// commitStandard processes rows one at a time, honoring explicit parent rows
func (c *Committer) commitStandard(ctx context.Context, run *commitRun, rows []MappedRow) error {
	// cache resolved parents so sibling rows share one lookup and one create
	parents := make(map[string]*models.Product)

	for _, row := range rows {
		row := row
		if IsParentRow(row) {
			c.containRow(ctx, run, row, func() error {
				product, err := c.commitParentRow(ctx, run, row)
				if err != nil {
					return err
				}
				if product != nil {
					parents[productKey(row)] = product
				}
				return nil
			})
			continue
		}

		c.containRow(ctx, run, row, func() error {
			product, ok := parents[productKey(row)]
			if !ok {
				var err error
				product, err = c.resolveOrCreateParent(ctx, run, row)
				if err != nil {
					return err
				}
			}
			if err := c.commitVariantRow(ctx, run, product, row); err != nil {
				return err
			}
			// cache only after the row sticks, a rolled-back parent must
			// not be reused by sibling rows
			parents[productKey(row)] = product
			return nil
		})
	}
	return nil
}

// commitParentRow applies a row explicitly flagged as a parent product
func (c *Committer) commitParentRow(ctx context.Context, run *commitRun, row MappedRow) (*models.Product, error) {
	product, err := c.resolver.ResolveProduct(ctx, run.tx, row)
	if err != nil {
		return nil, err
	}

	switch ResolveAction(run.settings.Mode, product != nil) {
	case ActionCreate:
		product = c.productFromRow(row, false)
		if err := c.createProduct(ctx, run, product); err != nil {
			return nil, err
		}
	case ActionUpdate:
		c.applyRowToProduct(product, row)
		if err := run.tx.UpdateProduct(ctx, product); err != nil {
			return nil, err
		}
		run.result.ProductsUpdated++
		run.events = append(run.events, pendingEvent{product: product, action: ActionUpdate})
	default:
		run.result.ProductsSkipped++
	}

	if product != nil {
		if err := c.applyProductAttributes(ctx, run, product, row); err != nil {
			return nil, err
		}
	}
	return product, nil
}

// resolveOrCreateParent finds the product a variant row belongs to, creating
// an implicit parent when auto-create is on. A missing parent with auto-create
// off is a row-level problem handled by the caller, not a commit failure.
func (c *Committer) resolveOrCreateParent(ctx context.Context, run *commitRun, row MappedRow) (*models.Product, error) {
	product, err := c.resolver.ResolveProduct(ctx, run.tx, row)
	if err != nil {
		return nil, err
	}
	if product != nil {
		run.result.ProductsSkipped++
		return product, nil
	}
	if !run.settings.AutoCreateParents || ResolveAction(run.settings.Mode, false) != ActionCreate {
		run.result.ProductsSkipped++
		return nil, nil
	}

	product = c.productFromRow(row, true)
	if err := c.createProduct(ctx, run, product); err != nil {
		return nil, err
	}
	return product, nil
}

// commitVariantRow is the shared variant routine used by both flows
func (c *Committer) commitVariantRow(ctx context.Context, run *commitRun, product *models.Product, row MappedRow) error {
	variant, err := c.resolver.ResolveVariant(ctx, run.tx, productIDOf(product), row, run.settings.SmartAttributeExtraction)
	if err != nil {
		return err
	}

	action := ResolveAction(run.settings.Mode, variant != nil)
	switch action {
	case ActionCreate:
		if product == nil {
			run.result.Errors = append(run.result.Errors, models.ImportRowError{
				Sheet: row.Sheet, Row: row.RowNum, Column: FieldParentName,
				Code:    "PARENT_NOT_FOUND",
				Message: "no parent product exists for this row and automatic parent creation is disabled",
			})
			return nil
		}
		variant = &models.ProductVariant{
			ProductID: product.ID,
			SKU:       row.VariantSKU,
			Status:    models.ProductStatusActive,
		}
		c.applyRowToVariant(variant, row)
		if err := run.tx.CreateVariant(ctx, variant); err != nil {
			return err
		}
		run.result.VariantsCreated++
		run.events = append(run.events, pendingEvent{variant: variant, action: ActionCreate})
	case ActionUpdate:
		c.applyRowToVariant(variant, row)
		if err := run.tx.UpdateVariant(ctx, variant); err != nil {
			return err
		}
		run.result.VariantsUpdated++
		run.events = append(run.events, pendingEvent{variant: variant, action: ActionUpdate})
	default:
		run.result.VariantsSkipped++
		return nil
	}

	return c.applyVariantDetails(ctx, run, variant, row)
}

// applyVariantDetails writes the satellite records of a created or updated
// variant: identity and free-form attributes, barcodes, pricing and
// marketplace listings.
func (c *Committer) applyVariantDetails(ctx context.Context, run *commitRun, variant *models.ProductVariant, row MappedRow) error {
	attrs := c.resolver.VariantIdentityAttrs(row, run.settings.SmartAttributeExtraction)
	if row.VariantSize != "" {
		attrs["size"] = row.VariantSize
	}
	for key, value := range row.VariantAttributes {
		attrs[key] = value
	}
	for key, value := range attrs {
		err := run.tx.UpsertVariantAttribute(ctx, &models.VariantAttribute{
			VariantID: variant.ID,
			Key:       key,
			Value:     value,
			DataType:  detectAttributeType(value),
			Category:  AttributeCategoryFor(key),
		})
		if err != nil {
			return err
		}
	}

	if err := c.assignBarcode(ctx, run, variant, row); err != nil {
		return err
	}

	if row.RetailPrice != "" {
		retail, _ := strconv.ParseFloat(row.RetailPrice, 64)
		err := run.tx.UpsertPricing(ctx, &models.Pricing{
			VariantID:   variant.ID,
			Marketplace: MarketplaceWebsite,
			RetailPrice: retail,
			CostPrice:   parseFloatPtr(row.CostPrice),
		})
		if err != nil {
			return err
		}
	}

	return c.applyMarketplaceFields(ctx, run, variant, row)
}

// assignBarcode attaches at most one barcode: an explicit value from the file
// wins, otherwise a pool code is claimed. A variant that already carries a
// barcode is left alone, and pool exhaustion during commit only degrades to
// an unassigned variant rather than failing the run.
func (c *Committer) assignBarcode(ctx context.Context, run *commitRun, variant *models.ProductVariant, row MappedRow) error {
	count, err := run.tx.VariantBarcodeCount(ctx, variant.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if row.Barcode != "" {
		return run.tx.CreateBarcode(ctx, &models.Barcode{
			VariantID: variant.ID,
			Value:     row.Barcode,
			Type:      barcodeType(row.Barcode),
		})
	}

	if !run.settings.AutoAssignBarcodes {
		return nil
	}
	entry, err := run.tx.ClaimPoolBarcode(ctx, variant.ID)
	if err != nil {
		return err
	}
	if entry == nil {
		c.logger.WithField("sku", variant.SKU).Warn("barcode pool exhausted, variant left without barcode")
		return nil
	}
	return run.tx.CreateBarcode(ctx, &models.Barcode{
		VariantID: variant.ID,
		Value:     entry.Code,
		Type:      barcodeType(entry.Code),
		PoolID:    &entry.ID,
	})
}

func (c *Committer) applyMarketplaceFields(ctx context.Context, run *commitRun, variant *models.ProductVariant, row MappedRow) error {
	for marketplace, fields := range row.Marketplace {
		if fields.Title != "" {
			err := run.tx.UpsertMarketplaceVariant(ctx, &models.MarketplaceVariant{
				VariantID:     variant.ID,
				Marketplace:   marketplace,
				Title:         fields.Title,
				Description:   optionalString(fields.Description),
				PriceOverride: parseFloatPtr(fields.Price),
			})
			if err != nil {
				return err
			}
		} else if fields.Price != "" {
			price, _ := strconv.ParseFloat(fields.Price, 64)
			err := run.tx.UpsertPricing(ctx, &models.Pricing{
				VariantID:   variant.ID,
				Marketplace: marketplace,
				RetailPrice: price,
			})
			if err != nil {
				return err
			}
		}
		if fields.Identifier != "" {
			err := run.tx.UpsertMarketplaceBarcode(ctx, &models.MarketplaceBarcode{
				VariantID:      variant.ID,
				Marketplace:    marketplace,
				IdentifierType: fields.IdentifierType,
				Value:          fields.Identifier,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Committer) applyProductAttributes(ctx context.Context, run *commitRun, product *models.Product, row MappedRow) error {
	for key, value := range row.Attributes {
		err := run.tx.UpsertProductAttribute(ctx, &models.ProductAttribute{
			ProductID: product.ID,
			Key:       key,
			Value:     value,
			DataType:  detectAttributeType(value),
			Category:  AttributeCategoryFor(key),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Committer) createProduct(ctx context.Context, run *commitRun, product *models.Product) error {
	slug, err := run.tx.NextUniqueSlug(ctx, product.Name)
	if err != nil {
		return err
	}
	product.Slug = slug
	if err := run.tx.CreateProduct(ctx, product); err != nil {
		return err
	}
	run.result.ProductsCreated++
	run.events = append(run.events, pendingEvent{product: product, action: ActionCreate})
	return nil
}

// productFromRow builds a new product from a row's product-level fields
func (c *Committer) productFromRow(row MappedRow, autoGenerated bool) *models.Product {
	name := row.ParentName
	if name == "" {
		name = row.ProductName
	}
	product := &models.Product{
		Name:          name,
		Description:   optionalString(row.Description),
		Features:      jsonArray(row.FeatureList()),
		Details:       jsonArray(row.DetailList()),
		Status:        productStatus(row.Status),
		AutoGenerated: autoGenerated,
	}
	if row.ParentSKU != "" {
		product.ParentSKU = &row.ParentSKU
	}
	return product
}

// applyRowToProduct overlays the row's non-empty product fields onto an
// existing product. Absent columns never blank stored values.
func (c *Committer) applyRowToProduct(product *models.Product, row MappedRow) {
	if row.Description != "" {
		product.Description = &row.Description
	}
	if features := row.FeatureList(); len(features) > 0 {
		product.Features = jsonArray(features)
	}
	if details := row.DetailList(); len(details) > 0 {
		product.Details = jsonArray(details)
	}
	if row.Status != "" {
		product.Status = productStatus(row.Status)
	}
	if row.ParentSKU != "" {
		product.ParentSKU = &row.ParentSKU
	}
}

func (c *Committer) applyParentInfo(product *models.Product, parent ParentInfo) {
	if parent.Description != "" {
		product.Description = &parent.Description
	}
	if len(parent.Features) > 0 {
		product.Features = jsonArray(parent.Features)
	}
	if len(parent.Details) > 0 {
		product.Details = jsonArray(parent.Details)
	}
}

// applyRowToVariant overlays the row's non-empty variant fields
func (c *Committer) applyRowToVariant(variant *models.ProductVariant, row MappedRow) {
	if row.StockLevel != "" {
		if stock, err := strconv.ParseFloat(row.StockLevel, 64); err == nil {
			variant.StockLevel = int(stock)
		}
	}
	if v := parseFloatPtr(row.PackageLength); v != nil {
		variant.PackageLength = v
	}
	if v := parseFloatPtr(row.PackageWidth); v != nil {
		variant.PackageWidth = v
	}
	if v := parseFloatPtr(row.PackageHeight); v != nil {
		variant.PackageHeight = v
	}
	if v := parseFloatPtr(row.PackageWeight); v != nil {
		variant.PackageWeight = v
	}
	if row.Status != "" {
		variant.Status = productStatus(row.Status)
	}
}

func (c *Committer) publish(ctx context.Context, run *commitRun) {
	if c.notifier == nil {
		return
	}
	for _, ev := range run.events {
		if ev.product != nil {
			c.notifier.ProductChanged(ctx, ev.product, ev.action)
		}
		if ev.variant != nil {
			c.notifier.VariantChanged(ctx, ev.variant, ev.action)
		}
	}
	c.notifier.ImportCompleted(ctx, run.result)
}

// detectAttributeType infers how an attribute value should be typed.
// Boolean tokens are checked before numbers so "1"/"0" stay boolean.
func detectAttributeType(value string) models.AttributeDataType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "false", "yes", "no", "1", "0":
		return models.AttributeTypeBoolean
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return models.AttributeTypeNumber
	}
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return models.AttributeTypeJSON
		}
	}
	return models.AttributeTypeString
}

// barcodeType guesses the symbology from the code length
func barcodeType(code string) string {
	switch len(code) {
	case 12:
		return "UPC"
	case 8:
		return "EAN8"
	case 14:
		return "GTIN14"
	default:
		return "EAN13"
	}
}

func productStatus(value string) models.ProductStatus {
	switch models.ProductStatus(strings.ToLower(strings.TrimSpace(value))) {
	case models.ProductStatusInactive:
		return models.ProductStatusInactive
	case models.ProductStatusDiscontinued:
		return models.ProductStatusDiscontinued
	default:
		return models.ProductStatusActive
	}
}

func parseFloatPtr(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func jsonArray(items []string) *models.JSONArray {
	if len(items) == 0 {
		return nil
	}
	arr := make(models.JSONArray, 0, len(items))
	for _, item := range items {
		arr = append(arr, item)
	}
	return &arr
}
