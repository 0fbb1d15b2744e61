package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"pim-service/internal/models"
)

// DryRunRowCap bounds how many data rows the planner inspects across all
// selected worksheets combined. Full correctness is only guaranteed by the
// real commit; the cap keeps the dry run interactive.
const DryRunRowCap = 100

// Planner simulates the commit phase without writing, producing projected
// action counts and a barcode-pool feasibility check. It classifies rows
// with the exact same resolver the committers use.
type Planner struct {
	store     Store
	resolver  *IdentityResolver
	grouper   *SimilarityGrouper
	validator *RowValidator
	logger    *logrus.Entry
}

// NewPlanner returns a dry-run planner
func NewPlanner(store Store, resolver *IdentityResolver, grouper *SimilarityGrouper, logger *logrus.Logger) *Planner {
	return &Planner{
		store:     store,
		resolver:  resolver,
		grouper:   grouper,
		validator: NewRowValidator(),
		logger:    logger.WithField("component", "import-planner"),
	}
}

// Plan runs a bounded, read-only simulation of the import
func (p *Planner) Plan(ctx context.Context, session ImportSession, wb *Workbook) (*models.DryRunResult, error) {
	result := &models.DryRunResult{}

	rows, truncated, err := p.sampleRows(session, wb)
	if err != nil {
		return nil, err
	}
	if truncated {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("dry run inspected only the first %d data rows; the commit processes every row", DryRunRowCap))
	}

	valid := p.validateRows(rows, session.Settings, result)

	productActions := make(map[string]Action)
	if session.Settings.AutoGenerateParentMode {
		p.classifyGrouped(ctx, valid, session.Settings, productActions, result)
	} else {
		p.classifyStandard(ctx, valid, session.Settings, productActions, result)
	}

	for _, action := range productActions {
		switch action {
		case ActionCreate:
			result.ProductsToCreate++
		case ActionUpdate:
			result.ProductsToUpdate++
		default:
			result.ProductsToSkip++
		}
	}

	available, err := p.store.AvailablePoolCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check barcode pool: %w", err)
	}
	result.BarcodesAvailable = available
	if int64(result.BarcodesNeeded) > available {
		result.Errors = append(result.Errors, models.ImportRowError{
			Code: "BARCODE_POOL_EXHAUSTED",
			Message: fmt.Sprintf("barcode pool has %d available codes but %d are needed; load %d more codes before committing",
				available, result.BarcodesNeeded, int64(result.BarcodesNeeded)-available),
		})
	}

	p.logger.WithFields(logrus.Fields{
		"validRows":      result.ValidRows,
		"errorRows":      result.ErrorRows,
		"barcodesNeeded": result.BarcodesNeeded,
	}).Info("dry run complete")

	return result, nil
}

// sampleRows reads mapped rows across the selected worksheets, stopping at
// the row cap. The extra probe row only signals truncation.
func (p *Planner) sampleRows(session ImportSession, wb *Workbook) ([]MappedRow, bool, error) {
	var rows []MappedRow
	truncated := false

	for _, sheet := range session.Worksheets {
		remaining := DryRunRowCap - len(rows)
		if remaining <= 0 {
			truncated = true
			break
		}
		err := wb.ReadDataRows(sheet, remaining+1, func(rowNum int, cells []string) error {
			if len(rows) >= DryRunRowCap {
				truncated = true
				return nil
			}
			rows = append(rows, BuildMappedRow(sheet, rowNum, session.Mapping, cells))
			return nil
		})
		if err != nil {
			return nil, false, err
		}
	}

	return rows, truncated, nil
}

func (p *Planner) validateRows(rows []MappedRow, settings models.ImportSettings, result *models.DryRunResult) []MappedRow {
	valid := make([]MappedRow, 0, len(rows))
	for _, row := range rows {
		errs := p.validator.Validate(row, settings)
		if len(errs) > 0 {
			result.ErrorRows++
			result.Errors = append(result.Errors, errs...)
			continue
		}
		result.ValidRows++
		valid = append(valid, row)
	}
	return valid
}

// classifyGrouped mirrors the two-phase committer: one product per group,
// then per-row variant classification inside the group.
func (p *Planner) classifyGrouped(ctx context.Context, rows []MappedRow, settings models.ImportSettings, productActions map[string]Action, result *models.DryRunResult) {
	for _, group := range p.grouper.Group(rows) {
		product, err := p.resolver.ResolveGroupParent(ctx, p.store, group)
		if err != nil {
			p.warnLookup(err)
			continue
		}
		productActions["group:"+group.Key] = ResolveAction(settings.Mode, product != nil)

		for _, row := range group.Products {
			p.classifyVariant(ctx, row, productIDOf(product), false, settings, result)
		}
	}
}

// classifyStandard mirrors the standard committer's per-row handling. Parent
// rows classify by mode; a variant row's parent is only ever reused or
// auto-created, so it can never project an update.
func (p *Planner) classifyStandard(ctx context.Context, rows []MappedRow, settings models.ImportSettings, productActions map[string]Action, result *models.DryRunResult) {
	for _, row := range rows {
		product, err := p.resolver.ResolveProduct(ctx, p.store, row)
		if err != nil {
			p.warnLookup(err)
			continue
		}
		key := productKey(row)

		if IsParentRow(row) {
			productActions[key] = ResolveAction(settings.Mode, product != nil)
			continue
		}

		if _, seen := productActions[key]; !seen {
			productActions[key] = planParentAction(product, settings)
		}
		parentMissing := product == nil && productActions[key] != ActionCreate
		p.classifyVariant(ctx, row, productIDOf(product), parentMissing, settings, result)
	}
}

func (p *Planner) classifyVariant(ctx context.Context, row MappedRow, productID *uuid.UUID, parentMissing bool, settings models.ImportSettings, result *models.DryRunResult) {
	variant, err := p.resolver.ResolveVariant(ctx, p.store, productID, row, settings.SmartAttributeExtraction)
	if err != nil {
		p.warnLookup(err)
		return
	}

	switch ResolveAction(settings.Mode, variant != nil) {
	case ActionCreate:
		if parentMissing {
			result.Errors = append(result.Errors, models.ImportRowError{
				Sheet: row.Sheet, Row: row.RowNum, Column: FieldParentName,
				Code:    "PARENT_NOT_FOUND",
				Message: "no parent product exists for this row and automatic parent creation is disabled",
			})
			return
		}
		result.VariantsToCreate++
		if row.Barcode == "" && settings.AutoAssignBarcodes {
			result.BarcodesNeeded++
		}
	case ActionUpdate:
		result.VariantsToUpdate++
	default:
		result.VariantsToSkip++
	}
}

func (p *Planner) warnLookup(err error) {
	p.logger.WithError(err).Warn("lookup failed during dry run")
}

func productIDOf(product *models.Product) *uuid.UUID {
	if product == nil {
		return nil
	}
	return &product.ID
}

// planParentAction projects what the committer does with a variant row's
// parent: reuse it when found, auto-create when the mode and settings allow,
// otherwise leave it alone.
func planParentAction(product *models.Product, settings models.ImportSettings) Action {
	if product != nil {
		return ActionSkip
	}
	if settings.AutoCreateParents && ResolveAction(settings.Mode, false) == ActionCreate {
		return ActionCreate
	}
	return ActionSkip
}

// productKey dedupes product classification across rows of the same product
func productKey(row MappedRow) string {
	if row.ParentSKU != "" {
		return "sku:" + row.ParentSKU
	}
	if row.ParentName != "" {
		return "name:" + row.ParentName
	}
	return "name:" + row.ProductName
}
