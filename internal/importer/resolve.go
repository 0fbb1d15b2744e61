package importer

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"pim-service/internal/models"
)

// Action classifies what the commit phase will do with one record
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// ResolveAction applies the import-mode policy uniformly to products and
// variants. This is the single source of truth shared by the dry-run planner
// and the committers; the two must never disagree.
func ResolveAction(mode models.ImportMode, found bool) Action {
	switch mode {
	case models.ImportModeCreateOnly:
		if found {
			return ActionSkip
		}
		return ActionCreate
	case models.ImportModeUpdateExisting:
		if found {
			return ActionUpdate
		}
		return ActionSkip
	default: // create_or_update
		if found {
			return ActionUpdate
		}
		return ActionCreate
	}
}

// IdentityResolver resolves the target product/variant for a mapped row
type IdentityResolver struct {
	extractor *AttributeExtractor
}

// NewIdentityResolver returns a resolver backed by the given extractor
func NewIdentityResolver(extractor *AttributeExtractor) *IdentityResolver {
	return &IdentityResolver{extractor: extractor}
}

// VariantIdentityAttrs builds the (color, width, drop) identity triple for a
// row. With smart extraction enabled, missing members are sourced from the
// product name; attributes that stay empty are omitted entirely so a null
// extraction never scopes the lookup.
func (r *IdentityResolver) VariantIdentityAttrs(row MappedRow, smartExtraction bool) map[string]string {
	color := row.VariantColor
	width := row.VariantWidth
	drop := row.VariantDrop

	if smartExtraction && (color == "" || width == "" || drop == "") {
		extracted := r.extractor.Extract(row.ProductName)
		if color == "" {
			color = extracted.Color
		}
		if width == "" && extracted.WidthMM != nil {
			width = strconv.Itoa(*extracted.WidthMM)
		}
		if drop == "" && extracted.DropMM != nil {
			drop = strconv.Itoa(*extracted.DropMM)
		}
	}

	attrs := make(map[string]string, 3)
	if color != "" {
		attrs["color"] = color
	}
	if width != "" {
		attrs["width"] = width
	}
	if drop != "" {
		attrs["drop"] = drop
	}
	return attrs
}

// ResolveVariant finds the existing variant a row targets: exact SKU match
// first, else the attribute triple within the owning product.
func (r *IdentityResolver) ResolveVariant(ctx context.Context, store Store, productID *uuid.UUID, row MappedRow, smartExtraction bool) (*models.ProductVariant, error) {
	if row.VariantSKU != "" {
		variant, err := store.FindVariantBySKU(ctx, row.VariantSKU)
		if err != nil || variant != nil {
			return variant, err
		}
	}
	if productID == nil {
		return nil, nil
	}
	attrs := r.VariantIdentityAttrs(row, smartExtraction)
	if len(attrs) == 0 {
		return nil, nil
	}
	return store.FindVariantByAttributeTriple(ctx, *productID, attrs)
}

// ResolveGroupParent finds the existing parent product for an inferred group:
// inferred name first, else the group's SKU prefix. Shared by the dry-run
// planner and the committer so the two classify group parents identically.
func (r *IdentityResolver) ResolveGroupParent(ctx context.Context, store Store, group ParentGroup) (*models.Product, error) {
	product, err := store.FindProductByName(ctx, group.Parent.Name)
	if err != nil || product != nil {
		return product, err
	}
	if group.Parent.SKUPrefix == "" {
		return nil, nil
	}
	return store.FindProductByParentSKU(ctx, group.Parent.SKUPrefix)
}

// ResolveProduct finds the existing product a row targets: parent SKU first,
// else name (explicit parent name, falling back to product name).
func (r *IdentityResolver) ResolveProduct(ctx context.Context, store Store, row MappedRow) (*models.Product, error) {
	if row.ParentSKU != "" {
		product, err := store.FindProductByParentSKU(ctx, row.ParentSKU)
		if err != nil || product != nil {
			return product, err
		}
	}
	name := row.ParentName
	if name == "" {
		name = row.ProductName
	}
	if name == "" {
		return nil, nil
	}
	return store.FindProductByName(ctx, name)
}
